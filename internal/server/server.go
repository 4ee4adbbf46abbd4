package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ColeHoward/Dispatch-HTTP/internal/socket"
	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

// ConnState is the lifecycle stage of one connection.
type ConnState int

const (
	StateAccepted ConnState = iota
	StateParsed
	StateRouted
	StateQueued
	StateHandled
	StateWritten
	StateClosed
)

var stateNames = [...]string{"accepted", "parsed", "routed", "queued", "handled", "written", "closed"}

func (s ConnState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ConnState(%d)", int(s))
}

const (
	// input still discarded after the response so closing does not reset the client
	maxDrain      = 256 << 10
	lingerTimeout = 500 * time.Millisecond
)

type Server struct {
	config   ServerConfig
	resolver types.Resolver
	pool     *Pool
	logger   *log.Logger

	// ConnState, if set, is called on every state transition of a connection.
	ConnState func(net.Conn, ConnState)

	listener net.Listener
	conns    sync.WaitGroup

	mu          sync.Mutex
	activeConns map[net.Conn]struct{}
	active      atomic.Int64
}

func New(config ServerConfig, resolver types.Resolver, logger *log.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		config:      config,
		resolver:    resolver,
		logger:      logger,
		activeConns: make(map[net.Conn]struct{}),
	}, nil
}

// SetResolver replaces the route table. It must be called before Serve, for
// callers whose routes depend on the bound address.
func (s *Server) SetResolver(resolver types.Resolver) {
	s.resolver = resolver
}

// Listen binds the listening socket. Failure is a *StartupError.
func (s *Server) Listen() error {
	ln, err := socket.Listen(context.Background(), s.config.ListenPort)
	if err != nil {
		return &StartupError{Port: s.config.ListenPort, Err: err}
	}
	s.listener = ln
	return nil
}

// Addr is the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveConnections counts connections not yet closed.
func (s *Server) ActiveConnections() int64 {
	return s.active.Load()
}

// Serve runs the accept loop until ctx is cancelled, then drains the worker
// pool and open connections for at most ShutdownTimeout.
func (s *Server) Serve(ctx context.Context) error {
	if s.resolver == nil {
		return errors.New("server has no resolver")
	}
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	s.pool = NewPool(s.config.NumWorkers, s.logger)

	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	var tempDelay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			// back off on errors such as EMFILE instead of spinning
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay = min(2*tempDelay, time.Second)
			}
			s.logger.Printf("accept error: %v; retrying in %v", err, tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		if err := socket.SetClientOptions(conn); err != nil {
			s.logger.Printf("failed to set TCP_NODELAY for %s: %v", conn.RemoteAddr(), err)
		}
		s.track(conn)
		s.conns.Add(1)
		go s.handleConn(conn)
	}

	s.logger.Printf("shutting down, %d connections open, %d tasks queued", s.ActiveConnections(), s.pool.Queued())
	return s.shutdown()
}

func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	poolErr := s.pool.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return poolErr
	case <-ctx.Done():
	}

	// force close whatever is left
	s.mu.Lock()
	for conn := range s.activeConns {
		conn.Close()
	}
	s.mu.Unlock()
	if poolErr != nil {
		return poolErr
	}
	return fmt.Errorf("connection drain: %w", ctx.Err())
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.activeConns[conn] = struct{}{}
	s.mu.Unlock()
	s.active.Add(1)
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.activeConns, conn)
	s.mu.Unlock()
	s.active.Add(-1)
}

func (s *Server) setState(conn net.Conn, state ConnState) {
	if s.ConnState != nil {
		s.ConnState(conn, state)
	}
}

// handleConn takes one connection from accept to close. It writes exactly one
// response.
func (s *Server) handleConn(conn net.Conn) {
	defer s.conns.Done()
	defer func() {
		lingerClose(conn)
		s.untrack(conn)
		s.setState(conn, StateClosed)
	}()
	s.setState(conn, StateAccepted)

	if limit := int64(s.config.MaxConnections); limit > 0 && s.ActiveConnections() > limit {
		s.logger.Printf("connection limit reached, rejecting %s", conn.RemoteAddr())
		s.write(conn, types.Text(503, "Server is too busy"))
		return
	}

	req, err := s.readRequest(conn)
	if err != nil {
		s.logger.Printf("error parsing request from %s: %v", conn.RemoteAddr(), err)
		res := types.Text(400, "Bad Request")
		if errors.Is(err, errHeaderTooLarge) {
			res = types.Text(431, "Request Header Fields Too Large")
		}
		s.write(conn, res)
		return
	}
	s.setState(conn, StateParsed)

	handler, err := s.resolve(req.Path)
	if err != nil {
		s.logger.Printf("error routing %s: %v", req.Path, err)
		s.write(conn, internalError())
		return
	}
	s.setState(conn, StateRouted)

	done := make(chan *types.Response, 1)
	err = s.pool.Submit(Task{
		Request: req,
		Handler: handler,
		Done:    func(res *types.Response) { done <- res },
	})
	if err != nil {
		s.write(conn, types.Text(503, "Service Unavailable"))
		return
	}
	s.setState(conn, StateQueued)

	res := <-done
	s.setState(conn, StateHandled)

	if s.write(conn, res) {
		s.logger.Printf("%s %s %s -> %d", conn.RemoteAddr(), req.Method, req.Path, res.Status)
	}
}

// lingerClose half-closes conn and discards what the client still sends, so
// the kernel does not answer unread input with a reset
func lingerClose(conn net.Conn) {
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite()
		tc.SetReadDeadline(time.Now().Add(lingerTimeout))
		io.CopyN(io.Discard, tc, maxDrain)
	}
	conn.Close()
}

// write reports whether the response reached the connection
func (s *Server) write(conn net.Conn, res *types.Response) bool {
	if err := WriteResponse(conn, res); err != nil {
		s.logger.Printf("write error to %s: %v", conn.RemoteAddr(), err)
		return false
	}
	s.setState(conn, StateWritten)
	return true
}

func (s *Server) resolve(path string) (h types.Handler, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()
	h = s.resolver.Resolve(path)
	if h == nil {
		return nil, fmt.Errorf("no handler for %s", path)
	}
	return h, nil
}
