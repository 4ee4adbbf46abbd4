package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

var errHeaderTooLarge = errors.New("request header too large")

// readRequest parses one request from conn. Header and body are each bounded
// by MaxRequestSize.
func (s *Server) readRequest(conn net.Conn) (*types.Request, error) {
	lr := &io.LimitedReader{R: conn, N: s.config.MaxRequestSize}
	raw, err := http.ReadRequest(bufio.NewReader(lr))
	if err != nil {
		if lr.N <= 0 {
			return nil, errHeaderTooLarge
		}
		return nil, fmt.Errorf("parse request: %w", err)
	}
	if raw.ProtoMajor != 1 {
		return nil, fmt.Errorf("unsupported protocol %s", raw.Proto)
	}
	// the header limit no longer applies once the body starts
	lr.N = s.config.MaxRequestSize + 1

	req := &types.Request{
		Method:     raw.Method,
		Path:       raw.URL.Path,
		RawQuery:   raw.URL.RawQuery,
		Proto:      raw.Proto,
		Header:     raw.Header,
		Body:       &limitedBody{r: raw.Body, remaining: s.config.MaxRequestSize},
		RemoteAddr: conn.RemoteAddr().String(),
	}
	return req, nil
}

// limitedBody fails with ErrBodyTooLarge instead of silently truncating.
type limitedBody struct {
	r         io.Reader
	remaining int64
}

func (b *limitedBody) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		var one [1]byte
		n, err := b.r.Read(one[:])
		if n > 0 {
			return 0, types.ErrBodyTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.r.Read(p)
	b.remaining -= int64(n)
	return n, err
}
