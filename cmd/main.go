package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/ColeHoward/Dispatch-HTTP/internal/api"
	"github.com/ColeHoward/Dispatch-HTTP/internal/server"
)

// parseFlags builds the server config from the command line.
func parseFlags(args []string, output io.Writer) (server.ServerConfig, error) {
	config := server.DefaultConfig()

	fs := flag.NewFlagSet("dispatch-http", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&config.ListenPort, "port", config.ListenPort, "port to listen on")
	fs.IntVar(&config.NumWorkers, "workers", config.NumWorkers, "number of handler workers")
	fs.IntVar(&config.MaxConnections, "max-connections", config.MaxConnections, "open connection limit, 0 for none")
	fs.Int64Var(&config.MaxRequestSize, "max-request-size", config.MaxRequestSize, "maximum header or body size in bytes")
	fs.StringVar(&config.FileRoot, "root", config.FileRoot, "directory served under /file/")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "time allowed for in-flight requests on shutdown")
	if err := fs.Parse(args); err != nil {
		return config, err
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// newServer binds the listener first so the home page reports the real port,
// which differs from the configured one when -port is 0.
func newServer(config server.ServerConfig, logger *log.Logger) (*server.Server, int, error) {
	srv, err := server.New(config, nil, logger)
	if err != nil {
		return nil, 0, err
	}
	if err := srv.Listen(); err != nil {
		return nil, 0, err
	}
	port := srv.Addr().(*net.TCPAddr).Port
	srv.SetResolver(api.DefaultRoutes(api.ServerInfo{
		Port:    port,
		Workers: config.NumWorkers,
	}, os.DirFS(config.FileRoot)))
	return srv, port, nil
}

func run(ctx context.Context, config server.ServerConfig, logger *log.Logger) error {
	srv, port, err := newServer(config, logger)
	if err != nil {
		return err
	}

	logger.Printf("Server started on http://localhost:%d with %d workers", port, config.NumWorkers)
	logger.Println("Available endpoints:")
	logger.Println("   GET  /      - Homepage")
	logger.Println("   GET  /hello - JSON greeting")
	logger.Println("   GET  /time  - Current time")
	logger.Println("   POST /echo  - Echo POST data")
	logger.Println("   GET  /file/ - Serve files")

	return srv.Serve(ctx)
}

func main() {
	config, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[dispatch] ", log.LstdFlags)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, config, logger); err != nil {
		var startErr *server.StartupError
		if errors.As(err, &startErr) {
			logger.Printf("Error setting up listener socket: %v", startErr)
		} else {
			logger.Printf("Server error: %v", err)
		}
		os.Exit(1)
	}
	logger.Println("Server shutdown complete")
}
