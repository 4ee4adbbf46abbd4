package server

import (
	"errors"
	"fmt"
	"time"
)

type ServerConfig struct {
	ListenPort      int
	NumWorkers      int
	MaxConnections  int
	MaxRequestSize  int64
	FileRoot        string
	ShutdownTimeout time.Duration
}

func DefaultConfig() ServerConfig {
	return ServerConfig{
		ListenPort:      8080,
		NumWorkers:      10,
		MaxConnections:  10_000,
		MaxRequestSize:  1024 * 1024,
		FileRoot:        ".",
		ShutdownTimeout: 5 * time.Second,
	}
}

// Validate reports every invalid field. Port 0 asks the kernel for a free port.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		errs = append(errs, fmt.Errorf("listen port %d out of range", c.ListenPort))
	}
	if c.NumWorkers < 1 {
		errs = append(errs, fmt.Errorf("worker count must be positive, got %d", c.NumWorkers))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("max connections must not be negative, got %d", c.MaxConnections))
	}
	if c.MaxRequestSize < 1 {
		errs = append(errs, fmt.Errorf("max request size must be positive, got %d", c.MaxRequestSize))
	}
	if c.FileRoot == "" {
		errs = append(errs, errors.New("file root must not be empty"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

// StartupError is returned when the listening socket cannot be bound.
type StartupError struct {
	Port int
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup on port %d failed: %v", e.Port, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
