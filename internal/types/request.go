package types

import (
	"errors"
	"io"
	"net/http"
)

// returned by Request.Body once the configured request size is exceeded
var ErrBodyTooLarge = errors.New("request body too large")

// represents a parsed client request
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Proto      string
	Header     http.Header
	Body       io.Reader
	RemoteAddr string
}

// defines how requests should be processed
type Handler interface {
	// processes a request and returns the response; a non-nil error is reported as a 500
	Handle(req *Request) (*Response, error)
}

// function type that implements Handler
type HandlerFunc func(req *Request) (*Response, error)

// calls f(req)
func (f HandlerFunc) Handle(req *Request) (*Response, error) {
	return f(req)
}

// maps a request path to the handler that serves it
type Resolver interface {
	Resolve(path string) Handler
}
