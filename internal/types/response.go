package types

import "net/http"

// Response is built by a handler and written once to the originating connection.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func newResponse(status int, contentType string, body []byte) *Response {
	h := make(http.Header)
	h.Set("Content-Type", contentType)
	return &Response{Status: status, Header: h, Body: body}
}

func Text(status int, body string) *Response {
	return newResponse(status, "text/plain", []byte(body))
}

func HTML(status int, body string) *Response {
	return newResponse(status, "text/html", []byte(body))
}

// JSON wraps an already encoded document.
func JSON(status int, body []byte) *Response {
	return newResponse(status, "application/json", body)
}

// Bytes returns body with an explicit content type.
func Bytes(status int, contentType string, body []byte) *Response {
	return newResponse(status, contentType, body)
}
