package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

const serverHeader = "Dispatch-HTTP/1.0"

// headers owned by the writer; handler values for these are ignored
var reservedHeaders = map[string]bool{
	"Content-Type":   true,
	"Content-Length": true,
	"Server":         true,
	"Connection":     true,
}

// WriteResponse serializes res as an HTTP/1.1 response on a connection that
// is closed afterwards.
func WriteResponse(w io.Writer, res *types.Response) error {
	bw := bufio.NewWriter(w)

	status := res.Status
	reason := http.StatusText(status)
	if reason == "" {
		reason = "status code " + strconv.Itoa(status)
	}
	fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", status, reason)

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/html"
	}
	fmt.Fprintf(bw, "Content-Type: %s\r\n", contentType)
	fmt.Fprintf(bw, "Content-Length: %d\r\n", len(res.Body))
	fmt.Fprintf(bw, "Server: %s\r\n", serverHeader)
	fmt.Fprintf(bw, "Connection: close\r\n")

	keys := make([]string, 0, len(res.Header))
	for k := range res.Header {
		if !reservedHeaders[http.CanonicalHeaderKey(k)] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range res.Header[k] {
			fmt.Fprintf(bw, "%s: %s\r\n", http.CanonicalHeaderKey(k), v)
		}
	}
	bw.WriteString("\r\n")
	bw.Write(res.Body)

	return bw.Flush()
}

// generic body for faults so internals never leak to the client
func internalError() *types.Response {
	return types.Text(500, "Internal Server Error")
}
