package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

const (
	ServerName = "Dispatch-HTTP"
	FilePrefix = "/file/"
)

// ServerInfo is rendered on the home page.
type ServerInfo struct {
	Port    int
	Workers int
}

// clock is swapped in tests
var now = time.Now

const homeTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Dispatch-HTTP</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .container { max-width: 800px; margin: 0 auto; }
        .endpoint { background: #e8f4fd; padding: 15px; margin: 10px 0; border-left: 4px solid #2196F3; }
        code { background: #f5f5f5; padding: 2px 4px; border-radius: 3px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Dispatch-HTTP</h1>
        <h2>Available Endpoints:</h2>
        <div class="endpoint"><strong>GET /</strong> - This homepage</div>
        <div class="endpoint"><strong>GET /hello</strong> - Simple greeting</div>
        <div class="endpoint"><strong>GET /time</strong> - Current server time</div>
        <div class="endpoint"><strong>POST /echo</strong> - Echo back posted data</div>
        <div class="endpoint"><strong>GET /file/{filename}</strong> - Serve static files</div>
        <h2>Server Info:</h2>
        <ul>
            <li>Port: <code>%d</code></li>
            <li>Workers: <code>%d</code></li>
            <li>Go Version: <code>%s</code></li>
        </ul>
    </div>
</body>
</html>
`

// DefaultRoutes builds the router with the standard endpoints, registered in
// the order /, /hello, /time, /echo, /file/.
func DefaultRoutes(info ServerInfo, files fs.FS) *Router {
	r := NewRouter()
	r.RegisterRoute("/", Home(info))
	r.RegisterRoute("/hello", Greeting())
	r.RegisterRoute("/time", ServerTime())
	r.RegisterRoute("/echo", Echo())
	r.RegisterRoute(FilePrefix, StaticFile(files))
	return r
}

func methodNotAllowed(allow, body string) *types.Response {
	res := types.Text(405, body)
	res.Header.Set("Allow", allow)
	return res
}

// encodes v without HTML escaping so echoed text round-trips byte for byte
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonResponse(status int, v any) (*types.Response, error) {
	body, err := marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return types.JSON(status, body), nil
}

func Home(info ServerInfo) types.Handler {
	page := fmt.Sprintf(homeTemplate, info.Port, info.Workers, runtime.Version())
	return types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
		if req.Method != "GET" {
			return methodNotAllowed("GET", "Method Not Allowed"), nil
		}
		return types.HTML(200, page), nil
	})
}

type greeting struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

func Greeting() types.Handler {
	return types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
		return jsonResponse(200, greeting{
			Message:   "Hello from " + ServerName + "!",
			Timestamp: now().Format(time.RFC3339Nano),
			Status:    "success",
		})
	})
}

type serverTime struct {
	CurrentTime string `json:"current_time"`
	Timezone    string `json:"timezone"`
	Server      string `json:"server"`
}

func ServerTime() types.Handler {
	return types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
		return jsonResponse(200, serverTime{
			CurrentTime: now().UTC().Format(time.RFC3339Nano),
			Timezone:    "UTC",
			Server:      ServerName,
		})
	})
}

type echo struct {
	Echo       string `json:"echo"`
	ReceivedAt string `json:"received_at"`
	Length     int    `json:"length"`
}

func Echo() types.Handler {
	return types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
		if req.Method != "POST" {
			return methodNotAllowed("POST", "Only POST method allowed"), nil
		}
		var body []byte
		if req.Body != nil {
			var err error
			body, err = io.ReadAll(req.Body)
			if errors.Is(err, types.ErrBodyTooLarge) {
				return types.Text(413, "Request Entity Too Large"), nil
			}
			if err != nil {
				return nil, fmt.Errorf("read echo body: %w", err)
			}
		}
		return jsonResponse(200, echo{
			Echo:       string(body),
			ReceivedAt: now().Format(time.RFC3339Nano),
			Length:     len(body),
		})
	})
}

type fileError struct {
	Error    string `json:"error"`
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// StaticFile serves /file/{name} from files.
func StaticFile(files fs.FS) types.Handler {
	return types.HandlerFunc(func(req *types.Request) (*types.Response, error) {
		if req.Method != "GET" {
			return methodNotAllowed("GET", "Method Not Allowed"), nil
		}
		name := strings.TrimPrefix(req.Path, FilePrefix)
		data, err := fs.ReadFile(files, name)
		if err != nil {
			return jsonResponse(404, fileError{
				Error:    "File not found",
				Filename: name,
				Message:  err.Error(),
			})
		}
		return types.Bytes(200, ContentType(name), data), nil
	})
}

// ContentType maps a file name to the content type served for it.
func ContentType(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html"
	case strings.HasSuffix(name, ".css"):
		return "text/css"
	case strings.HasSuffix(name, ".js"):
		return "application/javascript"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	}
	return "text/plain"
}
