package api

import (
	"sync"
	"testing"

	"github.com/ColeHoward/Dispatch-HTTP/internal/types"
)

func named(name string) func(req *types.Request) (*types.Response, error) {
	return func(req *types.Request) (*types.Response, error) {
		return types.Text(200, name), nil
	}
}

func resolveBody(t *testing.T, r *Router, path string) (int, string) {
	t.Helper()
	res, err := r.Resolve(path).Handle(&types.Request{Method: "GET", Path: path})
	if err != nil {
		t.Fatalf("Expected no error for %s, got %v", path, err)
	}
	return res.Status, string(res.Body)
}

func TestRouter(t *testing.T) {
	router := NewRouter()
	router.RegisterRouteFunc("/", named("home"))
	router.RegisterRouteFunc("/hello", named("hello"))
	router.RegisterRouteFunc("/time", named("time"))
	router.RegisterRouteFunc("/file/", named("file"))

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/", 200, "home"},
		{"/hello", 200, "hello"},
		{"/file/index.html", 200, "file"},
		{"/file/", 200, "file"},
		{"/hello/there", 200, "hello"},
		{"/hellox", 200, "hello"},
		{"/time/", 200, "time"},
		{"/timezone", 200, "time"},
		{"/file", 404, "Not Found"},
		{"/hell", 404, "Not Found"},
		{"/nope", 404, "Not Found"},
	}
	for _, tc := range tests {
		status, body := resolveBody(t, router, tc.path)
		if status != tc.status || body != tc.body {
			t.Errorf("%s: expected %d %q, got %d %q", tc.path, tc.status, tc.body, status, body)
		}
	}
}

func TestRouterRegistrationOrderWins(t *testing.T) {
	router := NewRouter()
	router.RegisterRouteFunc("/static/", named("static"))
	router.RegisterRouteFunc("/static/css/", named("css"))

	if _, body := resolveBody(t, router, "/static/css/site.css"); body != "static" {
		t.Errorf("Expected first registered prefix to win, got %q", body)
	}

	reversed := NewRouter()
	reversed.RegisterRouteFunc("/static/css/", named("css"))
	reversed.RegisterRouteFunc("/static/", named("static"))

	if _, body := resolveBody(t, reversed, "/static/css/site.css"); body != "css" {
		t.Errorf("Expected first registered prefix to win, got %q", body)
	}
}

func TestRouterNotFoundRegardlessOfOrder(t *testing.T) {
	orders := [][]string{
		{"/", "/hello", "/time", "/echo", "/file/"},
		{"/file/", "/echo", "/time", "/hello", "/"},
	}
	for _, order := range orders {
		router := NewRouter()
		for _, p := range order {
			router.RegisterRouteFunc(p, named(p))
		}
		if status, _ := resolveBody(t, router, "/nope"); status != 404 {
			t.Errorf("order %v: expected 404 for /nope, got %d", order, status)
		}
	}
}

func TestRouterDefaultHandler(t *testing.T) {
	router := NewRouter()
	router.SetDefaultHandler(types.HandlerFunc(named("fallback")))

	if _, body := resolveBody(t, router, "/anything"); body != "fallback" {
		t.Errorf("Expected fallback handler, got %q", body)
	}
}

func TestRouterFrozenAfterLookup(t *testing.T) {
	router := NewRouter()
	router.RegisterRouteFunc("/", named("home"))
	router.Resolve("/")

	defer func() {
		if recover() == nil {
			t.Errorf("Expected registration after lookup to panic")
		}
	}()
	router.RegisterRouteFunc("/late", named("late"))
}

func TestRouterConcurrentResolve(t *testing.T) {
	router := DefaultRoutes(ServerInfo{Port: 8080, Workers: 10}, nil)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := []string{"/", "/hello", "/time", "/nope"}[i%4]
			if router.Resolve(path) == nil {
				t.Errorf("nil handler for %s", path)
			}
		}(i)
	}
	wg.Wait()

	want := []string{"/", "/hello", "/time", "/echo", "/file/"}
	got := router.Routes()
	if len(got) != len(want) {
		t.Fatalf("Expected routes %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected routes %v, got %v", want, got)
			break
		}
	}
}
