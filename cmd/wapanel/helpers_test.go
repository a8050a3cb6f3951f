package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// apiCall is one request seen by the fake backend.
type apiCall struct {
	method string
	path   string
	query  url.Values
	body   map[string]any
}

// fakeAPI serves canned JSON per "METHOD /path" and records every call.
type fakeAPI struct {
	mu     sync.Mutex
	calls  []apiCall
	routes map[string]string
	srv    *httptest.Server
}

func newFakeAPI(t *testing.T, routes map[string]string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{routes: routes}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := apiCall{method: r.Method, path: r.URL.Path, query: r.URL.Query()}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &call.body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.mu.Unlock()

		body, ok := f.routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

// count returns how many requests the server has seen.
func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// find returns the first call to method and path.
func (f *fakeAPI) find(method, path string) (apiCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.method == method && c.path == path {
			return c, true
		}
	}
	return apiCall{}, false
}

// writeConfig writes a config pointing at api (which may be nil) with a
// sqlite store in a temp dir.
func writeConfig(t *testing.T, api *fakeAPI, extra string) string {
	t.Helper()
	t.Setenv("WAPANEL_LOCATION_ID", "")
	dir := t.TempDir()
	base := "http://127.0.0.1:1"
	if api != nil {
		base = api.srv.URL
	}
	cfg := "api:\n" +
		"  whatsapp_url: " + base + "/whatsapp\n" +
		"  openai_url: " + base + "/openai\n" +
		"database:\n" +
		"  driver: sqlite\n" +
		"  path: " + filepath.Join(dir, "wapanel.db") + "\n" +
		extra
	path := filepath.Join(dir, "wapanel.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes the root command and returns what it printed.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}
