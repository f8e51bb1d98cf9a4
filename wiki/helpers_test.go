package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"
)

// fakeTransport answers API requests from an in-memory handler and records every
// parameter set it receives
type fakeTransport struct {
	handler func(params url.Values) (interface{}, error)
	calls   []url.Values
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req APIRequest) ([]byte, error) {
	f.calls = append(f.calls, cloneValues(req.Params))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := f.handler(req.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// callsWith returns the recorded calls where key has value
func (f *fakeTransport) callsWith(key, value string) []url.Values {
	var out []url.Values
	for _, c := range f.calls {
		if c.Get(key) == value {
			out = append(out, c)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestClient creates a client backed by a fakeTransport
func newTestClient(t *testing.T, handler func(url.Values) (interface{}, error), configure ...func(*Config)) (*Client, *fakeTransport) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CategoryRetryDelay = time.Millisecond
	for _, fn := range configure {
		fn(cfg)
	}
	ft := &fakeTransport{handler: handler}
	client, err := NewClient(cfg, WithTransport(ft), WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client, ft
}

// mockMediaWikiServer serves API requests over HTTP
func mockMediaWikiServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

// createMockClient creates a client using the default HTTP transport against server
func createMockClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIURL = server.URL + "/w/api.php"
	cfg.Timeout = 5 * time.Second
	cfg.MaxRetries = 1
	client, err := NewClient(cfg, WithLogger(testLogger()))
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type obj = map[string]interface{}
type arr = []interface{}

// pageResponse is a resolved metadata response for one page
func pageResponse(pageID int, title string) obj {
	return obj{"query": obj{"pages": obj{
		itoa(pageID): obj{
			"pageid":  pageID,
			"title":   title,
			"fullurl": "https://en.wikipedia.org/wiki/" + url.PathEscape(title),
		},
	}}}
}

// missingResponse is a metadata response for a page that does not exist
func missingResponse(title string) obj {
	return obj{"query": obj{"pages": obj{
		"-1": obj{"title": title, "missing": ""},
	}}}
}

// titleRecords builds a list of {"title": t} records
func titleRecords(titles ...string) arr {
	out := arr{}
	for _, t := range titles {
		out = append(out, obj{"title": t})
	}
	return out
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

var errUnexpected = errors.New("unexpected request")
