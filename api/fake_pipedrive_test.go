package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

// recordedCall is one request received by fakePipedrive
type recordedCall struct {
	Method string
	Path   string
	Token  string
	Term   string
	Body   map[string]interface{}
}

// fakePipedrive is an in-memory stand-in for the Pipedrive API
type fakePipedrive struct {
	*httptest.Server

	mu    sync.Mutex
	calls []recordedCall

	searchIDs  []int
	ids        map[string]int    // path -> id returned by POST
	statuses   map[string]int    // path -> forced HTTP status
	rawBodies  map[string]string // path -> raw body returned instead of JSON
	omitDataID map[string]bool   // path -> answer {"success":false,"data":null}
}

func newFakePipedrive(t *testing.T) *fakePipedrive {
	t.Helper()
	f := &fakePipedrive{
		ids: map[string]int{
			"/persons":       101,
			"/organizations": 201,
			"/deals":         301,
			"/notes":         401,
			"/activities":    501,
		},
		statuses:   map[string]int{},
		rawBodies:  map[string]string{},
		omitDataID: map[string]bool{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakePipedrive) serve(w http.ResponseWriter, r *http.Request) {
	call := recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Token:  r.URL.Query().Get("api_token"),
		Term:   r.URL.Query().Get("term"),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &call.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	status, forced := f.statuses[r.URL.Path]
	raw, hasRaw := f.rawBodies[r.URL.Path]
	omit := f.omitDataID[r.URL.Path]
	id := f.ids[r.URL.Path]
	searchIDs := f.searchIDs
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if forced {
		w.WriteHeader(status)
	}
	if hasRaw {
		_, _ = io.WriteString(w, raw)
		return
	}
	if forced && status >= 300 {
		fmt.Fprintf(w, `{"success":false,"error":"forced %d"}`, status)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/persons/search":
		items := make([]map[string]interface{}, 0, len(searchIDs))
		for _, sid := range searchIDs {
			items = append(items, map[string]interface{}{
				"result_score": 1.0,
				"item":         map[string]interface{}{"id": sid, "name": "Existing"},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"items": items},
		})
	case omit:
		_, _ = io.WriteString(w, `{"success":false,"data":null}`)
	default:
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"id": id},
		})
	}
}

// Calls returns a copy of the recorded requests
func (f *fakePipedrive) Calls() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Paths returns "METHOD path" for every recorded request, in order
func (f *fakePipedrive) Paths() []string {
	var out []string
	for _, c := range f.Calls() {
		out = append(out, c.Method+" "+c.Path)
	}
	return out
}

// CallsTo returns the requests sent to path
func (f *fakePipedrive) CallsTo(path string) []recordedCall {
	var out []recordedCall
	for _, c := range f.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePipedrive) Config() *Config {
	return &Config{
		PipedriveAPIToken:   "test-token",
		PipedriveBaseURL:    f.URL,
		PipedrivePipelineID: "3",
		PipedriveStageID:    "12",
		PipedriveTimeout:    5 * time.Second,
		LogLevel:            "debug",
	}
}

func (f *fakePipedrive) Client() *PipedriveClient {
	return NewPipedriveClient(f.Config(), zap.NewNop(), nil)
}

func (f *fakePipedrive) Synchronizer() *BookingSynchronizer {
	return NewBookingSynchronizer(f.Client(), f.Config(), zap.NewNop())
}
