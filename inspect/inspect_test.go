package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/dedup"
	"github.com/hazyhaar/linkwatch/monitor"
	"github.com/hazyhaar/linkwatch/seenstate"
)

const jane = "https://www.linkedin.com/in/jane-doe"

type staticSource struct{ status monitor.Status }

func (s staticSource) Status() monitor.Status { return s.status }

func sampleStatus() monitor.Status {
	st := seenstate.New()
	st.Apply(seenstate.Update{Profile: jane, Fingerprints: []string{"b", "a"}}, seenstate.IncrementalCaps)
	st.Apply(seenstate.Update{Profile: "https://www.linkedin.com/in/john", Fingerprints: []string{"c"}}, seenstate.IncrementalCaps)
	return monitor.Status{
		Mode:   dedup.Incremental,
		State:  st,
		Cycles: 2,
		LastCycle: &monitor.CycleSummary{
			RunID:      "run-2",
			Mode:       "incremental",
			FinishedAt: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC),
			Profiles:   []monitor.ProfileResult{{Profile: jane, Slug: "jane-doe", New: 1, Sent: true}},
		},
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHTTP_Health(t *testing.T) {
	rec := get(t, Handler(staticSource{}, nil), "/health")
	if rec.Code != http.StatusOK || rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("health: %d %v", rec.Code, rec.Header())
	}
}

func TestHTTP_State(t *testing.T) {
	rec := get(t, Handler(staticSource{sampleStatus()}, nil), "/state")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var v StateView
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if v.Mode != "incremental" || v.Global != 3 || v.Cycles != 2 || v.LastRunID != "run-2" {
		t.Errorf("view: %+v", v)
	}
	if len(v.Profiles) != 2 || v.Profiles[0].Slug != "jane-doe" || v.Profiles[0].Fingerprints != 2 {
		t.Errorf("profiles: %+v", v.Profiles)
	}
}

func TestHTTP_ProfileBySlug(t *testing.T) {
	h := Handler(staticSource{sampleStatus()}, nil)
	rec := get(t, h, "/state/jane-doe")
	var body struct {
		Profile      string   `json:"profile"`
		Fingerprints []string `json:"fingerprints"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Profile != jane || len(body.Fingerprints) != 2 || body.Fingerprints[0] != "a" {
		t.Errorf("profile: %+v", body)
	}
	if rec := get(t, h, "/state/nobody"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown profile: %d", rec.Code)
	}
}

func TestHTTP_LastCycle(t *testing.T) {
	if rec := get(t, Handler(staticSource{}, nil), "/cycles/last"); rec.Code != http.StatusNotFound {
		t.Errorf("no cycle yet: %d", rec.Code)
	}
	rec := get(t, Handler(staticSource{sampleStatus()}, nil), "/cycles/last")
	var c monitor.CycleSummary
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatal(err)
	}
	if c.RunID != "run-2" || len(c.Profiles) != 1 || !c.Profiles[0].Sent {
		t.Errorf("cycle: %+v", c)
	}
}

func TestHTTP_Head(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(staticSource{}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("HEAD /health: %d", rec.Code)
	}
}

var testMCPImpl = &mcp.Implementation{Name: "linkwatch-test", Version: "0.1.0"}

func mcpSession(t *testing.T, src StatusSource) *mcp.ClientSession {
	t.Helper()
	srv := NewMCPServer(src, "test")

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_State(t *testing.T) {
	session := mcpSession(t, staticSource{sampleStatus()})
	text, isErr := callTool(t, session, "linkwatch_state", map[string]any{})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var v StateView
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		t.Fatal(err)
	}
	if v.Global != 3 || len(v.Profiles) != 2 {
		t.Errorf("view: %+v", v)
	}
}

func TestMCP_Profile(t *testing.T) {
	session := mcpSession(t, staticSource{sampleStatus()})
	text, isErr := callTool(t, session, "linkwatch_profile", map[string]any{"profile": jane})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var body struct {
		Fingerprints []string `json:"fingerprints"`
	}
	json.Unmarshal([]byte(text), &body)
	if len(body.Fingerprints) != 2 {
		t.Errorf("fingerprints: %q", body.Fingerprints)
	}

	if _, isErr := callTool(t, session, "linkwatch_profile", map[string]any{"profile": "ghost"}); !isErr {
		t.Error("unknown profile must be a tool error")
	}
}

func TestMCP_Fingerprint(t *testing.T) {
	// WHAT: the tool computes the same fingerprint as the dedup pipeline.
	// WHY: operators use it to check why an item was or was not reported.
	session := mcpSession(t, staticSource{})
	text, isErr := callTool(t, session, "linkwatch_fingerprint", map[string]any{
		"kind": "post", "link": "https://x/1", "text": "hello",
	})
	if isErr {
		t.Fatalf("tool error: %s", text)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(text), &body); err != nil {
		t.Fatal(err)
	}
	want := activity.Fingerprint(activity.Record{Kind: activity.KindPost, Link: "https://x/1", Text: "hello"})
	if body["fingerprint"] != want || body["kind"] != "Post" {
		t.Errorf("got %v, want %s", body, want)
	}

	if _, isErr := callTool(t, session, "linkwatch_fingerprint", map[string]any{"kind": "share", "text": "x"}); !isErr {
		t.Error("bad kind must be a tool error")
	}
}
