package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/store"
)

var paths = backend.Paths{AppID: "app"}

func newService(t *testing.T, uid string, docs backend.Store) *app.Service {
	t.Helper()
	j := journey.New(journey.Deps{
		Auth:    backendtest.NewAuth(uid),
		Store:   docs,
		KV:      backendtest.NewKV(),
		Confirm: backend.AlwaysConfirm,
		Paths:   paths,
	})
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(j.Close)
	return &app.Service{Journey: j, Timeout: time.Second}
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res == nil {
		t.Fatalf("nil result")
	}
	return res
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return tc.Text
}

func TestAddMomentDefaultsType(t *testing.T) {
	svc := newService(t, "u1", backendtest.NewStore())

	res := call(t, addMoment(svc), map[string]any{"title": "First date", "type": "sparkle"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", text(t, res))
	}

	var out struct {
		Status string              `json:"status"`
		Moment printers.MomentJSON `json:"moment"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "created" || out.Moment.Type != "star" || out.Moment.CreatorID != "u1" {
		t.Fatalf("unexpected moment: %+v", out)
	}
}

func TestAddToolsReturnSavedRecord(t *testing.T) {
	docs, err := store.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	svc := newService(t, "u1", docs)
	svc.Timeout = 5 * time.Second

	res := call(t, addMoment(svc), map[string]any{"title": "Road trip", "type": "cloud"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", text(t, res))
	}
	var moment struct {
		Moment printers.MomentJSON `json:"moment"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &moment); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if moment.Moment.ID == "" || moment.Moment.Title != "Road trip" || moment.Moment.CreatedAt == "" {
		t.Fatalf("expected the saved moment, got %+v", moment.Moment)
	}

	res = call(t, addJournalEntry(svc), map[string]any{"text": "Cooked dinner"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", text(t, res))
	}
	var entry struct {
		Entry printers.JournalEntryJSON `json:"entry"`
	}
	if err := json.Unmarshal([]byte(text(t, res)), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.Entry.ID == "" || entry.Entry.Text != "Cooked dinner" || entry.Entry.CreatedAt == "" {
		t.Fatalf("expected the saved entry, got %+v", entry.Entry)
	}

	res = call(t, setPurpose(svc), map[string]any{"text": "Grow together"})
	var p printers.PurposeJSON
	if err := json.Unmarshal([]byte(text(t, res)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Text != "Grow together" || p.LastUpdatedAt == "" {
		t.Fatalf("expected the saved purpose, got %+v", p)
	}
}

func TestAddJournalEntryRequiresText(t *testing.T) {
	svc := newService(t, "u1", backendtest.NewStore())

	if res := call(t, addJournalEntry(svc), map[string]any{}); !res.IsError {
		t.Fatalf("expected missing text to fail")
	}
	res := call(t, addJournalEntry(svc), map[string]any{"text": "   "})
	if !res.IsError || text(t, res) != "Please write something first." {
		t.Fatalf("expected blank text to fail, got %q", text(t, res))
	}
}

func TestPurposeTools(t *testing.T) {
	svc := newService(t, "u1", backendtest.NewStore())

	res := call(t, getPurpose(svc), nil)
	var p printers.PurposeJSON
	if err := json.Unmarshal([]byte(text(t, res)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Text != "" {
		t.Fatalf("expected empty purpose, got %q", p.Text)
	}

	res = call(t, setPurpose(svc), map[string]any{"text": "Grow together"})
	if err := json.Unmarshal([]byte(text(t, res)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Text != "Grow together" || p.LastUpdatedBy != "u1" {
		t.Fatalf("unexpected purpose: %+v", p)
	}

	res = call(t, setPurpose(svc), map[string]any{"text": ""})
	if res.IsError {
		t.Fatalf("expected clearing to succeed: %s", text(t, res))
	}
	res = call(t, getPurpose(svc), nil)
	p = printers.PurposeJSON{}
	if err := json.Unmarshal([]byte(text(t, res)), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Text != "" {
		t.Fatalf("expected cleared purpose, got %q", p.Text)
	}
}

func TestDeleteRecordChecksOwnership(t *testing.T) {
	docs := backendtest.NewStore()
	docs.Seed(paths.Moments(), "m1", map[string]any{
		"title": "Theirs", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "someone-else",
	})
	svc := newService(t, "u1", docs)

	res := call(t, deleteRecord(svc), map[string]any{"view": "moments", "id": "m1"})
	if !res.IsError {
		t.Fatalf("expected permission error")
	}
	if len(docs.Calls()) != 0 {
		t.Fatalf("expected no store calls, got %+v", docs.Calls())
	}

	res = call(t, deleteRecord(svc), map[string]any{"view": "nowhere", "id": "m1"})
	if !res.IsError {
		t.Fatalf("expected bad view to fail")
	}
}

func TestDeleteOwnMoment(t *testing.T) {
	docs := backendtest.NewStore()
	docs.Seed(paths.Moments(), "m1", map[string]any{
		"title": "Ours", "createdAt": "2024-01-01T00:00:00Z", "creatorId": "u1",
	})
	svc := newService(t, "u1", docs)

	res := call(t, deleteRecord(svc), map[string]any{"view": "moments", "id": "m1"})
	if res.IsError {
		t.Fatalf("unexpected error: %s", text(t, res))
	}
	moments, err := svc.Moments(context.Background())
	if err != nil || len(moments) != 0 {
		t.Fatalf("expected moment to be gone, got %v %v", moments, err)
	}
}
