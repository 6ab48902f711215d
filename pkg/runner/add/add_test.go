package add

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"tableflip.dev/journey/pkg/app"
	"tableflip.dev/journey/pkg/backend"
	"tableflip.dev/journey/pkg/backend/backendtest"
	"tableflip.dev/journey/pkg/journey"
	"tableflip.dev/journey/pkg/printers"
	"tableflip.dev/journey/pkg/router"
	"tableflip.dev/journey/pkg/runner/list"
)

func newService(t *testing.T) *app.Service {
	t.Helper()
	j := journey.New(journey.Deps{
		Auth:    backendtest.NewAuth("u1"),
		Store:   backendtest.NewStore(),
		KV:      backendtest.NewKV(),
		Confirm: backend.AlwaysConfirm,
		Paths:   backend.Paths{AppID: "app"},
	})
	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(j.Close)
	return &app.Service{Journey: j, Timeout: time.Second}
}

func TestAddMomentPrintsList(t *testing.T) {
	color.NoColor = true
	svc := newService(t)
	var buf bytes.Buffer

	a := Add{View: router.Moments, Title: "First date", Type: "milestone", Service: svc, Out: &buf}
	if err := a.Do(context.Background()); err != nil {
		t.Fatalf("add: %v", err)
	}
	got := buf.String()
	if !strings.Contains(got, "Our Moments - 1 moment") || !strings.Contains(got, "⚑ First date") {
		t.Fatalf("unexpected output:\n%s", got)
	}
}

func TestAddJournalThenListJSON(t *testing.T) {
	svc := newService(t)
	var buf bytes.Buffer

	a := Add{View: router.Journal, Text: "we went hiking", Service: svc, Out: &buf}
	if err := a.Do(context.Background()); err != nil {
		t.Fatalf("add: %v", err)
	}

	buf.Reset()
	l := list.List{View: router.Journal, JSON: true, Service: svc, Out: &buf}
	if err := l.Do(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []printers.JournalEntryJSON
	if err := json.Unmarshal(buf.Bytes(), &entries); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if len(entries) != 1 || entries[0].Text != "we went hiking" || entries[0].CreatorName != "Anonymous" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestAddPurposeIsRejected(t *testing.T) {
	a := Add{View: router.Purpose, Text: "x", Service: newService(t)}
	if err := a.Do(context.Background()); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestAddBlankIsRejected(t *testing.T) {
	a := Add{View: router.Journal, Text: "   ", Service: newService(t)}
	if err := a.Do(context.Background()); err == nil {
		t.Fatalf("expected an error")
	}
}
