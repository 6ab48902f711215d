package store

import (
	"context"
	"testing"
	"time"

	"tableflip.dev/journey/pkg/backend"
)

func TestDocumentsWatchEmitsCollectionChanges(t *testing.T) {
	p, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := p.Watch(ctx)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// Allow watcher goroutine to subscribe to directories before storing.
	time.Sleep(50 * time.Millisecond)

	if _, err := p.Append(ctx, "artifacts/a/public/data/journal_entries", map[string]any{"text": "hello world"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Type == EventCollectionsInvalidated {
				return
			}
			if evt.Type == EventCollectionChanged {
				if evt.Collection != "artifacts/a/public/data/journal_entries" {
					t.Fatalf("unexpected collection %q", evt.Collection)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for collection change event")
		}
	}
}

func TestSubscribeDeliversFullSnapshots(t *testing.T) {
	p, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	path := backend.Paths{AppID: "test"}.Journal()
	snaps := make(chan []backend.Document, 16)
	stop, err := p.Subscribe(ctx, backend.Query{Path: path, OrderBy: "createdAt", Direction: backend.Desc},
		func(docs []backend.Document) { snaps <- docs },
		func(err error) { t.Errorf("subscription error: %v", err) },
	)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stop()

	select {
	case docs := <-snaps:
		if len(docs) != 0 {
			t.Fatalf("expected empty initial snapshot, got %d", len(docs))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial snapshot")
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := p.Append(ctx, path, map[string]any{"text": "one", "createdAt": backend.ServerTimestamp}); err != nil {
		t.Fatalf("append: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case docs := <-snaps:
			if len(docs) == 1 {
				if docs[0].Fields["text"] != "one" {
					t.Fatalf("unexpected document %#v", docs[0].Fields)
				}
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot with the new document")
		}
	}
}
