package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhyun/llmstack/internal/history"
)

func TestNewRejectsEmptyDSN(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestSendAndQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://" + path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	events := []history.Event{
		{Type: history.EventStart, Service: "tabbyapi", PID: 42, Detail: "venv/bin/python main.py", OccurredAt: time.Now()},
		{Type: history.EventReady, Service: "tabbyapi", PID: 42, OccurredAt: time.Now()},
		{Type: history.EventDownload, Service: "model", Detail: "org/m@6_5", OccurredAt: time.Now()},
	}
	for _, e := range events {
		if err := sink.Send(context.Background(), e); err != nil {
			t.Fatalf("Send(%s): %v", e.Type, err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = db.Close() }()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM service_history`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != len(events) {
		t.Fatalf("rows: got %d want %d", count, len(events))
	}

	var event, detail string
	err = db.QueryRow(`SELECT event, detail FROM service_history WHERE service = 'model'`).Scan(&event, &detail)
	if err != nil {
		t.Fatalf("query download row: %v", err)
	}
	if event != "download" || detail != "org/m@6_5" {
		t.Fatalf("download row: %s %s", event, detail)
	}
}

func TestInMemory(t *testing.T) {
	sink, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()
	e := history.Event{Type: history.EventStop, Service: "tabbyapi", OccurredAt: time.Now()}
	if err := sink.Send(context.Background(), e); err != nil {
		t.Fatalf("Send: %v", err)
	}
}
