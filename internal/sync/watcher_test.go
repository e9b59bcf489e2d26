package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"jurnalguru/internal/events"
)

func TestDBWatcherStartStop(t *testing.T) {
	dir := t.TempDir()
	dw, err := NewDBWatcher(filepath.Join(dir, "jurnal.db"), events.NewBus(8))
	if err != nil {
		t.Fatalf("NewDBWatcher failed: %v", err)
	}

	if dw.IsRunning() {
		t.Error("New watcher should not be running")
	}
	if err := dw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := dw.Start(); err == nil {
		t.Error("Second Start should fail")
	}
	if err := dw.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if dw.IsRunning() {
		t.Error("Watcher should not be running after Stop")
	}
}

func TestDBWatcherPublishesDatabaseWrites(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "jurnal.db")
	bus := events.NewBus(16)
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	dw, err := NewDBWatcher(dbPath, bus)
	if err != nil {
		t.Fatalf("NewDBWatcher failed: %v", err)
	}
	if err := dw.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer dw.Stop()

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-ch:
		t.Fatalf("Unexpected change for an unrelated file: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}

	if err := os.WriteFile(dbPath+"-wal", []byte("frame"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-ch:
		if c.Collection != AnyCollection {
			t.Errorf("Expected collection %q, got %q", AnyCollection, c.Collection)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a change from the WAL write")
	}
}
