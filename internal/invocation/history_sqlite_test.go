package invocation

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"embulkshim/internal/engine"
)

func TestSQLiteHistoryStoreTrimsOldRecords(t *testing.T) {
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "nested", "history.sqlite"), 3)
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := store.SaveRecord(context.Background(), Record{
			ID:             fmt.Sprintf("inv-%d", i),
			ConfigFileName: "job.yml",
			Kind:           engine.KindSuccess,
			StatusCode:     200,
			Message:        engine.SuccessMessage,
			StartedAt:      base.Add(time.Duration(i) * time.Minute),
			EndedAt:        base.Add(time.Duration(i)*time.Minute + 30*time.Second),
		})
		if err != nil {
			t.Fatalf("save record %d failed: %v", i, err)
		}
	}

	records, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records after trim, got %d", len(records))
	}
	if records[0].ID != "inv-4" || records[2].ID != "inv-2" {
		t.Fatalf("unexpected order: %s .. %s", records[0].ID, records[2].ID)
	}
	if records[0].Duration() != 30*time.Second {
		t.Fatalf("unexpected duration: %s", records[0].Duration())
	}
}

func TestSQLiteHistoryStoreUpsert(t *testing.T) {
	store, err := NewSQLiteHistoryStore(filepath.Join(t.TempDir(), "history.sqlite"), 0)
	if err != nil {
		t.Fatalf("open store failed: %v", err)
	}
	defer store.Close()

	rec := Record{ID: "same", ConfigFileName: "a.yml", Kind: engine.KindTimedOut, ExitCode: -1, StatusCode: 500}
	if err := store.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	rec.Kind = engine.KindSuccess
	rec.ExitCode = 0
	rec.StatusCode = 200
	if err := store.SaveRecord(context.Background(), rec); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	records, err := store.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].Kind != engine.KindSuccess {
		t.Fatalf("expected single updated record, got %+v", records)
	}
	if !records[0].StartedAt.IsZero() {
		t.Fatalf("zero start time should round-trip as zero")
	}
}

func TestNewSQLiteHistoryStoreRejectsEmptyPath(t *testing.T) {
	if _, err := NewSQLiteHistoryStore("", 10); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
