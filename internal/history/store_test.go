package history

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/piotrlinski/voice-recorder/internal/config"
	"github.com/piotrlinski/voice-recorder/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openStore(t *testing.T, cfg config.HistoryConfig) *Store {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "history.db")
	}
	store, err := Open(context.Background(), cfg, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func archivedSession(id string, startedAt time.Time) session.Session {
	return session.Session{
		ID:        id,
		Mode:      session.ModeBasic,
		State:     session.StateCompleted,
		RawText:   "hello",
		StartedAt: startedAt,
		EndedAt:   startedAt.Add(2 * time.Second),
	}
}

func TestAppendAndRecent(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "persistent"})
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		sess := archivedSession(fmt.Sprintf("sess-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := store.Append(ctx, sess); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].ID != "sess-2" {
		t.Fatalf("expected newest first, got %s", records[0].ID)
	}
	if records[0].RawText != "hello" || records[0].State != "completed" {
		t.Fatalf("unexpected record %+v", records[0])
	}
}

func TestAppendIsIdempotentPerSession(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "persistent"})
	ctx := context.Background()
	sess := archivedSession("sess-1", time.Now().UTC())

	if err := store.Append(ctx, sess); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, sess); err != nil {
		t.Fatalf("second append: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
}

func TestRecentLimit(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "persistent"})
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, archivedSession(fmt.Sprintf("sess-%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	records, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestPruneByAge(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "persistent", RetentionDays: 30})
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store.clock = func() time.Time { return now }

	if err := store.Append(ctx, archivedSession("old", now.Add(-45*24*time.Hour))); err != nil {
		t.Fatalf("append old: %v", err)
	}
	if err := store.Append(ctx, archivedSession("fresh", now.Add(-time.Hour))); err != nil {
		t.Fatalf("append fresh: %v", err)
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 || records[0].ID != "fresh" {
		t.Fatalf("expected only fresh record, got %+v", records)
	}
}

func TestPruneByMaxSessions(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "persistent", MaxSessions: 2})
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, archivedSession(fmt.Sprintf("sess-%d", i), base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if err := store.Prune(ctx); err != nil {
		t.Fatalf("prune: %v", err)
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after prune, got %d", len(records))
	}
	if records[0].ID != "sess-4" || records[1].ID != "sess-3" {
		t.Fatalf("expected newest kept, got %+v", records)
	}
}

func TestEphemeralModeIsNoop(t *testing.T) {
	store := openStore(t, config.HistoryConfig{RetentionMode: "ephemeral"})
	ctx := context.Background()

	if err := store.Append(ctx, archivedSession("sess-1", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records in ephemeral mode, got %+v", records)
	}
}

func TestSessionRetentionResetsOnOpen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.HistoryConfig{RetentionMode: "session", Path: filepath.Join(dir, "history.db")}
	ctx := context.Background()

	store, err := Open(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(ctx, archivedSession("sess-1", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty history after reopen in session mode, got %d", len(records))
	}
}

func TestSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := config.HistoryConfig{RetentionMode: "persistent", Path: filepath.Join(dir, "history.db")}
	ctx := context.Background()

	store, err := Open(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Append(ctx, archivedSession("sess-1", time.Now().UTC())); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(ctx, cfg, testLogger())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	records, err := reopened.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 || records[0].ID != "sess-1" {
		t.Fatalf("expected archived session after reopen, got %+v", records)
	}
}
