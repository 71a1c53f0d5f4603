package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"vastu-check/api/internal/vastu"
)

func newRepo(t *testing.T) *AnalysisRepo {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "vastu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	repo := NewAnalysisRepo(db, DriverSQLite)
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	// idempotent
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema twice: %v", err)
	}
	return repo
}

func sampleReport() vastu.Report {
	return vastu.BuildReport(vastu.Default, []vastu.LocatedRoom{
		{MatchedRoom: vastu.MatchedRoom{Label: "kitchen"}, Zone: vastu.SouthEast},
	})
}

func TestSaveAndFind(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	row := &AnalysisRow{
		Source:        "telegram",
		ChatID:        42,
		ImageHash:     "abc",
		Engine:        "tesseract",
		Model:         "eng",
		Report:        sampleReport(),
		AnnotatedJPEG: []byte{0xFF, 0xD8, 0x01},
	}
	if err := repo.Save(ctx, row); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if row.ID == "" || row.CreatedAt.IsZero() {
		t.Fatalf("Save did not fill ID/CreatedAt: %+v", row)
	}

	got, err := repo.FindByHash(ctx, "abc", "tesseract", "eng", time.Hour)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if got.ID != row.ID || got.ChatID != 42 || got.Source != "telegram" {
		t.Fatalf("row = %+v", got)
	}
	if got.Report.Summary.VerifiedPlacements != 1 || got.Report.Details[0].RoomName != "Kitchen" {
		t.Fatalf("report = %+v", got.Report)
	}
	if !bytes.Equal(got.AnnotatedJPEG, row.AnnotatedJPEG) {
		t.Fatalf("image = %v", got.AnnotatedJPEG)
	}

	if _, err := repo.FindByHash(ctx, "abc", "gemini", "eng", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other engine: %v", err)
	}
}

func TestFindRespectsMaxAge(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	old := &AnalysisRow{
		CreatedAt: time.Now().Add(-48 * time.Hour),
		Source:    "http",
		ImageHash: "h",
		Engine:    "gpt",
		Model:     "gpt-4o-mini",
		Report:    sampleReport(),
	}
	if err := repo.Save(ctx, old); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := repo.FindByHash(ctx, "h", "gpt", "gpt-4o-mini", 24*time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale row served: %v", err)
	}
	if _, err := repo.FindByHash(ctx, "h", "gpt", "gpt-4o-mini", 0); err != nil {
		t.Fatalf("maxAge 0 should ignore age: %v", err)
	}

	// a fresh save of the same key replaces the stale row
	fresh := *old
	fresh.ID, fresh.CreatedAt = "", time.Time{}
	if err := repo.Save(ctx, &fresh); err != nil {
		t.Fatalf("Save fresh: %v", err)
	}
	got, err := repo.FindByHash(ctx, "h", "gpt", "gpt-4o-mini", 24*time.Hour)
	if err != nil {
		t.Fatalf("fresh row not found: %v", err)
	}
	if got.ID != old.ID {
		t.Fatalf("upsert changed the id: %s != %s", got.ID, old.ID)
	}
}

func TestListByChatAndPurge(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	now := time.Now()
	for i, hash := range []string{"a", "b", "c"} {
		err := repo.Save(ctx, &AnalysisRow{
			CreatedAt: now.Add(-time.Duration(i) * 30 * time.Hour),
			Source:    "telegram",
			ChatID:    7,
			ImageHash: hash,
			Engine:    "tesseract",
			Model:     "eng",
			Report:    sampleReport(),
		})
		if err != nil {
			t.Fatalf("Save %s: %v", hash, err)
		}
	}

	list, err := repo.ListByChat(ctx, 7, 2)
	if err != nil {
		t.Fatalf("ListByChat: %v", err)
	}
	if len(list) != 2 || !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Fatalf("list = %+v", list)
	}
	if list[0].Summary.TotalRoomsAnalyzed != 1 || list[0].Engine != "tesseract" {
		t.Fatalf("summary = %+v", list[0])
	}

	n, err := repo.PurgeOlderThan(ctx, 24*time.Hour)
	if err != nil || n != 2 {
		t.Fatalf("purged %d, %v", n, err)
	}
	if _, err := repo.PurgeOlderThan(ctx, 0); err == nil {
		t.Fatalf("expected error for zero age")
	}
	list, _ = repo.ListByChat(ctx, 7, 0)
	if len(list) != 1 {
		t.Fatalf("after purge: %+v", list)
	}
}

func TestRebind(t *testing.T) {
	q := "select 1 where a = $1 and b = $12"
	if got := rebind(DriverSQLite, q); got != "select 1 where a = ?1 and b = ?12" {
		t.Fatalf("sqlite: %q", got)
	}
	if got := rebind(DriverPostgres, q); got != q {
		t.Fatalf("postgres: %q", got)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveReturnsStoredIDAndKeepsChat(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	tg := &AnalysisRow{
		Source:    "telegram",
		ChatID:    42,
		ImageHash: "plan",
		Engine:    "tesseract",
		Model:     "eng",
		Report:    sampleReport(),
	}
	if err := repo.Save(ctx, tg); err != nil {
		t.Fatalf("Save telegram: %v", err)
	}

	// the same plan analyzed again over HTTP
	web := &AnalysisRow{
		Source:    "http",
		ImageHash: "plan",
		Engine:    "tesseract",
		Model:     "eng",
		Report:    sampleReport(),
	}
	if err := repo.Save(ctx, web); err != nil {
		t.Fatalf("Save http: %v", err)
	}
	got, err := repo.FindByHash(ctx, "plan", "tesseract", "eng", 0)
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if web.ID != got.ID || tg.ID != got.ID {
		t.Fatalf("ids: telegram=%s http=%s stored=%s", tg.ID, web.ID, got.ID)
	}
	if got.ChatID != 42 || got.Source != "telegram" {
		t.Fatalf("chat lost: chat=%d source=%q", got.ChatID, got.Source)
	}
	list, err := repo.ListByChat(ctx, 42, 10)
	if err != nil || len(list) != 1 || list[0].ID != tg.ID {
		t.Fatalf("history after http save: %+v, %v", list, err)
	}

	// a later chat takes the row over
	other := &AnalysisRow{Source: "telegram", ChatID: 43, ImageHash: "plan", Engine: "tesseract", Model: "eng", Report: sampleReport()}
	if err := repo.Save(ctx, other); err != nil {
		t.Fatalf("Save chat 43: %v", err)
	}
	if list, _ := repo.ListByChat(ctx, 43, 10); len(list) != 1 {
		t.Fatalf("chat 43 history: %+v", list)
	}
}
