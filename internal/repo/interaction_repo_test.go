package repo

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

func newRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedInteraction(t *testing.T, db *gorm.DB, accountID, contentID string, repliedAt time.Time) {
	t.Helper()
	rec := &domain.Interaction{
		AccountID: accountID,
		ContentID: contentID,
		Author:    "someone",
		ReplyText: "hi",
		RepliedAt: repliedAt,
	}
	if err := UpsertInteraction(context.Background(), db, rec); err != nil {
		t.Fatalf("seed interaction %s: %v", contentID, err)
	}
}

func TestUpsertInteraction_SameKeyDoesNotDuplicate(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	first := &domain.Interaction{
		AccountID: "acc1",
		ContentID: "c1",
		Author:    "alice",
		ReplyText: "first reply",
		RepliedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := UpsertInteraction(ctx, db, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := &domain.Interaction{
		AccountID: "acc1",
		ContentID: "c1",
		Author:    "alice",
		ReplyText: "second reply",
		RepliedAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
	if err := UpsertInteraction(ctx, db, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	total, err := CountInteractions(ctx, db, "acc1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 row after duplicate upsert, got %d", total)
	}

	var got domain.Interaction
	if err := db.First(&got, "account_id = ? AND content_id = ?", "acc1", "c1").Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ReplyText != "second reply" {
		t.Fatalf("expected reply fields overwritten, got %q", got.ReplyText)
	}
}

func TestFindRepliedIDs_ReturnsOnlyMatches(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	seedInteraction(t, db, "acc1", "c1", time.Now().UTC())
	seedInteraction(t, db, "acc2", "c2", time.Now().UTC()) // other account

	got, err := FindRepliedIDs(ctx, db, "acc1", []string{"c1", "c2", "c3"})
	if err != nil {
		t.Fatalf("FindRepliedIDs: %v", err)
	}
	if !got["c1"] || got["c2"] || got["c3"] {
		t.Fatalf("unexpected replied set: %v", got)
	}

	empty, err := FindRepliedIDs(ctx, db, "acc1", nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty input should yield empty set without error, got %v err=%v", empty, err)
	}
}

func TestPruneInteractions_CountBased_KeepsNewest(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedInteraction(t, db, "acc1", fmt.Sprintf("c%d", i), base.Add(time.Duration(i)*time.Hour))
	}

	removed, err := PruneInteractions(ctx, db, "acc1", RetentionPolicy{MaxRows: 3})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}

	// The oldest two must be gone, newest three kept.
	got, err := FindRepliedIDs(ctx, db, "acc1", []string{"c0", "c1", "c2", "c3", "c4"})
	if err != nil {
		t.Fatalf("FindRepliedIDs: %v", err)
	}
	if got["c0"] || got["c1"] || !got["c2"] || !got["c3"] || !got["c4"] {
		t.Fatalf("wrong survivors: %v", got)
	}
}

func TestPruneInteractions_AgeBased(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	seedInteraction(t, db, "acc1", "old", time.Now().UTC().Add(-30*24*time.Hour))
	seedInteraction(t, db, "acc1", "fresh", time.Now().UTC().Add(-time.Hour))

	removed, err := PruneInteractions(ctx, db, "acc1", RetentionPolicy{MaxAge: 14 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	got, _ := FindRepliedIDs(ctx, db, "acc1", []string{"old", "fresh"})
	if got["old"] || !got["fresh"] {
		t.Fatalf("wrong survivors: %v", got)
	}
}

func TestPruneInteractions_PrunedKeyCanBeRecordedAgain(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	seedInteraction(t, db, "acc1", "c1", time.Now().UTC().Add(-30*24*time.Hour))

	removed, err := PruneInteractions(ctx, db, "acc1", RetentionPolicy{MaxAge: 14 * 24 * time.Hour})
	if err != nil || removed != 1 {
		t.Fatalf("prune: removed=%d err=%v", removed, err)
	}

	// Pruning must leave no row behind for the key, or this upsert would hit
	// the stale conflict and the new record would stay invisible.
	if err := UpsertInteraction(ctx, db, &domain.Interaction{
		AccountID: "acc1", ContentID: "c1", ReplyText: "new reply", RepliedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("upsert after prune: %v", err)
	}

	got, err := FindRepliedIDs(ctx, db, "acc1", []string{"c1"})
	if err != nil {
		t.Fatalf("FindRepliedIDs: %v", err)
	}
	if !got["c1"] {
		t.Fatal("re-recorded interaction not visible after prune")
	}

	var raw int64
	if err := db.Unscoped().Model(&domain.Interaction{}).
		Where("account_id = ?", "acc1").Count(&raw).Error; err != nil {
		t.Fatalf("raw count: %v", err)
	}
	if raw != 1 {
		t.Fatalf("expected exactly 1 physical row, got %d", raw)
	}
}

func TestPruneInteractions_ZeroPolicyIsNoop(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	seedInteraction(t, db, "acc1", "c1", time.Now().UTC().Add(-365*24*time.Hour))

	removed, err := PruneInteractions(ctx, db, "acc1", RetentionPolicy{})
	if err != nil || removed != 0 {
		t.Fatalf("zero policy must not delete, removed=%d err=%v", removed, err)
	}
}

func TestListInteractionsPage_NewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.Interaction{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedInteraction(t, db, "acc1", fmt.Sprintf("c%d", i), base.Add(time.Duration(i)*time.Hour))
	}

	page, err := ListInteractionsPage(ctx, db, "acc1", 0, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ContentID != "c2" || page[1].ContentID != "c1" {
		t.Fatalf("unexpected page order: %+v", page)
	}
}
