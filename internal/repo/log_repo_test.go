package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

func TestAppendLog_AndListNewestFirst(t *testing.T) {
	db := newRepoDB(t, &domain.LogEntry{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := AppendLog(ctx, db, "acc-1", "info", fmt.Sprintf("msg %d", i), ""); err != nil {
			t.Fatalf("AppendLog: %v", err)
		}
	}
	if err := AppendLog(ctx, db, "acc-2", "error", "other account", `{"stage":"x"}`); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}

	total, err := CountLogs(ctx, db, "acc-1")
	if err != nil {
		t.Fatalf("CountLogs: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}

	page, err := ListLogsPage(ctx, db, "acc-1", 0, 3)
	if err != nil {
		t.Fatalf("ListLogsPage: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("len(page) = %d, want 3", len(page))
	}
	for _, e := range page {
		if e.AccountID != "acc-1" {
			t.Fatalf("foreign account leaked into page: %+v", e)
		}
	}
	for i := 1; i < len(page); i++ {
		if page[i].CreatedAt.After(page[i-1].CreatedAt) {
			t.Fatal("page not ordered newest first")
		}
	}
}

func TestListLogsPage_OffsetBeyondEnd(t *testing.T) {
	db := newRepoDB(t, &domain.LogEntry{})
	ctx := context.Background()

	if err := AppendLog(ctx, db, "acc-1", "info", "only one", ""); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	page, err := ListLogsPage(ctx, db, "acc-1", 10, 5)
	if err != nil {
		t.Fatalf("ListLogsPage: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page, got %d rows", len(page))
	}
}
