// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the append-only pipeline log sink.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// AppendLog inserts one log row for an account. Callers in the pipeline
// treat this as best-effort: the returned error is for tests and callers
// that care, but a logging outage must never fail a run.
func AppendLog(ctx context.Context, db *gorm.DB, accountID, level, message, meta string) error {
	e := &domain.LogEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Level:     level,
		Message:   message,
		Meta:      meta,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(e).Error
}

// CountLogs returns the total number of log entries for accountID.
func CountLogs(ctx context.Context, db *gorm.DB, accountID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.LogEntry{}).
		Where("account_id = ?", accountID).
		Count(&total).Error
	return total, err
}

// ListLogsPage returns a paginated slice of log entries for accountID,
// newest first.
func ListLogsPage(ctx context.Context, db *gorm.DB, accountID string, offset, limit int) ([]domain.LogEntry, error) {
	var out []domain.LogEntry
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
