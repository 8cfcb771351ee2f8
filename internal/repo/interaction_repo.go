// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Interaction
// model: the durable "already replied" record the pipeline consults for
// deduplication and writes after every published reply.
//
// Functions:
//
//   - FindRepliedIDs(ctx, db, accountID, contentIDs) -> set of content ids
//     Returns which of the given content ids already have a reply record.
//
//   - UpsertInteraction(ctx, db, rec) -> error
//     Creates or updates the row keyed by (account_id, content_id). The
//     second write with the same key overwrites the reply fields instead of
//     inserting a duplicate.
//
//   - PruneInteractions(ctx, db, accountID, policy) -> (int64, error)
//     Applies the platform retention policy: count-based (keep newest
//     MaxRows, oldest deleted first) and/or age-based (delete rows whose
//     replied_at is older than MaxAge).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// RetentionPolicy bounds how many interaction rows an account keeps.
// A zero field disables that bound.
type RetentionPolicy struct {
	MaxRows int           // keep the newest MaxRows rows
	MaxAge  time.Duration // delete rows replied earlier than now-MaxAge
}

// FindRepliedIDs returns the subset of contentIDs that already have an
// interaction record for accountID. The result maps content id → present.
func FindRepliedIDs(ctx context.Context, db *gorm.DB, accountID string, contentIDs []string) (map[string]bool, error) {
	out := make(map[string]bool, len(contentIDs))
	if len(contentIDs) == 0 {
		return out, nil
	}
	var ids []string
	err := db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Where("account_id = ? AND content_id IN ?", accountID, contentIDs).
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// UpsertInteraction creates or updates the reply record for
// (rec.AccountID, rec.ContentID). On conflict the reply fields and timestamps
// are overwritten; the row is never duplicated.
func UpsertInteraction(ctx context.Context, db *gorm.DB, rec *domain.Interaction) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.RepliedAt.IsZero() {
		rec.RepliedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "content_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"author", "snippet", "engagement",
				"reply_text", "reply_id", "replied_at", "updated_at",
			}),
		}).
		Create(rec).Error
}

// PruneInteractions deletes rows beyond the retention policy for accountID
// and reports how many were removed. Count-based pruning removes the oldest
// rows first (by replied_at); age-based pruning removes rows older than
// policy.MaxAge. Removal is permanent (Unscoped): a soft-deleted row would
// still hold the (account_id, content_id) key and block a later upsert for
// re-surfaced content.
func PruneInteractions(ctx context.Context, db *gorm.DB, accountID string, policy RetentionPolicy) (int64, error) {
	var removed int64

	if policy.MaxAge > 0 {
		cutoff := time.Now().UTC().Add(-policy.MaxAge)
		res := db.WithContext(ctx).
			Unscoped().
			Where("account_id = ? AND replied_at < ?", accountID, cutoff).
			Delete(&domain.Interaction{})
		if res.Error != nil {
			return removed, res.Error
		}
		removed += res.RowsAffected
	}

	if policy.MaxRows > 0 {
		var total int64
		if err := db.WithContext(ctx).
			Model(&domain.Interaction{}).
			Where("account_id = ?", accountID).
			Count(&total).Error; err != nil {
			return removed, err
		}
		if excess := total - int64(policy.MaxRows); excess > 0 {
			var victims []string
			if err := db.WithContext(ctx).
				Model(&domain.Interaction{}).
				Where("account_id = ?", accountID).
				Order("replied_at asc").
				Limit(int(excess)).
				Pluck("id", &victims).Error; err != nil {
				return removed, err
			}
			res := db.WithContext(ctx).
				Unscoped().
				Where("id IN ?", victims).
				Delete(&domain.Interaction{})
			if res.Error != nil {
				return removed, res.Error
			}
			removed += res.RowsAffected
		}
	}

	return removed, nil
}

// CountInteractions returns the total number of interactions for accountID.
func CountInteractions(ctx context.Context, db *gorm.DB, accountID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Interaction{}).
		Where("account_id = ?", accountID).
		Count(&total).Error
	return total, err
}

// ListInteractionsPage returns a paginated slice of interactions for
// accountID, most recent reply first. The caller computes offset and limit.
func ListInteractionsPage(ctx context.Context, db *gorm.DB, accountID string, offset, limit int) ([]domain.Interaction, error) {
	var out []domain.Interaction
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("replied_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
