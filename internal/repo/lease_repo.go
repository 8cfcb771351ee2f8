// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the per-account run lease: a TTL row
// acquired at pipeline start and released at run end, converting the
// otherwise-absent mutual exclusion between overlapping invocations into an
// explicit, testable guarantee.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// ErrLeaseHeld indicates another run currently holds the lease for the
// account (a scheduled run racing a manual trigger, or vice versa).
var ErrLeaseHeld = errors.New("run lease already held")

// AcquireLease takes the run lease for accountID for ttl, returning the
// lease token to release it with. An existing unexpired lease yields
// ErrLeaseHeld; an expired one (crashed run) is replaced.
func AcquireLease(ctx context.Context, db *gorm.DB, accountID string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	// Clear an expired lease first so a crashed run self-heals.
	if err := db.WithContext(ctx).
		Where("account_id = ? AND expires_at <= ?", accountID, now).
		Delete(&domain.RunLease{}).Error; err != nil {
		return "", err
	}

	lease := &domain.RunLease{
		AccountID: accountID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := db.WithContext(ctx).Create(lease).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE/PK violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return "", ErrLeaseHeld
		}
		return "", err
	}
	return lease.Token, nil
}

// ReleaseLease frees the lease for accountID if the caller still holds it
// (token match). Releasing a lease that expired and was taken over by
// another run is a no-op.
func ReleaseLease(ctx context.Context, db *gorm.DB, accountID, token string) error {
	return db.WithContext(ctx).
		Where("account_id = ? AND token = ?", accountID, token).
		Delete(&domain.RunLease{}).Error
}
