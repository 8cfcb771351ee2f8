// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for OAuth
// credentials. Token material is only ever updated in place; rows are
// created and deleted by the (external) OAuth connect flow.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// GetCredential returns the OAuth credential row for an account, or
// ErrNotFound when the account was never connected.
func GetCredential(ctx context.Context, db *gorm.DB, accountID string) (*domain.Credential, error) {
	var c domain.Credential
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateTokens persists a refreshed token set for an account. An empty
// refreshToken keeps the stored one (Google-family platforms omit it from
// refresh responses until the grant is revoked). Returns ErrNotFound when no
// credential row exists.
func UpdateTokens(ctx context.Context, db *gorm.DB, accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	patch := map[string]any{
		"access_token":     accessToken,
		"token_expires_at": expiresAt,
		"updated_at":       time.Now().UTC(),
	}
	if refreshToken != "" {
		patch["refresh_token"] = refreshToken
	}
	res := db.WithContext(ctx).
		Model(&domain.Credential{}).
		Where("account_id = ?", accountID).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
