// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Account
// model and its 1:1 satellites (credentials, platform config, assistant
// profile).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the pipeline and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetAccount fetches an account by ID for a given platform. Returns
// ErrNotFound when missing or when the stored platform does not match.
func GetAccount(ctx context.Context, db *gorm.DB, id, platform string) (*domain.Account, error) {
	var a domain.Account
	err := db.WithContext(ctx).
		Where("id = ? AND platform = ?", id, platform).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetAccountForUser fetches an account by ID, enforcing ownership.
func GetAccountForUser(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Account, error) {
	var a domain.Account
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns all accounts belonging to userID, ordered by creation
// time ascending (connection order). It returns an empty slice if the user
// has no accounts.
func ListAccounts(ctx context.Context, db *gorm.DB, userID string) ([]domain.Account, error) {
	var out []domain.Account
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetPlatformConfig returns the automation configuration for an account, or
// ErrNotFound when the account was never configured.
func GetPlatformConfig(ctx context.Context, db *gorm.DB, accountID string) (*domain.PlatformConfig, error) {
	var c domain.PlatformConfig
	err := db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAssistantProfile returns the per-user LLM credential/voice profile, or
// ErrNotFound when the user has not configured one.
func GetAssistantProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.AssistantProfile, error) {
	var p domain.AssistantProfile
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}
