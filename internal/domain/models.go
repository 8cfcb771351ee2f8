// Package domain defines the persistence models for connected social
// accounts, their OAuth credentials, automation configuration, reply
// interactions, and pipeline logs. These types are mapped with GORM and form
// the core data layer of the reply backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Supported platform identifiers. Stored as lowercase strings.
const (
	PlatformTwitter   = "twitter"
	PlatformYouTube   = "youtube"
	PlatformReddit    = "reddit"
	PlatformInstagram = "instagram"
)

// KnownPlatform reports whether p names a supported platform.
func KnownPlatform(p string) bool {
	switch p {
	case PlatformTwitter, PlatformYouTube, PlatformReddit, PlatformInstagram:
		return true
	}
	return false
}

// Account identifies one connected platform identity owned by a user.
// Accounts are created on user action and never auto-deleted; removing one
// cascades to its credentials, configuration, and interactions.
type Account struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:varchar(64);not null;index:idx_user_accounts"`
	Platform  string         `json:"platform"   gorm:"type:varchar(16);not null;check:platform IN ('twitter','youtube','reddit','instagram')"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null;default:''"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// Credential holds the OAuth client and token material for one account.
//
// Invariant: access token and refresh token are either both present or both
// absent. An account is "connected" exactly when both exist. The token
// refresher updates AccessToken and TokenExpiresAt in place after a refresh,
// and RefreshToken only when the platform rotates it.
type Credential struct {
	ID             string         `json:"id"               gorm:"type:char(36);primaryKey"`
	AccountID      string         `json:"account_id"       gorm:"type:char(36);not null;uniqueIndex"`
	ClientID       string         `json:"-"                gorm:"type:varchar(255);not null"`
	ClientSecret   string         `json:"-"                gorm:"type:varchar(255);not null"`
	AccessToken    string         `json:"-"                gorm:"type:text"`
	RefreshToken   string         `json:"-"                gorm:"type:text"`
	TokenExpiresAt time.Time      `json:"token_expires_at"`
	// Platform identity of the connected principal: Twitter user id,
	// YouTube channel id, Reddit username, Instagram user id.
	PlatformUserID   string         `json:"platform_user_id" gorm:"type:varchar(128)"`
	PlatformUsername string         `json:"platform_username" gorm:"type:varchar(128)"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	// Account is the owning connection. Credentials are cascade-deleted
	// with their account.
	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Credential.
func (Credential) TableName() string { return "credentials" }

// Connected reports whether the credential carries a usable token pair.
func (c Credential) Connected() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// PlatformConfig carries the per-account automation settings read by the
// pipeline. Mutated only by user settings changes; read-only during a run.
// Zero-valued filter fields mean "use the platform default"; adapters expose
// explicit defaults (see platform.Adapter).
type PlatformConfig struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	AccountID string `json:"account_id" gorm:"type:char(36);not null;uniqueIndex"`
	Enabled   bool   `json:"enabled"    gorm:"not null;default:false"`
	// Schedule is a fixed cadence label consumed by the external scheduler
	// (e.g. "30m", "1h", "6h", "24h"). The pipeline itself never sleeps.
	Schedule string `json:"schedule" gorm:"type:varchar(16);not null;default:'1h'"`
	// SearchTerm is the full-text query for Twitter-like search.
	SearchTerm string `json:"search_term" gorm:"type:varchar(255)"`
	// Keywords is a comma-separated list joined with OR for Reddit search.
	Keywords string `json:"keywords" gorm:"type:varchar(512)"`
	// TimeRange bounds Reddit search: hour|day|week|month.
	TimeRange string `json:"time_range" gorm:"type:varchar(8)"`
	// MinEngagement is the minimum likes/upvotes a candidate needs.
	MinEngagement int       `json:"min_engagement" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PlatformConfig.
func (PlatformConfig) TableName() string { return "platform_configs" }

// AssistantProfile is the per-user LLM credential and voice configuration,
// shared across that user's accounts. Read-only input to the reply generator.
type AssistantProfile struct {
	ID      string `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID  string `json:"user_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	APIKey  string `json:"-"       gorm:"type:varchar(255)"`
	Model   string `json:"model"   gorm:"type:varchar(64)"`
	Persona string `json:"persona" gorm:"type:text"`
	// Style toggles applied to the system prompt.
	NoHashtags    bool      `json:"no_hashtags"    gorm:"not null;default:false"`
	NoEmojis      bool      `json:"no_emojis"      gorm:"not null;default:false"`
	Lowercase     bool      `json:"lowercase"      gorm:"not null;default:false"`
	CasualGrammar bool      `json:"casual_grammar" gorm:"not null;default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName returns the database table name for AssistantProfile.
func (AssistantProfile) TableName() string { return "assistant_profiles" }

// Interaction records one published reply, keyed by (account, content).
//
// Invariant: at most one row per (account_id, content_id), enforced by the
// unique index and upsert-on-conflict in the repo layer. Reprocessing the
// same content updates the reply fields instead of duplicating the row.
type Interaction struct {
	ID        string `json:"id"         gorm:"type:char(36);primaryKey"`
	AccountID string `json:"account_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_interaction_account_content"`
	ContentID string `json:"content_id" gorm:"type:varchar(128);not null;uniqueIndex:ux_interaction_account_content"`
	Author    string `json:"author"     gorm:"type:varchar(128)"`
	// Snippet preserves the candidate text at selection time for the dashboard.
	Snippet    string         `json:"snippet"     gorm:"type:text"`
	Engagement int            `json:"engagement"  gorm:"not null;default:0"`
	ReplyText  string         `json:"reply_text"  gorm:"type:text"`
	ReplyID    string         `json:"reply_id"    gorm:"type:varchar(128)"`
	RepliedAt  time.Time      `json:"replied_at"  gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Interaction.
func (Interaction) TableName() string { return "interactions" }

// Log severities.
const (
	LogInfo    = "info"
	LogWarning = "warning"
	LogError   = "error"
	LogSuccess = "success"
)

// LogEntry is an append-only pipeline milestone record. Entries are created
// at every stage transition and failure and are never mutated, so operators
// can reconstruct a run from logs alone.
type LogEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	AccountID string    `json:"account_id" gorm:"type:char(36);not null;index:idx_account_logs,priority:1"`
	Level     string    `json:"level"      gorm:"type:varchar(8);not null;check:level IN ('info','warning','error','success')"`
	Message   string    `json:"message"    gorm:"type:text;not null"`
	Meta      string    `json:"meta,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_account_logs,priority:2"`
}

// TableName returns the database table name for LogEntry.
func (LogEntry) TableName() string { return "log_entries" }

// RunLease is the per-account mutual-exclusion guard held for the duration of
// one pipeline run. A row exists while a run is in flight; ExpiresAt lets a
// crashed run self-heal once the TTL passes.
type RunLease struct {
	AccountID string    `json:"account_id" gorm:"type:char(36);primaryKey"`
	Token     string    `json:"token"      gorm:"type:char(36);not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for RunLease.
func (RunLease) TableName() string { return "run_leases" }
