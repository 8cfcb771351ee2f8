// Package platform contains the per-platform adapters the reply pipeline is
// parameterized over. Each adapter knows how to fetch a bounded window of
// candidate content with an OAuth access token, how to post a reply back, and
// which OAuth endpoint, identity fields, filter defaults, and interaction
// retention policy apply to its platform. The pipeline driver itself is
// platform-agnostic (see internal/pipeline).
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/repo"
)

// ErrConfigMissing indicates a required filter parameter is absent from the
// account's platform configuration (e.g. no search term for Twitter).
var ErrConfigMissing = errors.New("required configuration missing")

// Candidate is one fetched unit of content: a tweet, a Reddit link post, a
// YouTube comment, or an Instagram comment. Candidates are ephemeral; they
// live for one pipeline run and are never persisted as-is.
type Candidate struct {
	// ID is the platform content id, unique per account, used for
	// interaction deduplication.
	ID string
	// ThreadID is the identifier the platform's write API needs to attach a
	// reply (tweet id, Reddit thing fullname "t3_…", comment parent id).
	ThreadID string
	// Author is the display identity (username) of the content author.
	Author string
	// AuthorID is the stable platform id of the author when the platform
	// exposes one; empty otherwise.
	AuthorID string
	// Title is set for titled content (Reddit posts, YouTube video context).
	Title string
	// Body is the content text.
	Body string
	// Engagement is the platform's primary metric: likes or upvotes.
	Engagement int
	// ReplyCount is the number of existing replies/comments.
	ReplyCount  int
	PublishedAt time.Time
}

// Identity names the connected account's own principal on the platform, used
// by the eligibility filter to drop self-authored content.
type Identity struct {
	UserID   string // stable platform id (user id, channel id)
	Username string // display identity
}

// Matches reports whether the candidate was authored by this identity.
func (id Identity) Matches(c Candidate) bool {
	if id.UserID != "" && c.AuthorID != "" && id.UserID == c.AuthorID {
		return true
	}
	return id.Username != "" && c.Author == id.Username
}

// Adapter isolates the platform-specific pieces of the reply pipeline.
// Implementations must be safe for concurrent use across accounts; they hold
// no per-account state.
type Adapter interface {
	// Platform returns the lowercase platform name (domain.Platform*).
	Platform() string

	// OAuth returns the token endpoint used by the refresh-token grant.
	OAuth() oauth2.Endpoint

	// Identity extracts the connected principal from stored credentials.
	Identity(cred domain.Credential) Identity

	// NormalizeConfig fills platform defaults into the account configuration
	// and fails with ErrConfigMissing when a required parameter is absent.
	NormalizeConfig(cfg domain.PlatformConfig) (domain.PlatformConfig, error)

	// FetchCandidates retrieves the platform's candidate window. One attempt,
	// no retry; per-item failures inside a window must not abort siblings.
	FetchCandidates(ctx context.Context, accessToken string, cfg domain.PlatformConfig) ([]Candidate, error)

	// Publish posts the reply and returns the platform id of the created
	// reply. One attempt; non-2xx surfaces as *APIError.
	Publish(ctx context.Context, accessToken string, c Candidate, reply string) (string, error)

	// DefaultPersona is the system-prompt persona used when the user has not
	// configured one.
	DefaultPersona() string

	// Retention bounds how many interaction rows an account keeps. Bounds
	// are chosen to always cover the fetch lookback window with margin, so
	// pruning can never cause a re-reply.
	Retention() repo.RetentionPolicy
}

// APIError is a non-2xx response from a platform or LLM HTTP API. The
// upstream body is preserved so an operator can diagnose platform-side
// rejections (spam heuristics, rate limits) without re-running.
type APIError struct {
	Op     string // short operation name, e.g. "twitter search"
	Status int
	Body   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Body)
}
