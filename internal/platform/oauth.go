// OAuth token refresh for platform credentials.
//
// The refresher is the first pipeline stage: it guarantees a valid access
// token before any platform API call. Tokens comfortably inside their expiry
// window are reused without a network call; stale ones are refreshed via the
// platform's refresh-token grant through golang.org/x/oauth2.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// ErrDisconnected indicates the account has no OAuth token pair, i.e. the
// user never completed (or has revoked) the platform connection.
var ErrDisconnected = errors.New("platform not connected")

// reuseWindow is how far in the future the stored expiry must lie for the
// current access token to be reused without refreshing. Anything shorter
// risks the token dying mid-run.
const reuseWindow = 5 * time.Minute

// TokenUpdate carries a refreshed token set the caller must persist before
// making any platform call. RefreshToken is empty when the platform did not
// rotate it (Google-family platforms reuse the old one until revoked).
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// TokenRefresher performs the OAuth refresh-token grant against a platform
// token endpoint. Safe for concurrent use.
type TokenRefresher struct {
	// HTTP is the client used for token requests. Defaults to
	// http.DefaultClient; production wiring passes a bounded-timeout client.
	HTTP *http.Client
	// Now is a clock seam for tests. Defaults to time.Now.
	Now func() time.Time
}

// EnsureValid returns a usable access token for the credential.
//
// Behavior:
//   - no refresh token → ErrDisconnected, no network call;
//   - stored expiry more than 5 minutes out → the stored access token is
//     returned unchanged with a nil update, no network call;
//   - otherwise the refresh-token grant runs against endpoint; the returned
//     TokenUpdate must be persisted by the caller before any platform call.
//
// A failed grant is fatal for the run; there is no in-call retry.
func (r *TokenRefresher) EnsureValid(ctx context.Context, endpoint oauth2.Endpoint, cred domain.Credential) (string, *TokenUpdate, error) {
	if cred.RefreshToken == "" {
		return "", nil, ErrDisconnected
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	if cred.AccessToken != "" && cred.TokenExpiresAt.After(now().Add(reuseWindow)) {
		return cred.AccessToken, nil, nil
	}

	conf := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		Endpoint:     endpoint,
	}
	if r.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, r.HTTP)
	}

	// Expiry in the past forces TokenSource to hit the grant endpoint.
	stale := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       now().Add(-time.Minute),
	}
	tok, err := conf.TokenSource(ctx, stale).Token()
	if err != nil {
		return "", nil, fmt.Errorf("token refresh: %w", err)
	}

	upd := &TokenUpdate{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry.UTC(),
	}
	// Platforms that rotate refresh tokens return a new one; keep the old
	// token otherwise.
	if tok.RefreshToken != "" && tok.RefreshToken != cred.RefreshToken {
		upd.RefreshToken = tok.RefreshToken
	}
	return tok.AccessToken, upd, nil
}
