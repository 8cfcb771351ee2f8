// Twitter/X adapter: recent full-text search for candidates, reply-tweet
// publishing, OAuth2 refresh against the v2 token endpoint.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/repo"
)

const (
	twitterDefaultBaseURL  = "https://api.twitter.com/2"
	twitterDefaultTokenURL = "https://api.twitter.com/2/oauth2/token"

	// twitterDefaultMinLikes is the engagement floor applied when the
	// account config leaves it unset.
	twitterDefaultMinLikes = 20

	// twitterSearchPageSize bounds the candidate window per run.
	twitterSearchPageSize = 25
)

// Twitter implements Adapter for Twitter/X.
type Twitter struct {
	BaseURL  string
	TokenURL string
	HTTP     *http.Client
}

// NewTwitter constructs a Twitter adapter using the given outbound client.
func NewTwitter(client *http.Client) *Twitter {
	return &Twitter{
		BaseURL:  twitterDefaultBaseURL,
		TokenURL: twitterDefaultTokenURL,
		HTTP:     client,
	}
}

var _ Adapter = (*Twitter)(nil)

// Platform returns the platform name.
func (t *Twitter) Platform() string { return domain.PlatformTwitter }

// OAuth returns the v2 token endpoint. Twitter requires the client
// credentials in the Authorization header.
func (t *Twitter) OAuth() oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: t.TokenURL, AuthStyle: oauth2.AuthStyleInHeader}
}

// Identity returns the connected user's id and handle.
func (t *Twitter) Identity(cred domain.Credential) Identity {
	return Identity{UserID: cred.PlatformUserID, Username: cred.PlatformUsername}
}

// NormalizeConfig requires a search term and fills the default likes floor.
func (t *Twitter) NormalizeConfig(cfg domain.PlatformConfig) (domain.PlatformConfig, error) {
	if strings.TrimSpace(cfg.SearchTerm) == "" {
		return cfg, fmt.Errorf("%w: search term", ErrConfigMissing)
	}
	if cfg.MinEngagement <= 0 {
		cfg.MinEngagement = twitterDefaultMinLikes
	}
	return cfg, nil
}

// DefaultPersona is the fallback system-prompt persona for Twitter replies.
func (t *Twitter) DefaultPersona() string {
	return "You are a sharp, friendly Twitter user who adds genuine value to conversations with concise, insightful replies."
}

// Retention keeps the newest 100 interactions per account.
func (t *Twitter) Retention() repo.RetentionPolicy {
	return repo.RetentionPolicy{MaxRows: 100}
}

type twitterSearchResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		AuthorID      string    `json:"author_id"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			LikeCount  int `json:"like_count"`
			ReplyCount int `json:"reply_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// FetchCandidates searches recent tweets matching the configured term,
// relevancy-ordered, one page of 25.
func (t *Twitter) FetchCandidates(ctx context.Context, accessToken string, cfg domain.PlatformConfig) ([]Candidate, error) {
	q := url.Values{}
	q.Set("query", cfg.SearchTerm)
	q.Set("max_results", fmt.Sprintf("%d", twitterSearchPageSize))
	q.Set("sort_order", "relevancy")
	q.Set("tweet.fields", "public_metrics,author_id,created_at")
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")

	var resp twitterSearchResponse
	if err := getJSON(ctx, t.HTTP, "twitter search", t.BaseURL+"/tweets/search/recent?"+q.Encode(), accessToken, nil, &resp); err != nil {
		return nil, err
	}

	handles := make(map[string]string, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		handles[u.ID] = u.Username
	}

	out := make([]Candidate, 0, len(resp.Data))
	for _, tw := range resp.Data {
		out = append(out, Candidate{
			ID:          tw.ID,
			ThreadID:    tw.ID,
			Author:      handles[tw.AuthorID],
			AuthorID:    tw.AuthorID,
			Body:        tw.Text,
			Engagement:  tw.PublicMetrics.LikeCount,
			ReplyCount:  tw.PublicMetrics.ReplyCount,
			PublishedAt: tw.CreatedAt,
		})
	}
	return out, nil
}

// Publish posts a reply tweet in the candidate's thread.
func (t *Twitter) Publish(ctx context.Context, accessToken string, c Candidate, reply string) (string, error) {
	body := map[string]any{
		"text": reply,
		"reply": map[string]string{
			"in_reply_to_tweet_id": c.ThreadID,
		},
	}
	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := postJSON(ctx, t.HTTP, "twitter reply", t.BaseURL+"/tweets", accessToken, body, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}
