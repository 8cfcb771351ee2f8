// Instagram adapter: scans recent media on the connected account for fresh
// comments via the Graph API and replies on the comment thread.
package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/repo"
)

const (
	instagramDefaultBaseURL  = "https://graph.instagram.com"
	instagramDefaultTokenURL = "https://graph.instagram.com/refresh_access_token"

	instagramDefaultMinLikes = 5

	// instagramMediaWindow is how many recent media posts are scanned per run.
	instagramMediaWindow = 5
	// instagramCommentPageSize bounds comments fetched per media post.
	instagramCommentPageSize = 50
)

// Instagram implements Adapter for Instagram comment threads.
type Instagram struct {
	BaseURL  string
	TokenURL string
	HTTP     *http.Client
}

// NewInstagram constructs an Instagram adapter using the given outbound client.
func NewInstagram(client *http.Client) *Instagram {
	return &Instagram{
		BaseURL:  instagramDefaultBaseURL,
		TokenURL: instagramDefaultTokenURL,
		HTTP:     client,
	}
}

var _ Adapter = (*Instagram)(nil)

// Platform returns the platform name.
func (ig *Instagram) Platform() string { return domain.PlatformInstagram }

// OAuth returns the Graph API token refresh endpoint; credentials travel as
// POST parameters.
func (ig *Instagram) OAuth() oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: ig.TokenURL, AuthStyle: oauth2.AuthStyleInParams}
}

// Identity returns the connected Instagram user id and username.
func (ig *Instagram) Identity(cred domain.Credential) Identity {
	return Identity{UserID: cred.PlatformUserID, Username: cred.PlatformUsername}
}

// NormalizeConfig fills the default likes floor; the connected account's own
// media is the scope, so no search parameters are required.
func (ig *Instagram) NormalizeConfig(cfg domain.PlatformConfig) (domain.PlatformConfig, error) {
	if cfg.MinEngagement <= 0 {
		cfg.MinEngagement = instagramDefaultMinLikes
	}
	return cfg, nil
}

// DefaultPersona is the fallback system-prompt persona for Instagram replies.
func (ig *Instagram) DefaultPersona() string {
	return "You are the owner of this Instagram account, replying to commenters in a warm, personal voice."
}

// Retention keeps the newest 100 interactions per account.
func (ig *Instagram) Retention() repo.RetentionPolicy {
	return repo.RetentionPolicy{MaxRows: 100}
}

type instagramMediaResponse struct {
	Data []struct {
		ID      string `json:"id"`
		Caption string `json:"caption"`
	} `json:"data"`
}

type instagramCommentsResponse struct {
	Data []struct {
		ID   string `json:"id"`
		Text string `json:"text"`
		From struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"from"`
		Username  string    `json:"username"`
		LikeCount int       `json:"like_count"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"data"`
}

// FetchCandidates lists the account's recent media and each post's comments,
// flattened across posts. Media with comments turned off yields an empty
// comment list from the API, so no special casing is needed.
func (ig *Instagram) FetchCandidates(ctx context.Context, accessToken string, cfg domain.PlatformConfig) ([]Candidate, error) {
	q := url.Values{}
	q.Set("fields", "id,caption")
	q.Set("limit", fmt.Sprintf("%d", instagramMediaWindow))

	var media instagramMediaResponse
	if err := getJSON(ctx, ig.HTTP, "instagram media", ig.BaseURL+"/me/media?"+q.Encode(), accessToken, nil, &media); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, m := range media.Data {
		q = url.Values{}
		q.Set("fields", "id,text,username,from,like_count,timestamp")
		q.Set("limit", fmt.Sprintf("%d", instagramCommentPageSize))

		var comments instagramCommentsResponse
		if err := getJSON(ctx, ig.HTTP, "instagram comments", ig.BaseURL+"/"+m.ID+"/comments?"+q.Encode(), accessToken, nil, &comments); err != nil {
			return nil, err
		}

		for _, c := range comments.Data {
			author := c.From.Username
			if author == "" {
				author = c.Username
			}
			out = append(out, Candidate{
				ID:          c.ID,
				ThreadID:    c.ID,
				Author:      author,
				AuthorID:    c.From.ID,
				Title:       m.Caption,
				Body:        c.Text,
				Engagement:  c.LikeCount,
				PublishedAt: c.Timestamp,
			})
		}
	}
	return out, nil
}

// Publish posts a threaded reply under the candidate comment.
func (ig *Instagram) Publish(ctx context.Context, accessToken string, c Candidate, reply string) (string, error) {
	form := url.Values{}
	form.Set("message", reply)

	var resp struct {
		ID string `json:"id"`
	}
	if err := postForm(ctx, ig.HTTP, "instagram reply", ig.BaseURL+"/"+c.ThreadID+"/replies", accessToken, form, nil, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
