// Reddit adapter: keyword search over link posts, comment submission via
// /api/comment, OAuth2 refresh against reddit's token endpoint.
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
	redditDefaultBaseURL  = "https://oauth.reddit.com"
	redditDefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	redditDefaultMinUpvotes = 10
	redditDefaultTimeRange  = "day"
	redditSearchPageSize    = 25

	// redditUserAgent identifies the client per reddit API policy.
	redditUserAgent = "go-reply-backend/1.0"

	// redditDeletedAuthor is the sentinel reddit substitutes for removed
	// accounts; such posts can never be replied to meaningfully.
	redditDeletedAuthor = "[deleted]"
)

// Reddit implements Adapter for Reddit.
type Reddit struct {
	BaseURL  string
	TokenURL string
	HTTP     *http.Client
}

// NewReddit constructs a Reddit adapter using the given outbound client.
func NewReddit(client *http.Client) *Reddit {
	return &Reddit{
		BaseURL:  redditDefaultBaseURL,
		TokenURL: redditDefaultTokenURL,
		HTTP:     client,
	}
}

var _ Adapter = (*Reddit)(nil)

// Platform returns the platform name.
func (r *Reddit) Platform() string { return domain.PlatformReddit }

// OAuth returns reddit's token endpoint; client credentials go in the
// Authorization header (HTTP basic), per reddit's OAuth docs.
func (r *Reddit) OAuth() oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: r.TokenURL, AuthStyle: oauth2.AuthStyleInHeader}
}

// Identity returns the connected reddit username. Reddit's read API exposes
// authors by name, not id, so the username is the comparison key.
func (r *Reddit) Identity(cred domain.Credential) Identity {
	return Identity{Username: cred.PlatformUsername}
}

// NormalizeConfig requires keywords and fills upvote/time-range defaults.
func (r *Reddit) NormalizeConfig(cfg domain.PlatformConfig) (domain.PlatformConfig, error) {
	if strings.TrimSpace(cfg.Keywords) == "" {
		return cfg, fmt.Errorf("%w: keywords", ErrConfigMissing)
	}
	if cfg.MinEngagement <= 0 {
		cfg.MinEngagement = redditDefaultMinUpvotes
	}
	switch cfg.TimeRange {
	case "hour", "day", "week", "month":
	default:
		cfg.TimeRange = redditDefaultTimeRange
	}
	return cfg, nil
}

// DefaultPersona is the fallback system-prompt persona for Reddit replies.
func (r *Reddit) DefaultPersona() string {
	return "You are a knowledgeable, down-to-earth redditor who gives helpful, honest answers without sounding promotional."
}

// Retention keeps the newest 100 interactions per account.
func (r *Reddit) Retention() repo.RetentionPolicy {
	return repo.RetentionPolicy{MaxRows: 100}
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data struct {
				ID          string  `json:"id"`
				Name        string  `json:"name"` // fullname, e.g. "t3_abc"
				Title       string  `json:"title"`
				Selftext    string  `json:"selftext"`
				Author      string  `json:"author"`
				Ups         int     `json:"ups"`
				NumComments int     `json:"num_comments"`
				CreatedUTC  float64 `json:"created_utc"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// FetchCandidates searches link posts across the configured keywords joined
// with OR, relevance-sorted within the configured time range, one page of 25.
func (r *Reddit) FetchCandidates(ctx context.Context, accessToken string, cfg domain.PlatformConfig) ([]Candidate, error) {
	terms := make([]string, 0, 4)
	for _, kw := range strings.Split(cfg.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			terms = append(terms, kw)
		}
	}

	q := url.Values{}
	q.Set("q", strings.Join(terms, " OR "))
	q.Set("sort", "relevance")
	q.Set("t", cfg.TimeRange)
	q.Set("type", "link")
	q.Set("limit", fmt.Sprintf("%d", redditSearchPageSize))
	q.Set("raw_json", "1")

	hdr := http.Header{}
	hdr.Set("User-Agent", redditUserAgent)

	var listing redditListing
	if err := getJSON(ctx, r.HTTP, "reddit search", r.BaseURL+"/search?"+q.Encode(), accessToken, hdr, &listing); err != nil {
		return nil, err
	}

	out := make([]Candidate, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data
		out = append(out, Candidate{
			ID:          p.ID,
			ThreadID:    p.Name,
			Author:      p.Author,
			Title:       p.Title,
			Body:        p.Selftext,
			Engagement:  p.Ups,
			ReplyCount:  p.NumComments,
			PublishedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return out, nil
}

// Publish submits a comment on the candidate post (thing_id = fullname).
func (r *Reddit) Publish(ctx context.Context, accessToken string, c Candidate, reply string) (string, error) {
	form := url.Values{}
	form.Set("api_type", "json")
	form.Set("thing_id", c.ThreadID)
	form.Set("text", reply)

	hdr := http.Header{}
	hdr.Set("User-Agent", redditUserAgent)

	var resp struct {
		JSON struct {
			Data struct {
				Things []struct {
					Data struct {
						ID string `json:"id"`
					} `json:"data"`
				} `json:"things"`
			} `json:"data"`
		} `json:"json"`
	}
	if err := postForm(ctx, r.HTTP, "reddit comment", r.BaseURL+"/api/comment", accessToken, form, hdr, &resp); err != nil {
		return "", err
	}
	if len(resp.JSON.Data.Things) == 0 {
		return "", nil
	}
	return resp.JSON.Data.Things[0].Data.ID, nil
}
