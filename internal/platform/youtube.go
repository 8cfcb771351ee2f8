// YouTube adapter: enumerates the authenticated channel's recent uploads,
// collects fresh top-level comments per video, and replies via comment
// insert. Uses Google's OAuth token endpoint.
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
	youtubeDefaultBaseURL  = "https://www.googleapis.com/youtube/v3"
	youtubeDefaultTokenURL = "https://oauth2.googleapis.com/token"

	youtubeDefaultMinLikes = 5

	// youtubeVideoWindow is how many recent uploads are scanned per run.
	youtubeVideoWindow = 5
	// youtubeCommentPageSize bounds comments fetched per video.
	youtubeCommentPageSize = 50
	// youtubeCommentLookback drops comments older than this; the 14-day
	// interaction retention covers it with margin.
	youtubeCommentLookback = 7 * 24 * time.Hour
)

// YouTube implements Adapter for YouTube channel comments.
type YouTube struct {
	BaseURL  string
	TokenURL string
	HTTP     *http.Client
	// Now is a clock seam for the comment lookback filter in tests.
	Now func() time.Time
}

// NewYouTube constructs a YouTube adapter using the given outbound client.
func NewYouTube(client *http.Client) *YouTube {
	return &YouTube{
		BaseURL:  youtubeDefaultBaseURL,
		TokenURL: youtubeDefaultTokenURL,
		HTTP:     client,
	}
}

var _ Adapter = (*YouTube)(nil)

// Platform returns the platform name.
func (y *YouTube) Platform() string { return domain.PlatformYouTube }

// OAuth returns Google's token endpoint. Google expects client credentials
// as POST parameters and may omit the refresh token from responses.
func (y *YouTube) OAuth() oauth2.Endpoint {
	return oauth2.Endpoint{TokenURL: y.TokenURL, AuthStyle: oauth2.AuthStyleInParams}
}

// Identity returns the connected channel id; comment authors are compared by
// their author channel id.
func (y *YouTube) Identity(cred domain.Credential) Identity {
	return Identity{UserID: cred.PlatformUserID, Username: cred.PlatformUsername}
}

// NormalizeConfig fills the default likes floor; YouTube needs no other
// required parameters (the channel itself is the scope).
func (y *YouTube) NormalizeConfig(cfg domain.PlatformConfig) (domain.PlatformConfig, error) {
	if cfg.MinEngagement <= 0 {
		cfg.MinEngagement = youtubeDefaultMinLikes
	}
	return cfg, nil
}

// DefaultPersona is the fallback system-prompt persona for YouTube replies.
func (y *YouTube) DefaultPersona() string {
	return "You are the friendly creator of this YouTube channel, replying to viewers with warmth and appreciation."
}

// Retention keeps 14 days of interactions, double the comment lookback, so
// pruning can never cause a re-reply to a still-fetchable comment.
func (y *YouTube) Retention() repo.RetentionPolicy {
	return repo.RetentionPolicy{MaxAge: 14 * 24 * time.Hour}
}

type youtubeChannelsResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubePlaylistItemsResponse struct {
	Items []struct {
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type youtubeCommentThreadsResponse struct {
	Items []struct {
		Snippet struct {
			TopLevelComment struct {
				ID      string `json:"id"`
				Snippet struct {
					AuthorDisplayName string `json:"authorDisplayName"`
					AuthorChannelID   struct {
						Value string `json:"value"`
					} `json:"authorChannelId"`
					TextDisplay string    `json:"textDisplay"`
					LikeCount   int       `json:"likeCount"`
					PublishedAt time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
			TotalReplyCount int `json:"totalReplyCount"`
		} `json:"snippet"`
	} `json:"items"`
}

// FetchCandidates lists the channel's last 5 uploads, fetches each video's
// top relevance-ordered comments, keeps comments from the last 7 days, and
// flattens them across videos. A 403 on one video's comments (comments
// disabled) yields zero comments for that video; sibling videos continue.
func (y *YouTube) FetchCandidates(ctx context.Context, accessToken string, cfg domain.PlatformConfig) ([]Candidate, error) {
	now := time.Now
	if y.Now != nil {
		now = y.Now
	}
	cutoff := now().Add(-youtubeCommentLookback)

	var channels youtubeChannelsResponse
	q := url.Values{}
	q.Set("part", "contentDetails")
	q.Set("mine", "true")
	if err := getJSON(ctx, y.HTTP, "youtube channels", y.BaseURL+"/channels?"+q.Encode(), accessToken, nil, &channels); err != nil {
		return nil, err
	}
	if len(channels.Items) == 0 {
		return nil, nil
	}
	uploads := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	var playlist youtubePlaylistItemsResponse
	q = url.Values{}
	q.Set("part", "snippet,contentDetails")
	q.Set("playlistId", uploads)
	q.Set("maxResults", fmt.Sprintf("%d", youtubeVideoWindow))
	if err := getJSON(ctx, y.HTTP, "youtube uploads", y.BaseURL+"/playlistItems?"+q.Encode(), accessToken, nil, &playlist); err != nil {
		return nil, err
	}

	var out []Candidate
	for _, item := range playlist.Items {
		videoID := item.ContentDetails.VideoID
		videoTitle := item.Snippet.Title

		var threads youtubeCommentThreadsResponse
		q = url.Values{}
		q.Set("part", "snippet")
		q.Set("videoId", videoID)
		q.Set("order", "relevance")
		q.Set("maxResults", fmt.Sprintf("%d", youtubeCommentPageSize))
		err := getJSON(ctx, y.HTTP, "youtube comments", y.BaseURL+"/commentThreads?"+q.Encode(), accessToken, nil, &threads)
		if err != nil {
			// Comments disabled for this video; siblings continue.
			if apiErr, ok := err.(*APIError); ok && apiErr.Status == http.StatusForbidden {
				continue
			}
			return nil, err
		}

		for _, th := range threads.Items {
			c := th.Snippet.TopLevelComment
			if c.Snippet.PublishedAt.Before(cutoff) {
				continue
			}
			out = append(out, Candidate{
				ID:          c.ID,
				ThreadID:    c.ID,
				Author:      c.Snippet.AuthorDisplayName,
				AuthorID:    c.Snippet.AuthorChannelID.Value,
				Title:       videoTitle,
				Body:        c.Snippet.TextDisplay,
				Engagement:  c.Snippet.LikeCount,
				ReplyCount:  th.Snippet.TotalReplyCount,
				PublishedAt: c.Snippet.PublishedAt,
			})
		}
	}
	return out, nil
}

// Publish inserts a comment reply under the candidate comment (parentId).
func (y *YouTube) Publish(ctx context.Context, accessToken string, c Candidate, reply string) (string, error) {
	body := map[string]any{
		"snippet": map[string]any{
			"parentId":     c.ThreadID,
			"textOriginal": reply,
		},
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := postJSON(ctx, y.HTTP, "youtube comment insert", y.BaseURL+"/comments?part=snippet", accessToken, body, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}
