package platform

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// newYouTubeServer serves the three-call fetch sequence: channels, uploads
// playlist, and per-video comment threads keyed by videoId.
func newYouTubeServer(t *testing.T, comments map[string]string, commentStatus map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/channels":
			_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"relatedPlaylists":{"uploads":"UU123"}}}]}`))
		case "/playlistItems":
			if got := r.URL.Query().Get("playlistId"); got != "UU123" {
				t.Fatalf("playlistId = %q", got)
			}
			_, _ = w.Write([]byte(`{"items":[
				{"snippet":{"title":"Video One"},"contentDetails":{"videoId":"v1"}},
				{"snippet":{"title":"Video Two"},"contentDetails":{"videoId":"v2"}}
			]}`))
		case "/commentThreads":
			vid := r.URL.Query().Get("videoId")
			if status, ok := commentStatus[vid]; ok {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"error":{"message":"commentsDisabled"}}`))
				return
			}
			_, _ = w.Write([]byte(comments[vid]))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func TestYouTubeFetchCandidates_FlattensAcrossVideos(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	fresh := now.Add(-24 * time.Hour).Format(time.RFC3339)
	stale := now.Add(-10 * 24 * time.Hour).Format(time.RFC3339)

	comments := map[string]string{
		"v1": fmt.Sprintf(`{"items":[
			{"snippet":{"topLevelComment":{"id":"cm1","snippet":{
				"authorDisplayName":"viewer1","authorChannelId":{"value":"ch-viewer1"},
				"textDisplay":"great video","likeCount":9,"publishedAt":%q}},"totalReplyCount":2}}
		]}`, fresh),
		"v2": fmt.Sprintf(`{"items":[
			{"snippet":{"topLevelComment":{"id":"cm2","snippet":{
				"authorDisplayName":"viewer2","authorChannelId":{"value":"ch-viewer2"},
				"textDisplay":"too old","likeCount":99,"publishedAt":%q}},"totalReplyCount":0}}
		]}`, stale),
	}
	srv := newYouTubeServer(t, comments, nil)
	defer srv.Close()

	yt := NewYouTube(srv.Client())
	yt.BaseURL = srv.URL
	yt.Now = func() time.Time { return now }

	cands, err := yt.FetchCandidates(context.Background(), "tok", domain.PlatformConfig{})
	if err != nil {
		t.Fatalf("FetchCandidates: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate (stale one dropped), got %d", len(cands))
	}
	c := cands[0]
	if c.ID != "cm1" || c.Title != "Video One" || c.AuthorID != "ch-viewer1" || c.Engagement != 9 {
		t.Fatalf("mapping wrong: %+v", c)
	}
}

func TestYouTubeFetchCandidates_CommentsDisabledSkipsVideo(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	fresh := now.Add(-time.Hour).Format(time.RFC3339)

	comments := map[string]string{
		"v2": fmt.Sprintf(`{"items":[
			{"snippet":{"topLevelComment":{"id":"cm2","snippet":{
				"authorDisplayName":"viewer2","authorChannelId":{"value":"ch2"},
				"textDisplay":"hello","likeCount":5,"publishedAt":%q}},"totalReplyCount":0}}
		]}`, fresh),
	}
	// v1 has comments disabled; the run must continue with v2.
	srv := newYouTubeServer(t, comments, map[string]int{"v1": http.StatusForbidden})
	defer srv.Close()

	yt := NewYouTube(srv.Client())
	yt.BaseURL = srv.URL
	yt.Now = func() time.Time { return now }

	cands, err := yt.FetchCandidates(context.Background(), "tok", domain.PlatformConfig{})
	if err != nil {
		t.Fatalf("403 on one video must not fail the fetch: %v", err)
	}
	if len(cands) != 1 || cands[0].ID != "cm2" {
		t.Fatalf("expected only v2's comment, got %+v", cands)
	}
}

func TestYouTubeFetchCandidates_NonForbiddenErrorFatal(t *testing.T) {
	srv := newYouTubeServer(t, nil, map[string]int{"v1": http.StatusInternalServerError})
	defer srv.Close()

	yt := NewYouTube(srv.Client())
	yt.BaseURL = srv.URL

	if _, err := yt.FetchCandidates(context.Background(), "tok", domain.PlatformConfig{}); err == nil {
		t.Fatal("expected 500 on comment fetch to be fatal")
	}
}

func TestYouTubePublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/comments" {
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"reply-cm"}`))
	}))
	defer srv.Close()

	yt := NewYouTube(srv.Client())
	yt.BaseURL = srv.URL

	id, err := yt.Publish(context.Background(), "tok", Candidate{ThreadID: "cm1"}, "thanks!")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if id != "reply-cm" {
		t.Fatalf("reply id = %q", id)
	}
}

func TestYouTubeRetention_CoversLookback(t *testing.T) {
	yt := NewYouTube(nil)
	p := yt.Retention()
	if p.MaxAge < youtubeCommentLookback {
		t.Fatalf("retention %v must cover lookback %v", p.MaxAge, youtubeCommentLookback)
	}
}
