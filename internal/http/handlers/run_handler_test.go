package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/http/middleware"
	"github.com/replyloop/go-reply-backend/internal/pipeline"
	"github.com/replyloop/go-reply-backend/internal/platform"
	"github.com/replyloop/go-reply-backend/internal/repo"
)

type fakeRunner struct {
	outcome *pipeline.Outcome
	err     error

	gotPlatform  string
	gotAccountID string
}

func (f *fakeRunner) Run(_ context.Context, platformName, accountID string) (*pipeline.Outcome, error) {
	f.gotPlatform = platformName
	f.gotAccountID = accountID
	return f.outcome, f.err
}

func newHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(
		&domain.Account{}, &domain.Interaction{}, &domain.LogEntry{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestRouter(db *gorm.DB, runner PipelineRunner, schedulerToken string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.SchedulerAuth(schedulerToken))
	h := New(db, runner)
	r.POST("/twitter/run", h.Run("twitter"))
	r.GET("/accounts", h.ListAccounts)
	r.GET("/accounts/:id/interactions", h.ListInteractions)
	r.GET("/accounts/:id/logs", h.ListLogs)
	return r
}

func seedAccount(t *testing.T, db *gorm.DB, userID string) string {
	t.Helper()
	id := uuid.NewString()
	if err := db.Create(&domain.Account{
		ID: id, UserID: userID, Platform: domain.PlatformTwitter, Name: "acc",
	}).Error; err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return id
}

func doRun(t *testing.T, r *gin.Engine, accountID string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"account_id":%q}`, accountID)
	req := httptest.NewRequest(http.MethodPost, "/twitter/run", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRun_Success(t *testing.T) {
	db := newHandlerDB(t)
	accID := seedAccount(t, db, "u1")
	fr := &fakeRunner{outcome: &pipeline.Outcome{Replied: true, RepliedTo: "bob", Message: "Reply published"}}
	r := newTestRouter(db, fr, "")

	w := doRun(t, r, accID, map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var out pipeline.Outcome
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Replied || out.RepliedTo != "bob" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if fr.gotPlatform != "twitter" || fr.gotAccountID != accID {
		t.Fatalf("runner got platform=%q account=%q", fr.gotPlatform, fr.gotAccountID)
	}
}

func TestRun_OwnershipEnforcedForUserCalls(t *testing.T) {
	db := newHandlerDB(t)
	accID := seedAccount(t, db, "owner")
	fr := &fakeRunner{outcome: &pipeline.Outcome{Replied: false, Message: "No eligible posts found"}}
	r := newTestRouter(db, fr, "")

	w := doRun(t, r, accID, map[string]string{"X-User-ID": "intruder"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if fr.gotAccountID != "" {
		t.Fatal("runner must not run for a foreign account")
	}
}

func TestRun_SchedulerTokenBypassesOwnership(t *testing.T) {
	db := newHandlerDB(t)
	accID := seedAccount(t, db, "owner")
	fr := &fakeRunner{outcome: &pipeline.Outcome{Replied: false, Message: "No eligible posts found"}}
	r := newTestRouter(db, fr, "shared-secret")

	w := doRun(t, r, accID, map[string]string{middleware.SchedulerTokenHeader: "shared-secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if fr.gotAccountID != accID {
		t.Fatal("scheduler call should reach the runner")
	}

	// Wrong token falls back to user scoping and fails ownership.
	fr2 := &fakeRunner{outcome: &pipeline.Outcome{}}
	r2 := newTestRouter(db, fr2, "shared-secret")
	w2 := doRun(t, r2, accID, map[string]string{
		middleware.SchedulerTokenHeader: "wrong",
		"X-User-ID":                     "intruder",
	})
	if w2.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w2.Code)
	}
}

func TestRun_BadRequests(t *testing.T) {
	db := newHandlerDB(t)
	r := newTestRouter(db, &fakeRunner{}, "")

	// Missing body field.
	req := httptest.NewRequest(http.MethodPost, "/twitter/run", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing account_id: status = %d", w.Code)
	}

	// Malformed id.
	w = doRun(t, r, "not-a-uuid", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: status = %d", w.Code)
	}
}

func TestRun_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"lease held", &pipeline.StageError{Stage: "x", Err: repo.ErrLeaseHeld}, http.StatusConflict, ErrCodeRunInProgress},
		{"disconnected", &pipeline.StageError{Stage: "token_refresh", Err: platform.ErrDisconnected}, http.StatusUnauthorized, ErrCodeDisconnected},
		{"config missing", fmt.Errorf("wrap: %w", platform.ErrConfigMissing), http.StatusBadRequest, ErrCodeConfigMissing},
		{"not found", repo.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrCodeRunFailed},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := newHandlerDB(t)
			accID := seedAccount(t, db, "u1")
			r := newTestRouter(db, &fakeRunner{err: tc.err}, "")

			w := doRun(t, r, accID, map[string]string{"X-User-ID": "u1"})
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (body=%s)", w.Code, tc.wantStatus, w.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", resp.Code, tc.wantCode)
			}
		})
	}
}
