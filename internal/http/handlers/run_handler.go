// Pipeline run HTTP handlers.
//
// This file exposes the reply pipeline trigger endpoints:
//   - POST /{platform}/run
//
// Handlers are transport-thin: they authorize the caller, invoke the
// pipeline runner, and translate domain errors into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/http/middleware"
	"github.com/replyloop/go-reply-backend/internal/pipeline"
	"github.com/replyloop/go-reply-backend/internal/platform"
	"github.com/replyloop/go-reply-backend/internal/repo"
)

// PipelineRunner executes one reply cycle for an account. Implementations
// must be safe for concurrent use and honor the provided context.
type PipelineRunner interface {
	Run(ctx context.Context, platformName, accountID string) (*pipeline.Outcome, error)
}

// Handlers groups the HTTP endpoints for pipeline runs and account reads.
type Handlers struct {
	// DB is used for ownership checks and read endpoints.
	DB *gorm.DB
	// Runner drives pipeline runs.
	Runner PipelineRunner
}

// New constructs a Handlers instance bound to the given dependencies.
func New(db *gorm.DB, runner PipelineRunner) *Handlers {
	return &Handlers{DB: db, Runner: runner}
}

// userID extracts the authenticated user id from the Gin context (set by
// upstream middleware), falling back to the X-User-ID header and finally to
// "demo-user".
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// RunRequest is the JSON payload for triggering a pipeline run.
type RunRequest struct {
	// AccountID names the connected account to run for.
	AccountID string `json:"account_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// Run godoc
// @ID          runPipeline
// @Summary     Trigger a reply pipeline run
// @Description Runs one reply cycle for the account: refresh tokens, fetch and filter candidates, generate and publish at most one reply. Scheduler callers authenticate with X-Scheduler-Token; user callers must own the account.
// @Tags        Pipeline
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID          header  string  false "User ID (demo header)" example(user123)
// @Param       X-Scheduler-Token  header  string  false "Scheduler shared secret"
// @Param       body               body    handlers.RunRequest  true  "Run payload"
//
// @Success     200  {object}  pipeline.Outcome
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request or missing configuration"
// @Failure     401  {object}  handlers.ErrorResponse  "Account not connected"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Run already in progress"
// @Failure     500  {object}  handlers.ErrorResponse  "Run failed"
// @Router      /{platform}/run [post]
func (h *Handlers) Run(platformName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account_id required")
			return
		}
		if _, err := uuid.Parse(req.AccountID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a UUID")
			return
		}

		ctx := c.Request.Context()

		// Scheduler calls act on any account; user calls are ownership-scoped.
		if !middleware.IsScheduler(c) {
			if _, err := repo.GetAccountForUser(ctx, h.DB, req.AccountID, userID(c)); err != nil {
				fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
				return
			}
		}

		outcome, err := h.Runner.Run(ctx, platformName, req.AccountID)
		if err != nil {
			status, code, msg := mapRunError(err)
			fail(c, status, code, msg)
			return
		}
		ok(c, http.StatusOK, outcome)
	}
}

// mapRunError translates pipeline failures into HTTP status and error code.
// Sentinel identity survives stage wrapping via errors.Is.
func mapRunError(err error) (int, string, string) {
	switch {
	case errors.Is(err, repo.ErrLeaseHeld):
		return http.StatusConflict, ErrCodeRunInProgress, "a run is already in progress for this account"
	case errors.Is(err, platform.ErrDisconnected):
		return http.StatusUnauthorized, ErrCodeDisconnected, "account is not connected to the platform"
	case errors.Is(err, platform.ErrConfigMissing):
		return http.StatusBadRequest, ErrCodeConfigMissing, err.Error()
	case errors.Is(err, repo.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "account not found"
	default:
		return http.StatusInternalServerError, ErrCodeRunFailed, err.Error()
	}
}
