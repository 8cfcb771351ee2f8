// Account read HTTP handlers.
//
// This file exposes the dashboard read endpoints:
//   - GET /accounts                    (list the user's connected accounts)
//   - GET /accounts/{id}/interactions  (paginated reply history)
//   - GET /accounts/{id}/logs          (paginated pipeline logs)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/repo"
	"github.com/replyloop/go-reply-backend/internal/utils"
)

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListInteractionsResponse wraps a page of interactions.
type ListInteractionsResponse struct {
	Interactions []domain.Interaction `json:"interactions"`
	Pagination   Pagination           `json:"pagination"`
}

// ListLogsResponse wraps a page of pipeline log entries.
type ListLogsResponse struct {
	Logs       []domain.LogEntry `json:"logs"`
	Pagination Pagination        `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

func paginationFor(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

// ownedAccount resolves the path account id, enforcing UUID shape and
// ownership by the current user. It writes the error response itself and
// returns false when the request must not proceed.
func (h *Handlers) ownedAccount(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "account id must be a UUID")
		return "", false
	}
	if _, err := repo.GetAccountForUser(c.Request.Context(), h.DB, id, userID(c)); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
		return "", false
	}
	return id, true
}

// ListAccounts godoc
// @ID          listAccounts
// @Summary     List connected accounts
// @Description Returns all platform accounts belonging to the current user.
// @Tags        Accounts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
//
// @Success     200  {array}   domain.Account
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [get]
func (h *Handlers) ListAccounts(c *gin.Context) {
	accounts, err := repo.ListAccounts(c.Request.Context(), h.DB, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, accounts)
}

// ListInteractions godoc
// @ID          listInteractions
// @Summary     List reply interactions (paginated)
// @Description Returns a page of published replies for an account, newest first.
// @Tags        Accounts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       id         path    string  true  "Account ID (UUID)" format(uuid)
// @Param       page       query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListInteractionsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id}/interactions [get]
func (h *Handlers) ListInteractions(c *gin.Context) {
	accountID, okAcc := h.ownedAccount(c)
	if !okAcc {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	total, err := repo.CountInteractions(ctx, h.DB, accountID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListInteractionsPage(ctx, h.DB, accountID, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListInteractionsResponse{
		Interactions: items,
		Pagination:   paginationFor(page, pageSize, total),
	})
}

// ListLogs godoc
// @ID          listLogs
// @Summary     List pipeline logs (paginated)
// @Description Returns a page of pipeline log entries for an account, newest first.
// @Tags        Accounts
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)" example(user123)
// @Param       id         path    string  true  "Account ID (UUID)" format(uuid)
// @Param       page       query   int     false "Page number"    minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page" minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ListLogsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts/{id}/logs [get]
func (h *Handlers) ListLogs(c *gin.Context) {
	accountID, okAcc := h.ownedAccount(c)
	if !okAcc {
		return
	}
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	total, err := repo.CountLogs(ctx, h.DB, accountID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	items, err := repo.ListLogsPage(ctx, h.DB, accountID, (page-1)*pageSize, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListLogsResponse{
		Logs:       items,
		Pagination: paginationFor(page, pageSize, total),
	})
}
