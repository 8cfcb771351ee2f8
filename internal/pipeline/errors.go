package pipeline

import "fmt"

// Stage names used in stage errors, pipeline logs, and metrics labels.
const (
	StageTokenRefresh = "token_refresh"
	StageFetch        = "content_fetch"
	StageFilter       = "eligibility_filter"
	StageSelect       = "candidate_select"
	StageGenerate     = "reply_generate"
	StagePublish      = "reply_publish"
	StageRecord       = "interaction_record"
)

// StageError marks which pipeline stage a run failed in. The wrapped error
// keeps its identity for errors.Is/As, so callers can still map domain errors
// (disconnected, config missing) to API responses.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying stage failure.
func (e *StageError) Unwrap() error { return e.Err }
