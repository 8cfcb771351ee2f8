// Package pipeline drives one reply cycle for a connected account: refresh
// the OAuth token, fetch a candidate window, filter it, pick the best
// candidate, generate a reply with the user's assistant profile, publish it,
// and record the interaction. The driver is platform-agnostic; everything
// platform-specific lives behind platform.Adapter.
//
// One run produces at most one reply. Runs for the same account are mutually
// exclusive via a TTL lease, so an external scheduler and a manual trigger
// can never double-post.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/replyloop/go-reply-backend/internal/domain"
	"github.com/replyloop/go-reply-backend/internal/llm"
	"github.com/replyloop/go-reply-backend/internal/platform"
	"github.com/replyloop/go-reply-backend/internal/repo"
	"github.com/replyloop/go-reply-backend/internal/sysutil"

	"golang.org/x/oauth2"
)

// noEligibleMessage is the success-without-reply outcome message.
const noEligibleMessage = "No eligible posts found"

// Refresher guarantees a valid access token before platform calls.
type Refresher interface {
	EnsureValid(ctx context.Context, endpoint oauth2.Endpoint, cred domain.Credential) (string, *platform.TokenUpdate, error)
}

// Generator produces reply text from a prompt pair.
type Generator interface {
	Complete(ctx context.Context, apiKey, model, systemPrompt, userMessage string) (string, error)
}

// Outcome is the result of one completed run.
type Outcome struct {
	// Replied reports whether a reply was published this run.
	Replied bool `json:"replied"`
	// RepliedTo is the author of the content replied to, when Replied.
	RepliedTo string `json:"replied_to,omitempty"`
	// PostTitle carries titled-content context (Reddit post, video title).
	PostTitle string `json:"post_title,omitempty"`
	// Comment is the published reply text, when Replied.
	Comment string `json:"comment,omitempty"`
	// Message is a human-readable summary of the run.
	Message string `json:"message"`
}

// Runner executes reply pipeline runs. Safe for concurrent use across
// accounts; per-account exclusivity comes from the run lease.
type Runner struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Adapters maps platform name to its adapter.
	Adapters map[string]platform.Adapter
	// Refresher validates and refreshes OAuth tokens.
	Refresher Refresher
	// Generator produces reply text.
	Generator Generator
	// LeaseTTL bounds how long a crashed run can block its account.
	LeaseTTL time.Duration
}

// Run executes one reply cycle for the account on the given platform.
//
// The error return carries stage context via *StageError while preserving
// sentinel identity (repo.ErrNotFound, repo.ErrLeaseHeld,
// platform.ErrDisconnected, platform.ErrConfigMissing) for HTTP mapping.
// An empty eligible set is not an error: the run succeeds with Replied=false.
func (r *Runner) Run(ctx context.Context, platformName, accountID string) (*Outcome, error) {
	adapter, ok := r.Adapters[platformName]
	if !ok {
		return nil, fmt.Errorf("unsupported platform %q", platformName)
	}

	account, err := repo.GetAccount(ctx, r.DB, accountID, platformName)
	if err != nil {
		return nil, err
	}

	leaseToken, err := repo.AcquireLease(ctx, r.DB, accountID, r.LeaseTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := repo.ReleaseLease(context.WithoutCancel(ctx), r.DB, accountID, leaseToken); relErr != nil {
			log.Warn().Err(relErr).Str("account_id", accountID).Msg("run lease release failed")
		}
	}()

	outcome, err := r.run(ctx, adapter, account)
	if err != nil {
		var stageErr *StageError
		if errors.As(err, &stageErr) {
			observeStageFailure(platformName, stageErr.Stage)
			r.appendLog(ctx, accountID, domain.LogError, "Run failed: "+stageErr.Err.Error(), metaJSON(map[string]string{"stage": stageErr.Stage}))
		}
		observeRun(platformName, outcomeError)
		return nil, err
	}

	if outcome.Replied {
		observeRun(platformName, outcomeReplied)
	} else {
		observeRun(platformName, outcomeNoCandidates)
	}
	return outcome, nil
}

func (r *Runner) run(ctx context.Context, adapter platform.Adapter, account *domain.Account) (*Outcome, error) {
	accountID := account.ID
	logger := log.With().Str("account_id", accountID).Str("platform", adapter.Platform()).Logger()

	cfg, err := repo.GetPlatformConfig(ctx, r.DB, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// The account exists but was never configured; not a 404.
			return nil, stage(StageFilter, fmt.Errorf("%w: platform configuration", platform.ErrConfigMissing))
		}
		return nil, stage(StageFilter, fmt.Errorf("load config: %w", err))
	}
	normCfg, err := adapter.NormalizeConfig(*cfg)
	if err != nil {
		return nil, stage(StageFilter, err)
	}

	cred, err := repo.GetCredential(ctx, r.DB, accountID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, stage(StageTokenRefresh, platform.ErrDisconnected)
		}
		return nil, stage(StageTokenRefresh, err)
	}
	if !cred.Connected() {
		return nil, stage(StageTokenRefresh, platform.ErrDisconnected)
	}

	accessToken, update, err := r.Refresher.EnsureValid(ctx, adapter.OAuth(), *cred)
	if err != nil {
		return nil, stage(StageTokenRefresh, err)
	}
	if update != nil {
		// Persist before any platform call. A refresh that rotated the token
		// pair must never be lost to a later failure, or the account would be
		// left with dead credentials.
		if err := repo.UpdateTokens(ctx, r.DB, accountID, update.AccessToken, update.RefreshToken, update.ExpiresAt); err != nil {
			return nil, stage(StageTokenRefresh, fmt.Errorf("persist refreshed tokens: %w", err))
		}
		r.appendLog(ctx, accountID, domain.LogInfo, "Access token refreshed", "")
	}

	cands, err := adapter.FetchCandidates(ctx, accessToken, normCfg)
	if err != nil {
		return nil, stage(StageFetch, err)
	}
	logger.Debug().Int("candidates", len(cands)).Msg("fetched candidate window")

	ids := make([]string, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	replied, err := repo.FindRepliedIDs(ctx, r.DB, accountID, ids)
	if err != nil {
		return nil, stage(StageFilter, err)
	}

	eligible := Filter(cands, replied, normCfg.MinEngagement, adapter.Identity(*cred))
	if len(eligible) == 0 {
		r.appendLog(ctx, accountID, domain.LogInfo, noEligibleMessage, metaJSON(map[string]int{"fetched": len(cands)}))
		return &Outcome{Replied: false, Message: noEligibleMessage}, nil
	}

	best, _ := Select(eligible)

	profile, err := repo.GetAssistantProfile(ctx, r.DB, account.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, stage(StageGenerate, fmt.Errorf("%w: assistant profile", platform.ErrConfigMissing))
		}
		return nil, stage(StageGenerate, err)
	}
	if profile.APIKey == "" {
		return nil, stage(StageGenerate, fmt.Errorf("%w: assistant api key", platform.ErrConfigMissing))
	}

	persona := sysutil.FirstNonEmpty(profile.Persona, adapter.DefaultPersona())
	reply, err := r.Generator.Complete(ctx,
		profile.APIKey,
		profile.Model,
		llm.SystemPrompt(persona, *profile),
		llm.UserMessage(best.Author, best.Title, best.Body),
	)
	if err != nil {
		return nil, stage(StageGenerate, err)
	}

	replyID, err := adapter.Publish(ctx, accessToken, best, reply)
	if err != nil {
		return nil, stage(StagePublish, err)
	}
	logger.Info().Str("content_id", best.ID).Str("reply_id", replyID).Msg("reply published")

	// The reply is live; recording failures degrade to warnings so the
	// caller still sees a successful run.
	r.record(ctx, adapter, accountID, best, reply, replyID)

	r.appendLog(ctx, accountID, domain.LogSuccess, "Replied to @"+best.Author,
		metaJSON(map[string]string{"content_id": best.ID, "reply_id": replyID}))

	return &Outcome{
		Replied:   true,
		RepliedTo: best.Author,
		PostTitle: best.Title,
		Comment:   reply,
		Message:   "Reply published",
	}, nil
}

// record persists the interaction and applies the platform retention policy.
// Best effort: the reply is already published, so failures log a warning
// instead of failing the run.
func (r *Runner) record(ctx context.Context, adapter platform.Adapter, accountID string, c platform.Candidate, reply, replyID string) {
	snippet := c.Body
	if c.Title != "" {
		snippet = c.Title
	}
	rec := &domain.Interaction{
		AccountID:  accountID,
		ContentID:  c.ID,
		Author:     c.Author,
		Snippet:    snippet,
		Engagement: c.Engagement,
		ReplyText:  reply,
		ReplyID:    replyID,
		RepliedAt:  time.Now().UTC(),
	}
	if err := repo.UpsertInteraction(ctx, r.DB, rec); err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("interaction record failed")
		r.appendLog(ctx, accountID, domain.LogWarning, "Reply published but interaction record failed: "+err.Error(),
			metaJSON(map[string]string{"stage": StageRecord}))
		return
	}
	if pruned, err := repo.PruneInteractions(ctx, r.DB, accountID, adapter.Retention()); err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("interaction prune failed")
	} else if pruned > 0 {
		log.Debug().Int64("pruned", pruned).Str("account_id", accountID).Msg("old interactions pruned")
	}
}

// appendLog writes a pipeline log entry, swallowing persistence errors. Logs
// are an operator convenience and must never alter run behavior.
func (r *Runner) appendLog(ctx context.Context, accountID, level, message, meta string) {
	if err := repo.AppendLog(context.WithoutCancel(ctx), r.DB, accountID, level, message, meta); err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("pipeline log append failed")
	}
}

func stage(name string, err error) error {
	return &StageError{Stage: name, Err: err}
}

func metaJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
