package pipeline

import (
	"sort"

	"github.com/replyloop/go-reply-backend/internal/platform"
)

// Select picks the single best candidate to reply to: highest engagement
// wins, ties broken by fetch order (platforms return relevance-ordered
// windows, so earlier means more relevant).
func Select(cands []platform.Candidate) (platform.Candidate, bool) {
	if len(cands) == 0 {
		return platform.Candidate{}, false
	}
	ranked := make([]platform.Candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Engagement > ranked[j].Engagement
	})
	return ranked[0], true
}
