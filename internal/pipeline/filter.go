package pipeline

import "github.com/replyloop/go-reply-backend/internal/platform"

// deletedAuthor is the placeholder some platforms substitute for removed
// accounts; such content cannot be meaningfully replied to.
const deletedAuthor = "[deleted]"

// Filter applies the eligibility rules to a fetched candidate window:
//
//   - drop candidates already replied to by this account (replied set),
//   - drop candidates below the engagement floor,
//   - drop the connected account's own content (no self-replies),
//   - drop content from deleted authors,
//   - drop duplicate ids within the window itself.
//
// Order is preserved; the input slice is not mutated.
func Filter(cands []platform.Candidate, replied map[string]bool, minEngagement int, self platform.Identity) []platform.Candidate {
	seen := make(map[string]bool, len(cands))
	out := make([]platform.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.ID == "" || seen[c.ID] || replied[c.ID] {
			continue
		}
		seen[c.ID] = true
		if c.Engagement < minEngagement {
			continue
		}
		if self.Matches(c) {
			continue
		}
		if c.Author == deletedAuthor {
			continue
		}
		out = append(out, c)
	}
	return out
}
