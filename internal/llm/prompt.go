package llm

import (
	"strings"

	"github.com/replyloop/go-reply-backend/internal/domain"
)

// maxContextChars caps how much candidate text is fed into the prompt. Long
// posts are truncated rather than rejected; the opening carries the point.
const maxContextChars = 500

// SystemPrompt builds the system message from the user's persona (or the
// platform fallback) plus the profile's style toggles.
func SystemPrompt(persona string, profile domain.AssistantProfile) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(persona))
	b.WriteString("\n\nWrite a single reply to the post you are given.")
	b.WriteString(" Keep it under 500 characters.")
	b.WriteString(" Be specific to the post's content; never be generic or spammy.")

	if profile.NoHashtags {
		b.WriteString(" Do not use hashtags.")
	}
	if profile.NoEmojis {
		b.WriteString(" Do not use emojis.")
	}
	if profile.Lowercase {
		b.WriteString(" Write in all lowercase.")
	}
	if profile.CasualGrammar {
		b.WriteString(" Use casual, conversational grammar.")
	}
	return b.String()
}

// UserMessage builds the user message carrying the candidate content. Titled
// content (Reddit posts, video context) leads with the title.
func UserMessage(author, title, body string) string {
	var b strings.Builder
	if author != "" {
		b.WriteString("Post by @")
		b.WriteString(author)
		b.WriteString(":\n")
	}
	if t := strings.TrimSpace(title); t != "" {
		b.WriteString(truncate(t, maxContextChars))
		b.WriteString("\n\n")
	}
	b.WriteString(truncate(strings.TrimSpace(body), maxContextChars))
	return b.String()
}
