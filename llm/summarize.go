package llm

import (
	"context"
	"fmt"
	"strings"

	"curator/config"
	"curator/relevance"
)

const summarySystemPrompt = `You are a news curation assistant. Summarize the
given article in at most five sentences. Keep concrete facts, numbers and
names. Reply with the summary only, no preamble.`

// Summarizer produces short article summaries through a chat backend.
type Summarizer struct {
	chat Chat
}

func NewSummarizer(chat Chat) *Summarizer {
	return &Summarizer{chat: chat}
}

// Summarize returns a compact summary of the article body. Oversized bodies
// are truncated before being sent to the model.
func (s *Summarizer) Summarize(ctx context.Context, title, content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty content for %q", title)
	}
	content = relevance.Truncate(content, config.SummaryMaxLength)

	user := fmt.Sprintf("Title: %s\n\nArticle:\n%s", title, content)
	out, err := s.chat.Complete(ctx, summarySystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
