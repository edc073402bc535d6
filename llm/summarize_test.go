package llm

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"curator/config"
)

type recordingChat struct {
	user  string
	reply string
}

func (r *recordingChat) Complete(_ context.Context, _, user string) (string, error) {
	r.user = user
	return r.reply, nil
}

func (r *recordingChat) ModelName() string { return "recording" }

func TestSummarizeTrimsReply(t *testing.T) {
	chat := &recordingChat{reply: "  the summary \n"}
	out, err := NewSummarizer(chat).Summarize(context.Background(), "Title", "body")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "the summary" {
		t.Errorf("got %q", out)
	}
}

func TestSummarizeEmptyContentErrors(t *testing.T) {
	chat := &recordingChat{reply: "unused"}
	if _, err := NewSummarizer(chat).Summarize(context.Background(), "Title", "   \n"); err == nil {
		t.Error("empty content must error before the model is called")
	}
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	// Two-byte runes sized so a byte-index cut would land mid-rune.
	content := strings.Repeat("é", config.SummaryMaxLength/2+100)

	chat := &recordingChat{reply: "ok"}
	if _, err := NewSummarizer(chat).Summarize(context.Background(), "Title", content); err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !utf8.ValidString(chat.user) {
		t.Error("truncation split a rune")
	}
	if len(chat.user) > len(content) {
		t.Error("oversized content must be truncated before sending")
	}
}
