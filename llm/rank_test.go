package llm

import (
	"context"
	"errors"
	"testing"
)

type fakeChat struct {
	reply string
	err   error
}

func (f *fakeChat) Complete(_ context.Context, _, _ string) (string, error) {
	return f.reply, f.err
}

func (f *fakeChat) ModelName() string { return "fake" }

func TestExtractJSONPlain(t *testing.T) {
	out, err := ExtractJSON(`{"a":1}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"a":1}` {
		t.Errorf("got %q", out)
	}
}

func TestExtractJSONCodeFence(t *testing.T) {
	raw := "Here you go:\n```json\n{\"topics\":[]}\n```\nHope that helps!"
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"topics":[]}` {
		t.Errorf("got %q", out)
	}
}

func TestExtractJSONTrailingProse(t *testing.T) {
	raw := `{"overall_score":0.8} as requested.`
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != `{"overall_score":0.8}` {
		t.Errorf("got %q", out)
	}
}

func TestExtractJSONNestedBracesAndStrings(t *testing.T) {
	raw := `{"topics":[{"topic":"a \"quoted\" {brace}","score":1}]}`
	out, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if out != raw {
		t.Errorf("got %q", out)
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("sorry, I cannot do that"); err == nil {
		t.Error("prose without JSON must error")
	}
}

func TestParseRanking(t *testing.T) {
	raw := "```json\n{\"topics\":[{\"topic\":\"ml\",\"category\":\"tech\",\"score\":0.9}],\"overall_score\":0.85}\n```"
	ranking, err := ParseRanking(raw)
	if err != nil {
		t.Fatalf("ParseRanking: %v", err)
	}
	if len(ranking.Topics) != 1 || ranking.Topics[0].Topic != "ml" {
		t.Errorf("topics = %v", ranking.Topics)
	}
	if ranking.OverallScore != 0.85 {
		t.Errorf("overall = %f", ranking.OverallScore)
	}
}

func TestRankWrapsUnparsableReply(t *testing.T) {
	ranker := NewRanker(&fakeChat{reply: "I think this is about technology."})
	_, err := ranker.Rank(context.Background(), "t", "text")

	var unparsable *UnparsableError
	if !errors.As(err, &unparsable) {
		t.Fatalf("expected UnparsableError, got %v", err)
	}
	if unparsable.Raw == "" {
		t.Error("the raw reply must be preserved for debugging")
	}
}

func TestRankPassesThroughTransportErrors(t *testing.T) {
	ranker := NewRanker(&fakeChat{err: errors.New("rate limited")})
	_, err := ranker.Rank(context.Background(), "t", "text")

	var unparsable *UnparsableError
	if errors.As(err, &unparsable) {
		t.Error("transport errors are not unparsable replies")
	}
	if err == nil {
		t.Error("expected an error")
	}
}

func TestSummarizeRejectsEmptyContent(t *testing.T) {
	s := NewSummarizer(&fakeChat{reply: "summary"})
	if _, err := s.Summarize(context.Background(), "title", "   "); err == nil {
		t.Error("blank content must be rejected")
	}
}

func TestSummarizeTrimsReplyWhitespace(t *testing.T) {
	s := NewSummarizer(&fakeChat{reply: "\n  the summary  \n"})
	out, err := s.Summarize(context.Background(), "title", "long article body")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if out != "the summary" {
		t.Errorf("got %q", out)
	}
}
