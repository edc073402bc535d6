package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const rankSystemPrompt = `You are a news classification assistant. Given an
article summary, identify the topics it covers and rate each for relevance
between 0 and 1. Reply with JSON only, in this shape:
{"topics":[{"topic":"...","category":"...","score":0.0}],"overall_score":0.0}`

// TopicScore is one classified topic of an article.
type TopicScore struct {
	Topic    string  `json:"topic"`
	Category string  `json:"category"`
	Score    float64 `json:"score"`
}

// Ranking is the model's classification of one article.
type Ranking struct {
	Topics       []TopicScore `json:"topics"`
	OverallScore float64      `json:"overall_score"`
}

// UnparsableError marks a ranking reply that came back but could not be
// decoded as JSON. Callers treat this differently from transport failures.
type UnparsableError struct {
	Raw string
	Err error
}

func (e *UnparsableError) Error() string {
	return fmt.Sprintf("unparsable ranking response: %v", e.Err)
}

func (e *UnparsableError) Unwrap() error { return e.Err }

// Ranker classifies articles by topic through a chat backend.
type Ranker struct {
	chat Chat
}

func NewRanker(chat Chat) *Ranker {
	return &Ranker{chat: chat}
}

// Rank classifies the article text. A transport or model error is returned
// as-is; a reply that cannot be decoded is returned as *UnparsableError.
func (r *Ranker) Rank(ctx context.Context, title, text string) (*Ranking, error) {
	user := fmt.Sprintf("Title: %s\n\n%s", title, text)
	out, err := r.chat.Complete(ctx, rankSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	ranking, err := ParseRanking(out)
	if err != nil {
		return nil, &UnparsableError{Raw: out, Err: err}
	}
	return ranking, nil
}

// ParseRanking decodes a ranking reply. Models wrap JSON in code fences or
// add trailing prose, so the JSON object is extracted before decoding.
func ParseRanking(raw string) (*Ranking, error) {
	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, err
	}
	var ranking Ranking
	if err := json.Unmarshal([]byte(payload), &ranking); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	return &ranking, nil
}

// ExtractJSON pulls the first balanced JSON object out of a model reply,
// tolerating markdown code fences and surrounding text.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	if start < 0 {
		return "", fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}
