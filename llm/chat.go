package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
)

// Chat is a minimal completion interface. Implementations send one system
// prompt and one user message and return the model's text reply.
type Chat interface {
	Complete(ctx context.Context, system, user string) (string, error)
	ModelName() string
}

// NewDefaultChat picks a chat backend from the environment: Cohere when
// COHERE_API_KEY is set, else OpenAI when OPENAI_API_KEY is set, else nil.
func NewDefaultChat(model string) Chat {
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		if model == "" {
			model = "command-r"
		}
		return NewCohereChat(key, model)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if model == "" {
			model = "gpt-4o-mini"
		}
		return NewOpenAIChat(key, model, "")
	}
	return nil
}

// CohereChat implements Chat over the Cohere chat API.
type CohereChat struct {
	client *cohereclient.Client
	model  string
}

func NewCohereChat(apiKey, model string) *CohereChat {
	return &CohereChat{
		client: cohereclient.NewClient(cohereclient.WithToken(apiKey)),
		model:  model,
	}
}

func (c *CohereChat) ModelName() string { return c.model }

func (c *CohereChat) Complete(ctx context.Context, system, user string) (string, error) {
	req := &cohere.ChatRequest{
		Message: user,
		Model:   &c.model,
	}
	if system != "" {
		req.Preamble = &system
	}
	resp, err := c.client.Chat(ctx, req)
	if err != nil {
		return "", fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return "", errors.New("cohere chat returned empty response")
	}
	return resp.Text, nil
}

// OpenAIChat implements Chat against OpenAI-compatible chat completion
// endpoints.
type OpenAIChat struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewOpenAIChat(apiKey, model, endpoint string) *OpenAIChat {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	return &OpenAIChat{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (o *OpenAIChat) ModelName() string { return o.model }

func (o *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []map[string]string{}
	if system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": user})

	body, err := json.Marshal(map[string]interface{}{
		"model":    o.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("chat returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
