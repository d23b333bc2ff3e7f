// Package mistral is the chat-completion collaborator: it turns an inReach
// chat message into a short completion via the Mistral HTTP API.
package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// The device screen is tiny and every character costs a chunk, so the system
// prompt pushes hard for bare answers without meta commentary.
const systemPrompt = "You are a helpful assistant. " +
	"Only reply with the direct answer to the user's question. " +
	"Do not include any explanations, notes, reasoning, or meta information. " +
	"Do not say 'as an AI', 'note:', or similar. " +
	"If you do not know, say 'Unknown'. " +
	"Never mention your limitations. " +
	"Do not include internal tags such as <think>, <system>, or <end>."

type Client struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	logger    *slog.Logger
	http      *http.Client
}

func NewClient(log *slog.Logger, baseURL, apiKey, model string, maxTokens int, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("mistral client: base url is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("mistral client: api key is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("mistral client: model is required")
	}
	if maxTokens <= 0 {
		maxTokens = 320
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		logger:    log.With(slog.String("client", "mistral")),
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Respond extracts the prompt (and any coordinates) from an inbound inReach
// message, augments it, and returns the model's completion.
func (c *Client) Respond(ctx context.Context, message string) (string, error) {
	prompt, location := ExtractPrompt(message)
	if prompt == "" {
		return "", fmt.Errorf("mistral: no prompt found in message")
	}
	augmented := AugmentWithLocation(prompt, location)

	reply, err := c.complete(ctx, augmented)
	if err != nil {
		return "", err
	}
	c.logger.Info("completion produced",
		slog.Int("prompt_chars", len(augmented)), slog.Int("reply_chars", len(reply)))
	return reply, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	N         int           `json:"n"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		N:         1,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mistral error: %s", strings.TrimSpace(string(b)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("mistral response missing content")
	}
	return parsed.Choices[0].Message.Content, nil
}
