// Package recommend assembles recommendation candidates from the local
// catalog with tiered fallback to external search, and decorates each
// candidate with a generated promotional blurb.
package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ekarhu/tropeshelf/internal/catalog"
)

// FallbackBlurb is returned for a candidate whenever blurb generation fails.
// Exact text, matched by callers and tests.
const FallbackBlurb = "A swoon-worthy read that belongs on every romance lover's shelf."

// blurbSystemPrompt constrains the generated text to one or two sentences
// under 50 words.
const blurbSystemPrompt = "You are a romance book recommendation assistant. " +
	"Write an enticing promotional blurb of one or two sentences, strictly " +
	"under 50 words. Do not use quotation marks. Do not mention that you are " +
	"an assistant."

// BlurbClient calls a chat-completions style generative-text service.
// Every call is best-effort: failures degrade to FallbackBlurb and are
// never surfaced as errors.
type BlurbClient struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	clientOnce sync.Once
}

// NewBlurbClient creates a blurb client for the given endpoint and model.
func NewBlurbClient(endpoint, apiKey, model string) *BlurbClient {
	return &BlurbClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Blurb generates a promotional blurb for the book. It never fails: any
// network, status, or parse error yields FallbackBlurb.
func (c *BlurbClient) Blurb(ctx context.Context, book *catalog.Book) string {
	text, err := c.generate(ctx, blurbPrompt(book))
	if err != nil {
		slog.Warn("Blurb generation failed, using fallback", "title", book.Title, "error", err)
		return FallbackBlurb
	}
	return text
}

func (c *BlurbClient) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: blurbSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   80,
		Temperature: 0.8,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("API request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion")
	}
	return text, nil
}

func (c *BlurbClient) getHTTPClient() *http.Client {
	c.clientOnce.Do(func() {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	})
	return c.httpClient
}

// blurbPrompt builds the per-candidate user prompt.
func blurbPrompt(book *catalog.Book) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a blurb for the romance novel %q", book.Title)
	if book.Author != "" {
		fmt.Fprintf(&sb, " by %s", book.Author)
	}
	sb.WriteString(".")
	if book.Mood != "" {
		fmt.Fprintf(&sb, " Mood: %s.", book.Mood)
	}
	if book.Trope != "" {
		fmt.Fprintf(&sb, " Trope: %s.", book.Trope)
	}
	if book.HeatLevel != "" {
		fmt.Fprintf(&sb, " Heat level: %s.", book.HeatLevel)
	}
	return sb.String()
}
