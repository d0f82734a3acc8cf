package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rankparty/rankparty/internal/question"
)

// Config holds connection details for the generative question source.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Generator implements question.Generator against an OpenAI-compatible
// chat-completions endpoint.
type Generator struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
	url        string
}

func NewGenerator(cfg Config, logger zerolog.Logger) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	return &Generator{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		config: cfg,
		logger: logger.With().Str("component", "ai_generator").Logger(),
		url:    base + "/chat/completions",
	}
}

var _ question.Generator = (*Generator)(nil)

// Generate requests a batch of "who is most likely" questions. The prompt
// embeds the caller's random seed and few-shot examples so retries with a
// fresh seed steer the model toward different output.
func (g *Generator) Generate(ctx context.Context, req question.GenerateRequest) ([]string, error) {
	if g.config.APIKey == "" {
		return nil, fmt.Errorf("generator not configured")
	}

	payload := chatRequest{
		Model: g.config.Model,
		Messages: []chatMessage{
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: 1.0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.config.APIKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generator returned status %d", resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decode generator payload: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("generator returned no choices")
	}

	raw := chatResp.Choices[0].Message.Content
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var parsed generatedQuestions
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse generated JSON: %w", err)
	}
	if len(parsed.Questions) == 0 {
		return nil, fmt.Errorf("generator returned empty question set")
	}

	return parsed.Questions, nil
}

func buildPrompt(req question.GenerateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d party game questions of the form \"Who is most likely to ...?\".\n", req.Count)
	b.WriteString("Rules:\n")
	b.WriteString("- Each question must be a single affirmative sentence starting with \"Who is most likely\".\n")
	b.WriteString("- Questions must be distinct from each other and from the examples below.\n")
	b.WriteString("- Keep them light-hearted and suitable for a group of friends.\n")
	fmt.Fprintf(&b, "- Randomness seed for variety: %s\n", req.Seed)
	if len(req.Examples) > 0 {
		b.WriteString("Examples of the expected style:\n")
		for _, ex := range req.Examples {
			fmt.Fprintf(&b, "- %s\n", ex)
		}
	}
	b.WriteString("Respond with strict JSON only, shaped exactly as {\"questions\": [\"...\"]} with no extra commentary.")
	return b.String()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedQuestions struct {
	Questions []string `json:"questions"`
}
