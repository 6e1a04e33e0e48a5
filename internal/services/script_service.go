package services

import (
	"bytes"
	"coldcall-api/internal/logger"
	"coldcall-api/internal/metrics"
	"coldcall-api/internal/models"
	apperrors "coldcall-api/internal/pkg/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultScriptModel   = "gpt-4o-mini"
	DefaultScriptTimeout = 60 * time.Second

	scriptMaxTokens   = 400
	scriptTemperature = 0.7
)

// ScriptGenerator writes a cold call script for one business.
type ScriptGenerator interface {
	Generate(ctx context.Context, req models.ScriptRequest) (string, error)
	Demo() bool
}

// ScriptConfig holds configuration for the OpenAI script generator.
type ScriptConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Metrics *metrics.Metrics
}

// OpenAIScriptGenerator calls an OpenAI compatible /chat/completions API.
type OpenAIScriptGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	metrics *metrics.Metrics
}

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature float64             `json:"temperature,omitempty"`
}

type chatCompletionMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIScriptGenerator(cfg ScriptConfig) (*OpenAIScriptGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultScriptModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultScriptTimeout
	}

	return &OpenAIScriptGenerator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		metrics: cfg.Metrics,
	}, nil
}

func (g *OpenAIScriptGenerator) Demo() bool {
	return false
}

// Generate makes exactly one completion call. Provider failures and empty
// completions are reported as generation errors.
func (g *OpenAIScriptGenerator) Generate(ctx context.Context, req models.ScriptRequest) (string, error) {
	system, user := BuildScriptPrompt(req)

	script, err := g.chatCompletion(ctx, []chatCompletionMsg{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		g.metrics.Script(metrics.ScriptResultError)
		logger.LogEvent(logrus.WarnLevel, "Script generation failed", logrus.Fields{
			"place_id": req.Business.PlaceID,
			"model":    g.model,
			"error":    err.Error(),
		})
		return "", apperrors.Generation(err, "Could not generate a script for "+req.Business.Name+". Please try again.")
	}

	script = strings.TrimSpace(script)
	if script == "" {
		g.metrics.Script(metrics.ScriptResultError)
		return "", apperrors.Generation(nil, "The script generator returned an empty script for "+req.Business.Name+".")
	}

	g.metrics.Script(metrics.ScriptResultOK)
	return script, nil
}

func (g *OpenAIScriptGenerator) chatCompletion(ctx context.Context, messages []chatCompletionMsg) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   scriptMaxTokens,
		Temperature: scriptTemperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("openai error (status %d)", resp.StatusCode)
		}
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai error (status %d)", resp.StatusCode)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("openai: no response choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}

const scriptSystemPrompt = "You are an expert cold calling coach who writes scripts that actually get results. " +
	"Focus on being direct, valuable, and respectful of the prospect's time."

const scriptUserPrompt = `Generate a direct, effective cold calling script for the following scenario:

CALLER INFORMATION:
- Service provided: %s
- Target business type searched: %s

BUSINESS BEING CALLED:
- Business name: %s
- Business type: %s
- Location: %s
- Rating: %s

REQUIREMENTS:
1. Keep it under 30 seconds when spoken (leave time for receiver to respond)
2. Be extremely direct - get to the point immediately
3. Start with a specific, relevant hook that grabs attention
4. Include ONE clear value proposition - no fluff
5. End with a simple question that requires a yes/no answer
6. Sound like a real person, not a salesperson
7. Address the most urgent pain point that %s businesses face
8. Include natural pauses for the receiver to speak
9. Use conversational language, not corporate speak

FORMAT: Write the script as a natural conversation with [PAUSE] markers where the caller should wait for a response. Make it sound like you're talking to a friend, not pitching a product.`

// BuildScriptPrompt renders the system and user messages. The same request
// always yields the same prompt.
func BuildScriptPrompt(req models.ScriptRequest) (system, user string) {
	b := req.Business

	name := orDefault(b.Name, "the business")
	category := orDefault(b.Category, req.SearchCategory)
	category = orDefault(category, "local")
	location := orDefault(b.Address, "your area")
	rating := "N/A"
	if b.Rating > 0 {
		rating = strconv.FormatFloat(b.Rating, 'f', 1, 64)
	}

	user = fmt.Sprintf(scriptUserPrompt,
		strings.TrimSpace(req.ServiceDescription),
		orDefault(req.SearchCategory, category),
		name, category, location, rating,
		category,
	)
	return scriptSystemPrompt, user
}

// DemoScriptGenerator fills a fixed template. It is used when no OpenAI key
// is configured.
type DemoScriptGenerator struct {
	metrics *metrics.Metrics
}

func NewDemoScriptGenerator(m *metrics.Metrics) *DemoScriptGenerator {
	return &DemoScriptGenerator{metrics: m}
}

func (g *DemoScriptGenerator) Demo() bool {
	return true
}

func (g *DemoScriptGenerator) Generate(ctx context.Context, req models.ScriptRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.Generation(err, "Script generation was cancelled.")
	}
	g.metrics.Script(metrics.ScriptResultDemo)

	name := orDefault(req.Business.Name, "your business")
	category := orDefault(req.SearchCategory, orDefault(req.Business.Category, "local"))
	service := orDefault(strings.TrimSpace(req.ServiceDescription), "my services")

	return fmt.Sprintf(`Hi, this is [Your Name] calling from [Your Company].

I noticed %s is a %s business, and I specialize in %s.

Many %s businesses like yours struggle with [specific pain point]. We've helped similar businesses increase their [specific benefit] by [percentage]%%.

[PAUSE for response]

Would you be interested in a quick 5-minute conversation about how we could help %s achieve similar results?`,
		name, category, service, category, name), nil
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
