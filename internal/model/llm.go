package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/gossbu666/car-prices-prediction-st126055/internal/features"
)

const systemPrompt = "You are a used-car valuation model for the Indian market. Given one vehicle as JSON, estimate its selling price in Indian rupees. Respond with strict JSON only: {\"price\": <number>}."

type LLMCaller interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

type AnthropicCaller struct {
	messages AnthropicMessager
}

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

func NewAnthropicCallerFromEnv() (*AnthropicCaller, error) {
	if envEnabled("CARPRICE_NO_LLM") {
		return nil, errors.New("llm backend disabled by CARPRICE_NO_LLM")
	}
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	return &AnthropicCaller{messages: newAnthropicClient(apiKey)}, nil
}

func (a *AnthropicCaller) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.ModelClaudeSonnet4_20250514,
		MaxTokens:   256,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}

// LLMPredictor asks a language model for a price estimate.
type LLMPredictor struct {
	caller   LLMCaller
	attempts int
	sleep    func(time.Duration)
}

func NewLLMPredictor(caller LLMCaller) *LLMPredictor {
	return &LLMPredictor{caller: caller, attempts: 3, sleep: time.Sleep}
}

type llmEstimate struct {
	Price *float64 `json:"price"`
}

func (p *LLMPredictor) Predict(ctx context.Context, row features.FeatureRow) (float64, error) {
	vehicle, err := json.Marshal(row)
	if err != nil {
		return 0, &PredictionError{Backend: BackendLLM, Err: err}
	}
	prompt := "Vehicle:\n" + string(vehicle) + "\n\nRespond with only valid JSON matching the schema."
	feedback := ""
	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		raw, err := p.caller.GenerateJSON(ctx, prompt+feedback)
		if err != nil {
			lastErr = err
			if isTransient(err) && attempt < p.attempts {
				p.sleep(backoffDelay(attempt))
				continue
			}
			return 0, &PredictionError{Backend: BackendLLM, Err: fmt.Errorf("transport failure: %w", err), Transient: isTransient(err)}
		}
		var est llmEstimate
		if err := json.Unmarshal([]byte(stripCodeFences(raw)), &est); err != nil {
			lastErr = fmt.Errorf("json parse: %w", err)
			feedback = "\n\nYour previous response was not valid JSON. Respond with only valid JSON."
			continue
		}
		if est.Price == nil || math.IsNaN(*est.Price) || math.IsInf(*est.Price, 0) || *est.Price <= 0 {
			lastErr = errors.New("price missing or not positive")
			feedback = "\n\nYour response failed validation: price must be a positive number."
			continue
		}
		return *est.Price, nil
	}
	return 0, &PredictionError{Backend: BackendLLM, Err: fmt.Errorf("failed after %d attempts: %w", p.attempts, lastErr)}
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error")
}

func backoffDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 1 * time.Second
	}
	return 2 * time.Second
}

func envEnabled(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
