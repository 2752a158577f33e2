// Package oracle implements the prediction model on top of an OpenAI-compatible
// chat completion API.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"prophetagent/internal/market"
)

const predictabilityPrompt = `Main signs about a fully qualified question (sometimes referred to as a "market"):
- It's possible to answer it with a binary yes or no.
- It's possible to know the answer by looking up public information.
- It's concrete and unambiguous: it has a clear time frame and clear criteria.
- It's not about personal opinion or feelings.

Question: %q

Is this question fully qualified and answerable? Reply with only "yes" or "no".`

const predictionSystemPrompt = `You are a forecaster for binary prediction markets. Estimate the probability that the question resolves YES.
Reply with a JSON object only: {"decision": "y" or "n", "p_yes": number between 0 and 1, "confidence": number between 0 and 1}.`

// Options configures the OpenAI oracle.
type Options struct {
	APIKey  string
	BaseURL string // empty uses the public OpenAI endpoint
	Model   string
	Timeout time.Duration

	RequestsPerSec       float64 // <= 0 disables rate limiting
	MaxRetries           uint64
	RetryInitialInterval time.Duration
}

// OpenAI answers predictability and prediction questions with a chat model.
type OpenAI struct {
	client  *openai.Client
	model   string
	limiter *rate.Limiter
	retries uint64
	initial time.Duration
}

func NewOpenAI(opts Options) *OpenAI {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}
	initial := opts.RetryInitialInterval
	if initial <= 0 {
		initial = backoff.DefaultInitialInterval
	}

	return &OpenAI{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		limiter: rate.NewLimiter(limit, 1),
		retries: opts.MaxRetries,
		initial: initial,
	}
}

// IsPredictable asks the model whether question can be answered.
func (o *OpenAI) IsPredictable(ctx context.Context, question string) (bool, error) {
	reply, err := o.complete(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(predictabilityPrompt, question)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("predictability check: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(reply))
	return strings.HasPrefix(answer, "yes"), nil
}

// Predict asks the model for a probability. A reply without a usable
// probability yields a Prediction with a nil Outcome, not an error.
func (o *OpenAI) Predict(ctx context.Context, question string) (market.Prediction, error) {
	reply, err := o.complete(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: predictionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return market.Prediction{}, fmt.Errorf("prediction: %w", err)
	}

	answer, err := parseAnswer(reply)
	if err != nil {
		slog.Warn("unusable prediction reply", "model", o.model, "error", err)
		return market.Prediction{}, nil
	}
	return market.Prediction{Outcome: answer}, nil
}

type answerReply struct {
	Decision   string   `json:"decision"`
	PYes       *float64 `json:"p_yes"`
	Confidence float64  `json:"confidence"`
}

func parseAnswer(reply string) (*market.Answer, error) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "```json")
	reply = strings.TrimPrefix(reply, "```")
	reply = strings.TrimSuffix(reply, "```")

	var r answerReply
	if err := json.Unmarshal([]byte(reply), &r); err != nil {
		return nil, fmt.Errorf("decoding reply: %w", err)
	}
	if r.PYes == nil || *r.PYes < 0 || *r.PYes > 1 {
		return nil, errors.New("missing or out of range p_yes")
	}

	decision := *r.PYes > 0.5
	switch strings.ToLower(strings.TrimSpace(r.Decision)) {
	case "y", "yes":
		decision = true
	case "n", "no":
		decision = false
	}
	return &market.Answer{Decision: decision, PYes: *r.PYes, Confidence: r.Confidence}, nil
}

// complete sends req, retrying transient failures with exponential backoff.
func (o *OpenAI) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	var resp openai.ChatCompletionResponse
	operation := func() error {
		if err := o.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		r, err := o.client.CreateChatCompletion(ctx, req)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			slog.Warn("chat completion failed, retrying", "model", o.model, "error", err)
			return err
		}
		resp = r
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.initial
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, o.retries), ctx)); err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
