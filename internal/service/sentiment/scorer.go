// Package sentiment scores headlines against a topic with an LLM.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	domservice "FinCache/internal/domain/service"
	svcmetrics "FinCache/internal/service/metrics"
	"FinCache/pkg/retry"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

// scorePrompt asks for a strict verdict so the response can be parsed
// mechanically. The model is told to answer only with the verdict.
const scorePrompt = `You are a financial news analyst. Rate how this article affects the outlook for "%s" on a scale from -10 (very negative) to +10 (very positive).

Title: %s
Description: %s

Respond with EXACTLY one of:
- a signed integer like "+3" or "-7"
- the phrase "not relevant" if the article does not concern the topic

No other text.`

// Verdicts the scorer returns when the model cannot help.
const (
	VerdictNotRelevant = "not relevant"
)

var verdictPattern = regexp.MustCompile(`^[+-]\d{1,2}$`)

// Scorer implements the scoring service against an OpenAI-compatible
// chat completions endpoint. Quota responses are retried on the policy
// before the call fails.
type Scorer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	policy  retry.Policy
}

func New(baseURL, apiKey, model string, policy retry.Policy) domservice.Scorer {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	svcmetrics.Register()
	return &Scorer{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		policy:  policy,
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
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

// Score returns a signed magnitude like "+3" or "-7", or "not relevant".
func (s *Scorer) Score(ctx context.Context, title, description, topic string) (string, error) {
	began := time.Now()
	verdict, err := s.score(ctx, title, description, topic)
	svcmetrics.Observe("sentiment", began, err)
	return verdict, err
}

func (s *Scorer) score(ctx context.Context, title, description, topic string) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("sentiment api key missing")
	}

	prompt := fmt.Sprintf(scorePrompt, topic, title, description)
	var text string
	err := s.policy.Do(ctx, func() error {
		t, cerr := s.call(ctx, prompt)
		if cerr != nil {
			return cerr
		}
		text = t
		return nil
	})
	if err != nil {
		return "", err
	}
	return parseVerdict(text), nil
}

type quotaError struct{ status int }

func (e *quotaError) Error() string { return fmt.Sprintf("sentiment quota: status %d", e.status) }

func (s *Scorer) call(ctx context.Context, prompt string) (string, error) {
	body, _ := json.Marshal(chatRequest{
		Model:    s.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("sentiment call: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &quotaError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", retry.Permanent(fmt.Errorf("sentiment status %d: %s", resp.StatusCode, b))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", retry.Permanent(err)
	}
	if len(cr.Choices) == 0 {
		return "", retry.Permanent(fmt.Errorf("empty sentiment response"))
	}
	return cr.Choices[0].Message.Content, nil
}

// parseVerdict normalizes model output to one of the accepted verdicts.
// Anything off-script counts as not relevant rather than failing the
// request.
func parseVerdict(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if strings.Contains(text, "not relevant") {
		return VerdictNotRelevant
	}
	for _, field := range strings.Fields(text) {
		field = strings.Trim(field, ".,")
		if verdictPattern.MatchString(field) {
			return field
		}
	}
	return VerdictNotRelevant
}
