// Package classify wraps the hosted language-model completion API that turns
// a transcript into structured ticket fields. Classification is best-effort:
// a single bounded attempt, with a deterministic fallback when the call fails
// or the answer cannot be parsed.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/helphub/internal/config"
	"github.com/spec-kit/helphub/internal/domain"
	apperrors "github.com/spec-kit/helphub/pkg/util/errorutil"
)

const fallbackSummaryChars = 100

// Result is the tagged outcome of a classification attempt. When Fallback is
// set, Summary/Category/Priority hold the deterministic fallback values and
// Reason names the failure that triggered them.
type Result struct {
	Summary             string
	Category            domain.TicketCategory
	Priority            domain.TicketPriority
	Sentiment           string
	SuggestedResolution string
	AutoResolvable      bool

	Fallback bool
	Reason   string
}

// Classifier produces structured fields from a transcript.
type Classifier interface {
	Classify(ctx context.Context, transcript string, continuation bool) Result
}

// Client calls the Groq chat-completion API.
type Client struct {
	cfg        config.GroqConfig
	httpClient *http.Client
}

// NewClient builds a classification client with a bounded per-call timeout.
func NewClient(cfg config.GroqConfig) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
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

type analysisPayload struct {
	Summary             string `json:"summary"`
	Category            string `json:"category"`
	Priority            string `json:"priority"`
	Sentiment           string `json:"sentiment"`
	SuggestedResolution string `json:"suggested_resolution"`
	AutoResolvable      bool   `json:"auto_resolvable"`
}

// Classify performs a single bounded attempt against the model and never
// fails ticket creation: any error collapses into the deterministic fallback.
func (c *Client) Classify(ctx context.Context, transcript string, continuation bool) Result {
	transcript = strings.TrimSpace(transcript)
	prompt := buildPrompt(TruncateTranscript(transcript, c.cfg.MaxInputChars, continuation))

	content, err := c.complete(ctx, prompt, 0.3)
	if err != nil {
		return fallbackResult(transcript, apperrors.ToDomainError(err).Code)
	}

	payload, err := parseAnalysis(content)
	if err != nil {
		return fallbackResult(transcript, apperrors.CodeMalformedResponse)
	}

	return Result{
		Summary:             payload.Summary,
		Category:            normalizeCategory(payload.Category),
		Priority:            normalizePriority(payload.Priority),
		Sentiment:           strings.ToLower(strings.TrimSpace(payload.Sentiment)),
		SuggestedResolution: payload.SuggestedResolution,
		AutoResolvable:      payload.AutoResolvable,
	}
}

// RootCause asks the model for a one-paragraph common-cause analysis over
// recent ticket summaries of a category. Unlike Classify there is no
// deterministic fallback text; failures surface as typed errors.
func (c *Client) RootCause(ctx context.Context, category domain.TicketCategory, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", apperrors.NewValidationError("no summaries available for category", map[string]any{"category": category})
	}
	prompt := fmt.Sprintf(
		"Based on the following list of customer support ticket summaries in category %q, "+
			"what is the likely single root cause or common theme? Provide a concise, "+
			"one-paragraph analysis written for a business manager.\n\nSummaries:\n- %s",
		category, strings.Join(summaries, "\n- "))

	content, err := c.complete(ctx, prompt, 0.5)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.cfg.ChatModel,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
	})
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewServiceUnavailable("classification service", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewServiceUnavailable("classification service",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewServiceUnavailable("classification service", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", apperrors.NewMalformedResponse("classification service", err)
	}
	if len(parsed.Choices) == 0 {
		return "", apperrors.NewMalformedResponse("classification service", fmt.Errorf("no choices in response"))
	}
	return parsed.Choices[0].Message.Content, nil
}

func buildPrompt(transcript string) string {
	return fmt.Sprintf(`Analyze this customer service issue and respond with JSON only:
Issue: %s
{"summary": "...", "category": "one of billing|bug|feature-request|account|other", "priority": "one of low|medium|high|critical", "sentiment": "positive|neutral|negative", "suggested_resolution": "...", "auto_resolvable": true/false}`, transcript)
}

// parseAnalysis extracts the JSON object embedded in the model answer.
func parseAnalysis(content string) (*analysisPayload, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model answer")
	}
	var payload analysisPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.Summary) == "" || strings.TrimSpace(payload.Category) == "" {
		return nil, fmt.Errorf("missing required fields in model answer")
	}
	return &payload, nil
}

// TruncateTranscript bounds the prompt input. Continuations keep the tail of
// the message, first messages keep the head. Cutting happens on rune
// boundaries so multi-byte input never yields invalid UTF-8.
func TruncateTranscript(transcript string, maxChars int, continuation bool) string {
	if maxChars <= 0 || utf8.RuneCountInString(transcript) <= maxChars {
		return transcript
	}
	runes := []rune(transcript)
	if continuation {
		return string(runes[len(runes)-maxChars:])
	}
	return string(runes[:maxChars])
}

func fallbackResult(transcript, reason string) Result {
	summary := transcript
	if utf8.RuneCountInString(summary) > fallbackSummaryChars {
		summary = string([]rune(summary)[:fallbackSummaryChars])
	}
	return Result{
		Summary:  summary,
		Category: domain.TicketCategoryUncategorized,
		Priority: domain.TicketPriorityMedium,
		Fallback: true,
		Reason:   reason,
	}
}

func normalizeCategory(raw string) domain.TicketCategory {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "-")
	switch domain.TicketCategory(normalized) {
	case domain.TicketCategoryBilling, domain.TicketCategoryBug,
		domain.TicketCategoryFeatureRequest, domain.TicketCategoryAccount,
		domain.TicketCategoryOther:
		return domain.TicketCategory(normalized)
	}
	switch normalized {
	case "technical-issue", "technical":
		return domain.TicketCategoryBug
	case "general":
		return domain.TicketCategoryOther
	}
	return domain.TicketCategoryOther
}

func normalizePriority(raw string) domain.TicketPriority {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "urgent" {
		return domain.TicketPriorityCritical
	}
	if p := domain.TicketPriority(normalized); domain.ValidPriority(p) {
		return p
	}
	return domain.TicketPriorityMedium
}
