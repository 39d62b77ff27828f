package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"

	"vectora-backend/config"
	"vectora-backend/internal/dataset"
	"vectora-backend/internal/dto"
	"vectora-backend/internal/plan"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

var ErrPlannerEmptyResponse = errors.New("planner returned no usable JSON")

type GeminiPart struct {
	Text string `json:"text"`
}
type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}
type GeminiRequestBody struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// Planner turns a question into a raw plan. The returned string is the plan JSON
// as produced, kept as the model turn of the conversation.
type Planner interface {
	Plan(ctx context.Context, history []dto.ConversationTurn, question string, schema dataset.Schema) (plan.RawPlan, string, error)
}

type geminiPlanner struct {
	apiKey     string
	modelID    string
	baseURL    string
	maxRetries int
	httpClient *http.Client
}

func NewGeminiPlanner(cfg *config.Config) Planner {
	return newGeminiPlanner(cfg.LLM.APIKey, cfg.LLM.Model, geminiBaseURL, cfg.LLM.Timeout, cfg.LLM.MaxRetries)
}

func newGeminiPlanner(apiKey, modelID, baseURL string, timeout time.Duration, maxRetries int) *geminiPlanner {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &geminiPlanner{
		apiKey:     apiKey,
		modelID:    modelID,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *geminiPlanner) Plan(ctx context.Context, history []dto.ConversationTurn, question string, schema dataset.Schema) (plan.RawPlan, string, error) {
	log.Info().Str("question", question).Int("history_len", len(history)).Msg("Planner: planning question")

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return plan.RawPlan{}, "", fmt.Errorf("failed to marshal schema: %w", err)
	}

	body, err := json.Marshal(GeminiRequestBody{Contents: buildGeminiContents(history, question, string(schemaJSON))})
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal Gemini request body")
		return plan.RawPlan{}, "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	respBody, err := s.callWithRetry(ctx, body)
	if err != nil {
		return plan.RawPlan{}, "", err
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		log.Error().Err(err).Bytes("response_body", respBody).Msg("Failed to unmarshal Gemini API response")
		return plan.RawPlan{}, "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		log.Error().Interface("gemini_response", geminiResp).Msg("Gemini response has no candidates or parts")
		return plan.RawPlan{}, "", ErrPlannerEmptyResponse
	}

	generated := geminiResp.Candidates[0].Content.Parts[0].Text
	log.Debug().Str("generated_text", generated).Msg("Planner: extracted generated text")

	cleaned := cleanLLMJsonOutput(generated)
	if cleaned == "" {
		log.Error().Str("raw_text", generated).Msg("Failed to extract valid JSON from Gemini response text")
		return plan.RawPlan{}, "", ErrPlannerEmptyResponse
	}

	var raw plan.RawPlan
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		log.Error().Err(err).Str("cleaned_json", cleaned).Msg("Failed to decode plan from Gemini response")
		return plan.RawPlan{}, "", fmt.Errorf("failed to parse plan from LLM: %w", err)
	}

	log.Info().Str("operator", raw.Operator).Msg("Planner: produced plan")
	return raw, cleaned, nil
}

// callWithRetry retries transport failures, 429 and 5xx. Other statuses fail at once.
func (s *geminiPlanner) callWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var respBody []byte
	operation := func() error {
		b, status, err := s.callGeminiAPI(ctx, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Warn().Err(err).Msg("Gemini request attempt failed")
			return err
		}
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			log.Warn().Int("status_code", status).Msg("Gemini returned retryable status")
			return fmt.Errorf("gemini API error: status code %d", status)
		}
		if status != http.StatusOK {
			log.Error().Int("status_code", status).Bytes("response_body", b).Msg("Gemini API returned non-OK status")
			return backoff.Permanent(fmt.Errorf("gemini API error: status code %d", status))
		}
		respBody = b
		return nil
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(retry, uint64(s.maxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return respBody, nil
}

func (s *geminiPlanner) callGeminiAPI(ctx context.Context, body []byte) ([]byte, int, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.baseURL, s.modelID, s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return b, resp.StatusCode, nil
}

// cleanLLMJsonOutput returns the outermost {...} block of raw when it is valid JSON.
func cleanLLMJsonOutput(raw string) string {
	startIndex := strings.Index(raw, "{")
	if startIndex == -1 {
		return ""
	}
	endIndex := strings.LastIndex(raw, "}")
	if endIndex == -1 || endIndex < startIndex {
		return ""
	}
	potentialJson := raw[startIndex : endIndex+1]

	var js map[string]interface{}
	if json.Unmarshal([]byte(potentialJson), &js) == nil {
		return potentialJson
	}
	log.Warn().Str("potential_json", potentialJson).Msg("Could not validate potential JSON extracted from LLM response")
	return ""
}

func buildGeminiContents(history []dto.ConversationTurn, question string, schemaJSON string) []GeminiContent {
	contents := make([]GeminiContent, 0, len(history)+1)
	if len(history) == 0 {
		contents = append(contents, GeminiContent{
			Role:  "user",
			Parts: []GeminiPart{{Text: buildInitialPrompt(question, schemaJSON)}},
		})
		return contents
	}
	for _, turn := range history {
		contents = append(contents, GeminiContent{
			Role:  turn.Role,
			Parts: []GeminiPart{{Text: turn.Content}},
		})
	}
	contents = append(contents, GeminiContent{
		Role:  "user",
		Parts: []GeminiPart{{Text: buildFollowUpPrompt(question, schemaJSON)}},
	})
	return contents
}

func buildInitialPrompt(question string, schemaJSON string) string {
	return fmt.Sprintf(`
You are a data analysis planner. Translate the user's question about a tabular dataset into ONE JSON plan. Respond *ONLY* with a valid JSON object, without any introductory text or markdown formatting.

Dataset schema (column names and sample rows):
%s

Supported operators and their JSON formats:
- argmax: {"operator": "argmax", "metric": <numeric column>, "group_by": <column>}
- argmin: {"operator": "argmin", "metric": <numeric column>, "group_by": <column>}
- lookup: {"operator": "lookup", "metric": <column>, "filter": {<column>: <value>}}
- sum: {"operator": "sum", "metric": <numeric column>}
- mean: {"operator": "mean", "metric": <numeric column>}
- count: {"operator": "count", "metric": <column>}
- sales_diagnostics: {"operator": "sales_diagnostics", "target": <sales column or null>}
- clean: {"operator": "clean", "problem_type": ("sentiment_analysis" | "binary_classification" | "classification" | null), "target": <column or null>}
- chat: {"operator": "chat", "reply": <a short helpful answer>}

Rules:
- Use ONLY column names that appear in the schema, spelled exactly.
- Use sales_diagnostics for questions about what drives sales or how to improve them.
- Use clean when the user asks to clean, prepare or preprocess the data.
- Use chat for greetings, questions unrelated to the data, or when no operator fits.
- The lookup filter holds exactly one column.

User Question: "%s"

JSON Output:`, schemaJSON, question)
}

func buildFollowUpPrompt(question string, schemaJSON string) string {
	return fmt.Sprintf(`Follow-up User Question: "%s"

Dataset schema (it may have changed since the previous turn):
%s

Based on the previous plans and this new question, produce the complete plan for the new question using the same operators and JSON formats. Respond ONLY with the valid JSON object.

JSON Output:`, question, schemaJSON)
}
