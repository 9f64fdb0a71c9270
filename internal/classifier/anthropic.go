package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// MinConfidence drops weak suggestions
const MinConfidence = 0.5

// ErrNoAPIKey is returned by New when no key is configured
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY not set")

// Suggestion is a competency picked for a thought
type Suggestion struct {
	ID         int64   `json:"id"`
	Skill      string  `json:"skill,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Classifier suggests competencies via the Anthropic API
type Classifier struct {
	apiKey string
	model  string
	http   *http.Client
}

// New creates a new Classifier
func New(apiKey, model string) (*Classifier, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	return &Classifier{
		apiKey: apiKey,
		model:  model,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Suggest picks competencies from catalog that fit text, best first.
// Ids outside the catalog and low-confidence picks are dropped.
func (c *Classifier) Suggest(ctx context.Context, text string, catalog []domain.Competency) ([]Suggestion, error) {
	if len(catalog) == 0 {
		return nil, nil
	}

	resp, err := c.callAPI(ctx, buildPrompt(text, catalog))
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}

	suggestions, err := parseResponse(resp)
	if err != nil {
		return nil, err
	}
	return filter(suggestions, catalog), nil
}

// IDs returns the competency ids of suggestions, in order
func IDs(suggestions []Suggestion) []int64 {
	ids := make([]int64, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.ID
	}
	return ids
}

func buildPrompt(text string, catalog []domain.Competency) string {
	var sb strings.Builder

	sb.WriteString("Pick the competencies this journal entry demonstrates. Return JSON only.\n\n")
	sb.WriteString("Entry:\n")
	sb.WriteString(text)
	sb.WriteString("\n\n")

	sb.WriteString("Competencies (id: skill - description):\n")
	for _, comp := range catalog {
		sb.WriteString("- ")
		sb.WriteString(strconv.FormatInt(comp.ID, 10))
		sb.WriteString(": ")
		sb.WriteString(comp.Skill)
		if comp.Description != "" {
			sb.WriteString(" - ")
			sb.WriteString(comp.Description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(`Return a JSON object with this structure:
{
  "competencies": [
    {"id": 1, "confidence": 0.9}
  ]
}

Rules:
- Only use ids from the list above
- Pick 0-3 competencies
- Confidence is 0.0-1.0 based on how clearly the entry shows the competency

Return ONLY the JSON, no other text.`)

	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Classifier) callAPI(ctx context.Context, prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: 512,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPI, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}

func parseResponse(resp string) ([]Suggestion, error) {
	// Models sometimes wrap the JSON in a markdown fence
	resp = strings.TrimSpace(resp)
	resp = strings.TrimPrefix(resp, "```json")
	resp = strings.TrimPrefix(resp, "```")
	resp = strings.TrimSuffix(resp, "```")
	resp = strings.TrimSpace(resp)

	var result struct {
		Competencies []Suggestion `json:"competencies"`
	}
	if err := json.Unmarshal([]byte(resp), &result); err != nil {
		return nil, fmt.Errorf("parse json: %w (response: %s)", err, resp)
	}

	return result.Competencies, nil
}

func filter(suggestions []Suggestion, catalog []domain.Competency) []Suggestion {
	skills := make(map[int64]string, len(catalog))
	for _, comp := range catalog {
		skills[comp.ID] = comp.Skill
	}

	seen := make(map[int64]bool)
	var out []Suggestion
	for _, s := range suggestions {
		skill, ok := skills[s.ID]
		if !ok || seen[s.ID] || s.Confidence < MinConfidence {
			continue
		}
		seen[s.ID] = true
		s.Skill = skill
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}
