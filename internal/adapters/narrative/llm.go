package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"
	defaultModel    = "gpt-4o-mini"
)

// LLM generates the narrative through an OpenAI-compatible chat
// completions endpoint. It asks for a short summary followed by a
// bulleted recommendation list and parses the bullets back out.
type LLM struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// LLMOption configures an LLM generator.
type LLMOption func(*LLM)

// WithModel overrides the chat model.
func WithModel(model string) LLMOption {
	return func(l *LLM) {
		if model != "" {
			l.model = model
		}
	}
}

// WithEndpoint points the generator at an alternate completions URL,
// mainly for tests.
func WithEndpoint(url string) LLMOption {
	return func(l *LLM) {
		if url != "" {
			l.endpoint = url
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) LLMOption {
	return func(l *LLM) {
		if c != nil {
			l.client = c
		}
	}
}

// NewLLM creates the LLM generator. The key must be non-empty; callers
// fall back to Template when it is not configured.
func NewLLM(apiKey string, opts ...LLMOption) (*LLM, error) {
	if apiKey == "" {
		return nil, errors.New("missing API key")
	}
	l := &LLM{
		apiKey:   apiKey,
		model:    defaultModel,
		endpoint: defaultEndpoint,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *LLM) Generate(ctx context.Context, in Input, language string) (string, []string, error) {
	health := "not measurable"
	if in.HealthScore != nil {
		health = fmt.Sprintf("%.1f/100 (%s)", *in.HealthScore, in.HealthBand)
	}
	overlap := "none measured"
	if in.TopOverlapPct != nil {
		overlap = fmt.Sprintf("%.1f%%", *in.TopOverlapPct)
	}

	payload := map[string]any{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "system", "content": "You are an influencer marketing analyst writing for a brand manager. Respond in language code '" + language + "'. Write a summary of at most 3 sentences, then a line 'RECOMMENDATIONS:', then 3-4 recommendations each on its own line prefixed with '- '."},
			{"role": "user", "content": fmt.Sprintf(
				"Brand: @%s. Ecosystem health: %s. Influencers analyzed: %d, of which %d show elevated fraud indicators. Strongest pairwise audience overlap: %s.",
				in.Handle, health, in.InfluencerCount, in.HighRiskCount, overlap)},
		},
		"temperature": 0.2,
	}
	buf, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", "Bearer "+l.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("completions error: %s", resp.Status)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil, err
	}
	if len(out.Choices) == 0 {
		return "", nil, errors.New("no choices returned")
	}

	summary, recs := splitNarrative(out.Choices[0].Message.Content)
	if summary == "" {
		return "", nil, errors.New("empty narrative")
	}
	return summary, recs, nil
}

// splitNarrative separates the summary paragraph from the trailing
// bullet list. Bullets without the marker line are still picked up.
func splitNarrative(content string) (string, []string) {
	var summaryLines, recs []string
	inRecs := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case strings.EqualFold(strings.TrimSuffix(line, ":"), "recommendations"):
			inRecs = true
		case strings.HasPrefix(line, "- "):
			recs = append(recs, strings.TrimPrefix(line, "- "))
		case inRecs:
			recs = append(recs, line)
		default:
			summaryLines = append(summaryLines, line)
		}
	}
	return strings.Join(summaryLines, " "), recs
}
