package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dyike/StockPulse/internal/httpjson"
)

// GeminiGenerator calls the generateContent REST endpoint directly.
type GeminiGenerator struct {
	http    *httpjson.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGeminiGenerator(hc *httpjson.Client, baseURL, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w: missing API key", ErrNotConfigured)
	}
	if hc == nil {
		hc = httpjson.NewClient()
	}
	return &GeminiGenerator{
		http:    hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}, nil
}

type generateRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"topP"`
	TopK        int     `json:"topK"`
}

// generateResponse mirrors only the path we read. Pointers let us tell a
// missing field from an empty one.
type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiGenerator) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature: Temperature,
			TopP:        TopP,
			TopK:        TopK,
		},
	}

	raw, err := g.http.PostJSON(ctx, g.endpoint(), body)
	if err != nil {
		return "", err
	}
	return extractText(raw)
}

// extractText walks candidates[0].content.parts[0].text.
func extractText(raw []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrUnexpectedShape)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 || content.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: no text part", ErrUnexpectedShape)
	}
	return *content.Parts[0].Text, nil
}
