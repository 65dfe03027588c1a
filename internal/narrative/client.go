// Package narrative asks a text-generation service for a qualitative verdict
// on a computed report.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dyike/StockPulse/config"
	"github.com/dyike/StockPulse/consts"
	"github.com/dyike/StockPulse/internal/httpjson"
)

// Sampling settings are fixed for every backend.
const (
	Temperature = 0.7
	TopP        = 0.95
	TopK        = 40
)

// Strings returned in place of a recommendation when generation fails.
const (
	MsgBadResponse  = "Error: bad network response."
	MsgParseFailure = "Error: failed to parse response."
	MsgUnreachable  = "Error: unable to reach the recommendation service."
)

var (
	// ErrUnexpectedShape marks a response that does not carry generated text.
	ErrUnexpectedShape = errors.New("unexpected response shape")
	// ErrBadStatus marks a non-success answer from the service.
	ErrBadStatus = errors.New("bad response status")
	// ErrNotConfigured marks a backend that cannot be used with the current config.
	ErrNotConfigured = errors.New("narrative backend not configured")
)

// Generator produces text for one prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client turns a rendered report into a recommendation. It never fails;
// errors become one of the Msg* strings.
type Client struct {
	gen Generator
	log zerolog.Logger
}

func NewClient(gen Generator, log zerolog.Logger) *Client {
	return &Client{gen: gen, log: log}
}

// New builds the backend selected by cfg.NarrativeProvider.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) *Client {
	log = log.With().Str("component", "narrative").Str("provider", cfg.NarrativeProvider).Logger()

	var (
		gen Generator
		err error
	)
	switch cfg.NarrativeProvider {
	case consts.NarrativeGeminiSDK:
		gen, err = NewGenAIGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case consts.NarrativeOpenAI:
		gen, err = NewOpenAIGenerator(ctx, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
	case consts.NarrativeDeepSeek:
		gen, err = NewDeepSeekGenerator(ctx, cfg.DeepSeekAPIKey, cfg.DeepSeekModel)
	default:
		hc := httpjson.NewClient(httpjson.WithTimeout(cfg.HTTPTimeout()), httpjson.WithLogger(log))
		gen, err = NewGeminiGenerator(hc, cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	}
	if err != nil {
		log.Warn().Err(err).Msg("narrative backend unavailable")
		gen = failingGenerator{err: err}
	}
	return NewClient(gen, log)
}

// BuildPrompt embeds the ticker and the rendered report.
func BuildPrompt(ticker, reportText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an equity research assistant. Based on the following analysis of %s, ", ticker)
	b.WriteString("give a concise investment recommendation (Buy, Hold or Sell) with a short justification. ")
	b.WriteString("Values marked N/A were unavailable; do not invent them. ")
	b.WriteString("The PEG ratio uses a fixed growth assumption and is only indicative.\n\n")
	b.WriteString(reportText)
	return b.String()
}

// Recommend returns generated text or a fixed error string.
func (c *Client) Recommend(ctx context.Context, ticker, reportText string) string {
	text, err := c.gen.Generate(ctx, BuildPrompt(ticker, reportText))
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrUnexpectedShape
	}
	if err != nil {
		msg := messageFor(err)
		c.log.Warn().Err(err).Str("ticker", ticker).Str("result", msg).Msg("recommendation failed")
		return msg
	}
	return strings.TrimSpace(text)
}

func messageFor(err error) string {
	var pe *httpjson.ProviderError
	switch {
	case errors.Is(err, ErrBadStatus):
		return MsgBadResponse
	case errors.As(err, &pe) && pe.Status != 0 && (pe.Status < http.StatusOK || pe.Status >= http.StatusMultipleChoices):
		return MsgBadResponse
	case errors.Is(err, ErrUnexpectedShape):
		return MsgParseFailure
	case errors.As(err, &pe) && pe.Kind == httpjson.KindMalformed:
		return MsgParseFailure
	default:
		return MsgUnreachable
	}
}

type failingGenerator struct{ err error }

func (f failingGenerator) Generate(context.Context, string) (string, error) {
	return "", f.err
}
