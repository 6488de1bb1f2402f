package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	"github.com/matzehuels/codeflow/pkg/cache"
	codeerr "github.com/matzehuels/codeflow/pkg/errors"
	"github.com/matzehuels/codeflow/pkg/observability"
	"github.com/matzehuels/codeflow/pkg/trace"
)

const (
	// ProviderName identifies this provider in cache keys and hooks.
	ProviderName = "gemini"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "gemini-2.5-flash"

	// APIKeyEnv is the environment variable read when Config.APIKey is empty.
	APIKeyEnv = "GEMINI_API_KEY"
)

// ErrNoAPIKey is returned by New when no API key is configured.
var ErrNoAPIKey = errors.New("gemini: no API key (set " + APIKeyEnv + ")")

// errEmptyReply is returned when the model answers without text.
var errEmptyReply = errors.New("gemini: empty reply")

// ErrUnavailable is wrapped by rate-limit and server-side failures; the
// call is retried before it is reported.
var ErrUnavailable = errors.New("gemini: service unavailable")

// Generator sends a prompt to a model and returns the reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string, json bool) (string, error)
}

// Config configures the provider.
type Config struct {
	APIKey string
	Model  string
	Logger *log.Logger
}

// Provider traces and summarizes programs with a Gemini model.
type Provider struct {
	gen    Generator
	model  string
	logger *log.Logger
}

// New creates a provider backed by the Gemini API.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}
	if cfg.APIKey == "" {
		return nil, codeerr.Wrap(codeerr.ErrCodeUnauthorized, ErrNoAPIKey, "gemini API key missing")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return NewWithGenerator(&client{cli: cli, model: cfg.Model}, cfg.Model, cfg.Logger), nil
}

// NewWithGenerator creates a provider around any Generator.
func NewWithGenerator(gen Generator, model string, logger *log.Logger) *Provider {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = log.New(nilWriter{})
	}
	return &Provider{gen: gen, model: model, logger: logger}
}

// Name implements trace.Provider.
func (p *Provider) Name() string { return ProviderName }

// Model returns the model name.
func (p *Provider) Model() string { return p.model }

// Trace implements trace.Provider.
func (p *Provider) Trace(ctx context.Context, req trace.Request) (*trace.Trace, error) {
	prompt := tracePrompt(req.Code, req.Inputs)

	var t *trace.Trace
	err := cache.RetryWithBackoff(ctx, func() error {
		text, err := p.generate(ctx, prompt, true)
		if err != nil {
			return err
		}
		parsed, err := trace.Parse([]byte(text))
		if err != nil {
			p.logger.Debug("discarding malformed trace", "err", err)
			return cache.Retryable(err)
		}
		if err := parsed.Validate(req.LineCount()); err != nil {
			p.logger.Debug("discarding invalid trace", "err", err)
			return cache.Retryable(err)
		}
		t = parsed
		return nil
	})
	if err != nil {
		return nil, wrapErr(err, "generate trace")
	}
	p.logger.Info("traced program", "steps", t.Len(), "model", p.model)
	return t, nil
}

// Summary implements trace.Summarizer.
func (p *Provider) Summary(ctx context.Context, req trace.Request) (string, error) {
	prompt := summaryPrompt(req.Code, req.Inputs)

	var out string
	err := cache.RetryWithBackoff(ctx, func() error {
		text, err := p.generate(ctx, prompt, false)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(text)
		return nil
	})
	if err != nil {
		return "", wrapErr(err, "generate summary")
	}
	return out, nil
}

func (p *Provider) generate(ctx context.Context, prompt string, json bool) (string, error) {
	hooks := observability.Provider()
	hooks.OnRequest(ctx, ProviderName, p.model, len(prompt))
	start := time.Now()

	text, err := p.gen.Generate(ctx, prompt, json)
	if err == nil && strings.TrimSpace(text) == "" {
		err = cache.Retryable(errEmptyReply)
	}
	if err != nil {
		hooks.OnError(ctx, ProviderName, p.model, err)
		return "", classify(err)
	}
	hooks.OnResponse(ctx, ProviderName, p.model, len(text), time.Since(start))
	return text, nil
}

// classify marks rate limits and server errors as retryable.
func classify(err error) error {
	if cache.IsRetryable(err) {
		return err
	}
	if code := apiStatus(err); code == http.StatusTooManyRequests || code >= 500 {
		return cache.Retryable(fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	return err
}

func apiStatus(err error) int {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code
	}
	return 0
}

func wrapErr(err error, op string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return codeerr.Wrap(codeerr.ErrCodeTimeout, err, "%s timed out", op)
	}
	if apiStatus(err) == http.StatusTooManyRequests {
		return codeerr.Wrap(codeerr.ErrCodeRateLimited, err, "%s: rate limited", op)
	}
	return codeerr.Wrap(codeerr.ErrCodeTraceProvider, err, "%s failed", op)
}

// client is the genai-backed Generator.
type client struct {
	cli   *genai.Client
	model string
}

func (c *client) Generate(ctx context.Context, prompt string, json bool) (string, error) {
	cfg := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}
	if json {
		cfg.ResponseMIMEType = "application/json"
	}
	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}

type nilWriter struct{}

func (nilWriter) Write(p []byte) (int, error) { return len(p), nil }
