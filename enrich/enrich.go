// Package enrich asks a language model to summarise a new post, name the
// recurring themes of the profile, and suggest a response. It never fails:
// when the model is absent, errors, or answers off-format, a deterministic
// fallback analysis is returned and Outcome says which path produced it.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/linkwatch/activity"
)

// Sentinel field values of degraded analyses.
const (
	ThemesInsufficientHistory = "['Not enough history']"
	SuggestionUnavailable     = "(LLM unavailable)"
	ThemesNeutral             = "['N/A']"
	SuggestionNeutral         = "N/A"
)

// Bounds applied before and after the model call.
const (
	MaxPromptText     = 800
	FallbackSummary   = 200
	RawSummaryLen     = 400
	FallbackMaxTokens = 1200
)

// ErrNotConfigured is returned by a nil or unconfigured Summarizer.
var ErrNotConfigured = errors.New("enrich: summarizer not configured")

// Outcome tells which path produced an Analysis.
type Outcome int

const (
	// OutcomeService is a structured answer from the model.
	OutcomeService Outcome = iota
	// OutcomeRawText is an unparseable answer used verbatim as the summary.
	OutcomeRawText
	// OutcomeFallback is the canned analysis used when no model answered.
	OutcomeFallback
)

// String returns "service", "raw" or "fallback".
func (o Outcome) String() string {
	switch o {
	case OutcomeService:
		return "service"
	case OutcomeRawText:
		return "raw"
	default:
		return "fallback"
	}
}

// Analysis is the enrichment of one post.
type Analysis struct {
	Summary    string
	Themes     string
	Suggestion string
	Outcome    Outcome
	// Model is the model that answered, empty for OutcomeFallback.
	Model string
}

// Request is one completion call.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// Summarizer sends a prompt to a language model and returns its raw text.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Limits are the per-mode token and context budgets.
type Limits struct {
	MaxTokens    int
	MaxPastPosts int
}

// Config configures an Adapter.
type Config struct {
	Model         string
	FallbackModel string
	Historical    Limits
	Incremental   Limits
	Logger        *slog.Logger
}

func (c *Config) defaults() {
	if c.Historical.MaxTokens <= 0 {
		c.Historical.MaxTokens = 800
	}
	if c.Historical.MaxPastPosts <= 0 {
		c.Historical.MaxPastPosts = 3
	}
	if c.Incremental.MaxTokens <= 0 {
		c.Incremental.MaxTokens = 1200
	}
	if c.Incremental.MaxPastPosts <= 0 {
		c.Incremental.MaxPastPosts = 5
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Adapter turns post text into an Analysis.
type Adapter struct {
	svc Summarizer
	cfg Config
}

// New returns an Adapter. svc may be nil: every call then falls back.
func New(svc Summarizer, cfg Config) *Adapter {
	cfg.defaults()
	return &Adapter{svc: svc, cfg: cfg}
}

// Enabled reports whether a model is configured.
func (a *Adapter) Enabled() bool { return a != nil && a.svc != nil && a.cfg.Model != "" }

// Limits returns the budget for a run mode.
func (a *Adapter) Limits(historical bool) Limits {
	if historical {
		return a.cfg.Historical
	}
	return a.cfg.Incremental
}

// Fallback is the analysis used when no model answered.
func Fallback(text string) Analysis {
	return Analysis{
		Summary:    activity.Truncate(text, FallbackSummary),
		Themes:     ThemesInsufficientHistory,
		Suggestion: SuggestionUnavailable,
		Outcome:    OutcomeFallback,
	}
}

// Enrich analyses one post. pastPosts is best-effort context; it is trimmed
// to the mode's budget.
func (a *Adapter) Enrich(ctx context.Context, text string, pastPosts []string, historical bool) Analysis {
	fallback := Fallback(text)
	if !a.Enabled() {
		return fallback
	}
	log := a.cfg.Logger

	limits := a.Limits(historical)
	if len(pastPosts) > limits.MaxPastPosts {
		pastPosts = pastPosts[:limits.MaxPastPosts]
	}
	prompt := BuildPrompt(activity.Truncate(text, MaxPromptText), pastPosts)

	raw, err := a.svc.Summarize(ctx, Request{Model: a.cfg.Model, Prompt: prompt, MaxTokens: limits.MaxTokens})
	if err == nil {
		return Parse(raw, fallback, a.cfg.Model)
	}
	log.Warn("enrich: primary model failed", "model", a.cfg.Model, "error", err)

	fb := a.cfg.FallbackModel
	if fb == "" || fb == a.cfg.Model || ctx.Err() != nil {
		return fallback
	}
	raw, err = a.svc.Summarize(ctx, Request{Model: fb, Prompt: prompt, MaxTokens: FallbackMaxTokens})
	if err != nil {
		log.Warn("enrich: fallback model failed", "model", fb, "error", err)
		return fallback
	}
	return Parse(raw, fallback, fb)
}

// BuildPrompt renders the analysis prompt.
func BuildPrompt(text string, pastPosts []string) string {
	var b strings.Builder
	b.WriteString(`Analyze the LinkedIn post. Return JSON with keys: "summary", "themes", "suggested_post".`)
	fmt.Fprintf(&b, "\nNew Post: %s", text)
	fmt.Fprintf(&b, "\nPast Posts: %s", strings.Join(pastPosts, "\n"))
	return b.String()
}
