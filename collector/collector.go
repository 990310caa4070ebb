// Package collector scrapes a profile's recent activity pages and turns the
// rendered cards into activity records.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/internal/pacing"
)

// Collector fetches activity for one profile.
type Collector interface {
	// Collect returns up to limit records per kind, posts first.
	Collect(ctx context.Context, profileURL string, limit int, historical bool) ([]activity.Record, error)
	// RecentPostTexts returns up to limit recent post texts, used as
	// context for enrichment.
	RecentPostTexts(ctx context.Context, profileURL string, limit int, historical bool) ([]string, error)
}

// Page is the browser surface the collector drives. *browser.Tab
// implements it.
type Page interface {
	Navigate(ctx context.Context, url string) error
	ScrollToBottom(ctx context.Context) error
	HTML(ctx context.Context) (string, error)
}

// ErrNavigate is returned when a section page could not be loaded.
type ErrNavigate struct {
	URL   string
	Cause error
}

func (e *ErrNavigate) Error() string {
	return fmt.Sprintf("collector: navigate %s: %v", e.URL, e.Cause)
}

func (e *ErrNavigate) Unwrap() error { return e.Cause }

// Config tunes scrolling and pacing.
type Config struct {
	HistoricalScrolls int           // default 20
	NormalScrolls     int           // default 6
	SettleWait        pacing.Window // after navigation, default 5-8s
	ScrollWait        pacing.Window // after each scroll, default 3.5-5.5s
	Logger            *slog.Logger
}

func (c *Config) defaults() {
	if c.HistoricalScrolls <= 0 {
		c.HistoricalScrolls = 20
	}
	if c.NormalScrolls <= 0 {
		c.NormalScrolls = 6
	}
	if c.SettleWait == (pacing.Window{}) {
		c.SettleWait = pacing.Human(5*time.Second, 3*time.Second)
	}
	if c.ScrollWait == (pacing.Window{}) {
		c.ScrollWait = pacing.Human(3500*time.Millisecond, 2*time.Second)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser collects activity through a Page.
type Browser struct {
	page  Page
	pacer *pacing.Pacer
	cfg   Config
}

// New returns a Browser collector. pacer may be nil for real-time waits.
func New(page Page, pacer *pacing.Pacer, cfg Config) *Browser {
	cfg.defaults()
	if pacer == nil {
		pacer = pacing.New(nil, cfg.Logger)
	}
	return &Browser{page: page, pacer: pacer, cfg: cfg}
}

var _ Collector = (*Browser)(nil)

func (b *Browser) scrolls(historical bool) int {
	if historical {
		return b.cfg.HistoricalScrolls
	}
	return b.cfg.NormalScrolls
}

// Collect walks the posts, comments and reactions sections. A failing
// section is logged and skipped; the call fails only when every section
// failed.
func (b *Browser) Collect(ctx context.Context, profileURL string, limit int, historical bool) ([]activity.Record, error) {
	log := b.cfg.Logger
	slug := activity.Slug(profileURL)

	var out []activity.Record
	var errs []error
	sections := activity.Sections(profileURL)
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		recs, err := b.section(ctx, sec, slug, limit, historical)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Warn("collector: section failed", "profile", slug, "kind", sec.Kind, "error", err)
			errs = append(errs, err)
			continue
		}
		log.Debug("collector: section scraped", "profile", slug, "kind", sec.Kind, "records", len(recs))
		out = append(out, recs...)
	}
	if len(errs) == len(sections) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (b *Browser) section(ctx context.Context, sec activity.Section, slug string, limit int, historical bool) ([]activity.Record, error) {
	page, err := b.load(ctx, sec.URL, historical, func(doc string) bool {
		recs, err := ParseCards(doc, sec.Kind, sec.URL, slug, limit)
		return err == nil && limit > 0 && len(recs) >= limit
	})
	if err != nil {
		return nil, err
	}
	return ParseCards(page, sec.Kind, sec.URL, slug, limit)
}

// RecentPostTexts reads post bodies from the all-activity page.
func (b *Browser) RecentPostTexts(ctx context.Context, profileURL string, limit int, historical bool) ([]string, error) {
	u := activity.AllActivityURL(profileURL)
	page, err := b.load(ctx, u, historical, func(doc string) bool {
		texts, err := ParsePostTexts(doc, limit)
		return err == nil && limit > 0 && len(texts) >= limit
	})
	if err != nil {
		return nil, err
	}
	return ParsePostTexts(page, limit)
}

// load navigates to pageURL and scrolls until enough reports true or the
// scroll budget is spent. It returns the final document.
func (b *Browser) load(ctx context.Context, pageURL string, historical bool, enough func(string) bool) (string, error) {
	if err := b.page.Navigate(ctx, pageURL); err != nil {
		return "", &ErrNavigate{URL: pageURL, Cause: err}
	}
	if err := b.pacer.Wait(ctx, b.cfg.SettleWait); err != nil {
		return "", err
	}
	doc, err := b.page.HTML(ctx)
	if err != nil {
		return "", err
	}
	for i := 0; i < b.scrolls(historical) && !enough(doc); i++ {
		if err := b.page.ScrollToBottom(ctx); err != nil {
			return "", err
		}
		if err := b.pacer.Wait(ctx, b.cfg.ScrollWait); err != nil {
			return "", err
		}
		if doc, err = b.page.HTML(ctx); err != nil {
			return "", err
		}
	}
	return doc, nil
}
