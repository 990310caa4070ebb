// Package session makes sure the browser holds a logged-in LinkedIn
// session before any profile is scraped. It tries, in order, the
// persistent Chrome profile, a saved cookie jar, then the credentials.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/linkwatch/internal/pacing"
)

// LinkedIn entry points.
const (
	HomeURL  = "https://www.linkedin.com"
	FeedURL  = "https://www.linkedin.com/feed/"
	LoginURL = "https://www.linkedin.com/login"
)

var (
	// ErrCheckpoint means LinkedIn asked for interactive verification.
	ErrCheckpoint = errors.New("session: verification required (checkpoint/authwall); complete it once in a non-headless browser with the profile dir")
	// ErrNoCredentials means every other path failed and no email/password is set.
	ErrNoCredentials = errors.New("session: LINKEDIN_EMAIL and LINKEDIN_PASSWORD are required for credential login")
	// ErrLoginFailed means the login form was submitted but the feed never loaded.
	ErrLoginFailed = errors.New("session: login failed, could not reach /feed")
)

var feedMarkers = []string{"header.global-nav", "div.share-box-feed-entry__closed-share-box"}

// Method tells how the session was obtained.
type Method string

const (
	MethodProfile     Method = "profile"
	MethodCookies     Method = "cookies"
	MethodCredentials Method = "credentials"
)

// Browser is the page surface the session manager drives. *browser.Tab
// implements it.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	Has(ctx context.Context, selectors ...string) bool
	Fill(ctx context.Context, selector, value string) error
	Click(ctx context.Context, selector string) error
	Cookies(ctx context.Context) ([]*proto.NetworkCookie, error)
	SetCookies(ctx context.Context, cookies []*proto.NetworkCookieParam) error
}

// Config configures a Manager.
type Config struct {
	Email    string
	Password string
	// CookieFile is the jar path. Empty disables the jar.
	CookieFile string
	// FeedChecks is how many times the feed is probed after a navigation
	// or login, PollInterval apart. Defaults: 10 and 1s.
	FeedChecks   int
	PollInterval time.Duration
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.FeedChecks <= 0 {
		c.FeedChecks = 10
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager establishes the session.
type Manager struct {
	cfg     Config
	jar     *CookieJar
	sleeper pacing.Sleeper
}

// New returns a Manager. A nil sleeper uses real timers.
func New(cfg Config, sleeper pacing.Sleeper) *Manager {
	cfg.defaults()
	if sleeper == nil {
		sleeper = pacing.Clock{}
	}
	m := &Manager{cfg: cfg, sleeper: sleeper}
	if cfg.CookieFile != "" {
		m.jar = NewCookieJar(cfg.CookieFile)
	}
	return m
}

// Ensure leaves b on a logged-in feed or returns an error. Failures here
// are fatal for the process.
func (m *Manager) Ensure(ctx context.Context, b Browser) (Method, error) {
	log := m.cfg.Logger
	log.Info("session: ensuring LinkedIn session")

	if err := b.Navigate(ctx, FeedURL); err == nil {
		if m.onFeed(ctx, b) {
			log.Info("session: logged in via chrome profile")
			m.saveCookies(ctx, b)
			return MethodProfile, nil
		}
	} else {
		log.Warn("session: feed navigation failed", "error", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ok, err := m.restoreCookies(ctx, b)
	if err != nil {
		log.Warn("session: cookie restore failed", "error", err)
	}
	if ok {
		log.Info("session: restored from cookies", "path", m.jar.Path())
		return MethodCookies, nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := m.login(ctx, b); err != nil {
		return "", err
	}
	log.Info("session: credential login successful")
	m.saveCookies(ctx, b)
	return MethodCredentials, nil
}

func (m *Manager) restoreCookies(ctx context.Context, b Browser) (bool, error) {
	if m.jar == nil {
		return false, nil
	}
	cookies, err := m.jar.Load()
	if err != nil || len(cookies) == 0 {
		return false, err
	}
	if err := b.Navigate(ctx, HomeURL); err != nil {
		return false, err
	}
	if err := b.SetCookies(ctx, cookies); err != nil {
		return false, err
	}
	if err := b.Navigate(ctx, FeedURL); err != nil {
		return false, err
	}
	if !m.onFeed(ctx, b) {
		m.cfg.Logger.Info("session: cookies present but no longer valid")
		return false, nil
	}
	return true, nil
}

func (m *Manager) login(ctx context.Context, b Browser) error {
	if m.cfg.Email == "" || m.cfg.Password == "" {
		return ErrNoCredentials
	}
	m.cfg.Logger.Info("session: attempting credential login")
	if err := b.Navigate(ctx, LoginURL); err != nil {
		return fmt.Errorf("session: open login page: %w", err)
	}
	if b.Has(ctx, `button[action-type="ACCEPT"]`) {
		_ = b.Click(ctx, `button[action-type="ACCEPT"]`)
	}
	if err := b.Fill(ctx, "#username", m.cfg.Email); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := b.Fill(ctx, "#password", m.cfg.Password); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if err := b.Click(ctx, `button[type="submit"]`); err != nil {
		return fmt.Errorf("session: submit login: %w", err)
	}
	if m.onFeed(ctx, b) {
		return nil
	}
	if m.checkpoint(ctx, b) {
		return ErrCheckpoint
	}
	return ErrLoginFailed
}

// onFeed polls until the feed is rendered outside any checkpoint.
func (m *Manager) onFeed(ctx context.Context, b Browser) bool {
	for i := 0; i < m.cfg.FeedChecks; i++ {
		u, err := b.URL(ctx)
		if err == nil {
			u = strings.ToLower(u)
			if isCheckpoint(u) {
				return false
			}
			if strings.Contains(u, "/feed") && b.Has(ctx, feedMarkers...) {
				return true
			}
		}
		if i+1 < m.cfg.FeedChecks {
			if err := m.sleeper.Sleep(ctx, m.cfg.PollInterval); err != nil {
				return false
			}
		}
	}
	return false
}

func (m *Manager) checkpoint(ctx context.Context, b Browser) bool {
	u, err := b.URL(ctx)
	return err == nil && isCheckpoint(strings.ToLower(u))
}

func isCheckpoint(u string) bool {
	return strings.Contains(u, "/checkpoint/") || strings.Contains(u, "/authwall")
}

func (m *Manager) saveCookies(ctx context.Context, b Browser) {
	if m.jar == nil {
		return
	}
	cookies, err := b.Cookies(ctx)
	if err == nil {
		err = m.jar.Save(cookies)
	}
	if err != nil {
		m.cfg.Logger.Warn("session: save cookies failed", "error", err)
		return
	}
	m.cfg.Logger.Info("session: saved cookies", "path", m.jar.Path(), "count", len(cookies))
}
