// Package browser owns the Chrome process used for scraping: launch or
// connect through Rod, anti-detection flags, an optional persistent user
// profile, and Xvfb for headful runs on servers.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// ErrClosed is returned by a Manager after Close.
var ErrClosed = errors.New("browser: manager is closed")

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// BinaryPath is the Chrome executable. Empty lets the launcher find or
	// download one.
	BinaryPath string

	// UserDataDir and ProfileDir select a persistent Chrome profile, which
	// keeps the LinkedIn session across restarts.
	UserDataDir string
	ProfileDir  string

	Headless bool

	// Xvfb starts a virtual display for headful runs without a desktop.
	Xvfb        bool
	XvfbDisplay string // default ":99"

	UserAgent string

	// ResourceBlocking lists resource types to block (images, fonts, media, stylesheets).
	ResourceBlocking []string

	// NavTimeout bounds one navigation. Default: 45s.
	NavTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 45 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages the Chrome lifecycle.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *display
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	if m.browser != nil {
		return m.browser, nil
	}
	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

// Flags returns the launcher flags derived from cfg, without the leading
// dashes. Exposed for logging and tests.
func (c Config) Flags() map[string]string {
	out := map[string]string{
		"disable-blink-features": "AutomationControlled",
		"window-size":            "1920,1080",
		"lang":                   "en-US",
	}
	if c.ProfileDir != "" {
		out["profile-directory"] = c.ProfileDir
	}
	if c.UserAgent != "" {
		out["user-agent"] = c.UserAgent
	}
	return out
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if !m.cfg.Headless && m.cfg.Xvfb && m.xvfb == nil {
		d, err := startDisplay(ctx, m.cfg.XvfbDisplay, log)
		if err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
		m.xvfb = d
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(m.cfg.Headless)
		if m.xvfb != nil {
			l = l.Env(m.xvfb.env())
		}
		if m.cfg.BinaryPath != "" {
			l = l.Bin(m.cfg.BinaryPath)
		}
		if m.cfg.UserDataDir != "" {
			l = l.UserDataDir(m.cfg.UserDataDir)
		}
		for k, v := range m.cfg.Flags() {
			l = l.Set(flags.Flag(k), v)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "headless", m.cfg.Headless, "user_data_dir", m.cfg.UserDataDir)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			m.cfg.Logger.Debug("browser: close", "error", err)
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.xvfb.stop(m.cfg.Logger)
	m.xvfb = nil
}
