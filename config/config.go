// Package config defines the linkwatch configuration: a YAML file with
// defaults, overlaid by the process environment (LINKEDIN_*, TELEGRAM_*,
// OPENAI_*, ...). It is built once in main and passed down explicitly.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	Profiles []string       `yaml:"profiles"`
	LinkedIn LinkedInConfig `yaml:"linkedin"`
	Browser  BrowserConfig  `yaml:"browser"`
	State    StateConfig    `yaml:"state"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	LLM      LLMConfig      `yaml:"llm"`
	Notify   NotifyConfig   `yaml:"notify"`
	Inspect  InspectConfig  `yaml:"inspect"`
}

// LinkedInConfig holds the login material.
type LinkedInConfig struct {
	Email      string `yaml:"email"`
	Password   string `yaml:"password"`
	CookieFile string `yaml:"cookie_file"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote           string        `yaml:"remote"`
	BinaryPath       string        `yaml:"binary_path"`
	UserDataDir      string        `yaml:"user_data_dir"`
	ProfileDir       string        `yaml:"profile_dir"`
	Headless         bool          `yaml:"headless"`
	Xvfb             bool          `yaml:"xvfb"`
	XvfbDisplay      string        `yaml:"xvfb_display"`
	UserAgent        string        `yaml:"user_agent"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
}

// StateConfig selects the seen-state backend.
type StateConfig struct {
	Backend         string    `yaml:"backend"` // file | sqlite
	Path            string    `yaml:"path"`
	HistoricalCaps  CapConfig `yaml:"historical_caps"`
	IncrementalCaps CapConfig `yaml:"incremental_caps"`
}

// CapConfig bounds the fingerprint lists.
type CapConfig struct {
	Profile int `yaml:"profile"`
	Global  int `yaml:"global"`
}

// Window is a delay range in seconds.
type Window struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// MonitorConfig drives the run loop.
type MonitorConfig struct {
	CheckInterval     Window `yaml:"check_interval"`
	HistoricalPause   Window `yaml:"historical_pause"`
	IncrementalPause  Window `yaml:"incremental_pause"`
	HistoricalLimit   int    `yaml:"historical_limit"`
	IncrementalLimit  int    `yaml:"incremental_limit"`
	MonthsBack        int    `yaml:"months_back"`
	HistoricalScrolls int    `yaml:"historical_scrolls"`
	NormalScrolls     int    `yaml:"normal_scrolls"`
	RunOnce           bool   `yaml:"run_once"`
}

// LLMConfig configures post enrichment. An empty APIKey disables it.
type LLMConfig struct {
	Provider               string `yaml:"provider"` // openai | gemini
	APIKey                 string `yaml:"api_key"`
	BaseURL                string `yaml:"base_url"`
	Model                  string `yaml:"model"`
	FallbackModel          string `yaml:"fallback_model"`
	MaxTokensHistorical    int    `yaml:"max_tokens_historical"`
	MaxTokensNormal        int    `yaml:"max_tokens_normal"`
	MaxPastPostsHistorical int    `yaml:"max_past_posts_historical"`
	MaxPastPostsNormal     int    `yaml:"max_past_posts_normal"`
}

// NotifyConfig lists the notification targets.
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	WebhookURL     string `yaml:"webhook_url"`
	ArchiveDir     string `yaml:"archive_dir"`
}

// InspectConfig exposes the read-only status surface.
type InspectConfig struct {
	StatusAddr string `yaml:"status_addr"`
}

// Providers.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Default models per provider.
var defaultModels = map[string][2]string{
	ProviderOpenAI: {"gpt-4o-mini", "gpt-3.5-turbo"},
	ProviderGemini: {"gemini-2.5-flash", "gemini-2.5-flash-lite"},
}

// LoadFile reads a YAML configuration file. An empty path yields the
// defaults. Defaults are applied after parsing; call ApplyEnv and then
// Validate before use.
func LoadFile(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Load is LoadFile followed by the environment overlay and validation.
func Load(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LinkedIn.CookieFile == "" {
		c.LinkedIn.CookieFile = "cookies.json"
	}
	if c.Browser.UserDataDir != "" && c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = "Default"
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 45 * time.Second
	}
	if c.State.Backend == "" {
		c.State.Backend = "file"
	}
	if c.State.Path == "" {
		if c.State.Backend == "sqlite" {
			c.State.Path = "./linkedin_seen_state.db"
		} else {
			c.State.Path = "./linkedin_seen_state.json"
		}
	}
	setCaps(&c.State.HistoricalCaps, 50, 500)
	setCaps(&c.State.IncrementalCaps, 200, 200)
	setWindow(&c.Monitor.CheckInterval, 300, 600)
	setWindow(&c.Monitor.HistoricalPause, 15, 30)
	setWindow(&c.Monitor.IncrementalPause, 10, 25)
	setInt(&c.Monitor.HistoricalLimit, 50)
	setInt(&c.Monitor.IncrementalLimit, 6)
	setInt(&c.Monitor.MonthsBack, 2)
	setInt(&c.Monitor.HistoricalScrolls, 20)
	setInt(&c.Monitor.NormalScrolls, 6)
	setInt(&c.LLM.MaxTokensHistorical, 800)
	setInt(&c.LLM.MaxTokensNormal, 1200)
	setInt(&c.LLM.MaxPastPostsHistorical, 3)
	setInt(&c.LLM.MaxPastPostsNormal, 5)
}

// resolveLLM fills provider and model defaults once the key is known.
func (c *Config) resolveLLM() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if m, ok := defaultModels[c.LLM.Provider]; ok {
		if c.LLM.Model == "" {
			c.LLM.Model = m[0]
		}
		if c.LLM.FallbackModel == "" {
			c.LLM.FallbackModel = m[1]
		}
	}
}

func setInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

func setCaps(c *CapConfig, profile, global int) {
	setInt(&c.Profile, profile)
	setInt(&c.Global, global)
}

func setWindow(w *Window, lo, hi int) {
	if w.Min <= 0 && w.Max <= 0 {
		w.Min, w.Max = lo, hi
	}
}

// LLMEnabled reports whether enrichment has a key.
func (c *Config) LLMEnabled() bool { return c.LLM.APIKey != "" }

// TelegramEnabled reports whether the Telegram channel is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Notify.TelegramToken != "" && c.Notify.TelegramChatID != 0
}

// Validate rejects configurations the monitor cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Profiles) == 0 {
		errs = append(errs, errors.New("config: no profiles configured (set PROFILES or profiles:)"))
	}
	for _, p := range c.Profiles {
		u, err := url.Parse(p)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("config: profile %q is not an absolute URL", p))
		}
	}
	for name, w := range map[string]Window{
		"check_interval":    c.Monitor.CheckInterval,
		"historical_pause":  c.Monitor.HistoricalPause,
		"incremental_pause": c.Monitor.IncrementalPause,
	} {
		if w.Min < 0 || w.Max < w.Min {
			errs = append(errs, fmt.Errorf("config: %s: min %d > max %d", name, w.Min, w.Max))
		}
	}
	switch c.State.Backend {
	case "file", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("config: unknown state backend %q", c.State.Backend))
	}
	if c.LLMEnabled() {
		if _, ok := defaultModels[c.LLM.Provider]; !ok {
			errs = append(errs, fmt.Errorf("config: unknown llm provider %q", c.LLM.Provider))
		}
	}
	return errors.Join(errs...)
}
