package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.State.Path != "./linkedin_seen_state.json" || cfg.State.Backend != "file" {
		t.Errorf("state: %+v", cfg.State)
	}
	if cfg.Monitor.CheckInterval != (Window{300, 600}) {
		t.Errorf("check interval: %+v", cfg.Monitor.CheckInterval)
	}
	if cfg.Monitor.HistoricalLimit != 50 || cfg.Monitor.IncrementalLimit != 6 {
		t.Errorf("limits: %+v", cfg.Monitor)
	}
	if cfg.State.HistoricalCaps != (CapConfig{50, 500}) || cfg.State.IncrementalCaps != (CapConfig{200, 200}) {
		t.Errorf("caps: %+v", cfg.State)
	}
	if cfg.LLM.MaxTokensHistorical != 800 || cfg.LLM.MaxTokensNormal != 1200 {
		t.Errorf("tokens: %+v", cfg.LLM)
	}
	if cfg.Browser.NavTimeout != 45*time.Second {
		t.Errorf("nav timeout: %v", cfg.Browser.NavTimeout)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkwatch.yaml")
	data := `
profiles:
  - https://www.linkedin.com/in/jane-doe
state:
  backend: sqlite
monitor:
  check_interval: {min: 60, max: 120}
  run_once: true
browser:
  user_data_dir: /tmp/chrome
  nav_timeout: 30s
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Profiles) != 1 || !cfg.Monitor.RunOnce {
		t.Errorf("parsed: %+v", cfg)
	}
	if cfg.State.Path != "./linkedin_seen_state.db" {
		t.Errorf("sqlite default path: %q", cfg.State.Path)
	}
	if cfg.Monitor.CheckInterval != (Window{60, 120}) {
		t.Errorf("interval: %+v", cfg.Monitor.CheckInterval)
	}
	if cfg.Browser.ProfileDir != "Default" || cfg.Browser.NavTimeout != 30*time.Second {
		t.Errorf("browser: %+v", cfg.Browser)
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("profiles: [unterminated"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Error("broken yaml must error")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file must error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, _ := LoadFile("")
	err := cfg.ApplyEnv(env(map[string]string{
		"LINKEDIN_EMAIL":        "me@example.com",
		"LINKEDIN_PASSWORD":     "secret",
		"TELEGRAM_TOKEN":        "123:abc",
		"TELEGRAM_CHAT_ID":      "-10042",
		"HEADLESS":              "1",
		"STATE_FILE":            "/var/lib/linkwatch/state.json",
		"CHECK_INTERVAL_MIN":    "30",
		"CHECK_INTERVAL_MAX":    "90",
		"CHROME_USER_DATA_DIR":  "/home/u/.config/chrome",
		"PROFILES":              " https://www.linkedin.com/in/a/ , ,https://www.linkedin.com/in/b ",
		"OPENAI_KEY":            "sk-test",
		"MAX_PAST_POSTS_NORMAL": "7",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LinkedIn.Email != "me@example.com" || cfg.Notify.TelegramChatID != -10042 || !cfg.TelegramEnabled() {
		t.Errorf("credentials: %+v %+v", cfg.LinkedIn, cfg.Notify)
	}
	if !cfg.Browser.Headless || cfg.Browser.ProfileDir != "Default" {
		t.Errorf("browser: %+v", cfg.Browser)
	}
	if cfg.Monitor.CheckInterval != (Window{30, 90}) {
		t.Errorf("interval: %+v", cfg.Monitor.CheckInterval)
	}
	if strings.Join(cfg.Profiles, "|") != "https://www.linkedin.com/in/a/|https://www.linkedin.com/in/b" {
		t.Errorf("profiles: %q", cfg.Profiles)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("llm alias: %+v", cfg.LLM)
	}
	if cfg.LLM.Model != "gpt-4o-mini" || cfg.LLM.FallbackModel != "gpt-3.5-turbo" {
		t.Errorf("models: %+v", cfg.LLM)
	}
	if cfg.LLM.MaxPastPostsNormal != 7 {
		t.Errorf("past posts: %d", cfg.LLM.MaxPastPostsNormal)
	}
}

func TestApplyEnv_HeadlessOnlyOnOne(t *testing.T) {
	cfg, _ := LoadFile("")
	cfg.Browser.Headless = true
	cfg.ApplyEnv(env(map[string]string{"HEADLESS": "true"}))
	if cfg.Browser.Headless {
		t.Error(`only "1" enables headless`)
	}
}

func TestApplyEnv_Gemini(t *testing.T) {
	cfg, _ := LoadFile("")
	if err := cfg.ApplyEnv(env(map[string]string{"GEMINI_API_KEY": "g-key"})); err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.Provider != ProviderGemini || cfg.LLM.APIKey != "g-key" || cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("gemini: %+v", cfg.LLM)
	}
}

func TestApplyEnv_OpenAIKeyWins(t *testing.T) {
	cfg, _ := LoadFile("")
	cfg.ApplyEnv(env(map[string]string{"GEMINI_API_KEY": "g", "OPENAI_API_TOKEN": "o"}))
	if cfg.LLM.Provider != ProviderOpenAI || cfg.LLM.APIKey != "o" {
		t.Errorf("llm: %+v", cfg.LLM)
	}
}

func TestApplyEnv_BadNumbers(t *testing.T) {
	cfg, _ := LoadFile("")
	err := cfg.ApplyEnv(env(map[string]string{"CHECK_INTERVAL_MIN": "five", "TELEGRAM_CHAT_ID": "x"}))
	if err == nil {
		t.Fatal("expected parse errors")
	}
	for _, key := range []string{"CHECK_INTERVAL_MIN", "TELEGRAM_CHAT_ID"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error does not name %s: %v", key, err)
		}
	}
	if cfg.Monitor.CheckInterval.Min != 300 {
		t.Error("a bad value must leave the default in place")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, _ := LoadFile("")
		cfg.Profiles = []string{"https://www.linkedin.com/in/jane-doe"}
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"no profiles", func(c *Config) { c.Profiles = nil }, false},
		{"relative profile", func(c *Config) { c.Profiles = []string{"in/jane"} }, false},
		{"inverted interval", func(c *Config) { c.Monitor.CheckInterval = Window{600, 300} }, false},
		{"inverted pause", func(c *Config) { c.Monitor.HistoricalPause = Window{30, 15} }, false},
		{"equal window", func(c *Config) { c.Monitor.IncrementalPause = Window{10, 10} }, true},
		{"backend", func(c *Config) { c.State.Backend = "redis" }, false},
		{"provider", func(c *Config) { c.LLM.APIKey, c.LLM.Provider = "k", "mistral" }, false},
		{"provider without key", func(c *Config) { c.LLM.Provider = "mistral" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("ok=%v, err=%v", tt.ok, err)
			}
		})
	}
}
