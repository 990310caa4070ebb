package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on c. A variable that is unset
// or empty leaves the file value in place. Numeric variables that do not
// parse are reported together.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("LINKEDIN_EMAIL", &c.LinkedIn.Email)
	e.str("LINKEDIN_PASSWORD", &c.LinkedIn.Password)
	e.str("COOKIES_FILE", &c.LinkedIn.CookieFile)

	e.str("TELEGRAM_TOKEN", &c.Notify.TelegramToken)
	e.integer64("TELEGRAM_CHAT_ID", &c.Notify.TelegramChatID)
	e.str("WEBHOOK_URL", &c.Notify.WebhookURL)
	e.str("ARCHIVE_DIR", &c.Notify.ArchiveDir)

	if v, ok := e.get("HEADLESS"); ok {
		c.Browser.Headless = v == "1"
	}
	e.str("CHROME_REMOTE_URL", &c.Browser.Remote)
	e.str("CHROME_BINARY_PATH", &c.Browser.BinaryPath)
	e.str("CHROME_USER_DATA_DIR", &c.Browser.UserDataDir)
	e.str("CHROME_PROFILE_DIR", &c.Browser.ProfileDir)
	if c.Browser.UserDataDir != "" && c.Browser.ProfileDir == "" {
		c.Browser.ProfileDir = "Default"
	}

	e.str("STATE_BACKEND", &c.State.Backend)
	e.str("STATE_FILE", &c.State.Path)
	e.str("STATUS_ADDR", &c.Inspect.StatusAddr)

	e.integer("CHECK_INTERVAL_MIN", &c.Monitor.CheckInterval.Min)
	e.integer("CHECK_INTERVAL_MAX", &c.Monitor.CheckInterval.Max)
	e.integer("INITIAL_MONTHS_BACK", &c.Monitor.MonthsBack)
	e.integer("INITIAL_SCROLL_LIMIT", &c.Monitor.HistoricalScrolls)
	e.integer("NORMAL_SCROLL_LIMIT", &c.Monitor.NormalScrolls)

	e.integer("MAX_TOKENS_HISTORICAL", &c.LLM.MaxTokensHistorical)
	e.integer("MAX_TOKENS_NORMAL", &c.LLM.MaxTokensNormal)
	e.integer("MAX_PAST_POSTS_HISTORICAL", &c.LLM.MaxPastPostsHistorical)
	e.integer("MAX_PAST_POSTS_NORMAL", &c.LLM.MaxPastPostsNormal)

	if v, ok := e.get("PROFILES"); ok {
		c.Profiles = splitList(v)
	}

	c.applyLLMEnv(&e)
	c.resolveLLM()
	return errors.Join(e.errs...)
}

func (c *Config) applyLLMEnv(e *envReader) {
	e.str("LLM_PROVIDER", &c.LLM.Provider)
	provider := strings.ToLower(c.LLM.Provider)

	openaiKey, _ := e.first("OPENAI_API_KEY", "OPENAI_API_TOKEN", "OPENAI_KEY")
	geminiKey, _ := e.get("GEMINI_API_KEY")

	switch {
	case provider == ProviderGemini:
		if geminiKey != "" {
			c.LLM.APIKey = geminiKey
		}
		e.str("GEMINI_MODEL", &c.LLM.Model)
		e.str("GEMINI_FALLBACK_MODEL", &c.LLM.FallbackModel)
	case openaiKey != "" || provider == ProviderOpenAI:
		if openaiKey != "" {
			c.LLM.APIKey = openaiKey
			c.LLM.Provider = ProviderOpenAI
		}
		e.str("OPENAI_BASE_URL", &c.LLM.BaseURL)
		e.str("OPENAI_MODEL", &c.LLM.Model)
		e.str("OPENAI_FALLBACK_MODEL", &c.LLM.FallbackModel)
	case geminiKey != "" && c.LLM.APIKey == "":
		c.LLM.APIKey = geminiKey
		c.LLM.Provider = ProviderGemini
		e.str("GEMINI_MODEL", &c.LLM.Model)
		e.str("GEMINI_FALLBACK_MODEL", &c.LLM.FallbackModel)
	}
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	if e.lookup == nil {
		return "", false
	}
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) first(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := e.get(k); ok {
			return v, true
		}
	}
	return "", false
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) integer64(key string, dst *int64) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q: not an integer", key, v))
		return
	}
	*dst = n
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
