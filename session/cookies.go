package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// CookieJar persists browser cookies as JSON on disk.
type CookieJar struct {
	path string
}

// NewCookieJar returns a jar stored at path.
func NewCookieJar(path string) *CookieJar { return &CookieJar{path: path} }

// Path returns the file location.
func (j *CookieJar) Path() string { return j.path }

// Save writes cookies atomically, creating the parent directory.
func (j *CookieJar) Save(cookies []*proto.NetworkCookie) error {
	params := proto.CookiesToParams(cookies)
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode cookies: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(j.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	tmp := j.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("session: write cookies: %w", err)
	}
	if err := os.Rename(tmp, j.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("session: rename cookies: %w", err)
	}
	return nil
}

// Load reads the jar. A missing file returns (nil, nil). Cookies without a
// name are dropped; foreign domains are rebound to .linkedin.com.
func (j *CookieJar) Load() ([]*proto.NetworkCookieParam, error) {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: read cookies: %w", err)
	}
	var raw []*proto.NetworkCookieParam
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("session: decode cookies: %w", err)
	}
	out := raw[:0]
	for _, c := range raw {
		if c == nil || c.Name == "" {
			continue
		}
		if c.Domain != "" && !strings.Contains(c.Domain, "linkedin") {
			c.Domain = ".linkedin.com"
		}
		out = append(out, c)
	}
	return out, nil
}
