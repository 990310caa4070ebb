package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/linkwatch/internal/pacing"
)

// fakeLinkedIn simulates just enough navigation for the login paths.
type fakeLinkedIn struct {
	loggedIn     bool
	validCookie  string
	checkpointed bool
	current      string
	filled       map[string]string
	installed    []*proto.NetworkCookieParam
}

func (f *fakeLinkedIn) Navigate(_ context.Context, url string) error {
	switch {
	case url == FeedURL && f.loggedIn:
		f.current = FeedURL
	case url == FeedURL:
		f.current = "https://www.linkedin.com/uas/login"
	default:
		f.current = url
	}
	return nil
}

func (f *fakeLinkedIn) URL(context.Context) (string, error) { return f.current, nil }

func (f *fakeLinkedIn) Has(_ context.Context, selectors ...string) bool {
	for _, s := range selectors {
		if s == feedMarkers[0] && f.loggedIn && f.current == FeedURL {
			return true
		}
	}
	return false
}

func (f *fakeLinkedIn) Fill(_ context.Context, selector, value string) error {
	if f.filled == nil {
		f.filled = map[string]string{}
	}
	f.filled[selector] = value
	return nil
}

func (f *fakeLinkedIn) Click(_ context.Context, selector string) error {
	if selector != `button[type="submit"]` {
		return nil
	}
	if f.checkpointed {
		f.current = "https://www.linkedin.com/checkpoint/challenge/123"
		return nil
	}
	if f.filled["#username"] == "me@example.com" && f.filled["#password"] == "secret" {
		f.loggedIn = true
		f.current = FeedURL
	}
	return nil
}

func (f *fakeLinkedIn) Cookies(context.Context) ([]*proto.NetworkCookie, error) {
	if !f.loggedIn {
		return nil, nil
	}
	return []*proto.NetworkCookie{{Name: "li_at", Value: "token", Domain: ".linkedin.com", Path: "/"}}, nil
}

func (f *fakeLinkedIn) SetCookies(_ context.Context, cookies []*proto.NetworkCookieParam) error {
	f.installed = cookies
	for _, c := range cookies {
		if c.Name == "li_at" && c.Value == f.validCookie {
			f.loggedIn = true
		}
	}
	return nil
}

var noSleep = pacing.SleeperFunc(func(context.Context, time.Duration) error { return nil })

func newManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	if cfg.CookieFile == "" {
		cfg.CookieFile = filepath.Join(t.TempDir(), "cookies.json")
	}
	cfg.FeedChecks = 2
	return New(cfg, noSleep)
}

func TestEnsure_ProfileSession(t *testing.T) {
	m := newManager(t, Config{})
	li := &fakeLinkedIn{loggedIn: true}
	method, err := m.Ensure(context.Background(), li)
	if err != nil || method != MethodProfile {
		t.Fatalf("got %s, %v", method, err)
	}
	if _, err := os.Stat(m.jar.Path()); err != nil {
		t.Errorf("cookies not saved: %v", err)
	}
}

func TestEnsure_CookieJar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jar", "cookies.json")
	if err := NewCookieJar(path).Save([]*proto.NetworkCookie{{Name: "li_at", Value: "good", Domain: ".linkedin.com", Path: "/"}}); err != nil {
		t.Fatal(err)
	}
	li := &fakeLinkedIn{validCookie: "good"}
	method, err := newManager(t, Config{CookieFile: path}).Ensure(context.Background(), li)
	if err != nil || method != MethodCookies {
		t.Fatalf("got %s, %v", method, err)
	}
	if len(li.installed) != 1 {
		t.Errorf("installed cookies: %d", len(li.installed))
	}
}

func TestEnsure_Credentials(t *testing.T) {
	m := newManager(t, Config{Email: "me@example.com", Password: "secret"})
	li := &fakeLinkedIn{validCookie: "never"}
	method, err := m.Ensure(context.Background(), li)
	if err != nil || method != MethodCredentials {
		t.Fatalf("got %s, %v", method, err)
	}
	saved, err := m.jar.Load()
	if err != nil || len(saved) != 1 || saved[0].Name != "li_at" {
		t.Errorf("jar after login: %+v, %v", saved, err)
	}
}

func TestEnsure_NoCredentials(t *testing.T) {
	_, err := newManager(t, Config{}).Ensure(context.Background(), &fakeLinkedIn{})
	if !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("got %v", err)
	}
}

func TestEnsure_Checkpoint(t *testing.T) {
	m := newManager(t, Config{Email: "me@example.com", Password: "secret"})
	_, err := m.Ensure(context.Background(), &fakeLinkedIn{checkpointed: true})
	if !errors.Is(err, ErrCheckpoint) {
		t.Fatalf("got %v", err)
	}
}

func TestEnsure_WrongPassword(t *testing.T) {
	m := newManager(t, Config{Email: "me@example.com", Password: "nope"})
	_, err := m.Ensure(context.Background(), &fakeLinkedIn{})
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("got %v", err)
	}
}

func TestCookieJar_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	jar := NewCookieJar(path)

	if got, err := jar.Load(); err != nil || got != nil {
		t.Fatalf("missing jar: %v %v", got, err)
	}
	err := jar.Save([]*proto.NetworkCookie{
		{Name: "li_at", Value: "v1", Domain: ".linkedin.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "", Value: "dropped", Domain: ".linkedin.com"},
		{Name: "foreign", Value: "v2", Domain: "example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("jar mode: %v", info.Mode().Perm())
	}

	got, err := jar.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("cookies: %+v", got)
	}
	if !got[0].Secure || !got[0].HTTPOnly || got[0].Value != "v1" {
		t.Errorf("first cookie: %+v", got[0])
	}
	if got[1].Domain != ".linkedin.com" {
		t.Errorf("foreign domain not rebound: %q", got[1].Domain)
	}
}

func TestCookieJar_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cookies.json")
	if err := os.WriteFile(path, []byte("not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCookieJar(path).Load(); err == nil {
		t.Error("corrupt jar must error")
	}
}
