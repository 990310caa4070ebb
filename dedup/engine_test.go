package dedup

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/seenstate"
)

const profile = "https://www.linkedin.com/in/jane-doe"

func rec(kind activity.Kind, text, link string) activity.Record {
	return activity.Record{Kind: kind, Text: text, Link: link}
}

func TestDedupe_EmptyStateIncremental(t *testing.T) {
	// WHAT: empty seen-state + 2 posts and 1 comment in incremental mode.
	// WHY: everything is new; all three must come back fingerprinted and be recorded.
	st := seenstate.New()
	cands := []activity.Record{
		rec(activity.KindPost, "first post", "https://l/1"),
		rec(activity.KindComment, "a comment", "https://l/2"),
		rec(activity.KindPost, "second post", "https://l/3"),
	}

	res, err := NewEngine().Dedupe(profile, cands, st, Incremental)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	got := res.Records()
	if len(got) != 3 {
		t.Fatalf("records: got %d, want 3", len(got))
	}
	for _, r := range got {
		if r.Fingerprint != activity.Fingerprint(r) {
			t.Errorf("record %q not annotated", r.Text)
		}
	}
	if n := len(st.PerProfile[profile]); n != 3 {
		t.Errorf("seen fingerprints: got %d, want 3", n)
	}
}

func TestDedupe_SuppressesSeen(t *testing.T) {
	// WHAT: a candidate whose fingerprint is already recorded is dropped; the new one survives.
	// WHY: this is the no-repeat guarantee of incremental monitoring.
	old := rec(activity.KindPost, "already reported", "https://l/old")
	fresh := rec(activity.KindLike, "brand new", "https://l/new")

	st := seenstate.New()
	st.Apply(seenstate.Update{Profile: profile, Fingerprints: []string{activity.Fingerprint(old)}}, seenstate.IncrementalCaps)

	res, err := NewEngine().Dedupe(profile, []activity.Record{old, fresh}, st, Incremental)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	got := res.Records()
	if len(got) != 1 || got[0].Text != "brand new" {
		t.Fatalf("got %+v, want only the new record", got)
	}
	if res.Suppressed != 1 {
		t.Errorf("suppressed: got %d", res.Suppressed)
	}
}

func TestDedupe_SeenElsewhereIsNotSeenHere(t *testing.T) {
	r := rec(activity.KindPost, "shared", "https://l/s")
	st := seenstate.New()
	st.Apply(seenstate.Update{Profile: "https://www.linkedin.com/in/other", Fingerprints: []string{activity.Fingerprint(r)}}, seenstate.IncrementalCaps)

	res, err := NewEngine().Dedupe(profile, []activity.Record{r}, st, Incremental)
	if err != nil || len(res.Records()) != 1 {
		t.Fatalf("per-profile seen list decides, got %v %v", res.Records(), err)
	}
	if len(st.Global) != 1 {
		t.Errorf("global must not duplicate: %v", st.Global)
	}
}

func TestDedupe_HistoricalBypass(t *testing.T) {
	r := rec(activity.KindComment, "seen before", "https://l/1")
	st := seenstate.New()
	st.Apply(seenstate.Update{Profile: profile, Fingerprints: []string{activity.Fingerprint(r)}}, seenstate.IncrementalCaps)

	res, err := NewEngine().Dedupe(profile, []activity.Record{r}, st, Historical)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if len(res.Records()) != 1 {
		t.Errorf("historical mode must report seen records")
	}
	if n := len(st.PerProfile[profile]); n != 1 {
		t.Errorf("fingerprint must not be duplicated, got %d entries", n)
	}

	// A following incremental pass suppresses it.
	if _, err := NewEngine().Dedupe(profile, []activity.Record{r}, st, Incremental); !errors.Is(err, ErrNoNewActivity) {
		t.Errorf("incremental after historical: got %v, want ErrNoNewActivity", err)
	}
}

func TestDedupe_NoNewActivity(t *testing.T) {
	st := seenstate.New()
	_, err := NewEngine().Dedupe(profile, nil, st, Incremental)
	if !errors.Is(err, ErrNoNewActivity) {
		t.Fatalf("empty candidates: got %v", err)
	}
	_, err = NewEngine().Dedupe(profile, []activity.Record{{Kind: activity.KindPost, Text: "  "}}, st, Historical)
	if !errors.Is(err, ErrNoNewActivity) {
		t.Fatalf("blank text: got %v", err)
	}
	if !st.IsEmpty() {
		t.Error("nothing accepted, nothing recorded")
	}
}

func TestDedupe_IntraPassCollapse(t *testing.T) {
	// WHAT: overlapping records from the collector's scroll/retry collapse on the 50-char signature.
	// WHY: the same card scraped twice must be reported once.
	prefix := strings.Repeat("x", activity.SignatureTextLen)
	cands := []activity.Record{
		rec(activity.KindLike, prefix+" first render", "https://l/1"),
		rec(activity.KindLike, prefix+" second render", "https://l/1"),
		rec(activity.KindLike, prefix+" other link", "https://l/2"),
	}
	res, err := NewEngine().Dedupe(profile, cands, seenstate.New(), Incremental)
	if err != nil {
		t.Fatalf("dedupe: %v", err)
	}
	if len(res.Groups.Likes) != 2 || res.Collapsed != 1 {
		t.Fatalf("likes=%d collapsed=%d", len(res.Groups.Likes), res.Collapsed)
	}
	if !strings.HasSuffix(res.Groups.Likes[0].Text, "first render") {
		t.Error("first occurrence must win")
	}
}

func TestDedupe_GroupingOrder(t *testing.T) {
	cands := []activity.Record{
		rec(activity.KindLike, "like 1", "l1"),
		rec(activity.KindPost, "post 1", "p1"),
		rec(activity.KindComment, "comment 1", "c1"),
		rec(activity.KindPost, "post 2", "p2"),
		rec(activity.KindLike, "like 2", "l2"),
	}
	res, err := NewEngine().Plan(profile, cands, seenstate.New(), Incremental)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, r := range res.Records() {
		got = append(got, r.Text)
	}
	want := "post 1,post 2,comment 1,like 1,like 2"
	if strings.Join(got, ",") != want {
		t.Errorf("order: got %v, want %s", got, want)
	}
}

func TestPlan_DoesNotMutate(t *testing.T) {
	st := seenstate.New()
	before := st.Clone()
	if _, err := NewEngine().Plan(profile, []activity.Record{rec(activity.KindPost, "p", "l")}, st, Incremental); err != nil {
		t.Fatal(err)
	}
	if !st.IsEmpty() || !before.IsEmpty() {
		t.Error("Plan must not touch the state")
	}
}

func TestDedupe_CapsByMode(t *testing.T) {
	var cands []activity.Record
	for i := range 80 {
		cands = append(cands, rec(activity.KindPost, fmt.Sprintf("post %d", i), fmt.Sprintf("l%d", i)))
	}
	st := seenstate.New()
	if _, err := NewEngine().Dedupe(profile, cands, st, Historical); err != nil {
		t.Fatal(err)
	}
	if n := len(st.PerProfile[profile]); n != seenstate.HistoricalCaps.Profile {
		t.Errorf("historical cap: got %d", n)
	}
}

func TestDedupe_Properties(t *testing.T) {
	kinds := rapid.SampledFrom(activity.Kinds)
	genRecord := rapid.Custom(func(t *rapid.T) activity.Record {
		return activity.Record{
			Kind: kinds.Draw(t, "kind"),
			Text: rapid.StringMatching(`[a-z][a-z ]{0,79}`).Draw(t, "text"),
			Link: rapid.SampledFrom([]string{"l1", "l2", "l3"}).Draw(t, "link"),
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		eng := &Engine{
			HistoricalCaps:  seenstate.Caps{Profile: 10, Global: 15},
			IncrementalCaps: seenstate.Caps{Profile: 8, Global: 12},
		}
		st := seenstate.New()
		for i := range rapid.IntRange(1, 5).Draw(t, "passes") {
			mode := rapid.SampledFrom([]Mode{Incremental, Historical}).Draw(t, fmt.Sprintf("mode%d", i))
			cands := rapid.SliceOf(genRecord).Draw(t, fmt.Sprintf("cands%d", i))
			seenBefore := st.Clone()

			res, err := eng.Dedupe(profile, cands, st, mode)
			if err != nil && !errors.Is(err, ErrNoNewActivity) {
				t.Fatalf("unexpected error: %v", err)
			}

			for _, r := range res.Records() {
				if mode == Incremental && seenBefore.Seen(profile, r.Fingerprint) {
					t.Fatalf("incremental pass repeated %s", r.Fingerprint)
				}
			}
			if mode == Historical {
				for _, c := range cands {
					found := false
					for _, r := range res.Records() {
						if activity.Signature(r) == activity.Signature(c) {
							found = true
						}
					}
					if !found {
						t.Fatalf("historical pass dropped %+v", c)
					}
				}
			}
			caps := eng.Caps(mode)
			if err == nil && (len(st.PerProfile[profile]) > caps.Profile || len(st.Global) > caps.Global) {
				t.Fatalf("caps exceeded: profile=%d global=%d", len(st.PerProfile[profile]), len(st.Global))
			}
		}
	})
}
