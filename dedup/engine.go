// Package dedup decides which scraped activity is new for a profile, groups
// it for reporting, and records it in the seen-state.
package dedup

import (
	"errors"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/seenstate"
)

// ErrNoNewActivity is returned when nothing survives deduplication. It is
// not a failure: the scan worked and found nothing to report.
var ErrNoNewActivity = errors.New("dedup: no new activity")

// Mode selects how prior seen-state is used.
type Mode int

const (
	// Incremental reports only activity absent from the profile's seen list.
	Incremental Mode = iota
	// Historical reports everything found (first-run backfill) while still
	// recording fingerprints for later incremental runs.
	Historical
)

// String returns "incremental" or "historical".
func (m Mode) String() string {
	if m == Historical {
		return "historical"
	}
	return "incremental"
}

// Groups holds accepted records by kind, each in collector order.
type Groups struct {
	Posts    []activity.Record
	Comments []activity.Record
	Likes    []activity.Record
}

// Len is the total number of records.
func (g Groups) Len() int { return len(g.Posts) + len(g.Comments) + len(g.Likes) }

// Ordered returns posts, then comments, then likes.
func (g Groups) Ordered() []activity.Record {
	out := make([]activity.Record, 0, g.Len())
	out = append(out, g.Posts...)
	out = append(out, g.Comments...)
	return append(out, g.Likes...)
}

// Result is the outcome of one dedup pass.
type Result struct {
	Groups Groups
	// Update is what was (or would be) applied to the seen-state.
	Update seenstate.Update
	// Collapsed counts candidates merged by the intra-pass signature.
	Collapsed int
	// Suppressed counts candidates dropped because they were already seen.
	Suppressed int
}

// Records returns the accepted records in report order.
func (r Result) Records() []activity.Record { return r.Groups.Ordered() }

// Engine runs dedup passes. The zero value uses the default caps.
type Engine struct {
	HistoricalCaps  seenstate.Caps
	IncrementalCaps seenstate.Caps
}

// NewEngine returns an engine with the default caps.
func NewEngine() *Engine {
	return &Engine{
		HistoricalCaps:  seenstate.HistoricalCaps,
		IncrementalCaps: seenstate.IncrementalCaps,
	}
}

// Caps returns the caps used for mode.
func (e *Engine) Caps(mode Mode) seenstate.Caps {
	if mode == Historical {
		if e.HistoricalCaps == (seenstate.Caps{}) {
			return seenstate.HistoricalCaps
		}
		return e.HistoricalCaps
	}
	if e.IncrementalCaps == (seenstate.Caps{}) {
		return seenstate.IncrementalCaps
	}
	return e.IncrementalCaps
}

// Plan computes the result of a pass without touching st.
func (e *Engine) Plan(profile string, candidates []activity.Record, st *seenstate.State, mode Mode) (Result, error) {
	res := Result{Update: seenstate.Update{Profile: profile}}

	sigs := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		sig := activity.Signature(c)
		if sigs[sig] {
			res.Collapsed++
			continue
		}
		sigs[sig] = true

		c.Fingerprint = activity.Fingerprint(c)
		if mode == Incremental && st.Seen(profile, c.Fingerprint) {
			res.Suppressed++
			continue
		}

		switch c.Kind {
		case activity.KindPost:
			res.Groups.Posts = append(res.Groups.Posts, c)
		case activity.KindComment:
			res.Groups.Comments = append(res.Groups.Comments, c)
		case activity.KindLike:
			res.Groups.Likes = append(res.Groups.Likes, c)
		}
	}

	for _, r := range res.Groups.Ordered() {
		res.Update.Fingerprints = append(res.Update.Fingerprints, r.Fingerprint)
	}
	if res.Groups.Len() == 0 {
		return res, ErrNoNewActivity
	}
	return res, nil
}

// Dedupe runs Plan and applies the update to st in place. The caller owns
// persisting st afterwards.
func (e *Engine) Dedupe(profile string, candidates []activity.Record, st *seenstate.State, mode Mode) (Result, error) {
	res, err := e.Plan(profile, candidates, st, mode)
	if err != nil {
		return res, err
	}
	st.Apply(res.Update, e.Caps(mode))
	return res, nil
}
