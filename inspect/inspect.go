// Package inspect exposes a read-only view of the monitor over HTTP and MCP.
// It only ever reads published snapshots; it never touches the live state.
package inspect

import (
	"sort"
	"time"

	"github.com/hazyhaar/linkwatch/activity"
	"github.com/hazyhaar/linkwatch/monitor"
)

// StatusSource publishes monitor snapshots. *monitor.Monitor implements it.
type StatusSource interface {
	Status() monitor.Status
}

// ProfileView summarises one profile's seen list.
type ProfileView struct {
	Profile      string `json:"profile"`
	Slug         string `json:"slug"`
	Fingerprints int    `json:"fingerprints"`
}

// StateView is the /state document.
type StateView struct {
	FirstRun  bool          `json:"first_run"`
	Mode      string        `json:"mode"`
	Global    int           `json:"global_fingerprints"`
	Profiles  []ProfileView `json:"profiles"`
	Cycles    int           `json:"cycles"`
	LastRunID string        `json:"last_run_id,omitempty"`
	LastRunAt *time.Time    `json:"last_run_at,omitempty"`
}

// View builds the state view from a snapshot. Profiles are sorted by URL.
func View(s monitor.Status) StateView {
	v := StateView{
		FirstRun: s.FirstRun,
		Mode:     s.Mode.String(),
		Cycles:   s.Cycles,
		Profiles: []ProfileView{},
	}
	if s.State != nil {
		v.Global = len(s.State.Global)
		for p, fps := range s.State.PerProfile {
			v.Profiles = append(v.Profiles, ProfileView{Profile: p, Slug: activity.Slug(p), Fingerprints: len(fps)})
		}
		sort.Slice(v.Profiles, func(i, j int) bool { return v.Profiles[i].Profile < v.Profiles[j].Profile })
	}
	if c := s.LastCycle; c != nil {
		v.LastRunID = c.RunID
		at := c.FinishedAt
		v.LastRunAt = &at
	}
	return v
}

// ProfileFingerprints finds a profile by URL or slug and returns its
// fingerprints, most recent first.
func ProfileFingerprints(s monitor.Status, key string) (string, []string, bool) {
	if s.State == nil {
		return "", nil, false
	}
	if fps, ok := s.State.PerProfile[key]; ok {
		return key, fps, true
	}
	for p, fps := range s.State.PerProfile {
		if activity.Slug(p) == key {
			return p, fps, true
		}
	}
	return "", nil, false
}
