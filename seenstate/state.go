// Package seenstate records which activity fingerprints have already been
// reported, per profile and globally, and persists that record between runs.
//
// The state is owned by a single writer (the monitor). Nothing here locks;
// running two monitors against the same store is not supported.
package seenstate

import "slices"

// Caps bounds the fingerprint lists. Caps are tuning knobs: a fingerprint
// evicted from the tail may be reported again if it is scraped again.
type Caps struct {
	Profile int
	Global  int
}

// Default caps by run mode.
var (
	HistoricalCaps  = Caps{Profile: 50, Global: 500}
	IncrementalCaps = Caps{Profile: 200, Global: 200}
)

// State is the seen-state document. Lists are most-recent-first.
type State struct {
	PerProfile map[string][]string `json:"hashes"`
	Global     []string            `json:"global_hashes"`
}

// Update is the set of fingerprints accepted for one profile in one scan,
// in report order.
type Update struct {
	Profile      string
	Fingerprints []string
}

// New returns an empty state.
func New() *State {
	return &State{PerProfile: make(map[string][]string), Global: []string{}}
}

// IsEmpty reports whether nothing has been recorded yet.
func (s *State) IsEmpty() bool {
	if s == nil {
		return true
	}
	for _, fps := range s.PerProfile {
		if len(fps) > 0 {
			return false
		}
	}
	return len(s.Global) == 0
}

// Seen reports whether fp is recorded for profile.
func (s *State) Seen(profile, fp string) bool {
	return slices.Contains(s.PerProfile[profile], fp)
}

// Profile returns a copy of the fingerprints recorded for profile.
func (s *State) Profile(profile string) []string {
	return slices.Clone(s.PerProfile[profile])
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{PerProfile: make(map[string][]string, len(s.PerProfile)), Global: slices.Clone(s.Global)}
	if c.Global == nil {
		c.Global = []string{}
	}
	for k, v := range s.PerProfile {
		c.PerProfile[k] = slices.Clone(v)
	}
	return c
}

// Apply records u and returns s. Each fingerprint moves to the front of the
// profile list (so repeats never accumulate) and is added to the front of the
// global list if absent. Both lists are then truncated to caps.
func (s *State) Apply(u Update, caps Caps) *State {
	if s.PerProfile == nil {
		s.PerProfile = make(map[string][]string)
	}
	if s.Global == nil {
		s.Global = []string{}
	}
	profile := s.PerProfile[u.Profile]
	for _, fp := range u.Fingerprints {
		if i := slices.Index(profile, fp); i >= 0 {
			profile = slices.Delete(profile, i, i+1)
		}
		profile = slices.Insert(profile, 0, fp)
		if !slices.Contains(s.Global, fp) {
			s.Global = slices.Insert(s.Global, 0, fp)
		}
	}
	s.PerProfile[u.Profile] = truncate(profile, caps.Profile)
	s.Global = truncate(s.Global, caps.Global)
	return s
}

// Normalize drops nil maps and lists after decoding and enforces caps.
func (s *State) Normalize(caps Caps) {
	if s.PerProfile == nil {
		s.PerProfile = make(map[string][]string)
	}
	if s.Global == nil {
		s.Global = []string{}
	}
	for k, v := range s.PerProfile {
		s.PerProfile[k] = truncate(v, caps.Profile)
	}
	s.Global = truncate(s.Global, caps.Global)
}

func truncate(list []string, n int) []string {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}
