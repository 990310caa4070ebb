package monitor

import (
	"time"

	"github.com/hazyhaar/linkwatch/dedup"
	"github.com/hazyhaar/linkwatch/seenstate"
)

// ProfileResult is the outcome of one profile scan.
type ProfileResult struct {
	Profile    string `json:"profile"`
	Slug       string `json:"slug"`
	Found      int    `json:"found"`
	New        int    `json:"new"`
	Collapsed  int    `json:"collapsed"`
	Suppressed int    `json:"suppressed"`
	Sent       bool   `json:"sent"`
	Error      string `json:"error,omitempty"`
}

// CycleSummary describes one pass over the profiles.
type CycleSummary struct {
	RunID      string          `json:"run_id"`
	Mode       string          `json:"mode"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Profiles   []ProfileResult `json:"profiles"`
}

// Failed counts profiles whose scan errored.
func (c *CycleSummary) Failed() int {
	n := 0
	for _, p := range c.Profiles {
		if p.Error != "" {
			n++
		}
	}
	return n
}

// NewRecords is the number of records reported in the pass.
func (c *CycleSummary) NewRecords() int {
	n := 0
	for _, p := range c.Profiles {
		n += p.New
	}
	return n
}

// Status is a read-only snapshot of the monitor.
type Status struct {
	FirstRun  bool
	Mode      dedup.Mode
	State     *seenstate.State
	LastCycle *CycleSummary
	Cycles    int
}

// Status returns the latest published snapshot. The state is a copy taken
// after the last completed pass, never the live document.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.status
	if s.State != nil {
		s.State = s.State.Clone()
	}
	return s
}

func (m *Monitor) publish(sum *CycleSummary) {
	snap := m.state.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status.FirstRun = m.firstRun
	m.status.Mode = m.mode
	m.status.State = snap
	if sum != nil {
		m.status.LastCycle = sum
		m.status.Cycles++
	}
}
