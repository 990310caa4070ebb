package seenstate

import "context"

// LoadInfo describes what Load found on durable storage.
type LoadInfo struct {
	// Found is false when no document exists yet.
	Found bool
	// Corrupt is true when a document existed but could not be decoded.
	Corrupt bool
	// Err is the decode error when Corrupt is set.
	Err error
}

// FirstRun reports whether the run must start with a historical backfill:
// the document is absent, unreadable, or holds no fingerprints.
func FirstRun(st *State, info LoadInfo) bool {
	return !info.Found || info.Corrupt || st.IsEmpty()
}

// Store loads and persists the seen-state document.
//
// Load never fails on a missing or corrupt document: it returns an empty
// state and reports the condition in LoadInfo. Errors from Load are I/O
// failures the caller may treat as "empty".
type Store interface {
	Load(ctx context.Context) (*State, LoadInfo, error)
	Save(ctx context.Context, st *State) error
	Close() error
}
