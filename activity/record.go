// Package activity defines the unit of scraped profile activity and the
// content fingerprints used to recognise it across runs.
package activity

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the activity discriminant.
type Kind string

const (
	KindPost    Kind = "Post"
	KindComment Kind = "Comment"
	KindLike    Kind = "Like"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{KindPost, KindComment, KindLike}

// ErrUnknownKind is returned for a kind outside Post, Comment and Like.
var ErrUnknownKind = errors.New("activity: unknown kind")

// ErrEmptyText is returned when a record has no text after trimming.
var ErrEmptyText = errors.New("activity: empty text")

// MaxSnippetLen bounds the text kept for comments and likes, which carry a
// snippet of the referenced post rather than the profile's own words.
const MaxSnippetLen = 400

// DefaultLikeText is used when a like card carries no readable snippet.
const DefaultLikeText = "Liked a post."

// NoLink stands in for a missing link so fingerprints stay stable.
const NoLink = "N/A"

// ParseKind parses "post", "Comment", "LIKE"...
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindPost, KindComment, KindLike:
		return true
	}
	return false
}

// Record is one piece of activity scraped from a profile.
type Record struct {
	Kind Kind   `json:"type"`
	Text string `json:"text"`
	Link string `json:"link"`
	// Fingerprint is set by the dedup engine; empty until then.
	Fingerprint string `json:"hash,omitempty"`
}

// NewRecord validates and normalises a scraped record.
func NewRecord(kind Kind, text, link string) (Record, error) {
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	text = strings.TrimSpace(text)
	if text == "" && kind == KindLike {
		text = DefaultLikeText
	}
	if text == "" {
		return Record{}, ErrEmptyText
	}
	if kind != KindPost {
		text = Truncate(text, MaxSnippetLen)
	}
	link = strings.TrimSpace(link)
	if link == "" {
		link = NoLink
	}
	return Record{Kind: kind, Text: text, Link: link}, nil
}

// Valid reports whether the record may enter the pipeline.
func (r Record) Valid() bool {
	return r.Kind.Valid() && strings.TrimSpace(r.Text) != ""
}

// Truncate returns the first n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
