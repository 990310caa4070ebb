package activity

import (
	"crypto/md5"
	"encoding/hex"
)

const (
	// FingerprintTextLen is the text prefix covered by Fingerprint. Trailing
	// text past it is ignored so truncated renderings hash the same.
	FingerprintTextLen = 300
	// SignatureTextLen is the text prefix covered by Signature.
	SignatureTextLen = 50

	sep = "|"
)

// Fingerprint returns the persisted identity of a record: md5 over
// kind|link|text[:300], lowercase hex. The format matches existing state
// files, so changing it silently re-reports everything.
func Fingerprint(r Record) string {
	sum := md5.Sum([]byte(string(r.Kind) + sep + r.Link + sep + Truncate(r.Text, FingerprintTextLen)))
	return hex.EncodeToString(sum[:])
}

// Signature is the key used to collapse overlapping records within one
// collection pass. It is deliberately shorter than Fingerprint; do not merge
// the two.
func Signature(r Record) string {
	return string(r.Kind) + sep + r.Link + sep + Truncate(r.Text, SignatureTextLen)
}
