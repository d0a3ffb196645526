// Package dedupe computes stable fingerprints of task reference URLs so
// duplicate submissions of the same underlying work item can be detected.
package dedupe

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Normalize reduces a reference URL to a canonical form for duplicate
// detection: the host is lowercased, trailing slashes are stripped from
// the path, and the query string and fragment are dropped. Two URLs
// differing only in those aspects normalize identically, so links that
// vary only in tracking parameters count as the same work item.
//
// Inputs that do not parse as URLs are returned trimmed but otherwise
// unchanged, so the fingerprint still behaves deterministically.
func Normalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	host := strings.ToLower(parsed.Host)
	path := strings.TrimRight(parsed.Path, "/")

	var b strings.Builder
	if parsed.Scheme != "" {
		b.WriteString(parsed.Scheme)
		b.WriteString("://")
	}
	b.WriteString(host)
	b.WriteString(path)
	return b.String()
}

// Fingerprint returns a fixed-length hex digest of the normalized URL.
// It is a pure function: equal inputs always produce equal fingerprints.
// Collision resistance is not security-critical here; the digest only
// needs to be stable and well distributed.
func Fingerprint(rawURL string) string {
	sum := sha256.Sum256([]byte(Normalize(rawURL)))
	return hex.EncodeToString(sum[:])
}
