// Package revision generates and compares the opaque tokens that mark
// "the state as of the last accepted write".
//
// Tokens support equality only. Two writers that diverge produce different
// tokens with overwhelming probability, which is enough to detect "did
// something change" between exactly two contexts; it deliberately does not
// order writes from three or more concurrent writers.
package revision

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"
)

// Token is an opaque revision marker. The zero value means "no revision
// known", i.e. a first-ever write.
type Token string

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool {
	return t == ""
}

// Equal reports whether two tokens identify the same accepted write.
// No ordering beyond equality is defined.
func Equal(a, b Token) bool {
	return a == b
}

const randomSuffixBytes = 5

// Generator produces revision tokens from a clock and a random source.
// The zero value uses time.Now and crypto/rand.
type Generator struct {
	Clock func() time.Time
	Rand  func(b []byte) (int, error)
}

// Next returns a fresh token: the UTC unix-milli timestamp plus a random
// base32 suffix. Tokens generated in the same millisecond by different
// contexts still differ with overwhelming probability.
func (g Generator) Next() (Token, error) {
	clock := g.Clock
	if clock == nil {
		clock = time.Now
	}
	read := g.Rand
	if read == nil {
		read = rand.Read
	}

	suffix := make([]byte, randomSuffixBytes)
	if _, err := read(suffix); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	encoded := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(suffix))

	return Token(fmt.Sprintf("%d-%s", clock().UTC().UnixMilli(), encoded)), nil
}
