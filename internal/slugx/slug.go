// Package slugx generates the short public identifiers used in share URLs.
package slugx

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/sharegate/internal/common"
)

const (
	// Length is the slug size in characters. 62^8 candidates make
	// collisions rare; the retry bound below exists to catch pathological
	// RNG failure, not expected contention.
	Length = 8

	// MaxAttempts bounds Allocate before it gives up with
	// common.ErrorSlugExhausted.
	MaxAttempts = 5

	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// New returns a fresh random alphanumeric slug of Length characters.
// Randomness comes from crypto/rand; a read failure is fatal.
func New() (string, error) {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length)
	for len(out) < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("slug generation: %w", err)
		}
		out = appendMapped(out, buf)
	}
	return string(out), nil
}

// appendMapped maps random bytes onto the alphabet, up to Length output
// characters. Bytes from the incomplete tail of the 0..255 range are
// discarded so every character keeps an equal number of preimages.
func appendMapped(dst, src []byte) []byte {
	const limit = 256 - 256%len(alphabet)
	for _, b := range src {
		if len(dst) == Length {
			break
		}
		if int(b) >= limit {
			continue
		}
		dst = append(dst, alphabet[int(b)%len(alphabet)])
	}
	return dst
}

// Allocate generates a candidate slug and asks taken whether it already
// exists, retrying on collision up to MaxAttempts times. Exhausting the
// bound returns common.ErrorSlugExhausted.
//
// The pre-check is an optimization only: the store's uniqueness constraint
// stays the final arbiter, and callers must treat a duplicate-key insert
// as one more allocation attempt.
func Allocate(ctx context.Context, taken func(ctx context.Context, slug string) (bool, error)) (string, error) {
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		slug, err := New()
		if err != nil {
			return "", err
		}
		exists, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
	}
	return "", common.ErrorSlugExhausted
}
