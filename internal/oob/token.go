package oob

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
)

// tokenEntropyBytes is the amount of entropy drawn per token. 16 bytes gives
// 128 bits, enough that collisions across a whole scan run are negligible.
const tokenEntropyBytes = 16

// CorrelationToken is an opaque random identifier embedded in a payload and
// later matched against collector-observed interactions. The lowercase hex
// form is safe unquoted in URLs, shell words and DNS labels.
type CorrelationToken string

// TokenSource generates correlation tokens from a cryptographically secure
// random source. Safe for concurrent use: each call draws fresh entropy and
// reads are serialized in case the backing reader is not concurrency-safe.
type TokenSource struct {
	mu   sync.Mutex
	rand io.Reader
}

// NewTokenSource creates a TokenSource backed by the given entropy reader.
// Passing nil uses crypto/rand.Reader.
func NewTokenSource(r io.Reader) *TokenSource {
	if r == nil {
		r = rand.Reader
	}
	return &TokenSource{rand: r}
}

// Next returns a fresh token. It fails only with ErrEntropyUnavailable, in
// which case the caller must abort the detection attempt.
func (ts *TokenSource) Next() (CorrelationToken, error) {
	buf := make([]byte, tokenEntropyBytes)
	ts.mu.Lock()
	_, err := io.ReadFull(ts.rand, buf)
	ts.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEntropyUnavailable, err)
	}
	return CorrelationToken(hex.EncodeToString(buf)), nil
}
