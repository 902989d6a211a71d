package oob

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
)

func TestTokenSource_Uniqueness(t *testing.T) {
	ts := NewTokenSource(nil)
	seen := make(map[CorrelationToken]bool, 10000)
	for i := 0; i < 10000; i++ {
		token, err := ts.Next()
		if err != nil {
			t.Fatalf("Next returned error: %v", err)
		}
		if seen[token] {
			t.Fatalf("token collision after %d draws: %s", i, token)
		}
		seen[token] = true
	}
}

func TestTokenSource_Format(t *testing.T) {
	ts := NewTokenSource(nil)
	token, err := ts.Next()
	if err != nil {
		t.Fatalf("Next returned error: %v", err)
	}
	if len(token) != tokenEntropyBytes*2 {
		t.Errorf("expected %d hex chars, got %d (%s)", tokenEntropyBytes*2, len(token), token)
	}
	if !regexp.MustCompile(`^[0-9a-f]+$`).MatchString(string(token)) {
		t.Errorf("token is not lowercase hex: %s", token)
	}
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, fmt.Errorf("entropy pool exhausted")
}

func TestTokenSource_EntropyFailure(t *testing.T) {
	ts := NewTokenSource(failingReader{})
	_, err := ts.Next()
	if !errors.Is(err, ErrEntropyUnavailable) {
		t.Fatalf("expected ErrEntropyUnavailable, got %v", err)
	}
}

func TestTokenSource_ConcurrentDraws(t *testing.T) {
	ts := NewTokenSource(nil)
	const goroutines = 16
	const perGoroutine = 200

	var mu sync.Mutex
	seen := make(map[CorrelationToken]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				token, err := ts.Next()
				if err != nil {
					t.Errorf("Next returned error: %v", err)
					return
				}
				mu.Lock()
				if seen[token] {
					t.Errorf("concurrent token collision: %s", token)
				}
				seen[token] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
