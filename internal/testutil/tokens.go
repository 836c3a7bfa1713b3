package testutil

import (
	"fmt"
	"sync"
)

// FixedTokens generates deterministic sequential tokens ("t-1", "t-2",
// ...) so tests can assert on idempotency keys.
//
// Thread-safety: safe for concurrent use.
type FixedTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewFixedTokens creates a generator with the given token prefix.
func NewFixedTokens(prefix string) *FixedTokens {
	return &FixedTokens{prefix: prefix}
}

// Generate returns the next token in the sequence.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
