package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator produces predictable operation ids: "<prefix>-0001",
// "<prefix>-0002", ...
//
// This enables golden comparison of logs and CLI output that carry an
// operation id.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. If prefix is empty, "op" is
// used.
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "op"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id in sequence.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
