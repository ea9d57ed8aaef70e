package testutil

import "fmt"

// SequentialGenerator yields origin tokens prefix-1, prefix-2, ...
//
// Unlike guard.FixedGenerator it never runs out, which suits scenarios whose
// number of engine writes is not known up front.
//
// Thread-safety: safe for concurrent use.
type SequentialGenerator struct {
	prefix string
	seq    Sequence
}

// NewSequentialGenerator creates a generator. An empty prefix defaults to
// "origin".
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = "origin"
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements guard.TokenGenerator.
func (g *SequentialGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.seq.Next())
}

// Reset restarts numbering at 1.
func (g *SequentialGenerator) Reset() {
	g.seq.Reset()
}
