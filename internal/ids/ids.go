// Package ids generates collision-resistant, human-scannable ticket
// identifiers. The numeric component is a monotonically increasing hint; the
// random suffix carries the actual uniqueness guarantee, which lets two
// offline devices generate ids independently without coordinating a counter.
package ids

import (
	"fmt"
	"math/rand"
	"sync"
)

// suffixChars excludes glyphs that are easy to misread on a printed ticket
// (I, O, 0, 1).
const suffixChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const suffixLength = 4

const DefaultPrefix = "LHG-TK"

// Generator produces ticket ids of the form "{prefix}{NN}-{XXXX}".
type Generator struct {
	mu      sync.Mutex
	prefix  string
	counter int
	rng     *rand.Rand
}

// NewGenerator creates a Generator. rng may be nil, in which case the shared
// global source is used; tests pass a seeded source for determinism.
func NewGenerator(prefix string, rng *rand.Rand) *Generator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{prefix: prefix, rng: rng}
}

// SetBaseline raises the counter to at least n. It never decreases, so id
// numbering cannot reuse an index already represented in the store.
func (g *Generator) SetBaseline(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.counter {
		g.counter = n
	}
}

// Next increments the counter and returns a fresh id.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	suffix := make([]byte, suffixLength)
	for i := range suffix {
		suffix[i] = suffixChars[g.intn(len(suffixChars))]
	}
	return fmt.Sprintf("%s%02d-%s", g.prefix, g.counter, suffix)
}

// Counter returns the current counter value.
func (g *Generator) Counter() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}

func (g *Generator) intn(n int) int {
	if g.rng != nil {
		return g.rng.Intn(n)
	}
	return rand.Intn(n)
}
