package events

import "sync/atomic"

// KeyGenerator hands out listener keys. Keys are strictly increasing and never
// reused within one generator.
type KeyGenerator struct {
	last atomic.Uint64
}

// DefaultKeys is the generator used when none is injected.
var DefaultKeys = &KeyGenerator{}

// NewKeyGenerator creates a generator whose first key is 1.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// Next returns the next key.
func (g *KeyGenerator) Next() uint64 {
	return g.last.Add(1)
}

// Reset restarts the sequence. Only tests should need this.
func (g *KeyGenerator) Reset() {
	g.last.Store(0)
}
