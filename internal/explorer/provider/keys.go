package provider

import (
	"math/rand"
	"sync/atomic"
)

// KeyPicker selects an API key for the next outgoing request. Implementations
// must be safe for concurrent use. Pick returns the empty string when no keys
// are configured, which callers treat as "send unauthenticated".
type KeyPicker interface {
	Pick(keys []string) string
}

// RandomPicker picks a key uniformly at random. This is the default strategy:
// upstream quotas are usually per-key, so random spread keeps any single key
// under its limit without coordination.
type RandomPicker struct{}

func (RandomPicker) Pick(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[rand.Intn(len(keys))]
}

// RoundRobinPicker cycles through keys in order.
type RoundRobinPicker struct {
	next atomic.Uint64
}

func (p *RoundRobinPicker) Pick(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	n := p.next.Add(1) - 1
	return keys[n%uint64(len(keys))]
}

// NewKeyPicker maps a configured strategy name onto a picker. Unknown names
// fall back to random selection.
func NewKeyPicker(strategy string) KeyPicker {
	switch strategy {
	case "round_robin":
		return &RoundRobinPicker{}
	default:
		return RandomPicker{}
	}
}
