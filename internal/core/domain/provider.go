package domain

import "time"

// Provider is the configuration of one external blockchain data source for
// one network. It is data, not behavior: the same struct drives a REST
// explorer, a JSON-RPC node or an indexer, with the transport picked by the
// provider family it is attached to. Effectively immutable during a request.
type Provider struct {
	Name       string
	Network    Network
	BaseURL    string
	TestnetURL string

	// RateLimit is the minimum spacing between two calls to this provider.
	RateLimit time.Duration

	// BackoffTime is how long the provider is benched after a 429.
	BackoffTime time.Duration

	UseProxy bool
	APIKeys  []string

	// Operations this provider is registered for. An empty set means the
	// family's full operation set.
	Operations []string
}

// SupportsOperation reports whether the provider is registered for op. An
// empty Operations list defers to the family defaults.
func (p Provider) SupportsOperation(op string) bool {
	if len(p.Operations) == 0 {
		return true
	}
	for _, o := range p.Operations {
		if o == op {
			return true
		}
	}
	return false
}
