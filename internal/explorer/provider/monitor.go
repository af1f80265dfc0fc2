package provider

import (
	"strings"
	"sync"
	"time"
)

// Status is the observed health of one upstream provider.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusThrottled
	StatusBlocked
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusBlocked:
		return "blocked"
	}
	return "unknown"
}

// throttlePhrases are substrings upstreams put in 200-OK error bodies when
// they are actually rate limiting. Matched case-insensitively.
var throttlePhrases = []string{
	"rate limit exceeded",
	"too many requests",
	"daily request count exceeded",
	"project rate limit",
	"monthly quota exceeded",
	"max rate limit reached",
}

// Monitor tracks latency and throttling signals for one provider. One Monitor
// is shared by every Api built for the same provider entry.
type Monitor struct {
	mu sync.RWMutex

	latencies   []time.Duration
	latencyCap  int
	count429    int
	count403    int
	lastBlocked time.Time
	penalty     time.Duration

	slowThreshold time.Duration
}

func NewMonitor() *Monitor {
	return &Monitor{
		latencies:     make([]time.Duration, 0, 100),
		latencyCap:    100,
		slowThreshold: 3 * time.Second,
	}
}

// RecordSuccess records the latency of a completed request.
func (m *Monitor) RecordSuccess(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, latency)
	if len(m.latencies) > m.latencyCap {
		m.latencies = m.latencies[1:]
	}
}

// RecordThrottle records a 429 or 403 response.
func (m *Monitor) RecordThrottle(statusCode int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBlocked = time.Now()
	switch statusCode {
	case 429:
		m.count429++
		m.penalty = time.Minute
	case 403:
		m.count403++
		// 403 usually means an IP-level block, back off much longer.
		m.penalty = 10 * time.Minute
	}
}

// IsThrottleMessage reports whether an upstream error body looks like a
// disguised rate-limit response.
func IsThrottleMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, p := range throttlePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Status derives the current provider status from recent signals.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inPenalty := !m.lastBlocked.IsZero() && time.Since(m.lastBlocked) < m.penalty
	if m.count403 > 0 && inPenalty {
		return StatusBlocked
	}
	if m.count429 > 5 && inPenalty {
		return StatusThrottled
	}
	if len(m.latencies) > 10 && m.averageLocked() > m.slowThreshold {
		return StatusDegraded
	}
	return StatusHealthy
}

// AverageLatency returns the mean latency over the recent window.
func (m *Monitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLocked()
}

func (m *Monitor) averageLocked() time.Duration {
	if len(m.latencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, l := range m.latencies {
		total += l
	}
	return total / time.Duration(len(m.latencies))
}

// ThrottleCounts returns the number of 429 and 403 responses seen so far.
func (m *Monitor) ThrottleCounts() (count429, count403 int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count429, m.count403
}
