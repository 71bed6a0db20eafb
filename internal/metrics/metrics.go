package metrics

import "sync/atomic"

// MetricID indexes one counter in the in-process metrics block.
type MetricID int

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginUnverified
	MetricRefreshSuccess
	MetricRefreshUnauthorized
	MetricRefreshReplayBlocked
	MetricLogout
	MetricLogoutAll
	MetricVerifySuccess
	MetricVerifyFailure
	MetricSocialLoginSuccess
	MetricSocialConsentRequired
	MetricSessionCreated

	MetricIDCount
)

// Config toggles the whole block. Disabled metrics are no-ops with zero
// cost beyond a branch.
type Config struct {
	Enabled bool
}

// Metrics is a fixed block of lock-free counters. Safe for concurrent
// use from every engine operation.
type Metrics struct {
	enabled  bool
	counters [MetricIDCount]atomic.Uint64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Counters [MetricIDCount]uint64
}

// New creates a Metrics block.
func New(cfg Config) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc adds one to a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Get reads one counter.
func (m *Metrics) Get(id MetricID) uint64 {
	if m == nil || !m.enabled || id < 0 || id >= MetricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot deep-copies every counter.
func (m *Metrics) Snapshot() Snapshot {
	var snap Snapshot
	if m == nil || !m.enabled {
		return snap
	}
	for i := range m.counters {
		snap.Counters[i] = m.counters[i].Load()
	}
	return snap
}
