package reconciler

import (
	"sort"
	"sync"
	"time"

	"jenkey/pkg/logging"
)

// Metrics counts remote operations issued during a run.
//
// Counters are kept per operation ("CreateJob", "DeleteJob", ...) so a
// summary can show where a run spent its calls and where it failed.
type Metrics struct {
	mu sync.Mutex

	ops map[string]*operationMetrics

	totalAttempts  int64
	totalSuccesses int64
	totalFailures  int64
}

type operationMetrics struct {
	attempts      int64
	successes     int64
	failures      int64
	lastFailureAt time.Time
	lastFailure   string
}

// NewMetrics creates empty metrics.
func NewMetrics() *Metrics {
	return &Metrics{ops: make(map[string]*operationMetrics)}
}

func (m *Metrics) op(name string) *operationMetrics {
	om, ok := m.ops[name]
	if !ok {
		om = &operationMetrics{}
		m.ops[name] = om
	}
	return om
}

// Record counts one call of op on name; err nil means success.
func (m *Metrics) Record(op, name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	om := m.op(op)
	om.attempts++
	m.totalAttempts++

	if err == nil {
		om.successes++
		m.totalSuccesses++
		return
	}

	om.failures++
	om.lastFailureAt = time.Now()
	om.lastFailure = name
	m.totalFailures++

	logging.Debug("ReconcilerMetrics", "%s failure for '%s' (failures: %d)", op, name, om.failures)
}

// MetricsSummary is a read-only snapshot of Metrics.
type MetricsSummary struct {
	TotalAttempts  int64           `yaml:"totalAttempts" json:"totalAttempts"`
	TotalSuccesses int64           `yaml:"totalSuccesses" json:"totalSuccesses"`
	TotalFailures  int64           `yaml:"totalFailures" json:"totalFailures"`
	FailureRate    float64         `yaml:"failureRate" json:"failureRate"`
	PerOperation   []OperationView `yaml:"perOperation" json:"perOperation"`
}

// OperationView is the snapshot of one operation's counters.
type OperationView struct {
	Operation     string    `yaml:"operation" json:"operation"`
	Attempts      int64     `yaml:"attempts" json:"attempts"`
	Successes     int64     `yaml:"successes" json:"successes"`
	Failures      int64     `yaml:"failures" json:"failures"`
	LastFailure   string    `yaml:"lastFailure,omitempty" json:"lastFailure,omitempty"`
	LastFailureAt time.Time `yaml:"lastFailureAt,omitempty" json:"lastFailureAt,omitempty"`
}

// Summary returns a snapshot sorted by operation name.
func (m *Metrics) Summary() MetricsSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := MetricsSummary{
		TotalAttempts:  m.totalAttempts,
		TotalSuccesses: m.totalSuccesses,
		TotalFailures:  m.totalFailures,
	}
	if m.totalAttempts > 0 {
		s.FailureRate = float64(m.totalFailures) / float64(m.totalAttempts)
	}
	for name, om := range m.ops {
		s.PerOperation = append(s.PerOperation, OperationView{
			Operation:     name,
			Attempts:      om.attempts,
			Successes:     om.successes,
			Failures:      om.failures,
			LastFailure:   om.lastFailure,
			LastFailureAt: om.lastFailureAt,
		})
	}
	sort.Slice(s.PerOperation, func(i, j int) bool {
		return s.PerOperation[i].Operation < s.PerOperation[j].Operation
	})
	return s
}

// Operation returns the snapshot for one operation.
func (s MetricsSummary) Operation(name string) (OperationView, bool) {
	for _, v := range s.PerOperation {
		if v.Operation == name {
			return v, true
		}
	}
	return OperationView{}, false
}
