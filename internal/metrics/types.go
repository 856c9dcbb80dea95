package metrics

import "sync"

type MetricType string

const (
	Counter MetricType = "counter" // always increasing
	Gauge   MetricType = "gauge"   // can go up/down
)

// Container for a metric and associated data
type Metric struct {
	Name        string // e.g. lines_received, queue_depth
	Description string
	Namespace   []string // e.g. "Forwarder/Input"
	Value       MetricValue
	Type        MetricType
}

// Specific value of a metric
type MetricValue struct {
	Raw  interface{} // uint64, int64, int, float64
	Unit string      // e.g., "bytes", "count"
}

// Anything that can report its own counters
type Source interface {
	CollectMetrics() []Metric
}

// Bridges pipeline metric sources into a prometheus registry
type Collector struct {
	prefix  string
	mu      sync.RWMutex
	sources []Source
}
