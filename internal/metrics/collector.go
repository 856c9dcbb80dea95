// Exposes counters kept by pipeline components as prometheus metrics
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Creates new collector, metric names are prefixed with prefix_
func NewCollector(prefix string, sources ...Source) (new *Collector) {
	new = &Collector{
		prefix:  prefix,
		sources: sources,
	}
	return
}

// Adds another source to be read on every scrape
func (collector *Collector) Add(source Source) {
	if source == nil {
		return
	}
	collector.mu.Lock()
	defer collector.mu.Unlock()
	collector.sources = append(collector.sources, source)
}

// Unchecked collector: metric set depends on configured components
func (collector *Collector) Describe(ch chan<- *prometheus.Desc) {}

func (collector *Collector) Collect(ch chan<- prometheus.Metric) {
	collector.mu.RLock()
	sources := append([]Source(nil), collector.sources...)
	collector.mu.RUnlock()

	for _, source := range sources {
		for _, metric := range source.CollectMetrics() {
			value, ok := toFloat(metric.Value.Raw)
			if !ok {
				continue
			}

			valueType := prometheus.GaugeValue
			if metric.Type == Counter {
				valueType = prometheus.CounterValue
			}

			desc := prometheus.NewDesc(
				collector.fqName(metric),
				metric.Description,
				nil,
				prometheus.Labels{"component": strings.Join(metric.Namespace, "/")},
			)

			promMetric, err := prometheus.NewConstMetric(desc, valueType, value)
			if err != nil {
				continue
			}
			ch <- promMetric
		}
	}
}

// Full metric name, counters get the conventional _total suffix
func (collector *Collector) fqName(metric Metric) (name string) {
	name = metric.Name
	if metric.Value.Unit == "bytes" && !strings.HasSuffix(name, "_bytes") {
		name += "_bytes"
	}
	if metric.Type == Counter && !strings.HasSuffix(name, "_total") {
		name += "_total"
	}
	if collector.prefix != "" {
		name = collector.prefix + "_" + name
	}
	return
}

func toFloat(raw interface{}) (value float64, ok bool) {
	ok = true
	switch v := raw.(type) {
	case uint64:
		value = float64(v)
	case int64:
		value = float64(v)
	case int:
		value = float64(v)
	case uint32:
		value = float64(v)
	case float64:
		value = v
	default:
		ok = false
	}
	return
}
