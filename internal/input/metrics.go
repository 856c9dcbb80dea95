package input

import (
	"io"
	"syslogfwd/internal/metrics"
	"sync/atomic"
)

type MetricStorage struct {
	ConnsAccepted     atomic.Uint64 // connections accepted
	ConnsActive       atomic.Uint64 // connections currently open
	ConnErrors        atomic.Uint64 // connections that ended on a read error
	HandshakeFailures atomic.Uint64 // TLS handshakes that failed
	BytesReceived     atomic.Uint64 // raw bytes read from connections
	LinesReceived     atomic.Uint64 // framed lines read
	LinesOversized    atomic.Uint64 // lines dropped for exceeding the maximum length
	DecodeErrors      atomic.Uint64 // lines dropped by the decoder
	EncodeErrors      atomic.Uint64 // records dropped by the encoder
	MessagesPushed    atomic.Uint64 // messages handed to the queue
	MessagesDropped   atomic.Uint64 // messages abandoned while waiting for queue space at shutdown
}

// Counts bytes passing through a reader
type countingReader struct {
	reader io.Reader
	count  *atomic.Uint64
}

func (counter *countingReader) Read(p []byte) (n int, err error) {
	n, err = counter.reader.Read(p)
	if n > 0 {
		counter.count.Add(uint64(n))
	}
	return
}

func (instance *Instance) CollectMetrics() (collection []metrics.Metric) {
	add := func(name string, raw uint64, unit string, t metrics.MetricType, description string) {
		collection = append(collection, metrics.Metric{
			Name:        name,
			Description: description,
			Namespace:   instance.Namespace,
			Type:        t,
			Value: metrics.MetricValue{
				Raw:  raw,
				Unit: unit,
			},
		})
	}

	add("connections_accepted", instance.Metrics.ConnsAccepted.Load(), "count", metrics.Counter, "Connections accepted")
	add("connections_active", instance.Metrics.ConnsActive.Load(), "count", metrics.Gauge, "Connections currently open")
	add("connection_errors", instance.Metrics.ConnErrors.Load(), "count", metrics.Counter, "Connections that ended on a read error")
	add("tls_handshake_failures", instance.Metrics.HandshakeFailures.Load(), "count", metrics.Counter, "Failed TLS handshakes")
	add("received", instance.Metrics.BytesReceived.Load(), "bytes", metrics.Counter, "Bytes read from connections")
	add("lines_received", instance.Metrics.LinesReceived.Load(), "count", metrics.Counter, "Framed lines read from connections")
	add("lines_oversized", instance.Metrics.LinesOversized.Load(), "count", metrics.Counter, "Lines dropped because they exceeded the maximum length")
	add("decode_errors", instance.Metrics.DecodeErrors.Load(), "count", metrics.Counter, "Lines dropped because they could not be decoded")
	add("encode_errors", instance.Metrics.EncodeErrors.Load(), "count", metrics.Counter, "Records dropped because they could not be encoded")
	add("messages_queued", instance.Metrics.MessagesPushed.Load(), "count", metrics.Counter, "Messages handed to the queue")
	add("messages_abandoned", instance.Metrics.MessagesDropped.Load(), "count", metrics.Counter, "Messages abandoned at shutdown while the queue was full")
	return
}
