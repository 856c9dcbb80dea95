package forwarder

import (
	"context"
	"net/http"
	"sync"
	"syslogfwd/internal/codec"
	"syslogfwd/internal/externalio/beats"
	"syslogfwd/internal/externalio/kafka"
	"syslogfwd/internal/externalio/nats"
	"syslogfwd/internal/externalio/redis"
	"syslogfwd/internal/input"
	"syslogfwd/internal/output"
	"syslogfwd/internal/queue/mpmc"
	"time"
)

// On-disk configuration. The same layout is accepted as TOML, YAML or JSON.
type FileConfig struct {
	Input struct {
		Type              string   `toml:"type" yaml:"type" json:"type"`
		Listen            string   `toml:"listen" yaml:"listen" json:"listen"`
		Format            string   `toml:"format" yaml:"format" json:"format"`
		Framing           string   `toml:"framing" yaml:"framing" json:"framing"`
		QueueSize         int      `toml:"queuesize" yaml:"queuesize" json:"queuesize"`
		Timeout           string   `toml:"timeout" yaml:"timeout" json:"timeout"`
		MaxLine           int      `toml:"max_line" yaml:"max_line" json:"max_line"`
		ReusePort         bool     `toml:"reuseport" yaml:"reuseport" json:"reuseport"`
		TLSCert           string   `toml:"tls_cert" yaml:"tls_cert" json:"tls_cert"`
		TLSKey            string   `toml:"tls_key" yaml:"tls_key" json:"tls_key"`
		TLSPKCS12         string   `toml:"tls_pkcs12" yaml:"tls_pkcs12" json:"tls_pkcs12"`
		TLSPKCS12Password string   `toml:"tls_pkcs12_password" yaml:"tls_pkcs12_password" json:"tls_pkcs12_password"`
		TLSCAFile         string   `toml:"tls_ca_file" yaml:"tls_ca_file" json:"tls_ca_file"`
		TLSVerifyPeer     bool     `toml:"tls_verify_peer" yaml:"tls_verify_peer" json:"tls_verify_peer"`
		TLSMinVersion     string   `toml:"tls_min_version" yaml:"tls_min_version" json:"tls_min_version"`
		TLSCiphers        []string `toml:"tls_ciphers" yaml:"tls_ciphers" json:"tls_ciphers"`
	} `toml:"input" yaml:"input" json:"input"`
	Output struct {
		Type             string                 `toml:"type" yaml:"type" json:"type"`
		Format           string                 `toml:"format" yaml:"format" json:"format"`
		Workers          int                    `toml:"workers" yaml:"workers" json:"workers"`
		SendTimeout      string                 `toml:"send_timeout" yaml:"send_timeout" json:"send_timeout"`
		ConnectTimeout   string                 `toml:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
		GELFExtra        map[string]interface{} `toml:"gelf_extra" yaml:"gelf_extra" json:"gelf_extra"`
		KafkaBrokers     []string               `toml:"kafka_brokers" yaml:"kafka_brokers" json:"kafka_brokers"`
		KafkaTopic       string                 `toml:"kafka_topic" yaml:"kafka_topic" json:"kafka_topic"`
		KafkaAcks        string                 `toml:"kafka_acks" yaml:"kafka_acks" json:"kafka_acks"`
		KafkaCompression string                 `toml:"kafka_compression" yaml:"kafka_compression" json:"kafka_compression"`
		KafkaCoalesce    int                    `toml:"kafka_coalesce" yaml:"kafka_coalesce" json:"kafka_coalesce"`
		KafkaClientID    string                 `toml:"kafka_client_id" yaml:"kafka_client_id" json:"kafka_client_id"`
		BeatsEndpoint    string                 `toml:"beats_endpoint" yaml:"beats_endpoint" json:"beats_endpoint"`
		BeatsConnections int                    `toml:"beats_connections" yaml:"beats_connections" json:"beats_connections"`
		NATSURL          string                 `toml:"nats_url" yaml:"nats_url" json:"nats_url"`
		NATSSubject      string                 `toml:"nats_subject" yaml:"nats_subject" json:"nats_subject"`
		RedisAddr        string                 `toml:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
		RedisPassword    string                 `toml:"redis_password" yaml:"redis_password" json:"redis_password"`
		RedisDB          int                    `toml:"redis_db" yaml:"redis_db" json:"redis_db"`
		RedisStream      string                 `toml:"redis_stream" yaml:"redis_stream" json:"redis_stream"`
		RedisMaxLen      int64                  `toml:"redis_maxlen" yaml:"redis_maxlen" json:"redis_maxlen"`
	} `toml:"output" yaml:"output" json:"output"`
	Metrics struct {
		Enabled bool   `toml:"enabled" yaml:"enabled" json:"enabled"`
		Listen  string `toml:"listen" yaml:"listen" json:"listen"`
		Path    string `toml:"path" yaml:"path" json:"path"`
	} `toml:"metrics" yaml:"metrics" json:"metrics"`
}

type Config struct {
	// Input
	Input       input.Config
	InputFormat string
	QueueSize   int

	// Output
	OutputType     string
	OutputFormat   string
	Workers        int
	SendTimeout    time.Duration
	ConnectTimeout time.Duration
	GELFExtra      map[string]interface{}
	Kafka          kafka.Config
	Beats          beats.Config
	NATS           nats.Config
	Redis          redis.Config

	// Metrics
	MetricServerEnabled bool
	MetricListenAddr    string
	MetricPath          string
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	inputCancel context.CancelFunc
	inputDone   chan struct{} // closed when Accept returns
	inputErr    error

	decoder codec.Decoder
	encoder codec.Encoder

	Input        *input.Instance
	Queue        *mpmc.Queue[[]byte]
	Pool         *output.Pool
	MetricServer *http.Server

	// Replaces broker dialing, used by tests
	dialSink func(ctx context.Context) (output.Sink, error)

	shutdownOnce sync.Once
}
