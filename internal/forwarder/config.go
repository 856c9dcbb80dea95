package forwarder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"syslogfwd/internal/externalio/kafka"
	"syslogfwd/internal/framing"
	"syslogfwd/internal/global"
	"syslogfwd/internal/input"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Matches $ENV{NAME} and $ENV{NAME:default}
var envPattern = regexp.MustCompile(`\$ENV\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// Loads config from file. Format follows the extension, anything unknown is read as TOML.
func LoadConfig(path string) (cfg FileConfig, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		err = fatal("failed to read config file", err)
		return
	}

	cfg, err = ParseConfig(raw, filepath.Ext(path))
	if err != nil {
		err = fatal(fmt.Sprintf("invalid config syntax in '%s'", path), err)
		return
	}
	return
}

// Decodes raw config text in the format named by ext (".toml", ".yaml", ".yml" or ".json")
func ParseConfig(raw []byte, ext string) (cfg FileConfig, err error) {
	raw = ReplaceEnv(raw)

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		decoder := yaml.NewDecoder(bytes.NewReader(raw))
		decoder.KnownFields(true)
		err = decoder.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			// Empty document, everything defaulted
			err = nil
		}
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(raw)))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&cfg)
	default:
		var meta toml.MetaData
		meta, err = toml.Decode(string(raw), &cfg)
		if err != nil {
			return
		}
		undecoded := meta.Undecoded()
		if len(undecoded) > 0 {
			keys := make([]string, 0, len(undecoded))
			for _, key := range undecoded {
				keys = append(keys, key.String())
			}
			err = fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
		}
	}
	return
}

// Substitutes $ENV{NAME:default} references from the environment.
// An unset or empty variable takes the default, which may be empty.
func ReplaceEnv(raw []byte) (out []byte) {
	out = envPattern.ReplaceAllFunc(raw, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := os.Getenv(string(parts[1]))
		if value == "" {
			return parts[2]
		}
		return []byte(value)
	})
	return
}

// Parses file config into daemon config. Every returned error is a FatalError.
func (cfg FileConfig) NewDaemonConf() (config Config, err error) {
	// Input settings
	config.Input = input.Config{
		Type:          strings.ToLower(cfg.Input.Type),
		ListenAddr:    cfg.Input.Listen,
		Framing:       strings.ToLower(cfg.Input.Framing),
		MaxLineLength: cfg.Input.MaxLine,
		ReusePort:     cfg.Input.ReusePort,
		TLS: input.TLSConfig{
			CertFile:       cfg.Input.TLSCert,
			KeyFile:        cfg.Input.TLSKey,
			PKCS12File:     cfg.Input.TLSPKCS12,
			PKCS12Password: cfg.Input.TLSPKCS12Password,
			CAFile:         cfg.Input.TLSCAFile,
			VerifyPeer:     cfg.Input.TLSVerifyPeer,
			MinVersion:     cfg.Input.TLSMinVersion,
			Ciphers:        cfg.Input.TLSCiphers,
		},
	}
	if config.Input.Type == "" {
		config.Input.Type = global.DefaultInputType
	}
	switch config.Input.Type {
	case global.InputTypeTCP, global.InputTypeTLS:
	default:
		err = fatal(fmt.Sprintf("unsupported input type %q", cfg.Input.Type), nil)
		return
	}

	config.InputFormat = strings.ToLower(cfg.Input.Format)
	if config.InputFormat == "" {
		config.InputFormat = global.DefaultInputFormat
	}
	if config.InputFormat != global.InputFormatRFC5424 {
		err = fatal(fmt.Sprintf("unsupported input format %q", cfg.Input.Format), nil)
		return
	}

	if config.Input.Framing == "" {
		config.Input.Framing = global.DefaultFraming
	}
	_, err = framing.SplitFunc(config.Input.Framing, 1, nil)
	if err != nil {
		err = fatal("invalid input framing", err)
		return
	}

	if cfg.Input.QueueSize < 0 {
		err = fatal(fmt.Sprintf("queue size cannot be negative, got %d", cfg.Input.QueueSize), nil)
		return
	}
	config.QueueSize = cfg.Input.QueueSize

	if cfg.Input.MaxLine < 0 {
		err = fatal(fmt.Sprintf("maximum line length cannot be negative, got %d", cfg.Input.MaxLine), nil)
		return
	}

	config.Input.IdleTimeout = global.DefaultIdleTimeout
	if cfg.Input.Timeout != "" {
		config.Input.IdleTimeout, err = parseDuration(cfg.Input.Timeout)
		if err != nil {
			err = fatal("failed to parse input idle timeout", err)
			return
		}
	}

	// Output settings
	config.OutputType = strings.ToLower(cfg.Output.Type)
	if config.OutputType == "" {
		config.OutputType = global.DefaultOutputType
	}
	switch config.OutputType {
	case global.OutputTypeKafka, global.OutputTypeBeats, global.OutputTypeNATS, global.OutputTypeRedis:
	default:
		err = fatal(fmt.Sprintf("unsupported output type %q", cfg.Output.Type), nil)
		return
	}

	config.OutputFormat = strings.ToLower(cfg.Output.Format)
	if config.OutputFormat == "" {
		config.OutputFormat = global.DefaultOutputFormat
	}
	if config.OutputFormat != global.OutputFormatGELF {
		err = fatal(fmt.Sprintf("unsupported output format %q", cfg.Output.Format), nil)
		return
	}

	if cfg.Output.Workers < 0 {
		err = fatal(fmt.Sprintf("worker count cannot be negative, got %d", cfg.Output.Workers), nil)
		return
	}
	config.Workers = cfg.Output.Workers
	config.GELFExtra = cfg.Output.GELFExtra

	if cfg.Output.SendTimeout != "" {
		config.SendTimeout, err = parseDuration(cfg.Output.SendTimeout)
		if err != nil {
			err = fatal("failed to parse output send timeout", err)
			return
		}
		// Unlike the idle timeout, sends are always bounded
		if config.SendTimeout == 0 {
			err = fatal("output send timeout must be positive, it cannot be disabled", nil)
			return
		}
	}
	if cfg.Output.ConnectTimeout != "" {
		config.ConnectTimeout, err = parseDuration(cfg.Output.ConnectTimeout)
		if err != nil {
			err = fatal("failed to parse output connect timeout", err)
			return
		}
		if config.ConnectTimeout == 0 {
			err = fatal("output connect timeout must be positive, it cannot be disabled", nil)
			return
		}
	}

	config.Kafka.Brokers = cfg.Output.KafkaBrokers
	config.Kafka.Topic = cfg.Output.KafkaTopic
	config.Kafka.Acks = strings.ToLower(cfg.Output.KafkaAcks)
	config.Kafka.Compression = strings.ToLower(cfg.Output.KafkaCompression)
	config.Kafka.Coalesce = cfg.Output.KafkaCoalesce
	config.Kafka.ClientID = cfg.Output.KafkaClientID

	config.Beats.Endpoint = cfg.Output.BeatsEndpoint
	config.Beats.Connections = cfg.Output.BeatsConnections

	config.NATS.URL = cfg.Output.NATSURL
	config.NATS.Subject = cfg.Output.NATSSubject

	config.Redis.Addr = cfg.Output.RedisAddr
	config.Redis.Password = cfg.Output.RedisPassword
	config.Redis.DB = cfg.Output.RedisDB
	config.Redis.Stream = cfg.Output.RedisStream
	config.Redis.MaxLen = cfg.Output.RedisMaxLen

	// Metric settings
	config.MetricServerEnabled = cfg.Metrics.Enabled
	config.MetricListenAddr = cfg.Metrics.Listen
	config.MetricPath = cfg.Metrics.Path

	config.setDefaults()

	err = config.validateOutput()
	if err != nil {
		err = fatal("invalid output configuration", err)
		return
	}
	return
}

// Sets defaults for any missing values
func (cfg *Config) setDefaults() {
	// Input
	if cfg.Input.ListenAddr == "" {
		if cfg.Input.Type == global.InputTypeTCP {
			cfg.Input.ListenAddr = global.DefaultTCPListenAddr
		} else {
			cfg.Input.ListenAddr = global.DefaultTLSListenAddr
		}
	}
	if cfg.Input.Type == global.InputTypeTLS && cfg.Input.TLS.PKCS12File == "" {
		if cfg.Input.TLS.CertFile == "" {
			cfg.Input.TLS.CertFile = global.DefaultTLSCertPath
		}
		if cfg.Input.TLS.KeyFile == "" {
			cfg.Input.TLS.KeyFile = global.DefaultTLSKeyPath
		}
	}
	if cfg.Input.MaxLineLength == 0 {
		cfg.Input.MaxLineLength = global.DefaultMaxLineLength
	}
	if cfg.Input.ReadBufferSize == 0 {
		cfg.Input.ReadBufferSize = global.DefaultReadBufferSize
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = global.DefaultQueueSize
	}

	// Output
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SendTimeout == 0 {
		cfg.SendTimeout = global.DefaultSendTimeout
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = global.DefaultConnectTimeout
	}

	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = global.DefaultKafkaTopic
	}
	if cfg.Kafka.Acks == "" {
		cfg.Kafka.Acks = global.DefaultKafkaAcks
	}
	if cfg.Kafka.Compression == "" {
		cfg.Kafka.Compression = global.DefaultKafkaCompress
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = global.DefaultKafkaClientID
	}
	cfg.Kafka.SendTimeout = cfg.SendTimeout

	if cfg.Beats.Connections == 0 {
		cfg.Beats.Connections = cfg.Workers
	}
	cfg.Beats.SendTimeout = cfg.SendTimeout

	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = global.DefaultNATSSubject
	}
	cfg.NATS.SendTimeout = cfg.SendTimeout

	if cfg.Redis.Stream == "" {
		cfg.Redis.Stream = global.DefaultRedisStream
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = cfg.Workers
	}
	cfg.Redis.SendTimeout = cfg.SendTimeout

	// Metrics
	if cfg.MetricListenAddr == "" {
		cfg.MetricListenAddr = global.DefaultMetricListenAddr
	}
	if cfg.MetricPath == "" {
		cfg.MetricPath = global.DefaultMetricPath
	}
}

// Rejects input and output selections this daemon cannot serve
func (cfg *Config) validate() (err error) {
	switch cfg.Input.Type {
	case global.InputTypeTCP, global.InputTypeTLS:
	default:
		err = fatal(fmt.Sprintf("unsupported input type %q", cfg.Input.Type), nil)
		return
	}
	if cfg.InputFormat != global.InputFormatRFC5424 {
		err = fatal(fmt.Sprintf("unsupported input format %q", cfg.InputFormat), nil)
		return
	}
	if cfg.OutputFormat != global.OutputFormatGELF {
		err = fatal(fmt.Sprintf("unsupported output format %q", cfg.OutputFormat), nil)
		return
	}
	return
}

// Checks the selected broker has what it needs to connect
func (cfg *Config) validateOutput() (err error) {
	switch cfg.OutputType {
	case global.OutputTypeKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			err = fmt.Errorf("kafka output needs at least one broker in kafka_brokers")
			return
		}
		_, err = kafka.NewSaramaConfig(cfg.Kafka)
	case global.OutputTypeBeats:
		if cfg.Beats.Endpoint == "" {
			err = fmt.Errorf("beats output needs beats_endpoint")
		}
	case global.OutputTypeNATS:
		if cfg.NATS.URL == "" {
			err = fmt.Errorf("nats output needs nats_url")
		}
	case global.OutputTypeRedis:
		if cfg.Redis.Addr == "" {
			err = fmt.Errorf("redis output needs redis_addr")
		}
	}
	return
}

// Like time.ParseDuration but rejects negative values
func parseDuration(text string) (duration time.Duration, err error) {
	duration, err = time.ParseDuration(strings.TrimSpace(text))
	if err == nil && duration < 0 {
		err = fmt.Errorf("duration %q cannot be negative", text)
	}
	return
}
