package forwarder

import (
	"os"
	"path/filepath"
	"runtime"
	"syslogfwd/internal/global"
	"testing"
	"time"
)

func TestParseConfig_Formats(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		raw  string
	}{
		{
			name: "TOML",
			ext:  ".toml",
			raw: `
[input]
type = "syslog-tcp"
listen = "127.0.0.1:5514"
framing = "syslen"
queuesize = 16
timeout = "30s"

[output]
type = "kafka"
workers = 3
kafka_brokers = ["k1:9092", "k2:9092"]
kafka_topic = "syslog"
kafka_acks = "all"

[output.gelf_extra]
env = "prod"

[metrics]
enabled = true
`,
		},
		{
			name: "YAML",
			ext:  ".yml",
			raw: `
input:
  type: syslog-tcp
  listen: 127.0.0.1:5514
  framing: syslen
  queuesize: 16
  timeout: 30s
output:
  type: kafka
  workers: 3
  kafka_brokers: ["k1:9092", "k2:9092"]
  kafka_topic: syslog
  kafka_acks: all
  gelf_extra:
    env: prod
metrics:
  enabled: true
`,
		},
		{
			name: "JSONWithComments",
			ext:  ".json",
			raw: `{
  // listener
  "input": {
    "type": "syslog-tcp",
    "listen": "127.0.0.1:5514",
    "framing": "syslen",
    "queuesize": 16,
    "timeout": "30s",
  },
  /* broker */
  "output": {
    "type": "kafka",
    "workers": 3,
    "kafka_brokers": ["k1:9092", "k2:9092"],
    "kafka_topic": "syslog",
    "kafka_acks": "all",
    "gelf_extra": {"env": "prod"}
  },
  "metrics": {"enabled": true}
}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileCfg, err := ParseConfig([]byte(tt.raw), tt.ext)
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			cfg, err := fileCfg.NewDaemonConf()
			if err != nil {
				t.Fatalf("unexpected conversion error: %v", err)
			}

			if cfg.Input.Type != global.InputTypeTCP {
				t.Errorf("input type: got %q", cfg.Input.Type)
			}
			if cfg.Input.ListenAddr != "127.0.0.1:5514" {
				t.Errorf("listen: got %q", cfg.Input.ListenAddr)
			}
			if cfg.Input.Framing != "syslen" {
				t.Errorf("framing: got %q", cfg.Input.Framing)
			}
			if cfg.QueueSize != 16 {
				t.Errorf("queue size: got %d", cfg.QueueSize)
			}
			if cfg.Input.IdleTimeout != 30*time.Second {
				t.Errorf("idle timeout: got %v", cfg.Input.IdleTimeout)
			}
			if cfg.Workers != 3 {
				t.Errorf("workers: got %d", cfg.Workers)
			}
			if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
				t.Errorf("brokers: got %v", cfg.Kafka.Brokers)
			}
			if cfg.Kafka.Topic != "syslog" || cfg.Kafka.Acks != "all" {
				t.Errorf("kafka topic/acks: got %q/%q", cfg.Kafka.Topic, cfg.Kafka.Acks)
			}
			if cfg.GELFExtra["env"] != "prod" {
				t.Errorf("gelf extra: got %v", cfg.GELFExtra)
			}
			if !cfg.MetricServerEnabled || cfg.MetricListenAddr != global.DefaultMetricListenAddr {
				t.Errorf("metrics: enabled=%v listen=%q", cfg.MetricServerEnabled, cfg.MetricListenAddr)
			}
		})
	}
}

func TestNewDaemonConf_Defaults(t *testing.T) {
	fileCfg, err := ParseConfig([]byte("[output]\nkafka_brokers = [\"localhost:9092\"]\n"), ".toml")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	cfg, err := fileCfg.NewDaemonConf()
	if err != nil {
		t.Fatalf("unexpected conversion error: %v", err)
	}

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"InputType", cfg.Input.Type, global.InputTypeTLS},
		{"ListenAddr", cfg.Input.ListenAddr, global.DefaultTLSListenAddr},
		{"InputFormat", cfg.InputFormat, global.InputFormatRFC5424},
		{"Framing", cfg.Input.Framing, global.DefaultFraming},
		{"IdleTimeout", cfg.Input.IdleTimeout, global.DefaultIdleTimeout},
		{"MaxLine", cfg.Input.MaxLineLength, global.DefaultMaxLineLength},
		{"QueueSize", cfg.QueueSize, global.DefaultQueueSize},
		{"CertFile", cfg.Input.TLS.CertFile, global.DefaultTLSCertPath},
		{"OutputType", cfg.OutputType, global.OutputTypeKafka},
		{"OutputFormat", cfg.OutputFormat, global.OutputFormatGELF},
		{"Workers", cfg.Workers, runtime.NumCPU()},
		{"SendTimeout", cfg.SendTimeout, global.DefaultSendTimeout},
		{"KafkaSendTimeout", cfg.Kafka.SendTimeout, global.DefaultSendTimeout},
		{"ConnectTimeout", cfg.ConnectTimeout, global.DefaultConnectTimeout},
		{"KafkaTopic", cfg.Kafka.Topic, global.DefaultKafkaTopic},
		{"KafkaAcks", cfg.Kafka.Acks, global.DefaultKafkaAcks},
		{"MetricPath", cfg.MetricPath, global.DefaultMetricPath},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestNewDaemonConf_TCPDefaultListen(t *testing.T) {
	fileCfg, err := ParseConfig([]byte("input:\n  type: syslog-tcp\n  timeout: \"0\"\noutput:\n  type: nats\n  nats_url: nats://localhost:4222\n"), ".yaml")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	cfg, err := fileCfg.NewDaemonConf()
	if err != nil {
		t.Fatalf("unexpected conversion error: %v", err)
	}
	if cfg.Input.ListenAddr != global.DefaultTCPListenAddr {
		t.Fatalf("expected %q, got %q", global.DefaultTCPListenAddr, cfg.Input.ListenAddr)
	}
	if cfg.Input.IdleTimeout != 0 {
		t.Fatalf("expected disabled idle timeout, got %v", cfg.Input.IdleTimeout)
	}
	if cfg.NATS.Subject != global.DefaultNATSSubject {
		t.Fatalf("expected default subject, got %q", cfg.NATS.Subject)
	}
}

func TestNewDaemonConf_Fatal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"UDPInput", "[input]\ntype = \"syslog-udp\"\n"},
		{"UnknownInputFormat", "[input]\nformat = \"rfc3164\"\n"},
		{"UnknownFraming", "[input]\nframing = \"crlf\"\n"},
		{"NegativeQueue", "[input]\nqueuesize = -1\n"},
		{"BadTimeout", "[input]\ntimeout = \"soon\"\n"},
		{"NegativeTimeout", "[input]\ntimeout = \"-1s\"\n"},
		{"UnknownOutputType", "[output]\ntype = \"amqp\"\n"},
		{"UnknownOutputFormat", "[output]\nformat = \"ltsv\"\nkafka_brokers = [\"k:9092\"]\n"},
		{"KafkaWithoutBrokers", "[output]\ntype = \"kafka\"\n"},
		{"KafkaBadAcks", "[output]\nkafka_brokers = [\"k:9092\"]\nkafka_acks = \"some\"\n"},
		{"BeatsWithoutEndpoint", "[output]\ntype = \"beats\"\n"},
		{"RedisWithoutAddr", "[output]\ntype = \"redis\"\n"},
		{"ZeroSendTimeout", "[output]\nkafka_brokers = [\"k:9092\"]\nsend_timeout = \"0\"\n"},
		{"ZeroConnectTimeout", "[output]\nkafka_brokers = [\"k:9092\"]\nconnect_timeout = \"0s\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileCfg, err := ParseConfig([]byte(tt.raw), ".toml")
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			_, err = fileCfg.NewDaemonConf()
			if err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !IsFatal(err) {
				t.Fatalf("expected fatal error, got %T: %v", err, err)
			}
		})
	}
}

func TestParseConfig_UnknownKeys(t *testing.T) {
	tests := []struct {
		name string
		ext  string
		raw  string
	}{
		{"TOML", ".toml", "[input]\nlisten_addr = \"x\"\n"},
		{"YAML", ".yaml", "input:\n  listen_addr: x\n"},
		{"JSON", ".json", `{"input": {"listen_addr": "x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.raw), tt.ext)
			if err == nil {
				t.Fatalf("expected unknown key error, got nil")
			}
		})
	}
}

func TestReplaceEnv(t *testing.T) {
	t.Setenv("SYSLOGFWD_TEST_TOPIC", "audit")
	t.Setenv("SYSLOGFWD_TEST_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"SetVariable", `topic = "$ENV{SYSLOGFWD_TEST_TOPIC:logs}"`, `topic = "audit"`},
		{"DefaultUsed", `topic = "$ENV{SYSLOGFWD_TEST_UNSET:logs}"`, `topic = "logs"`},
		{"EmptyFallsBack", `topic = "$ENV{SYSLOGFWD_TEST_EMPTY:logs}"`, `topic = "logs"`},
		{"NoDefault", `topic = "$ENV{SYSLOGFWD_TEST_UNSET}"`, `topic = ""`},
		{"DefaultWithColon", `addr = "$ENV{SYSLOGFWD_TEST_UNSET:localhost:9092}"`, `addr = "localhost:9092"`},
		{"Multiple", `$ENV{SYSLOGFWD_TEST_TOPIC}-$ENV{SYSLOGFWD_TEST_TOPIC}`, `audit-audit`},
		{"Untouched", `topic = "$HOME"`, `topic = "$HOME"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(ReplaceEnv([]byte(tt.input)))
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SYSLOGFWD_TEST_BROKER", "broker.internal:9092")

	dir := t.TempDir()
	path := filepath.Join(dir, "syslogfwd.toml")
	raw := "[output]\nkafka_brokers = [\"$ENV{SYSLOGFWD_TEST_BROKER:localhost:9092}\"]\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("failed writing config: %v", err)
	}

	fileCfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fileCfg.Output.KafkaBrokers) != 1 || fileCfg.Output.KafkaBrokers[0] != "broker.internal:9092" {
		t.Fatalf("unexpected brokers %v", fileCfg.Output.KafkaBrokers)
	}

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	if !IsFatal(err) {
		t.Fatalf("expected fatal error for missing file, got %v", err)
	}

	badPath := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badPath, []byte("input: [unclosed"), 0o600); err != nil {
		t.Fatalf("failed writing config: %v", err)
	}
	_, err = LoadConfig(badPath)
	if !IsFatal(err) {
		t.Fatalf("expected fatal error for bad syntax, got %v", err)
	}
}
