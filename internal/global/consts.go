package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion  string = "v0.3.0"
	ProgBaseName string = "syslogfwd"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/syslogfwd.toml"
	DefaultBinaryPath string = "/usr/local/bin/syslogfwd"
	DefaultUnitPath   string = "/etc/systemd/system/syslogfwd.service"

	// Input defaults
	InputTypeTCP          string        = "syslog-tcp"
	InputTypeTLS          string        = "syslog-tls"
	InputFormatRFC5424    string        = "rfc5424"
	DefaultInputType      string        = InputTypeTLS
	DefaultInputFormat    string        = InputFormatRFC5424
	DefaultTCPListenAddr  string        = "0.0.0.0:514"
	DefaultTLSListenAddr  string        = "0.0.0.0:6514"
	DefaultFraming        string        = "line"
	DefaultIdleTimeout    time.Duration = 1 * time.Hour
	DefaultMaxLineLength  int           = 1 << 20
	DefaultQueueSize      int           = 1 << 20
	DefaultTLSCertPath    string        = "/etc/ssl/certs/syslogfwd.pem"
	DefaultTLSKeyPath     string        = "/etc/ssl/private/syslogfwd.key"
	DefaultReadBufferSize int           = 64 * 1024

	// Output defaults
	OutputTypeKafka       string        = "kafka"
	OutputTypeBeats       string        = "beats"
	OutputTypeNATS        string        = "nats"
	OutputTypeRedis       string        = "redis"
	OutputFormatGELF      string        = "gelf"
	DefaultOutputType     string        = OutputTypeKafka
	DefaultOutputFormat   string        = OutputFormatGELF
	DefaultSendTimeout    time.Duration = 60 * time.Second
	DefaultConnectTimeout time.Duration = 30 * time.Second
	DefaultKafkaTopic     string        = "logs"
	DefaultKafkaAcks      string        = "local"
	DefaultKafkaCompress  string        = "none"
	DefaultKafkaClientID  string        = ProgBaseName
	DefaultNATSSubject    string        = "logs"
	DefaultRedisStream    string        = "logs"

	// Timeout values
	ShutdownTimeout   time.Duration = 20 * time.Second
	QueueDrainTimeout time.Duration = 10 * time.Second

	// Metric HTTP server
	DefaultMetricListenAddr string        = "localhost:9514"
	DefaultMetricPath       string        = "/metrics"
	HTTPReadTimeout         time.Duration = 30 * time.Second
	HTTPWriteTimeout        time.Duration = 10 * time.Second
	HTTPIdleTimeout         time.Duration = 180 * time.Second

	// Namespacing Name Components
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSFwd       string = "Forwarder"
	NSInput     string = "Input"
	NSConn      string = "Conn"
	NSOut       string = "Output"
	NSQueue     string = "Queue"
	NSWorker    string = "Worker"
	NSMetric    string = "Metrics"
	NSMetricSrv string = "Server"
	NSoKafka    string = "Kafka"
	NSoBeats    string = "Beats"
	NSoNATS     string = "NATS"
	NSoRedis    string = "Redis"
)
