package input

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"syslogfwd/internal/codec"
	"time"
)

// Accepts connections and feeds encoded messages to a sink until ctx is done
type Input interface {
	Accept(ctx context.Context, sink Sink, decoder codec.Decoder, encoder codec.Encoder) (err error)
}

// Consuming end of the pipeline as seen by producers
type Sink interface {
	PushBlocking(ctx context.Context, msg []byte) (success bool)
}

type Config struct {
	Type           string        // syslog-tcp or syslog-tls
	ListenAddr     string        // host:port
	Framing        string        // line, nul or syslen
	IdleTimeout    time.Duration // 0 disables
	MaxLineLength  int
	ReadBufferSize int
	ReusePort      bool
	TLS            TLSConfig
}

type TLSConfig struct {
	CertFile       string
	KeyFile        string
	PKCS12File     string
	PKCS12Password string
	CAFile         string
	VerifyPeer     bool
	MinVersion     string
	Ciphers        []string
}

type Instance struct {
	Namespace []string
	cfg       Config
	tlsConfig *tls.Config // nil for plaintext

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	ready    chan struct{} // closed once listening
	wg       sync.WaitGroup

	Metrics MetricStorage
}
