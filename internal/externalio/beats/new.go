// Beats (lumberjack v2) output for Logstash style receivers
package beats

import (
	"fmt"
	"time"

	lumberjack "github.com/elastic/go-lumber/client/v2"
)

type Config struct {
	Endpoint    string
	Connections int           // clients kept open, one send per client at a time
	Compression int           // 0-9
	SendTimeout time.Duration // per batch acknowledgement timeout
}

// Clients are not safe for concurrent use, so each send borrows one
type Sink struct {
	endpoint string
	clients  chan *lumberjack.SyncClient
	dial     func() (*lumberjack.SyncClient, error)
}

// Creates new beats output module with cfg.Connections open clients
func New(cfg Config) (sink *Sink, err error) {
	if cfg.Endpoint == "" {
		err = fmt.Errorf("beats output needs an endpoint")
		return
	}
	if cfg.Connections < 1 {
		cfg.Connections = 1
	}
	if cfg.Compression < 0 || cfg.Compression > 9 {
		err = fmt.Errorf("beats compression level must be 0-9, got %d", cfg.Compression)
		return
	}
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	sink = &Sink{
		endpoint: cfg.Endpoint,
		clients:  make(chan *lumberjack.SyncClient, cfg.Connections),
		dial: func() (*lumberjack.SyncClient, error) {
			return lumberjack.SyncDial(cfg.Endpoint,
				lumberjack.CompressionLevel(cfg.Compression),
				lumberjack.Timeout(timeout),
			)
		},
	}

	for i := 0; i < cfg.Connections; i++ {
		var client *lumberjack.SyncClient
		client, err = sink.dial()
		if err != nil {
			sink.Close()
			sink = nil
			err = fmt.Errorf("failed connection to beats server: %w", err)
			return
		}
		sink.clients <- client
	}
	return
}
