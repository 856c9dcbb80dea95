// Network listeners turning syslog streams into encoded pipeline messages
package input

import (
	"fmt"
	"net"
	"syslogfwd/internal/framing"
	"syslogfwd/internal/global"
)

// Creates new input from configuration. TLS material is loaded here so bad files fail startup.
func New(namespace []string, cfg Config) (new *Instance, err error) {
	_, err = framing.SplitFunc(cfg.Framing, cfg.MaxLineLength, nil)
	if err != nil {
		return
	}
	if cfg.MaxLineLength <= 0 {
		err = fmt.Errorf("maximum line length must be positive")
		return
	}
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = global.DefaultReadBufferSize
	}

	ns := make([]string, 0, len(namespace)+1)
	ns = append(ns, namespace...)
	ns = append(ns, global.NSInput)

	new = &Instance{
		Namespace: ns,
		cfg:       cfg,
		conns:     make(map[net.Conn]struct{}),
		ready:     make(chan struct{}),
	}

	switch cfg.Type {
	case global.InputTypeTCP:
	case global.InputTypeTLS:
		new.tlsConfig, err = NewTLSConfig(cfg.TLS)
		if err != nil {
			new = nil
			err = fmt.Errorf("failed loading TLS configuration: %w", err)
			return
		}
	default:
		new = nil
		err = fmt.Errorf("unknown input type %q", cfg.Type)
		return
	}
	return
}

// Listening address, blocks until Accept has bound the socket
func (instance *Instance) Addr() (addr net.Addr) {
	<-instance.ready
	instance.mu.Lock()
	defer instance.mu.Unlock()
	if instance.listener != nil {
		addr = instance.listener.Addr()
	}
	return
}
