package input

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"net"
	"syslogfwd/internal/global"
	"testing"
	"time"
)

func TestAccept_TCPLines(t *testing.T) {
	instance, err := New([]string{global.NSTest}, baseConfig(global.InputTypeTCP))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := newChanSink()
	addr, stop := startInput(t, instance, sink)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	lines := validLine + "\n" +
		"not a syslog line\n" +
		"<13>1 2024-01-02T03:04:05Z host app - - [x@1 k=\"v\"] second\r\n"
	if _, err := conn.Write([]byte(lines)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	msgs := sink.expect(t, 2)
	sink.expectNone(t, 50*time.Millisecond)
	conn.Close()

	var first map[string]interface{}
	if err := json.Unmarshal(msgs[0], &first); err != nil {
		t.Fatalf("first message is not JSON: %v", err)
	}
	if first["short_message"] != "'su root' failed for lonvick on /dev/pts/8" {
		t.Fatalf("unexpected first message %s", msgs[0])
	}
	if !bytes.Contains(msgs[1], []byte(`"_k":"v"`)) {
		t.Fatalf("second message misses SD pair: %s", msgs[1])
	}

	if err := stop(); err != nil {
		t.Fatalf("Accept returned error on cancellation: %v", err)
	}

	if got := instance.Metrics.DecodeErrors.Load(); got != 1 {
		t.Fatalf("decode errors = %d, want 1", got)
	}
	if got := instance.Metrics.MessagesPushed.Load(); got != 2 {
		t.Fatalf("messages pushed = %d, want 2", got)
	}
	if got := instance.Metrics.LinesReceived.Load(); got != 3 {
		t.Fatalf("lines received = %d, want 3", got)
	}
}

func TestAccept_PeerResetIsolated(t *testing.T) {
	instance, err := New([]string{global.NSTest}, baseConfig(global.InputTypeTCP))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := newChanSink()
	addr, stop := startInput(t, instance, sink)
	defer stop()

	healthy, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer healthy.Close()

	broken, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	// Half a line then RST
	broken.Write([]byte("<34>1 2003-10-11T22:14:15.003Z host"))
	broken.(*net.TCPConn).SetLinger(0)
	broken.Close()

	time.Sleep(50 * time.Millisecond)

	if _, err := healthy.Write([]byte(validLine + "\n")); err != nil {
		t.Fatalf("write on healthy connection failed: %v", err)
	}
	sink.expect(t, 1)

	if _, err := healthy.Write([]byte(validLine + "\n")); err != nil {
		t.Fatalf("second write on healthy connection failed: %v", err)
	}
	sink.expect(t, 1)
}

func TestAccept_IdleTimeout(t *testing.T) {
	cfg := baseConfig(global.InputTypeTCP)
	cfg.IdleTimeout = 50 * time.Millisecond
	instance, err := New([]string{global.NSTest}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	addr, stop := startInput(t, instance, newChanSink())
	defer stop()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// Server hangs up on the silent client
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatalf("expected connection to be closed by server")
	} else if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		t.Fatalf("server did not close idle connection")
	}
}

func TestAccept_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer occupied.Close()

	cfg := baseConfig(global.InputTypeTCP)
	cfg.ListenAddr = occupied.Addr().String()
	instance, err := New([]string{global.NSTest}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = instance.Accept(t.Context(), newChanSink(), nil, nil)
	if err == nil {
		t.Fatalf("expected bind error on occupied port")
	}
	if instance.Addr() != nil {
		t.Fatalf("expected no address after failed bind")
	}
}

func TestAccept_TLS(t *testing.T) {
	certPath, keyPath := writeSelfSignedCert(t)

	cfg := baseConfig(global.InputTypeTLS)
	cfg.TLS = TLSConfig{CertFile: certPath, KeyFile: keyPath}
	instance, err := New([]string{global.NSTest}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := newChanSink()
	addr, stop := startInput(t, instance, sink)
	defer stop()

	// Plaintext client fails the handshake without affecting others
	plain, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	plain.Write([]byte(validLine + "\n"))

	client, err := tls.Dial("tcp", addr, &tls.Config{InsecureSkipVerify: true})
	if err != nil {
		t.Fatalf("tls dial failed: %v", err)
	}
	defer client.Close()

	if _, err := client.Write([]byte(validLine + "\n")); err != nil {
		t.Fatalf("tls write failed: %v", err)
	}
	msgs := sink.expect(t, 1)
	if !bytes.Contains(msgs[0], []byte(`"host":"mymachine.example.com"`)) {
		t.Fatalf("unexpected message: %s", msgs[0])
	}

	plain.Close()
	deadline := time.Now().Add(2 * time.Second)
	for instance.Metrics.HandshakeFailures.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if instance.Metrics.HandshakeFailures.Load() != 1 {
		t.Fatalf("expected 1 handshake failure, got %d", instance.Metrics.HandshakeFailures.Load())
	}
	sink.expectNone(t, 50*time.Millisecond)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown type", func(c *Config) { c.Type = "syslog-udp" }},
		{"unknown framing", func(c *Config) { c.Framing = "octets" }},
		{"zero line length", func(c *Config) { c.MaxLineLength = 0 }},
		{"tls without material", func(c *Config) { c.Type = global.InputTypeTLS }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(global.InputTypeTCP)
			tt.mutate(&cfg)
			instance, err := New([]string{global.NSTest}, cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if instance != nil {
				t.Fatalf("expected nil instance on error")
			}
		})
	}
}

func TestAccept_OversizedLineDropped(t *testing.T) {
	cfg := baseConfig(global.InputTypeTCP)
	cfg.MaxLineLength = 256
	instance, err := New([]string{global.NSTest}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sink := newChanSink()
	addr, stop := startInput(t, instance, sink)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	lines := validLine + "\n" + string(bytes.Repeat([]byte("x"), 1000)) + "\n" + validLine + "\n"
	if _, err := conn.Write([]byte(lines)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Connection survives the long line
	sink.expect(t, 2)

	if got := instance.Metrics.LinesOversized.Load(); got != 1 {
		t.Fatalf("oversized lines = %d, want 1", got)
	}
	if got := instance.Metrics.LinesReceived.Load(); got != 3 {
		t.Fatalf("lines received = %d, want 3", got)
	}
	if got := instance.Metrics.ConnErrors.Load(); got != 0 {
		t.Fatalf("connection errors = %d, want 0", got)
	}

	if err := stop(); err != nil {
		t.Fatalf("Accept returned error on cancellation: %v", err)
	}
}
