package input

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"syslogfwd/internal/codec/gelf"
	"syslogfwd/internal/codec/rfc5424"
	"syslogfwd/internal/global"
	"testing"
	"time"
)

const validLine = "<34>1 2003-10-11T22:14:15.003Z mymachine.example.com su - ID47 - 'su root' failed for lonvick on /dev/pts/8"

// Collects pushed messages
type chanSink struct {
	ch chan []byte
}

func newChanSink() *chanSink { return &chanSink{ch: make(chan []byte, 64)} }

func (sink *chanSink) PushBlocking(ctx context.Context, msg []byte) bool {
	select {
	case sink.ch <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

func (sink *chanSink) expect(t *testing.T, n int) (msgs [][]byte) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case msg := <-sink.ch:
			msgs = append(msgs, msg)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d of %d", i+1, n)
		}
	}
	return
}

func (sink *chanSink) expectNone(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case msg := <-sink.ch:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(wait):
	}
}

func baseConfig(inputType string) Config {
	return Config{
		Type:           inputType,
		ListenAddr:     "127.0.0.1:0",
		Framing:        "line",
		IdleTimeout:    5 * time.Second,
		MaxLineLength:  4096,
		ReadBufferSize: 1024,
	}
}

// Starts Accept in the background and returns the bound address
func startInput(t *testing.T, instance *Instance, sink Sink) (addr string, stop func() error) {
	t.Helper()

	encoder, err := gelf.New(nil)
	if err != nil {
		t.Fatalf("unexpected encoder error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- instance.Accept(ctx, sink, rfc5424.New(), encoder)
	}()

	bound := instance.Addr()
	if bound == nil {
		cancel()
		t.Fatalf("listener failed to bind: %v", <-errCh)
	}
	addr = bound.String()

	stop = func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatalf("Accept did not return after cancellation")
			return nil
		}
	}
	return
}

// Writes a throwaway self-signed certificate and key
func writeSelfSignedCert(t *testing.T) (certPath, keyPath string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed generating key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: global.ProgBaseName + "-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		IsCA:                  true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("failed creating certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("failed marshaling key: %v", err)
	}

	dir := t.TempDir()
	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")
	err = os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600)
	if err != nil {
		t.Fatalf("failed writing cert: %v", err)
	}
	err = os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600)
	if err != nil {
		t.Fatalf("failed writing key: %v", err)
	}
	return
}
