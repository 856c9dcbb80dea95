package integration

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	server "github.com/elastic/go-lumber/server/v2"
)

// Collects events from a lumberjack server, acknowledging every batch
type collector struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (c *collector) run(srv *server.Server) {
	for batch := range srv.ReceiveChan() {
		c.mu.Lock()
		for _, event := range batch.Events {
			if doc, ok := event.(map[string]interface{}); ok {
				c.events = append(c.events, doc)
			}
		}
		c.mu.Unlock()
		batch.ACK()
	}
}

func (c *collector) snapshot() (events []map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	events = append(events, c.events...)
	return
}

func startLumberServer(t *testing.T) (addr string, events *collector) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	srv, err := server.NewWithListener(listener)
	if err != nil {
		t.Fatalf("failed starting lumberjack server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	events = &collector{}
	go events.run(srv)
	addr = listener.Addr().String()
	return
}

// Returns an address that was free a moment ago
func freeAddr(t *testing.T) (addr string) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr = listener.Addr().String()
	listener.Close()
	return
}

func writeConfig(t *testing.T, name string, format string, args ...interface{}) (path string) {
	t.Helper()
	path = filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(fmt.Sprintf(format, args...)), 0600)
	if err != nil {
		t.Fatalf("failed writing config: %v", err)
	}
	return
}
