// Integration tests for the full forwarding pipeline
package integration

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"syslogfwd/internal/forwarder"
	"syslogfwd/internal/logctx"
	"testing"
	"time"
)

const pipelineConfig = `
[input]
type = "syslog-tcp"
listen = "127.0.0.1:0"
queuesize = 64
timeout = "5s"

[output]
type = "beats"
workers = 1
send_timeout = "5s"
connect_timeout = "2s"
beats_endpoint = "%s"

[output.gelf_extra]
site = "$ENV{SYSLOGFWD_TEST_SITE:lab}"

[metrics]
enabled = true
listen = "%s"
path = "/metrics"
`

// Tests config loading, daemon startup, delivery to a broker and shutdown
func TestForwardPipeline(t *testing.T) {
	brokerAddr, events := startLumberServer(t)
	metricAddr := freeAddr(t)
	path := writeConfig(t, "syslogfwd.toml", pipelineConfig, brokerAddr, metricAddr)

	fileCfg, err := forwarder.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected config load error: %v", err)
	}
	cfg, err := fileCfg.NewDaemonConf()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	globalCtx, globalCancel := context.WithCancel(context.Background())
	defer globalCancel()
	globalCtx = logctx.New(globalCtx, "global", 1, globalCtx.Done())

	daemon := forwarder.NewDaemon(cfg)
	err = daemon.Start(globalCtx)
	if err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}
	defer daemon.Shutdown()

	runErr := make(chan error, 1)
	go func() { runErr <- daemon.Run() }()

	const senders = 4
	const perSender = 50

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", daemon.Addr())
			if err != nil {
				t.Errorf("sender %d failed to dial: %v", s, err)
				return
			}
			defer conn.Close()
			for i := 0; i < perSender; i++ {
				line := fmt.Sprintf("<14>1 2024-01-02T03:04:05Z host%d app - - - %d\n", s, i)
				_, err = conn.Write([]byte(line))
				if err != nil {
					t.Errorf("sender %d failed writing: %v", s, err)
					return
				}
			}
		}(s)
	}
	wg.Wait()

	deadline := time.Now().Add(10 * time.Second)
	for len(events.snapshot()) < senders*perSender {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: received %d of %d events", len(events.snapshot()), senders*perSender)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// One worker, so each connection arrives in the order it was written
	next := make(map[string]int)
	for _, event := range events.snapshot() {
		host, _ := event["host"].(string)
		msg, _ := event["short_message"].(string)
		seq, err := strconv.Atoi(msg)
		if err != nil {
			t.Fatalf("unexpected short_message %q", msg)
		}
		if seq != next[host] {
			t.Fatalf("%s: got message %d, expected %d", host, seq, next[host])
		}
		next[host]++

		if event["_site"] != "lab" {
			t.Fatalf("expected _site extra field 'lab', got %v", event["_site"])
		}
		if event["version"] != "1.1" {
			t.Fatalf("expected GELF version 1.1, got %v", event["version"])
		}
	}
	if len(next) != senders {
		t.Fatalf("expected events from %d hosts, got %d", senders, len(next))
	}

	// Metrics reflect the traffic
	resp, err := http.Get("http://" + metricAddr + "/metrics")
	if err != nil {
		t.Fatalf("failed scraping metrics: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("failed reading metrics: %v", err)
	}
	for _, name := range []string{"syslogfwd_messages_queued_total", "syslogfwd_connections_accepted_total"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metric %s missing from scrape output", name)
		}
	}

	daemon.Shutdown()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("unexpected run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not return after shutdown")
	}
}

// A broker that never answers fails startup before anything listens
func TestForwardPipeline_BrokerDown(t *testing.T) {
	dead := freeAddr(t)
	path := writeConfig(t, "syslogfwd.yaml", `
input:
  type: syslog-tcp
  listen: 127.0.0.1:0
output:
  type: beats
  beats_endpoint: %q
  connect_timeout: 300ms
`, dead)

	fileCfg, err := forwarder.LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected config load error: %v", err)
	}
	cfg, err := fileCfg.NewDaemonConf()
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	daemon := forwarder.NewDaemon(cfg)
	err = daemon.Start(context.Background())
	if !forwarder.IsFatal(err) {
		t.Fatalf("expected fatal start error, got %v", err)
	}
	if daemon.Addr() != "" {
		t.Fatalf("input is listening after failed start: %s", daemon.Addr())
	}
}
