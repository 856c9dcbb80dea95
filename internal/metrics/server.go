package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"syslogfwd/internal/global"
	"syslogfwd/internal/logctx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type httpLogWriter struct {
	ctx context.Context
}

// Creates registry holding the pipeline collector plus Go runtime metrics
func NewRegistry(collector *Collector) (registry *prometheus.Registry) {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return
}

// Sets up HTTP listener configuration for metric scraping
func SetupListener(ctx context.Context, addr, path string, registry *prometheus.Registry) (server *http.Server) {
	if path == "" {
		path = global.DefaultMetricPath
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          log.New(httpLogWriter{ctx: ctx}, "", 0),
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  global.HTTPReadTimeout,
		WriteTimeout: global.HTTPWriteTimeout,
		IdleTimeout:  global.HTTPIdleTimeout,
		ErrorLog:     log.New(httpLogWriter{ctx: ctx}, "", 0),
	}
	return
}

// Starts the metric HTTP server and blocks until it is shut down
func Start(ctx context.Context, server *http.Server) {
	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog,
		"Metric server listening on http://%s/\n", server.Addr)

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
			"Metric server failed: %v\n", err)
	}
}

// Logs HTTP server errors to internal program buffer (via context logger)
func (logWriter httpLogWriter) Write(p []byte) (n int, err error) {
	n = len(p)
	if n == 0 {
		return
	}
	logctx.LogEvent(logWriter.ctx, global.VerbosityStandard, global.ErrorLog,
		"%s\n", strings.TrimSpace(string(p)))
	return
}
