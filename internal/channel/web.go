package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"linklift/internal/metrics"
)

// Web is the auxiliary HTTP surface. It exists to satisfy hosting-platform
// liveness probes and to expose metrics; it shares nothing with the
// pipeline beyond process liveness.
type Web struct {
	host    string
	port    int
	version string

	metricsEnabled  bool
	metricsEndpoint string

	server *http.Server
	start  time.Time
	logger *slog.Logger
}

type WebConfig struct {
	Host            string
	Port            int
	Version         string
	MetricsEnabled  bool
	MetricsEndpoint string
	Logger          *slog.Logger
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.MetricsEndpoint == "" {
		cfg.MetricsEndpoint = "/metrics"
	}
	return &Web{
		host:            cfg.Host,
		port:            cfg.Port,
		version:         cfg.Version,
		metricsEnabled:  cfg.MetricsEnabled,
		metricsEndpoint: cfg.MetricsEndpoint,
		start:           time.Now(),
		logger:          cfg.Logger,
	}
}

// Handler builds the probe mux.
func (w *Web) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", w.handleIndex)
	mux.HandleFunc("GET /health", w.handleHealth)
	mux.HandleFunc("GET /ping", w.handlePing)
	if w.metricsEnabled {
		mux.HandleFunc("GET "+w.metricsEndpoint, metrics.Default.Handler())
	}
	return mux
}

// Start serves until ctx is cancelled.
func (w *Web) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", w.host, w.port)
	w.server = &http.Server{
		Addr:    addr,
		Handler: w.Handler(),
	}

	w.logger.Info("web surface started", "addr", "http://"+addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.server.Shutdown(shutdownCtx)
	}()

	if err := w.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (w *Web) Stop() error {
	if w.server != nil {
		return w.server.Close()
	}
	return nil
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>LinkLift Bot</title></head>
<body>
<h1>🚀 LinkLift Bot is running</h1>
<p>Send a supported social link to the bot on Telegram.</p>
</body>
</html>`

func (w *Web) handleIndex(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(rw, indexPage)
}

func (w *Web) handleHealth(rw http.ResponseWriter, _ *http.Request) {
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(rw).Encode(map[string]any{
		"status":  "ok",
		"version": w.version,
		"uptime":  int64(time.Since(w.start).Seconds()),
	})
}

func (w *Web) handlePing(rw http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(rw, "pong")
}
