// Command fusebox-demo runs a small HTTP server that proxies requests to
// an upstream through a circuit breaker, exposing breaker state and
// Prometheus metrics.
//
// It exists to exercise the full wiring of the breaker stack: env
// configuration, redis or memory storage, the per-dependency registry,
// the breaking HTTP transport, listeners and metrics.
//
// Endpoints:
//   - GET /proxy    forward a request to FUSEBOX_DEMO_UPSTREAM through
//     the breaker; responds 503 while the circuit is open
//   - GET /state    current breaker states
//   - GET /metrics  Prometheus metrics
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"fusebox/internal/observability/logging"
	"fusebox/pkg/breaker"
	"fusebox/pkg/config"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	cfg := config.LoadBreakerConfig()
	metrics := breaker.NewPrometheusMetrics()

	registry := newRegistry(logger, cfg, metrics)
	upstream := config.GetEnvString("FUSEBOX_DEMO_UPSTREAM", "http://localhost:9000")

	client := &http.Client{
		Transport: breaker.NewTransport(registry),
		Timeout:   30 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /proxy", proxyHandler(client, upstream))
	mux.HandleFunc("GET /state", stateHandler(registry))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	addr := config.GetEnvString("FUSEBOX_DEMO_ADDR", ":8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("fusebox demo server starting",
			slog.String("addr", addr),
			slog.String("upstream", upstream))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.Any("error", err))
	}
	logger.Info("fusebox demo server stopped")
}

// newRegistry builds the breaker registry: redis-backed storage when
// FUSEBOX_REDIS_ADDR is set, per-breaker memory storage otherwise.
func newRegistry(logger *slog.Logger, cfg *config.BreakerConfig, metrics breaker.Metrics) *breaker.Registry {
	template := cfg.Template()
	template.Metrics = metrics
	template.Listeners = []breaker.Listener{
		breaker.NewLoggingListener(logger),
		breaker.NewTracingListener(),
	}

	var factory breaker.StorageFactory
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
			DB:   cfg.RedisDB,
		})
		factory = func(namespace string) breaker.Storage {
			if cfg.Namespace != "" {
				namespace = cfg.Namespace + ":" + namespace
			}
			return breaker.NewRedisStorage(context.Background(), client, breaker.RedisStorageConfig{
				Namespace:     namespace,
				FallbackState: cfg.FallbackState,
				Logger:        logger,
			})
		}
		logger.Info("using redis breaker storage", slog.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("using in-memory breaker storage")
	}

	return breaker.NewRegistry(template, factory)
}

// proxyHandler forwards the request to the upstream through the breaking
// transport and maps circuit-open errors to 503. The mapping lives here,
// in the application, not in the breaker.
func proxyHandler(client *http.Client, upstream string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if r.URL.Query().Get("skip_breaker") == "true" {
			ctx = breaker.WithSkip(ctx)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstream, nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp, err := client.Do(req)
		if err != nil {
			if errors.Is(err, breaker.ErrOpen) {
				http.Error(w, "upstream circuit is open", http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			slog.Error("copying upstream response failed", slog.Any("error", err))
		}
	}
}

// stateHandler reports the current state of every breaker created so
// far.
func stateHandler(registry *breaker.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states := make(map[string]string)
		for _, name := range registry.Names() {
			cb := registry.Get(name)
			states[name] = cb.State(r.Context()).String()
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(states); err != nil {
			slog.Error("encoding state response failed", slog.Any("error", err))
		}
	}
}
