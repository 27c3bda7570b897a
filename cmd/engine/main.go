// Command engine runs the Carve scoring and overlay-provisioning process:
// one scheduler worker per (competition, check), a box event dispatcher,
// the overlay fabric's boot-time allocation, and an admin HTTP surface
// exposing health and Prometheus metrics. No FDB refresher is started here.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carveframework/carve/infrastructure/logging"
	"github.com/carveframework/carve/infrastructure/metrics"
	"github.com/carveframework/carve/infrastructure/middleware"
	"github.com/carveframework/carve/internal/boxevents"
	"github.com/carveframework/carve/internal/lifecycle"
	"github.com/carveframework/carve/internal/overlay"
	"github.com/carveframework/carve/internal/scheduler"
	"github.com/carveframework/carve/internal/store"
	"github.com/carveframework/carve/pkg/config"
)

func main() {
	log := logging.NewFromEnv("engine")

	cfg, err := config.Load()
	if err != nil {
		log.Error(context.Background(), "failed to load configuration", err, nil)
		os.Exit(1)
	}

	m := metrics.Init("engine")
	_ = m

	sss := store.New(cfg.Store, log)
	defer sss.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sss.Ping(ctx); err != nil {
		log.Error(ctx, "failed to reach shared-state store", err, nil)
		os.Exit(1)
	}

	var wg sync.WaitGroup

	for _, competition := range cfg.Competitions {
		competition := competition

		fabric := overlay.NewFabric(sss, nil, log)
		if _, err := fabric.Boot(ctx, competition); err != nil {
			log.Error(ctx, "overlay boot allocation failed", err, map[string]interface{}{
				"competition": competition.Name,
			})
		}

		watcher := lifecycle.NewWatcher(sss, competition.Name, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			watcher.Run(ctx)
		}()

		dispatcher := boxevents.NewDispatcher(sss, competition, nil, log)
		_ = dispatcher

		for _, check := range competition.Checks {
			worker := scheduler.NewWorker(competition, check, sss, log)
			wg.Add(1)
			go func() {
				defer wg.Done()
				worker.Run(ctx)
			}()
		}

		log.Info(ctx, "competition workers started", map[string]interface{}{
			"competition": competition.Name,
			"checks":      len(competition.Checks),
			"teams":       len(competition.Teams),
		})
	}

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware("engine", m))
	router.Use(middleware.NewRecoveryMiddleware(log).Handler)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := sss.Ping(r.Context()); err != nil {
			http.Error(w, "store unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	}).Methods(http.MethodGet)
	if metrics.Enabled() {
		router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info(ctx, "admin http server listening", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "admin http server failed", err, nil)
		}
	}()

	<-ctx.Done()
	log.Info(context.Background(), "shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "admin http server shutdown error", err, nil)
	}

	wg.Wait()
}
