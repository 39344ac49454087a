// Package metrics exposes the orchestrator's Prometheus counters: one
// per pipeline milestone (ingested, SNOS-proved, bridge-proved,
// published, settled, failed), following the teacher control-plane
// package-level promauto var style.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saya_blocks_ingested_total",
		Help: "Total number of blocks the ingestor turned into a CairoPie.",
	})

	BlocksSnosProved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saya_blocks_snos_proved_total",
		Help: "Total number of blocks with a completed SNOS proof.",
	})

	BlocksBridgeProved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saya_blocks_bridge_proved_total",
		Help: "Total number of blocks with a completed layout-bridge recursive proof.",
	})

	BlocksPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saya_blocks_published_total",
		Help: "Total number of blocks published to the DA backend.",
	})

	BlocksSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saya_blocks_settled_total",
		Help: "Total number of blocks settled on the piltover contract.",
	})

	BlocksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "saya_blocks_failed_total",
		Help: "Total number of blocks recorded as permanently failed, by stage.",
	}, []string{"stage"})

	CurrentBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "saya_current_block",
		Help: "Last block number each stage has completed.",
	}, []string{"stage"})
)

// Serve starts a /metrics HTTP server on addr and blocks until ctx is
// cancelled, then shuts it down. addr may be empty, in which case Serve
// returns immediately without binding anything — the caller's metrics
// stay registered but unexposed, which is fine for wiring tests that
// never scrape them.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
