package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sayaproofs/saya/internal/logging"
	"github.com/sayaproofs/saya/internal/metrics"
)

var rootCmd = &cobra.Command{
	Use:   "saya",
	Short: "Proving orchestrator for Starknet-style rollups",
	Long: `saya drives a rollup's blocks through SNOS proving, optional
recursive layout-bridge proving, data availability publication, and
settlement.

Pick a topology with one of the subcommands:
  saya sovereign start    ingest, prove, and publish to a DA layer
  saya persistent start   ingest, prove, bridge, and settle on-chain
  saya sharding           ingest, prove, and fold state diffs locally
  saya status             list recently failed blocks`,
}

var jsonOut bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "emit machine-readable JSON instead of human-readable text")
}

// Execute runs the root command, returning the first error any
// subcommand's RunE returns.
func Execute() error {
	return rootCmd.Execute()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func colorGreen(s string) string { return "\033[32m" + s + "\033[0m" }
func colorRed(s string) string   { return "\033[31m" + s + "\033[0m" }
func colorBold(s string) string  { return "\033[1m" + s + "\033[0m" }

// runContext returns a context cancelled on SIGINT/SIGTERM, the signal
// set the orchestrator's cooperative shutdown responds to.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return logging.Setup(logging.Dev, level)
}

func fail(err error) error {
	fmt.Fprintf(os.Stderr, "%s %s\n", colorRed("✗"), err)
	return err
}

// startMetricsServer launches the /metrics endpoint in the background
// if addr is non-empty; it logs rather than failing the run if the
// listener can't be bound, since metrics scraping is never load-bearing
// for the pipeline itself.
func startMetricsServer(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, addr); err != nil {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()
}
