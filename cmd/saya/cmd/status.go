package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sayaproofs/saya/internal/config"
	"github.com/sayaproofs/saya/internal/storage/sqlstore"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recent block failures from the embedded store",
	Long: `Reads <db-dir>/failed_blocks for the most recent blocks the
pipeline recorded as permanently failed, newest first. Useful after a
pipeline exits or is restarted, to see what stalled it without grepping
logs.

Examples:
  saya status --db-dir ./saya-data
  saya status --db-dir ./saya-data --limit 5 --json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("db-dir", "./saya-data", "embedded SQL store directory")
	statusCmd.Flags().Int("limit", 20, "maximum number of failures to show")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	v, err := config.Bind(cmd)
	if err != nil {
		return fail(err)
	}

	cfg := config.Load(v)
	store, err := sqlstore.Open(cfg.Storage.DBDir)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	ctx := context.Background()
	failures, err := store.RecentFailures(ctx, v.GetInt("limit"))
	if err != nil {
		return fail(err)
	}

	if jsonOut {
		return printJSON(failures)
	}

	if len(failures) == 0 {
		fmt.Println(colorGreen("✓"), "no recorded failures")
		return nil
	}
	fmt.Printf("%s %d recent failure(s):\n\n", colorBold("Failed blocks"), len(failures))
	for _, f := range failures {
		fmt.Printf("  %s block %d: %s\n", colorRed("✗"), f.BlockNumber, f.Reason)
	}
	return nil
}
