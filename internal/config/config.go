// Package config loads orchestrator configuration from CLI flags, with
// every flag also sourceable from an environment variable of the same
// name upper-snake-cased — the same viper-driven pattern the teacher
// control-plane API uses for its service configuration, adapted from a
// single config file to a per-command flag set since this is a CLI
// daemon, not an HTTP service.
package config

import (
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Bind wires every flag of cmd to a viper instance scoped to that
// command, so `--some-flag` and `SOME_FLAG` resolve to the same value.
// Callers read values back with the returned *viper.Viper rather than
// cmd.Flags(), which keeps env-var overrides working even for flags the
// user never passed on the command line.
func Bind(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// Genesis configures where a fresh run (no persisted ChainHead) starts.
type Genesis struct {
	FirstBlockNumber uint64
	Set              bool
}

// Rollup configures the sequencer RPC BlockIngestor polls.
type Rollup struct {
	RPC string
}

// Atlantic configures the remote prover HTTP client shared by the SNOS
// and layout-bridge provers.
type Atlantic struct {
	APIKey       string
	BaseURL      string
	Mock         bool
	PollInterval time.Duration
}

// Celestia configures the DA backend's blob-submission client.
type Celestia struct {
	RPC       string
	Token     string
	Namespace string
	KeyName   string
}

// Settlement configures the Piltover settlement backend for persistent
// mode.
type Settlement struct {
	RPC               string
	PiltoverAddress   string
	AccountAddress    string
	AccountPrivateKey string
	IntegrityAddress  string
	MockLayoutBridge  bool
	MockProgramHash   string
}

// Storage configures the persistence backend.
type Storage struct {
	DBDir    string
	InMemory bool
}

// Concurrency configures per-mode worker budgeting.
type Concurrency struct {
	BlocksProcessedInParallel int
}

const (
	// DefaultAtlanticBaseURL is the staging Atlantic endpoint spec §6 names.
	DefaultAtlanticBaseURL = "https://staging.atlantic.api.herodotus.cloud"
	// DefaultCelestiaNamespace matches spec §6's default application tag.
	DefaultCelestiaNamespace = "sayaproofs"
	// DefaultProofStatusPollInterval is spec §4.3's poll cadence.
	DefaultProofStatusPollInterval = 10 * time.Second
)

// Config aggregates every domain section a command might need; each
// subcommand reads only the sections relevant to its topology.
type Config struct {
	Genesis     Genesis
	Rollup      Rollup
	Atlantic    Atlantic
	Celestia    Celestia
	Settlement  Settlement
	Storage     Storage
	Concurrency Concurrency
}

// Load reads every flag Bind wired into v into the typed Config
// sections, so subcommands work with named fields instead of
// repeatedly re-typing viper key strings.
func Load(v *viper.Viper) Config {
	return Config{
		Genesis: Genesis{
			FirstBlockNumber: v.GetUint64("genesis.first-block-number"),
			Set:              v.IsSet("genesis.first-block-number"),
		},
		Rollup: Rollup{RPC: v.GetString("rollup-rpc")},
		Atlantic: Atlantic{
			APIKey:       v.GetString("atlantic-key"),
			BaseURL:      v.GetString("atlantic-url"),
			Mock:         v.GetBool("mock-snos-from-pie"),
			PollInterval: DefaultProofStatusPollInterval,
		},
		Celestia: Celestia{
			RPC:       v.GetString("celestia-rpc"),
			Token:     v.GetString("celestia-token"),
			Namespace: v.GetString("celestia-namespace"),
			KeyName:   v.GetString("celestia-key-name"),
		},
		Settlement: Settlement{
			RPC:               v.GetString("settlement-rpc"),
			PiltoverAddress:   v.GetString("settlement-piltover-address"),
			AccountAddress:    v.GetString("settlement-account-address"),
			AccountPrivateKey: v.GetString("settlement-account-private-key"),
			IntegrityAddress:  v.GetString("settlement-integrity-address"),
			MockLayoutBridge:  v.GetBool("mock-layout-bridge"),
			MockProgramHash:   v.GetString("mock-layout-bridge-program-hash"),
		},
		Storage: Storage{
			DBDir:    v.GetString("db-dir"),
			InMemory: v.GetString("db-dir") == ":memory:",
		},
		Concurrency: Concurrency{
			BlocksProcessedInParallel: v.GetInt("blocks-processed-in-parallel"),
		},
	}
}
