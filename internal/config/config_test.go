package config

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindTestFlags(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("rollup-rpc", "", "")
	cmd.Flags().String("atlantic-key", "", "")
	cmd.Flags().String("atlantic-url", DefaultAtlanticBaseURL, "")
	cmd.Flags().Bool("mock-snos-from-pie", false, "")
	cmd.Flags().String("celestia-rpc", "", "")
	cmd.Flags().String("db-dir", "./saya-data", "")
	cmd.Flags().Int("blocks-processed-in-parallel", 10, "")
	cmd.Flags().Uint64("genesis.first-block-number", 0, "")
	return cmd
}

func TestLoad_MapsFlagsIntoTypedSections(t *testing.T) {
	cmd := bindTestFlags(t)
	require.NoError(t, cmd.Flags().Set("rollup-rpc", "http://localhost:5050"))
	require.NoError(t, cmd.Flags().Set("atlantic-key", "secret"))
	require.NoError(t, cmd.Flags().Set("blocks-processed-in-parallel", "20"))

	v, err := Bind(cmd)
	require.NoError(t, err)

	cfg := Load(v)
	assert.Equal(t, "http://localhost:5050", cfg.Rollup.RPC)
	assert.Equal(t, "secret", cfg.Atlantic.APIKey)
	assert.Equal(t, DefaultAtlanticBaseURL, cfg.Atlantic.BaseURL)
	assert.Equal(t, 20, cfg.Concurrency.BlocksProcessedInParallel)
	assert.False(t, cfg.Genesis.Set)
}

func TestLoad_GenesisSetReflectsExplicitFlag(t *testing.T) {
	cmd := bindTestFlags(t)
	require.NoError(t, cmd.Flags().Set("genesis.first-block-number", "100"))

	v, err := Bind(cmd)
	require.NoError(t, err)

	cfg := Load(v)
	assert.True(t, cfg.Genesis.Set)
	assert.Equal(t, uint64(100), cfg.Genesis.FirstBlockNumber)
}

func TestLoad_InMemoryStorageDetection(t *testing.T) {
	cmd := bindTestFlags(t)
	require.NoError(t, cmd.Flags().Set("db-dir", ":memory:"))

	v, err := Bind(cmd)
	require.NoError(t, err)

	cfg := Load(v)
	assert.True(t, cfg.Storage.InMemory)
}

func TestLoad_DirPathIsNotInMemory(t *testing.T) {
	cmd := bindTestFlags(t)
	v, err := Bind(cmd)
	require.NoError(t, err)

	cfg := Load(v)
	assert.False(t, cfg.Storage.InMemory)
	assert.Equal(t, "./saya-data", cfg.Storage.DBDir)
}
