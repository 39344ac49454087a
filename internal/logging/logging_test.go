package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_ReturnsNonNilLoggerAndInstallsDefault(t *testing.T) {
	logger := Setup(Dev, slog.LevelInfo)
	require.NotNil(t, logger)
	assert.Same(t, logger, slog.Default())
}

func TestForBlock_AttachesBlockNumber(t *testing.T) {
	base := Setup(Dev, slog.LevelInfo)
	scoped := ForBlock(base, 42)
	require.NotNil(t, scoped)
	assert.NotSame(t, base, scoped)
}

func TestForStage_AttachesStageName(t *testing.T) {
	base := Setup(Dev, slog.LevelInfo)
	scoped := ForStage(base, "ingestor")
	require.NotNil(t, scoped)
	assert.NotSame(t, base, scoped)
}
