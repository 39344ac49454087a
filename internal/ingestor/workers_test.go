package ingestor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateWorkersPerStage_EveryStageAtLeastOne(t *testing.T) {
	workers := CalculateWorkersPerStage(1)
	for i, n := range workers {
		assert.GreaterOrEqual(t, n, 1, "stage %d must have at least one worker", i)
	}
}

func TestCalculateWorkersPerStage_ProportionalToWeights(t *testing.T) {
	workers := CalculateWorkersPerStage(60)
	// t_bridge (1800) is double t_snos (900), so its worker share should
	// be roughly double (ceil rounding keeps this approximate, not exact).
	assert.GreaterOrEqual(t, workers[1], workers[0])
	// t_pie (60) is far smaller than the other two, so it always gets the
	// smallest allocation at any reasonable pipeline depth.
	assert.LessOrEqual(t, workers[2], workers[0])
	assert.LessOrEqual(t, workers[2], workers[1])
}

func TestCalculateWorkersPerStage_ZeroBlocksStillReturnsOnePerStage(t *testing.T) {
	workers := CalculateWorkersPerStage(0)
	assert.Equal(t, [3]int{1, 1, 1}, workers)
}
