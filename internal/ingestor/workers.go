// Package ingestor implements the BlockIngestor stage: it polls the
// rollup for new block heights, dispatches them to a worker pool that
// runs the (external, narrow-interface) SNOS PIE generator, and emits
// NewBlock values downstream in strictly ascending order regardless of
// which worker finishes first.
package ingestor

import "math"

// StageWeights are the per-stage mean processing times (seconds) the
// sovereign worker-budgeting formula distributes a pipeline's
// concurrency across: SNOS proving, layout-bridge proving, and PIE
// generation.
var StageWeights = [3]float64{
	900,  // t_snos
	1800, // t_bridge
	60,   // t_pie
}

// CalculateWorkersPerStage allocates workers[i] = ceil(numBlocksInPipeline
// * t_i / sum(t)) for each of the three proving stages, so a pipeline
// carrying numBlocksInPipeline blocks in flight keeps every stage busy in
// proportion to how long it typically takes. Every entry is at least 1.
func CalculateWorkersPerStage(numBlocksInPipeline int) [3]int {
	var total float64
	for _, t := range StageWeights {
		total += t
	}

	var out [3]int
	for i, t := range StageWeights {
		n := int(math.Ceil(float64(numBlocksInPipeline) * t / total))
		if n < 1 {
			n = 1
		}
		out[i] = n
	}
	return out
}
