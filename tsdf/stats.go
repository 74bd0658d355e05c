package tsdf

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/montanaflynn/stats"
	"go.uber.org/atomic"
)

// maxSampledSDFs bounds the number of per-voxel SDF samples IntegrationStats retains for its
// histogram report, so a large frame cannot grow the sample slice without bound.
const maxSampledSDFs = 100000

// IntegrationStats accumulates counters for one call to IntegratePointCloud, which creates a fresh
// instance per call and returns it. It replaces a process-wide flop counter with a struct threaded explicitly through the integrator,
// so nothing here is global mutable state.
type IntegrationStats struct {
	PointsProcessed     atomic.Int64
	PointsSkippedRange  atomic.Int64
	PointsSkippedBadNum atomic.Int64
	VoxelsUpdated       atomic.Int64

	sampleSDF  bool
	mu         sync.Mutex
	sdfSamples []float64
}

// NewIntegrationStats creates a zeroed stats accumulator. If sampleSDF is true, up to
// maxSampledSDFs per-voxel signed distances are retained for Report's histogram.
func NewIntegrationStats(sampleSDF bool) *IntegrationStats {
	return &IntegrationStats{sampleSDF: sampleSDF}
}

func (s *IntegrationStats) recordSDF(sdf float32) {
	if !s.sampleSDF {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sdfSamples) < maxSampledSDFs {
		s.sdfSamples = append(s.sdfSamples, float64(sdf))
	}
}

// Report renders a human-readable summary of the accumulated counters, including a histogram of
// sampled signed distances when sampling was enabled and at least one sample was recorded.
func (s *IntegrationStats) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "points processed: %d\n", s.PointsProcessed.Load())
	fmt.Fprintf(&b, "points skipped (out of range): %d\n", s.PointsSkippedRange.Load())
	fmt.Fprintf(&b, "points skipped (non-finite): %d\n", s.PointsSkippedBadNum.Load())
	fmt.Fprintf(&b, "voxels updated: %d\n", s.VoxelsUpdated.Load())

	s.mu.Lock()
	samples := make([]float64, len(s.sdfSamples))
	copy(samples, s.sdfSamples)
	s.mu.Unlock()

	if len(samples) == 0 {
		return b.String()
	}

	mean, err := stats.Mean(samples)
	if err == nil {
		fmt.Fprintf(&b, "sdf mean: %.6f\n", mean)
	}
	stddev, err := stats.StandardDeviation(samples)
	if err == nil {
		fmt.Fprintf(&b, "sdf stddev: %.6f\n", stddev)
	}

	hist := histogram.Hist(10, samples)
	fmt.Fprintln(&b, "sdf histogram:")
	if err := histogram.Fprint(&b, hist, histogram.Linear(40)); err != nil {
		fmt.Fprintf(&b, "  (histogram render failed: %v)\n", err)
	}

	return b.String()
}
