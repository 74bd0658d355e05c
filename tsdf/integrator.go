package tsdf

import (
	"context"
	"math"
	"runtime"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/viam-labs/tsdf-fusion/spatialmath"
)

// Config holds the tunable parameters of a TsdfIntegrator. The zero value is not valid; construct
// with sensible defaults and call Validate, or rely on NewTsdfIntegrator to validate for you.
type Config struct {
	// DefaultTruncationDistance is the symmetric truncation band, in meters.
	DefaultTruncationDistance float64

	// MaxRayLengthM drops any point farther than this from the sensor origin. Zero disables the
	// check.
	MaxRayLengthM float64

	// MinRayLengthM drops any point closer than this to the sensor origin.
	MinRayLengthM float64

	// MaxWeight caps the accumulated weight of any voxel.
	MaxWeight float32

	// VoxelCarvingEnabled, if true, also traverses and updates the free-space segment between the
	// sensor origin and the truncation band around each point.
	VoxelCarvingEnabled bool

	// ConstWeight, if true, gives every measurement weight 1 rather than inverse-square
	// distance fall-off.
	ConstWeight bool

	// SampleSDF enables retaining a bounded sample of per-voxel signed distances for
	// IntegrationStats.Report's histogram. Off by default to avoid the extra bookkeeping on a hot
	// path.
	SampleSDF bool
}

// Validate checks Config for the configuration errors the specification treats as fatal at
// construction time.
func (c Config) Validate() error {
	if c.DefaultTruncationDistance <= 0 {
		return errors.Wrap(ErrInvalidConfig, "default_truncation_distance must be positive")
	}
	if c.MaxRayLengthM < 0 {
		return errors.Wrap(ErrInvalidConfig, "max_ray_length_m must be non-negative")
	}
	if c.MinRayLengthM < 0 {
		return errors.Wrap(ErrInvalidConfig, "min_ray_length_m must be non-negative")
	}
	if c.MaxRayLengthM > 0 && c.MinRayLengthM > c.MaxRayLengthM {
		return errors.Wrap(ErrInvalidConfig, "min_ray_length_m must not exceed max_ray_length_m")
	}
	if c.MaxWeight <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max_weight must be positive")
	}
	return nil
}

// TsdfIntegrator fuses point measurements into a Layer under a fixed Config.
type TsdfIntegrator struct {
	config Config
	layer  *Layer
	logger golog.Logger
}

// NewTsdfIntegrator validates config and returns an integrator writing into layer.
func NewTsdfIntegrator(config Config, layer *Layer, logger golog.Logger) (*TsdfIntegrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if layer == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "layer must not be nil")
	}
	if logger == nil {
		logger = golog.Global()
	}
	return &TsdfIntegrator{config: config, layer: layer, logger: logger}, nil
}

// integratorParallelFactor bounds how many goroutines IntegratePointCloud shards a frame's points
// across. Mirrors the teacher's ParallelFactor heuristic: default to GOMAXPROCS, but never spawn
// more workers than points.
var integratorParallelFactor = runtime.GOMAXPROCS(0)

// IntegratePointCloud fuses one frame of points, given in the camera/sensor frame, into the
// integrator's layer. T_WC transforms points from that frame into world coordinates; colors must
// be the same length as pointsC.
//
// Single-threaded correctness holds first: shards of points are integrated independently, but
// within any one ray's hits against a single block, updates are still applied in strict traversal
// order, matching the sequential contract.
func (ti *TsdfIntegrator) IntegratePointCloud(
	ctx context.Context,
	tWC spatialmath.Pose,
	pointsC []r3.Vector,
	colors []Color,
) (*IntegrationStats, error) {
	if len(pointsC) != len(colors) {
		return nil, ErrMismatchedLengths
	}

	frameStats := NewIntegrationStats(ti.config.SampleSDF)
	if len(pointsC) == 0 {
		return frameStats, nil
	}

	oW := tWC.Point()

	numWorkers := integratorParallelFactor
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if numWorkers > len(pointsC) {
		numWorkers = len(pointsC)
	}

	shardSize := (len(pointsC) + numWorkers - 1) / numWorkers

	errs, gctx := errgroup.WithContext(ctx)
	for w := 0; w < numWorkers; w++ {
		start := w * shardSize
		if start >= len(pointsC) {
			break
		}
		end := start + shardSize
		if end > len(pointsC) {
			end = len(pointsC)
		}

		errs.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = errors.Errorf("panic integrating points [%d, %d): %v", start, end, p)
				}
			}()
			return ti.integrateRange(gctx, oW, tWC, pointsC, colors, start, end, frameStats)
		})
	}

	err := errs.Wait()

	ti.logger.Desugar().Debug("integrated point cloud",
		zap.Int64("points_processed", frameStats.PointsProcessed.Load()),
		zap.Int64("points_skipped_range", frameStats.PointsSkippedRange.Load()),
		zap.Int64("points_skipped_bad_num", frameStats.PointsSkippedBadNum.Load()),
		zap.Int64("voxels_updated", frameStats.VoxelsUpdated.Load()),
	)

	return frameStats, err
}

// integrateRange integrates pointsC[start:end] sequentially, honoring the ordering contract
// within each ray.
func (ti *TsdfIntegrator) integrateRange(
	ctx context.Context,
	oW r3.Vector,
	tWC spatialmath.Pose,
	pointsC []r3.Vector,
	colors []Color,
	start, end int,
	frameStats *IntegrationStats,
) error {
	for i := start; i < end; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		pC := pointsC[i]
		if !finiteVector(pC) {
			frameStats.PointsSkippedBadNum.Inc()
			continue
		}

		pW := tWC.Transform(pC)
		rangeM := pW.Sub(oW).Norm()

		if ti.config.MinRayLengthM > 0 && rangeM < ti.config.MinRayLengthM {
			frameStats.PointsSkippedRange.Inc()
			continue
		}
		if ti.config.MaxRayLengthM > 0 && rangeM > ti.config.MaxRayLengthM {
			frameStats.PointsSkippedRange.Inc()
			continue
		}

		ti.integrateRay(oW, pW, colors[i], frameStats)
		frameStats.PointsProcessed.Inc()
	}
	return nil
}

// integrateRay plans one ray and applies the update kernel at every hit, block by block, in
// traversal order.
func (ti *TsdfIntegrator) integrateRay(oW, pW r3.Vector, c Color, frameStats *IntegrationStats) {
	hits := PlanRay(
		oW, pW,
		ti.layer.VoxelSize(), ti.layer.VoxelsPerSide(),
		ti.config.DefaultTruncationDistance,
		ti.config.VoxelCarvingEnabled,
	)

	kcfg := KernelConfig{
		DefaultTruncationDistance: ti.config.DefaultTruncationDistance,
		MaxWeight:                 ti.config.MaxWeight,
		ConstWeight:               ti.config.ConstWeight,
	}

	for _, blockIdx := range hits.BlockOrder() {
		block := ti.layer.AllocateOrGetBlock(blockIdx)
		locals := hits.LocalIndices(blockIdx)

		block.Lock()
		for _, l := range locals {
			v := block.VoxelAt(l)
			vW := block.CenterOfVoxel(l)
			if applyUpdate(v, oW, pW, vW, c, kcfg) && v.Observed() {
				block.markMutated()
				frameStats.VoxelsUpdated.Inc()
				frameStats.recordSDF(v.Distance)
			}
		}
		block.Unlock()
	}
}

func finiteVector(v r3.Vector) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
