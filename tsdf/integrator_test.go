package tsdf

import (
	"context"
	"math"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viam-labs/tsdf-fusion/spatialmath"
)

func newTestIntegrator(t *testing.T, cfg Config) (*TsdfIntegrator, *Layer) {
	layer, err := NewLayer(1.0, 4)
	test.That(t, err, test.ShouldBeNil)
	integrator, err := NewTsdfIntegrator(cfg, layer, golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return integrator, layer
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	cases := []Config{
		{DefaultTruncationDistance: 0, MaxWeight: 1},
		{DefaultTruncationDistance: 1, MaxWeight: 0},
		{DefaultTruncationDistance: 1, MaxWeight: 1, MaxRayLengthM: -1},
		{DefaultTruncationDistance: 1, MaxWeight: 1, MinRayLengthM: -1},
		{DefaultTruncationDistance: 1, MaxWeight: 1, MaxRayLengthM: 1, MinRayLengthM: 2},
	}
	for _, c := range cases {
		test.That(t, c.Validate(), test.ShouldNotBeNil)
	}
}

func TestIntegratePointCloudRejectsMismatchedLengths(t *testing.T) {
	integrator, _ := newTestIntegrator(t, Config{DefaultTruncationDistance: 0.5, MaxWeight: 100, VoxelCarvingEnabled: true})
	_, err := integrator.IntegratePointCloud(context.Background(), spatialmath.NewZeroPose(), []r3.Vector{{X: 1}}, nil)
	test.That(t, err, test.ShouldEqual, ErrMismatchedLengths)
}

func TestIntegrateSingleRayAxisAligned(t *testing.T) {
	// S1: voxel_size=1.0, voxels_per_side=4, trunc=1.5, carving=true, origin (0,0,0), point
	// (3.5, 0, 0). Voxels at global x-index 0..4 along y=0,z=0 should be updated; no voxel at
	// y!=0 or z!=0 is touched.
	integrator, layer := newTestIntegrator(t, Config{
		DefaultTruncationDistance: 1.5,
		MaxWeight:                 100,
		VoxelCarvingEnabled:       true,
	})

	_, err := integrator.IntegratePointCloud(
		context.Background(),
		spatialmath.NewZeroPose(),
		[]r3.Vector{{X: 3.5, Y: 0, Z: 0}},
		[]Color{{R: 1}},
	)
	test.That(t, err, test.ShouldBeNil)

	for x := int64(0); x <= 4; x++ {
		block, local := SplitGlobalVoxel(GlobalIndex{X: x}, layer.VoxelsPerSide())
		b, ok := layer.GetBlock(block)
		test.That(t, ok, test.ShouldBeTrue)
		b.Lock()
		v := b.VoxelAt(local)
		test.That(t, v.Observed(), test.ShouldBeTrue)
		b.Unlock()
	}

	// The voxel at x=3 should sit close to the surface at x=3.5.
	block, local := SplitGlobalVoxel(GlobalIndex{X: 3}, layer.VoxelsPerSide())
	b, _ := layer.GetBlock(block)
	b.Lock()
	v := b.VoxelAt(local)
	test.That(t, math.Abs(float64(v.Distance)), test.ShouldBeLessThanOrEqualTo, 0.5)
	test.That(t, v.Weight, test.ShouldBeGreaterThan, float32(0))
	b.Unlock()

	// No voxel off the x-axis should have been touched: every block this ray can reach has
	// block-index y=z=0, so a voxel's local y/z is also its global y/z.
	layer.IterBlocks(func(idx BlockIndex, blk *Block) bool {
		test.That(t, idx.Y, test.ShouldEqual, int64(0))
		test.That(t, idx.Z, test.ShouldEqual, int64(0))

		blk.Lock()
		defer blk.Unlock()
		for lx := int32(0); lx < layer.VoxelsPerSide(); lx++ {
			for ly := int32(0); ly < layer.VoxelsPerSide(); ly++ {
				for lz := int32(0); lz < layer.VoxelsPerSide(); lz++ {
					if ly == 0 && lz == 0 {
						continue
					}
					vx := blk.VoxelAt(LocalIndex{X: lx, Y: ly, Z: lz})
					test.That(t, vx.Observed(), test.ShouldBeFalse)
				}
			}
		}
		return true
	})
}

func TestIntegrateDropsRaysOutsideRangeBounds(t *testing.T) {
	integrator, layer := newTestIntegrator(t, Config{
		DefaultTruncationDistance: 0.2,
		MaxWeight:                 100,
		MinRayLengthM:             1.0,
		MaxRayLengthM:             5.0,
	})

	stats, err := integrator.IntegratePointCloud(
		context.Background(),
		spatialmath.NewZeroPose(),
		[]r3.Vector{{X: 0.1, Y: 0, Z: 0}, {X: 10, Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}},
		[]Color{{}, {}, {}},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.PointsSkippedRange.Load(), test.ShouldEqual, int64(2))
	test.That(t, stats.PointsProcessed.Load(), test.ShouldEqual, int64(1))
	test.That(t, layer.NumBlocks(), test.ShouldBeGreaterThan, 0)
}

func TestIntegrateSkipsNonFinitePoints(t *testing.T) {
	integrator, _ := newTestIntegrator(t, Config{DefaultTruncationDistance: 0.5, MaxWeight: 100})

	stats, err := integrator.IntegratePointCloud(
		context.Background(),
		spatialmath.NewZeroPose(),
		[]r3.Vector{{X: math.NaN(), Y: 0, Z: 0}, {X: math.Inf(1), Y: 0, Z: 0}, {X: 3, Y: 0, Z: 0}},
		[]Color{{}, {}, {}},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, stats.PointsSkippedBadNum.Load(), test.ShouldEqual, int64(2))
	test.That(t, stats.PointsProcessed.Load(), test.ShouldEqual, int64(1))
}

func TestIntegrateWeightSaturatesAcrossManyFrames(t *testing.T) {
	// S6, scaled down from 10^6 for test speed: repeated integration of the same ray saturates
	// every touched voxel's weight at max_weight.
	integrator, layer := newTestIntegrator(t, Config{
		DefaultTruncationDistance: 0.5,
		MaxWeight:                 100,
		VoxelCarvingEnabled:       true,
		ConstWeight:               true,
	})

	for i := 0; i < 500; i++ {
		_, err := integrator.IntegratePointCloud(
			context.Background(),
			spatialmath.NewZeroPose(),
			[]r3.Vector{{X: 2.5, Y: 0, Z: 0}},
			[]Color{{R: 5}},
		)
		test.That(t, err, test.ShouldBeNil)
	}

	block, local := SplitGlobalVoxel(GlobalIndex{X: 2}, layer.VoxelsPerSide())
	b, ok := layer.GetBlock(block)
	test.That(t, ok, test.ShouldBeTrue)
	b.Lock()
	v := b.VoxelAt(local)
	test.That(t, v.Weight, test.ShouldEqual, float32(100))
	b.Unlock()
}

func TestIntegrateCarvingDisabledLeavesFreeSpaceUntouched(t *testing.T) {
	integrator, layer := newTestIntegrator(t, Config{
		DefaultTruncationDistance: 0.5,
		MaxWeight:                 100,
		VoxelCarvingEnabled:       false,
	})

	_, err := integrator.IntegratePointCloud(
		context.Background(),
		spatialmath.NewZeroPose(),
		[]r3.Vector{{X: 10, Y: 0, Z: 0}},
		[]Color{{}},
	)
	test.That(t, err, test.ShouldBeNil)

	block, local := SplitGlobalVoxel(GlobalIndex{X: 0}, layer.VoxelsPerSide())
	b, ok := layer.GetBlock(block)
	if ok {
		b.Lock()
		v := b.VoxelAt(local)
		test.That(t, v.Observed(), test.ShouldBeFalse)
		b.Unlock()
	}
}
