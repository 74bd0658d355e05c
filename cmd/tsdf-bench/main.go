// Package main contains a command that integrates a synthetic spherical point cloud into a TSDF
// layer and reports the resulting statistics, for exercising the integrator outside of tests.
package main

import (
	"context"
	"math"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/utils"

	"github.com/viam-labs/tsdf-fusion/spatialmath"
	"github.com/viam-labs/tsdf-fusion/tsdf"
)

var logger = golog.NewDevelopmentLogger("tsdf_bench")

func main() {
	utils.ContextualMainQuit(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	VoxelSize          float64 `flag:"voxel-size,default=0.05,usage=voxel edge length in meters"`
	VoxelsPerSide      int     `flag:"voxels-per-side,default=16,usage=voxels per block side"`
	Radius             float64 `flag:"radius,default=2.0,usage=radius of the synthetic sphere in meters"`
	NumPoints          int     `flag:"num-points,default=20000,usage=number of synthetic points"`
	TruncationDistance float64 `flag:"truncation-distance,default=0.2,usage=truncation band in meters"`
	CarvingEnabled     bool    `flag:"carving,default=true,usage=enable free-space carving"`
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	layer, err := tsdf.NewLayer(argsParsed.VoxelSize, int32(argsParsed.VoxelsPerSide))
	if err != nil {
		return err
	}

	integrator, err := tsdf.NewTsdfIntegrator(tsdf.Config{
		DefaultTruncationDistance: argsParsed.TruncationDistance,
		MaxWeight:                 100,
		VoxelCarvingEnabled:       argsParsed.CarvingEnabled,
		SampleSDF:                 true,
	}, layer, logger)
	if err != nil {
		return err
	}

	points, colors := syntheticSpherePoints(argsParsed.NumPoints, argsParsed.Radius)

	stats, err := integrator.IntegratePointCloud(ctx, spatialmath.NewZeroPose(), points, colors)
	if err != nil {
		return err
	}

	logger.Infof("layer has %d blocks", layer.NumBlocks())
	logger.Info(stats.Report())
	return nil
}

// syntheticSpherePoints samples n points spread evenly over a sphere of the given radius, centered
// at the origin, along a golden-angle spiral, colored by surface normal.
func syntheticSpherePoints(n int, radius float64) ([]r3.Vector, []tsdf.Color) {
	points := make([]r3.Vector, n)
	colors := make([]tsdf.Color, n)

	goldenAngle := math.Pi * (3 - math.Sqrt(5))
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n)
		lat := math.Acos(1 - 2*t)
		lon := goldenAngle * float64(i)

		x := radius * math.Sin(lat) * math.Cos(lon)
		y := radius * math.Sin(lat) * math.Sin(lon)
		z := radius * math.Cos(lat)
		points[i] = r3.Vector{X: x, Y: y, Z: z}

		colors[i] = tsdf.Color{
			R: uint8(127 + 127*x/radius),
			G: uint8(127 + 127*y/radius),
			B: uint8(127 + 127*z/radius),
			A: 255,
		}
	}
	return points, colors
}
