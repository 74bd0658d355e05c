package tsdf

import (
	"math"

	"github.com/golang/geo/r3"
)

// rayTolerance guards the ray caster against both literal zeros and near-parallel-to-plane rays
// when computing crossing times.
const rayTolerance = 1e-6

// CastRay enumerates, in traversal order, every global voxel index pierced by the segment
// [startS, endS], both given in scaled coordinates (one unit = one voxel). The output starts
// with the voxel containing startS and ends with the voxel containing endS.
//
// This is the Amanatides & Woo 3D-DDA algorithm: starting from the voxel containing startS, it
// repeatedly steps into whichever neighboring voxel the ray crosses into next, tracking the
// parametric distance to the next grid-plane crossing on each axis.
func CastRay(startS, endS r3.Vector) []GlobalIndex {
	startIdx := GridIndexFromScaledPoint(startS)
	endIdx := GridIndexFromScaledPoint(endS)

	if startIdx == endIdx {
		return []GlobalIndex{startIdx}
	}

	ray := endS.Sub(startS)
	rayComponents := [3]float64{ray.X, ray.Y, ray.Z}
	startComponents := [3]float64{startS.X, startS.Y, startS.Z}
	startIdxComponents := [3]int64{startIdx.X, startIdx.Y, startIdx.Z}

	var step [3]int64
	var tToNext [3]float64
	var tStep [3]float64

	for a := 0; a < 3; a++ {
		step[a] = int64(Signum(rayComponents[a]))

		corrected := 0.0
		if step[a] > 0 {
			corrected = 1.0
		}
		offset := corrected - (startComponents[a] - float64(startIdxComponents[a]))

		if math.Abs(rayComponents[a]) >= rayTolerance {
			tToNext[a] = offset / rayComponents[a]
			tStep[a] = float64(step[a]) / rayComponents[a]
		} else {
			tToNext[a] = 2.0
			tStep[a] = 0
		}
	}

	current := startIdxComponents
	out := []GlobalIndex{{X: current[0], Y: current[1], Z: current[2]}}

	endComponents := [3]int64{endIdx.X, endIdx.Y, endIdx.Z}
	for current != endComponents {
		axis := 0
		if tToNext[1] < tToNext[axis] {
			axis = 1
		}
		if tToNext[2] < tToNext[axis] {
			axis = 2
		}

		current[axis] += step[axis]
		tToNext[axis] += tStep[axis]

		out = append(out, GlobalIndex{X: current[0], Y: current[1], Z: current[2]})
	}

	return out
}
