package tsdf

import "github.com/golang/geo/r3"

// KernelConfig is the subset of integrator configuration the update kernel needs to evaluate a
// single voxel hit.
type KernelConfig struct {
	DefaultTruncationDistance float64
	MaxWeight                 float32
	ConstWeight               bool
}

// applyUpdate computes the signed distance, measurement weight, and color blend for one voxel hit
// and folds it into v. oW is the sensor origin, pW the measured surface point, vW the voxel
// center, both in world coordinates; c is the measurement color.
//
// Returns false if the hit was skipped (degenerate ray, or sdf past the truncation band on the
// negative side), true otherwise. At sdf == -truncation exactly the taper gives the measurement
// zero weight, so v is left unchanged even though true is returned.
func applyUpdate(v *Voxel, oW, pW, vW r3.Vector, c Color, cfg KernelConfig) bool {
	toPoint := pW.Sub(oW)
	rangeM := toPoint.Norm()
	if rangeM <= rayTolerance {
		return false
	}
	u := toPoint.Mul(1 / rangeM)

	sdf := pW.Sub(vW).Dot(u)
	if sdf < -cfg.DefaultTruncationDistance {
		return false
	}
	if sdf > cfg.DefaultTruncationDistance {
		sdf = cfg.DefaultTruncationDistance
	}

	wMeas := float32(1)
	if !cfg.ConstWeight {
		wMeas = float32(1 / (rangeM * rangeM))
	}
	wMeas *= negativeBandTaper(sdf, cfg.DefaultTruncationDistance)

	mergeWeightedAverage(v, float32(sdf), wMeas, c, cfg.MaxWeight)
	return true
}

// negativeBandTaper linearly ramps the measurement weight from 0 at the back of the truncation
// band (sdf == -truncation) to 1 at the surface (sdf == 0), and leaves positive-side (in front of
// the surface) weight untouched.
func negativeBandTaper(sdf, truncation float64) float32 {
	if truncation <= 0 || sdf >= 0 {
		return 1
	}
	t := (sdf + truncation) / truncation
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return float32(t)
	}
}
