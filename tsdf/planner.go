package tsdf

import (
	"github.com/golang/geo/r3"
)

// RayHits groups the voxels a single ray touches by the block that owns them, in traversal
// order, so the integrator can acquire each block exactly once per ray.
type RayHits struct {
	order   []BlockIndex
	byBlock map[BlockIndex][]LocalIndex
}

// BlockOrder returns the blocks touched by this ray, in the order they were first visited.
func (h *RayHits) BlockOrder() []BlockIndex { return h.order }

// LocalIndices returns the local voxel indices hit within the given block, in traversal order.
func (h *RayHits) LocalIndices(b BlockIndex) []LocalIndex { return h.byBlock[b] }

// PlanRay computes the voxels that measuring a surface point at eW from sensor origin sW should
// update: the truncation band around eW, optionally extended back to sW if carving is enabled.
//
// sW and eW are in world coordinates; voxelSize/voxelsPerSide describe the layer geometry.
func PlanRay(sW, eW r3.Vector, voxelSize float64, voxelsPerSide int32, truncationDistance float64, carvingEnabled bool) *RayHits {
	diff := eW.Sub(sW)
	length := diff.Norm()

	var u r3.Vector
	if length > rayTolerance {
		u = diff.Mul(1 / length)
	}

	rayEndW := eW.Add(u.Mul(truncationDistance))

	rayStartW := eW.Sub(u.Mul(truncationDistance))
	if carvingEnabled {
		rayStartW = sW
	}

	inv := 1 / voxelSize
	startS := rayStartW.Mul(inv)
	endS := rayEndW.Mul(inv)

	globalIndices := CastRay(startS, endS)

	hits := &RayHits{byBlock: make(map[BlockIndex][]LocalIndex)}
	for _, g := range globalIndices {
		blockIdx, localIdx := SplitGlobalVoxel(g, voxelsPerSide)
		if _, seen := hits.byBlock[blockIdx]; !seen {
			hits.order = append(hits.order, blockIdx)
		}
		hits.byBlock[blockIdx] = append(hits.byBlock[blockIdx], localIdx)
	}
	return hits
}
