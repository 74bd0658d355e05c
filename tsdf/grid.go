package tsdf

import (
	"math"

	"github.com/golang/geo/r3"
)

// GlobalIndex identifies a voxel in the infinite grid.
type GlobalIndex struct {
	X, Y, Z int64
}

// Add returns the componentwise sum of two global indices.
func (g GlobalIndex) Add(o GlobalIndex) GlobalIndex {
	return GlobalIndex{g.X + o.X, g.Y + o.Y, g.Z + o.Z}
}

// BlockIndex identifies a Block in a Layer.
type BlockIndex struct {
	X, Y, Z int64
}

// LocalIndex identifies a voxel within its Block; every component lies in [0, voxelsPerSide).
type LocalIndex struct {
	X, Y, Z int32
}

// Signum returns -1, 0, or +1 according to the sign of x.
func Signum(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// GridIndexFromPoint floors p*inv componentwise, mapping a world-frame point to the global voxel
// index that contains it. inv is 1/voxel_size.
func GridIndexFromPoint(p r3.Vector, inv float64) GlobalIndex {
	return GlobalIndex{
		X: int64(math.Floor(p.X * inv)),
		Y: int64(math.Floor(p.Y * inv)),
		Z: int64(math.Floor(p.Z * inv)),
	}
}

// GridIndexFromScaledPoint floors a point already expressed in scaled (one unit = one voxel)
// coordinates.
func GridIndexFromScaledPoint(p r3.Vector) GlobalIndex {
	return GlobalIndex{
		X: int64(math.Floor(p.X)),
		Y: int64(math.Floor(p.Y)),
		Z: int64(math.Floor(p.Z)),
	}
}

// OriginIndexFromPoint rounds p*inv componentwise, for locating a block whose origin is expected
// to sit exactly on a grid line.
func OriginIndexFromPoint(p r3.Vector, inv float64) GlobalIndex {
	return GlobalIndex{
		X: int64(math.Round(p.X * inv)),
		Y: int64(math.Round(p.Y * inv)),
		Z: int64(math.Round(p.Z * inv)),
	}
}

// CenterPointFromIndex returns the world-frame center of the cell at global index i with cell
// size s.
func CenterPointFromIndex(i GlobalIndex, s float64) r3.Vector {
	return r3.Vector{
		X: (float64(i.X) + 0.5) * s,
		Y: (float64(i.Y) + 0.5) * s,
		Z: (float64(i.Z) + 0.5) * s,
	}
}

// OriginPointFromIndex returns the world-frame corner of the cell at global index i with cell
// size s.
func OriginPointFromIndex(i GlobalIndex, s float64) r3.Vector {
	return r3.Vector{X: float64(i.X) * s, Y: float64(i.Y) * s, Z: float64(i.Z) * s}
}

// BlockIndexFromGlobalVoxel returns the index of the block containing global voxel g, given
// invVoxelsPerSide = 1/voxels_per_side. Uses floor division so that negative global indices map
// to negative block indices, never toward zero.
func BlockIndexFromGlobalVoxel(g GlobalIndex, invVoxelsPerSide float64) BlockIndex {
	return BlockIndex{
		X: int64(math.Floor(float64(g.X) * invVoxelsPerSide)),
		Y: int64(math.Floor(float64(g.Y) * invVoxelsPerSide)),
		Z: int64(math.Floor(float64(g.Z) * invVoxelsPerSide)),
	}
}

// LocalFromGlobalVoxel returns the Euclidean remainder of g modulo voxelsPerSide, always
// non-negative and in [0, voxelsPerSide).
func LocalFromGlobalVoxel(g GlobalIndex, voxelsPerSide int32) LocalIndex {
	return LocalIndex{
		X: int32(floorMod(g.X, int64(voxelsPerSide))),
		Y: int32(floorMod(g.Y, int64(voxelsPerSide))),
		Z: int32(floorMod(g.Z, int64(voxelsPerSide))),
	}
}

// SplitGlobalVoxel is a convenience combining BlockIndexFromGlobalVoxel and
// LocalFromGlobalVoxel.
func SplitGlobalVoxel(g GlobalIndex, voxelsPerSide int32) (BlockIndex, LocalIndex) {
	inv := 1.0 / float64(voxelsPerSide)
	return BlockIndexFromGlobalVoxel(g, inv), LocalFromGlobalVoxel(g, voxelsPerSide)
}

// GlobalVoxelFromBlockLocal reassembles a global voxel index from a block index and a local
// index: g = block_idx * voxels_per_side + local_idx.
func GlobalVoxelFromBlockLocal(b BlockIndex, l LocalIndex, voxelsPerSide int32) GlobalIndex {
	s := int64(voxelsPerSide)
	return GlobalIndex{
		X: b.X*s + int64(l.X),
		Y: b.Y*s + int64(l.Y),
		Z: b.Z*s + int64(l.Z),
	}
}

// floorMod returns the Euclidean remainder of a/b, always in [0, b) for b > 0. Go's % is
// truncating (matches the sign of the dividend), so negative a needs correction.
func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
