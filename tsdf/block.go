package tsdf

import (
	"sync"

	"github.com/golang/geo/r3"
	"go.uber.org/atomic"
)

// Block is a dense cube of voxelsPerSide³ voxels, the unit of allocation in a Layer.
//
// A Block is owned solely by its Layer; callers take the block's lock for the duration of all
// updates from a single ray so that per-voxel lookups are amortized and two workers never mutate
// the same block concurrently.
type Block struct {
	OriginW       r3.Vector
	VoxelSize     float64
	VoxelsPerSide int32

	invVoxelSize float64

	mu     sync.Mutex
	voxels []Voxel

	hasData atomic.Bool
	updated atomic.Bool
}

func newBlock(idx BlockIndex, voxelSize float64, voxelsPerSide int32) *Block {
	blockSize := voxelSize * float64(voxelsPerSide)
	return &Block{
		OriginW:       r3.Vector{X: float64(idx.X) * blockSize, Y: float64(idx.Y) * blockSize, Z: float64(idx.Z) * blockSize},
		VoxelSize:     voxelSize,
		VoxelsPerSide: voxelsPerSide,
		invVoxelSize:  1 / voxelSize,
		voxels:        make([]Voxel, int64(voxelsPerSide)*int64(voxelsPerSide)*int64(voxelsPerSide)),
	}
}

// LinearIndex converts a local voxel index to its position in the dense voxel array:
// x + S*(y + S*z).
func (b *Block) LinearIndex(l LocalIndex) int {
	s := int(b.VoxelsPerSide)
	return int(l.X) + s*(int(l.Y)+s*int(l.Z))
}

// Lock acquires the block for the duration of a batch of mutations. Callers should hold this for
// every voxel hit produced by a single ray against this block.
func (b *Block) Lock() { b.mu.Lock() }

// Unlock releases a previously acquired Lock.
func (b *Block) Unlock() { b.mu.Unlock() }

// VoxelAt returns a pointer to the voxel at local index l. The caller must hold the block's lock.
func (b *Block) VoxelAt(l LocalIndex) *Voxel {
	return &b.voxels[b.LinearIndex(l)]
}

// CenterOfVoxel returns the world-frame center of the voxel at local index l within this block.
func (b *Block) CenterOfVoxel(l LocalIndex) r3.Vector {
	half := b.VoxelSize / 2
	return r3.Vector{
		X: b.OriginW.X + float64(l.X)*b.VoxelSize + half,
		Y: b.OriginW.Y + float64(l.Y)*b.VoxelSize + half,
		Z: b.OriginW.Z + float64(l.Z)*b.VoxelSize + half,
	}
}

// HasData reports whether any voxel in this block has weight > 0.
func (b *Block) HasData() bool { return b.hasData.Load() }

// Updated reports whether this block has been mutated since the flag was last cleared.
func (b *Block) Updated() bool { return b.updated.Load() }

// ClearUpdated clears the updated flag. Intended for external consumers (a mesh extractor, a
// serializer) that need to detect the next round of changes.
func (b *Block) ClearUpdated() { b.updated.Store(false) }

// markMutated sets has_data and updated to true. Called by the integrator after a voxel update
// and by Layer.Merge, while the block's lock is held.
func (b *Block) markMutated() {
	b.hasData.Store(true)
	b.updated.Store(true)
}

// snapshotVoxels returns a copy of every voxel in linear-index order, used by Layer.Merge. The
// caller must hold the block's lock.
func (b *Block) snapshotVoxels() []Voxel {
	out := make([]Voxel, len(b.voxels))
	copy(out, b.voxels)
	return out
}
