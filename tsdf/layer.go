package tsdf

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// Layer is the sparse, block-partitioned voxel grid: a mapping from BlockIndex to Block. Blocks
// are allocated lazily on first write and are never removed during integration.
//
// The block map is guarded by a RWMutex rather than relocated on insert: blocks are stored as
// pointers, so growing the underlying map never moves an already-allocated Block, satisfying the
// "stable references for existing entries" requirement even while a read races an insert of an
// unrelated block.
type Layer struct {
	voxelSize     float64
	voxelsPerSide int32
	blockSize     float64

	mu     sync.RWMutex
	blocks map[BlockIndex]*Block
}

// NewLayer creates an empty Layer with the given voxel size (meters) and voxels per block side.
func NewLayer(voxelSize float64, voxelsPerSide int32) (*Layer, error) {
	if voxelSize <= 0 {
		return nil, errors.Errorf("invalid voxel size (%.6f), must be positive", voxelSize)
	}
	if voxelsPerSide < 1 {
		return nil, errors.Errorf("invalid voxels per side (%d), must be at least 1", voxelsPerSide)
	}
	return &Layer{
		voxelSize:     voxelSize,
		voxelsPerSide: voxelsPerSide,
		blockSize:     voxelSize * float64(voxelsPerSide),
		blocks:        make(map[BlockIndex]*Block),
	}, nil
}

// VoxelSize returns the edge length of one voxel, in meters.
func (l *Layer) VoxelSize() float64 { return l.voxelSize }

// VoxelsPerSide returns the number of voxels along one edge of a block.
func (l *Layer) VoxelsPerSide() int32 { return l.voxelsPerSide }

// BlockSize returns the edge length of one block, in meters.
func (l *Layer) BlockSize() float64 { return l.blockSize }

// NumBlocks returns the number of allocated blocks.
func (l *Layer) NumBlocks() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// GetBlock returns the block at idx, if it has been allocated.
func (l *Layer) GetBlock(idx BlockIndex) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.blocks[idx]
	return b, ok
}

// AllocateOrGetBlock returns the block at idx, allocating it (with origin_W = idx * block_size)
// if it does not yet exist.
func (l *Layer) AllocateOrGetBlock(idx BlockIndex) *Block {
	l.mu.RLock()
	b, ok := l.blocks[idx]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.blocks[idx]; ok {
		return b
	}
	b = newBlock(idx, l.voxelSize, l.voxelsPerSide)
	l.blocks[idx] = b
	return b
}

// BlockIndices returns the indices of every allocated block. Order is unspecified.
func (l *Layer) BlockIndices() []BlockIndex {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return lo.Keys(l.blocks)
}

// IterBlocks calls fn for every allocated block. Iteration order is unspecified but stable for
// the duration of one call so long as no block is inserted concurrently. If fn returns false,
// iteration stops early.
func (l *Layer) IterBlocks(fn func(BlockIndex, *Block) bool) {
	l.mu.RLock()
	// Snapshot the key set so fn can itself call AllocateOrGetBlock without deadlocking; new
	// blocks inserted mid-iteration are simply not visited, matching "order unspecified".
	indices := lo.Keys(l.blocks)
	snapshot := make(map[BlockIndex]*Block, len(indices))
	for _, idx := range indices {
		snapshot[idx] = l.blocks[idx]
	}
	l.mu.RUnlock()

	for _, idx := range indices {
		if !fn(idx, snapshot[idx]) {
			return
		}
	}
}

// Merge folds every block of other into l. Blocks absent from l are inserted as clones; blocks
// present in both are merged voxel-by-voxel using the weighted-average rule, with weight
// saturating at maxWeight.
//
// Mismatched voxel_size or voxels_per_side between the two layers is a fatal configuration error.
func (l *Layer) Merge(other *Layer, maxWeight float32) error {
	if other == nil {
		return nil
	}
	if other.voxelSize != l.voxelSize || other.voxelsPerSide != l.voxelsPerSide {
		return errors.Errorf(
			"cannot merge layers with mismatched geometry: (%.6f, %d) vs (%.6f, %d)",
			l.voxelSize, l.voxelsPerSide, other.voxelSize, other.voxelsPerSide,
		)
	}

	other.mu.RLock()
	otherIndices := lo.Keys(other.blocks)
	otherBlocks := make(map[BlockIndex]*Block, len(otherIndices))
	for _, idx := range otherIndices {
		otherBlocks[idx] = other.blocks[idx]
	}
	other.mu.RUnlock()

	for _, idx := range otherIndices {
		srcBlock := otherBlocks[idx]
		srcBlock.Lock()
		srcVoxels := srcBlock.snapshotVoxels()
		srcHasData := srcBlock.HasData()
		srcBlock.Unlock()

		dstBlock := l.AllocateOrGetBlock(idx)
		dstBlock.Lock()
		for i := range srcVoxels {
			mergeWeightedAverage(&dstBlock.voxels[i], srcVoxels[i].Distance, srcVoxels[i].Weight, srcVoxels[i].Color, maxWeight)
		}
		if srcHasData {
			dstBlock.markMutated()
		}
		dstBlock.Unlock()
	}
	return nil
}

// MergeAll folds every given layer into l in order, collecting every geometry-mismatch error
// rather than stopping at the first one, so a caller merging many worker-local layers at the end
// of a frame gets a complete picture of what failed.
func (l *Layer) MergeAll(maxWeight float32, others ...*Layer) error {
	var combined error
	for _, other := range others {
		combined = multierr.Append(combined, l.Merge(other, maxWeight))
	}
	return combined
}
