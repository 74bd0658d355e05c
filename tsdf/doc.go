// Package tsdf implements a volumetric mapping core: a sparse, block-partitioned voxel grid that
// fuses streams of 3D point measurements into a Truncated Signed Distance Field (TSDF).
//
// A Layer holds the sparse grid of Blocks, each a dense cube of Voxels. A TsdfIntegrator drives a
// point cloud frame through 3D ray traversal (amanatides-woo grid marching) and a per-voxel update
// kernel, merging each measurement into the Layer while honoring truncation and carving policy.
//
// Serialization, benchmarking, synthetic point-cloud generation, and mesh extraction are
// deliberately out of scope; this package only concerns itself with the fusion core.
package tsdf
