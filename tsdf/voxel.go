package tsdf

// Color is the premultiplied RGBA color blended into a voxel alongside its distance.
type Color struct {
	R, G, B, A uint8
}

// Voxel is a single TSDF sample: a signed distance to the nearest observed surface, the
// accumulated confidence weight behind that estimate, and the blended surface color.
//
// The zero value is a valid, unobserved voxel.
type Voxel struct {
	Distance float32
	Weight   float32
	Color    Color
}

// Observed reports whether this voxel has received at least one measurement.
func (v Voxel) Observed() bool {
	return v.Weight > 0
}

// mergeWeightedAverage folds a new (distance, weight) sample into an existing voxel, saturating
// the result weight at maxWeight. It is the single formula shared by the per-measurement update
// kernel and by Layer.Merge's block reduction.
func mergeWeightedAverage(v *Voxel, sdf, w float32, c Color, maxWeight float32) {
	if w <= 0 {
		return
	}
	totalWeight := v.Weight + w
	if totalWeight <= 0 {
		return
	}
	v.Distance = (v.Distance*v.Weight + sdf*w) / totalWeight
	v.Color = blendColor(v.Color, v.Weight, c, w)
	v.Weight = totalWeight
	if v.Weight > maxWeight {
		v.Weight = maxWeight
	}
}

// blendColor computes the per-channel weighted average of two colors, rounded to the nearest
// integer.
func blendColor(c1 Color, w1 float32, c2 Color, w2 float32) Color {
	total := w1 + w2
	if total <= 0 {
		return c1
	}
	return Color{
		R: blendChannel(c1.R, w1, c2.R, w2, total),
		G: blendChannel(c1.G, w1, c2.G, w2, total),
		B: blendChannel(c1.B, w1, c2.B, w2, total),
		A: blendChannel(c1.A, w1, c2.A, w2, total),
	}
}

func blendChannel(v1 uint8, w1 float32, v2 uint8, w2 float32, total float32) uint8 {
	blended := (float32(v1)*w1 + float32(v2)*w2) / total
	if blended < 0 {
		return 0
	}
	if blended > 255 {
		return 255
	}
	return uint8(blended + 0.5)
}
