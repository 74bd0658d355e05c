package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// R4AA represents an R4 axis angle: an axis of rotation (RX, RY, RZ), which should be on the
// unit sphere, and an angle Theta (radians) to rotate around it.
// See https://en.wikipedia.org/wiki/Axis%E2%80%93angle_representation.
type R4AA struct {
	Theta float64 `json:"th"`
	RX    float64 `json:"x"`
	RY    float64 `json:"y"`
	RZ    float64 `json:"z"`
}

// NewR4AA creates a zero-rotation R4AA struct.
func NewR4AA() *R4AA {
	return &R4AA{Theta: 0, RX: 0, RY: 0, RZ: 1}
}

// AxisAngles returns the orientation in axis angle representation.
func (r4 *R4AA) AxisAngles() *R4AA {
	return r4
}

// Quaternion returns orientation in quaternion representation.
func (r4 *R4AA) Quaternion() quat.Number {
	return r4.ToQuat()
}

// ToR3 converts an R4 axis angle to R3, where theta is baked into the length of the vector.
func (r4 *R4AA) ToR3() r3.Vector {
	return r3.Vector{X: r4.RX * r4.Theta, Y: r4.RY * r4.Theta, Z: r4.RZ * r4.Theta}
}

// ToQuat converts an R4 axis angle to a unit quaternion.
// See https://www.euclideanspace.com/maths/geometry/rotations/conversions/angleToQuaternion/.
func (r4 *R4AA) ToQuat() quat.Number {
	sinA := math.Sin(r4.Theta / 2)
	r4.Normalize()
	return quat.Number{
		Real: math.Cos(r4.Theta / 2),
		Imag: r4.RX * sinA,
		Jmag: r4.RY * sinA,
		Kmag: r4.RZ * sinA,
	}
}

// Normalize scales the x, y, and z components of an R4 axis angle to lie on the unit sphere.
func (r4 *R4AA) Normalize() {
	norm := math.Sqrt(r4.RX*r4.RX + r4.RY*r4.RY + r4.RZ*r4.RZ)
	if norm == 0.0 {
		r4.RX, r4.RY, r4.RZ = 0, 0, 1
		return
	}
	r4.RX /= norm
	r4.RY /= norm
	r4.RZ /= norm
}

// R3ToR4 converts an R3 angle axis (direction encodes the axis, length encodes theta) to R4.
func R3ToR4(aa r3.Vector) *R4AA {
	theta := aa.Norm()
	if theta == 0 {
		return NewR4AA()
	}
	return &R4AA{Theta: theta, RX: aa.X / theta, RY: aa.Y / theta, RZ: aa.Z / theta}
}

// QuatToR4AA converts a quaternion to an R4 axis angle, following the same convention as the
// Eigen C++ library: https://eigen.tuxfamily.org/dox/AngleAxis_8h_source.html.
func QuatToR4AA(q quat.Number) R4AA {
	denom := Norm(q)
	angle := 2 * math.Atan2(denom, math.Abs(q.Real))
	if q.Real < 0 {
		angle *= -1
	}
	if denom < 1e-6 {
		return R4AA{Theta: angle, RX: 1, RY: 0, RZ: 0}
	}
	return R4AA{Theta: angle, RX: q.Imag / denom, RY: q.Jmag / denom, RZ: q.Kmag / denom}
}

// Norm returns the norm of the imaginary part of the quaternion.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip multiplies a quaternion by -1, returning a quaternion representing the same rotation but
// in the opposing double-cover octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}
