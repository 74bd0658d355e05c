// Package spatialmath provides the rigid-body pose and rotation primitives used to transform
// sensor measurements between a camera frame and the world frame.
package spatialmath

import (
	"gonum.org/v1/gonum/num/quat"
)

// Orientation is an interface used to express the different parameterizations of the orientation
// of a rigid object or a frame of reference in 3D Euclidean space.
//
// Only the representations the fusion pipeline actually consumes are kept here: a quaternion for
// composing and applying rotations, and an axis-angle form for constructing them from a sensor's
// calibration output.
type Orientation interface {
	Quaternion() quat.Number
	AxisAngles() *R4AA
}

// quaternion is the default Orientation implementation, a unit quaternion.
type quaternion quat.Number

// NewZeroOrientation returns an orientation which signifies no rotation.
func NewZeroOrientation() Orientation {
	return &quaternion{Real: 1}
}

func (q *quaternion) Quaternion() quat.Number {
	return quat.Number(*q)
}

func (q *quaternion) AxisAngles() *R4AA {
	aa := QuatToR4AA(quat.Number(*q))
	return &aa
}

// QuaternionAlmostEqual compares two quaternions, allowing that q and -q represent the same
// rotation.
func QuaternionAlmostEqual(q1, q2 quat.Number, tol float64) bool {
	if quatAlmostEqualEps(q1, q2, tol) {
		return true
	}
	return quatAlmostEqualEps(q1, Flip(q2), tol)
}

func quatAlmostEqualEps(q1, q2 quat.Number, tol float64) bool {
	return absDiff(q1.Real, q2.Real) <= tol &&
		absDiff(q1.Imag, q2.Imag) <= tol &&
		absDiff(q1.Jmag, q2.Jmag) <= tol &&
		absDiff(q1.Kmag, q2.Kmag) <= tol
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}

// OrientationAlmostEqual returns true if two orientations represent approximately the same
// rotation.
func OrientationAlmostEqual(o1, o2 Orientation) bool {
	return QuaternionAlmostEqual(o1.Quaternion(), o2.Quaternion(), 1e-5)
}

// OrientationBetween returns the orientation representing the difference between the two given
// orientations, i.e. the rotation that takes o1 to o2.
func OrientationBetween(o1, o2 Orientation) Orientation {
	q := quaternion(quat.Mul(o2.Quaternion(), quat.Conj(o1.Quaternion())))
	return &q
}
