package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a rigid transform in 3D space: a rotation followed by a translation. It is how
// the fusion pipeline expresses a sensor's extrinsics, T_WC, the pose of a camera frame C with
// respect to the world frame W.
type Pose interface {
	// Point returns the translation component of the pose.
	Point() r3.Vector
	// Orientation returns the rotation component of the pose.
	Orientation() Orientation
	// Transform applies the pose to a point expressed in the pose's own frame, returning that
	// point expressed in the parent frame: parentPoint = pose.Transform(childPoint).
	Transform(point r3.Vector) r3.Vector
}

type pose struct {
	translation r3.Vector
	rotation    quat.Number
}

// NewPose returns a Pose with the given translation and orientation.
func NewPose(point r3.Vector, o Orientation) Pose {
	q := quat.Number{Real: 1}
	if o != nil {
		q = o.Quaternion()
	}
	return &pose{translation: point, rotation: q}
}

// NewPoseFromPoint returns a Pose with no rotation at the given point.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &pose{translation: point, rotation: quat.Number{Real: 1}}
}

// NewZeroPose returns the identity pose.
func NewZeroPose() Pose {
	return &pose{rotation: quat.Number{Real: 1}}
}

func (p *pose) Point() r3.Vector {
	return p.translation
}

func (p *pose) Orientation() Orientation {
	q := quaternion(p.rotation)
	return &q
}

// Transform rotates then translates the given point: Transform(p) = R*p + t.
func (p *pose) Transform(point r3.Vector) r3.Vector {
	return rotateVector(p.rotation, point).Add(p.translation)
}

// rotateVector applies a unit quaternion's rotation to a vector using the sandwich product
// q * v * conj(q), treating v as a pure-imaginary quaternion.
func rotateVector(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rq := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rq.Imag, Y: rq.Jmag, Z: rq.Kmag}
}

// Compose returns the pose that results from applying b in a's frame, i.e. a's transform applied
// after b's: equivalent to a * b when poses are written as homogeneous transforms.
func Compose(a, b Pose) Pose {
	aq := a.Orientation().Quaternion()
	bq := b.Orientation().Quaternion()
	rotated := rotateVector(aq, b.Point())
	q := quaternion(quat.Mul(aq, bq))
	return &pose{translation: a.Point().Add(rotated), rotation: quat.Number(q)}
}

// Invert returns the pose whose transform undoes p's.
func Invert(p Pose) Pose {
	qInv := quat.Conj(p.Orientation().Quaternion())
	qInv = quat.Scale(1/quat.Abs(qInv), qInv)
	negTranslation := rotateVector(qInv, p.Point()).Mul(-1)
	return &pose{translation: negTranslation, rotation: qInv}
}

// PoseAlmostEqual returns true if two poses have approximately the same translation and rotation.
func PoseAlmostEqual(a, b Pose) bool {
	d := a.Point().Sub(b.Point())
	const tol = 1e-6
	if d.Norm() > tol {
		return false
	}
	return OrientationAlmostEqual(a.Orientation(), b.Orientation())
}
