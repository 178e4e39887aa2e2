// Package spatialmath defines the rigid-body transformation used to place overlay geometry
// relative to the camera, plus the rotation helpers that go with it.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// defaultEpsilon is the tolerance AlmostEqual callers use when they have no better value.
const defaultEpsilon = 1e-5

// Transformation is a rigid-body pose: a 3x3 rotation followed by a translation.
// It is a plain value; copying it copies the pose.
//
// The rotation is assumed to be orthonormal with determinant 1. Nothing verifies
// this, and composing many rotations accumulates drift; see Orthonormalize.
// The zero value has an all-zero rotation, use NewIdentityTransformation instead.
type Transformation struct {
	rotation    mgl64.Mat3
	translation r3.Vector
}

// NewTransformation returns the transformation rotating by r and then translating by t.
func NewTransformation(r mgl64.Mat3, t r3.Vector) Transformation {
	return Transformation{rotation: r, translation: t}
}

// NewIdentityTransformation returns the identity rotation with zero translation.
func NewIdentityTransformation() Transformation {
	return Transformation{rotation: mgl64.Ident3()}
}

// NewTransformationFromQuaternion builds a transformation from a unit quaternion pose estimate.
// The quaternion is normalized first; a zero quaternion yields the identity rotation.
func NewTransformationFromQuaternion(q quat.Number, t r3.Vector) Transformation {
	n := quat.Abs(q)
	if n == 0 {
		return Transformation{rotation: mgl64.Ident3(), translation: t}
	}
	q = quat.Scale(1/n, q)
	mq := mgl64.Quat{W: q.Real, V: mgl64.Vec3{q.Imag, q.Jmag, q.Kmag}}
	return Transformation{rotation: mq.Mat4().Mat3(), translation: t}
}

// Rotation returns the rotation matrix.
func (tf Transformation) Rotation() mgl64.Mat3 {
	return tf.rotation
}

// Translation returns the translation vector.
func (tf Transformation) Translation() r3.Vector {
	return tf.translation
}

// SetRotation replaces the rotation.
func (tf *Transformation) SetRotation(r mgl64.Mat3) {
	tf.rotation = r
}

// SetTranslation replaces the translation.
func (tf *Transformation) SetTranslation(t r3.Vector) {
	tf.translation = t
}

// Homogeneous returns the 4x4 matrix with the rotation in the upper-left block,
// the translation in the last column and [0 0 0 1] as the last row.
func (tf Transformation) Homogeneous() mgl64.Mat4 {
	m := mgl64.Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, tf.rotation.At(row, col))
		}
	}
	m.Set(0, 3, tf.translation.X)
	m.Set(1, 3, tf.translation.Y)
	m.Set(2, 3, tf.translation.Z)
	return m
}

// Inverse returns the inverse rigid transform: the transposed rotation and -R^T t.
// It is only correct for orthonormal rotations.
func (tf Transformation) Inverse() Transformation {
	rt := tf.rotation.Transpose()
	t := rt.Mul3x1(toVec3(tf.translation)).Mul(-1)
	return Transformation{rotation: rt, translation: fromVec3(t)}
}

// TransformPoint returns R*p + t.
func (tf Transformation) TransformPoint(p r3.Vector) r3.Vector {
	return fromVec3(tf.rotation.Mul3x1(toVec3(p))).Add(tf.translation)
}

// Compose returns the transformation applying other first and then tf.
func (tf Transformation) Compose(other Transformation) Transformation {
	return Transformation{
		rotation:    tf.rotation.Mul3(other.rotation),
		translation: tf.TransformPoint(other.translation),
	}
}

// AlmostEqual reports whether both rotation and translation agree within epsilon.
// A non-positive epsilon uses 1e-5.
func (tf Transformation) AlmostEqual(other Transformation, epsilon float64) bool {
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	if !RotationAlmostEqual(tf.rotation, other.rotation, epsilon) {
		return false
	}
	d := tf.translation.Sub(other.translation)
	return math.Abs(d.X) <= epsilon && math.Abs(d.Y) <= epsilon && math.Abs(d.Z) <= epsilon
}

func (tf Transformation) String() string {
	r := tf.rotation
	return fmt.Sprintf("R=[%g %g %g; %g %g %g; %g %g %g] t=(%g, %g, %g)",
		r.At(0, 0), r.At(0, 1), r.At(0, 2),
		r.At(1, 0), r.At(1, 1), r.At(1, 2),
		r.At(2, 0), r.At(2, 1), r.At(2, 2),
		tf.translation.X, tf.translation.Y, tf.translation.Z)
}

func toVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func fromVec3(v mgl64.Vec3) r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}
