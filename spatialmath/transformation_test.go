package spatialmath

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/num/quat"
)

func randomTransformation(rnd *rand.Rand) Transformation {
	r := RotationZ(rnd.Float64() * 2 * math.Pi).
		Mul3(RotationY(rnd.Float64() * 2 * math.Pi)).
		Mul3(RotationX(rnd.Float64() * 2 * math.Pi))
	t := r3.Vector{X: rnd.Float64()*20 - 10, Y: rnd.Float64()*20 - 10, Z: rnd.Float64()*20 - 10}
	return NewTransformation(r, t)
}

func TestIdentityTransformation(t *testing.T) {
	id := NewIdentityTransformation()
	test.That(t, id.Homogeneous(), test.ShouldResemble, mgl64.Ident4())
	test.That(t, id.Inverse().AlmostEqual(id, 0), test.ShouldBeTrue)

	p := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, id.TransformPoint(p), test.ShouldResemble, p)
}

func TestInverseRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		tf := randomTransformation(rnd)
		back := tf.Inverse().Inverse()
		test.That(t, back.AlmostEqual(tf, 1e-5), test.ShouldBeTrue)

		composed := tf.Compose(tf.Inverse())
		test.That(t, composed.AlmostEqual(NewIdentityTransformation(), 1e-9), test.ShouldBeTrue)
	}
}

func TestInverseValues(t *testing.T) {
	tf := NewTransformation(RotationZ(math.Pi/2), r3.Vector{X: 1, Y: 2, Z: 3})
	inv := tf.Inverse()

	test.That(t, inv.Rotation(), test.ShouldResemble, tf.Rotation().Transpose())
	// -R^T t with R^T a -90 degree rotation about z
	test.That(t, inv.Translation().X, test.ShouldAlmostEqual, -2)
	test.That(t, inv.Translation().Y, test.ShouldAlmostEqual, 1)
	test.That(t, inv.Translation().Z, test.ShouldAlmostEqual, -3)

	p := r3.Vector{X: 4, Y: -5, Z: 6}
	q := inv.TransformPoint(tf.TransformPoint(p))
	test.That(t, q.X, test.ShouldAlmostEqual, p.X)
	test.That(t, q.Y, test.ShouldAlmostEqual, p.Y)
	test.That(t, q.Z, test.ShouldAlmostEqual, p.Z)
}

func TestHomogeneous(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		tf := randomTransformation(rnd)
		m := tf.Homogeneous()

		test.That(t, m.Row(3), test.ShouldResemble, mgl64.Vec4{0, 0, 0, 1})
		test.That(t, m.At(0, 3), test.ShouldEqual, tf.Translation().X)
		test.That(t, m.At(1, 3), test.ShouldEqual, tf.Translation().Y)
		test.That(t, m.At(2, 3), test.ShouldEqual, tf.Translation().Z)

		p := r3.Vector{X: rnd.Float64(), Y: rnd.Float64(), Z: rnd.Float64()}
		h := m.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
		expected := tf.TransformPoint(p)
		test.That(t, h[0], test.ShouldAlmostEqual, expected.X, 1e-9)
		test.That(t, h[1], test.ShouldAlmostEqual, expected.Y, 1e-9)
		test.That(t, h[2], test.ShouldAlmostEqual, expected.Z, 1e-9)
		test.That(t, h[3], test.ShouldEqual, 1)
	}
}

func TestTransformationIsValue(t *testing.T) {
	tf := NewTransformation(RotationX(0.3), r3.Vector{Z: -10})
	cp := tf
	cp.SetTranslation(r3.Vector{Z: 5})
	cp.SetRotation(mgl64.Ident3())

	test.That(t, tf.Translation(), test.ShouldResemble, r3.Vector{Z: -10})
	test.That(t, tf.Rotation(), test.ShouldResemble, RotationX(0.3))
}

func TestTransformationFromQuaternion(t *testing.T) {
	// 90 degrees about z, deliberately not unit length
	q := quat.Number{Real: 2 * math.Cos(math.Pi/4), Kmag: 2 * math.Sin(math.Pi/4)}
	tf := NewTransformationFromQuaternion(q, r3.Vector{X: 1})
	p := tf.TransformPoint(r3.Vector{X: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 1)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0)
	test.That(t, IsOrthonormal(tf.Rotation(), 1e-9), test.ShouldBeTrue)

	zero := NewTransformationFromQuaternion(quat.Number{}, r3.Vector{})
	test.That(t, zero.AlmostEqual(NewIdentityTransformation(), 0), test.ShouldBeTrue)
}

func TestOrthonormalize(t *testing.T) {
	drifted := RotationY(0.7).Mul3(RotationX(-0.2))
	drifted[0] += 1e-3
	drifted[4] -= 2e-3
	drifted[7] += 1e-3
	tf := NewTransformation(drifted, r3.Vector{X: 1, Y: 2, Z: 3})
	test.That(t, IsOrthonormal(tf.Rotation(), 1e-6), test.ShouldBeFalse)

	fixed := tf.Orthonormalize()
	test.That(t, IsOrthonormal(fixed.Rotation(), 1e-9), test.ShouldBeTrue)
	test.That(t, fixed.Translation(), test.ShouldResemble, tf.Translation())
	test.That(t, RotationAlmostEqual(fixed.Rotation(), drifted, 1e-2), test.ShouldBeTrue)

	// the receiver is untouched
	test.That(t, tf.Rotation(), test.ShouldResemble, drifted)

	// reflections are turned into proper rotations
	reflection := mgl64.Diag3(mgl64.Vec3{1, 1, -1})
	proper := NewTransformation(reflection, r3.Vector{}).Orthonormalize()
	test.That(t, proper.Rotation().Det(), test.ShouldAlmostEqual, 1)
}

func TestAlmostEqualNearZero(t *testing.T) {
	id := NewIdentityTransformation()
	r := mgl64.Ident3()
	r.Set(0, 1, 1e-8)
	near := NewTransformation(r, r3.Vector{Z: 1e-8})
	test.That(t, near.AlmostEqual(id, 1e-5), test.ShouldBeTrue)
	test.That(t, near.AlmostEqual(id, 1e-9), test.ShouldBeFalse)
	test.That(t, RotationAlmostEqual(r, mgl64.Ident3(), 0), test.ShouldBeTrue)

	r.Set(2, 0, 1e-4)
	test.That(t, RotationAlmostEqual(r, mgl64.Ident3(), 1e-5), test.ShouldBeFalse)

	// 1e-7 off the diagonal keeps R^T R within 1e-5 of identity
	tilted := mgl64.Ident3()
	tilted.Set(1, 2, 1e-7)
	test.That(t, IsOrthonormal(tilted, 1e-5), test.ShouldBeTrue)
	test.That(t, IsOrthonormal(RotationZ(0.4), 0), test.ShouldBeTrue)
}

func TestParse(t *testing.T) {
	v, err := ParseVector("0, -0.5 10")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, r3.Vector{X: 0, Y: -0.5, Z: 10})

	_, err = ParseVector("1 2")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "expected 3 values")

	_, err = ParseFloats("1 x 2")
	test.That(t, err, test.ShouldNotBeNil)

	values, err := ParseFloats("1 0 0 0 0 -1 0 1 0")
	test.That(t, err, test.ShouldBeNil)
	r, err := RotationFromRowMajor(values)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, RotationAlmostEqual(r, RotationX(math.Pi/2), 1e-12), test.ShouldBeTrue)
	test.That(t, r.At(1, 2), test.ShouldEqual, -1)
}

func TestRotationYX(t *testing.T) {
	// yaw turns +x toward -z
	p := NewTransformation(RotationYX(math.Pi/2, 0), r3.Vector{}).TransformPoint(r3.Vector{X: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 0)
	test.That(t, p.Z, test.ShouldAlmostEqual, -1)

	// pitch is applied first
	tf := NewTransformation(RotationYX(math.Pi/2, math.Pi/2), r3.Vector{})
	p = tf.TransformPoint(r3.Vector{Y: 1})
	test.That(t, p.X, test.ShouldAlmostEqual, 1)
	test.That(t, p.Y, test.ShouldAlmostEqual, 0)
	test.That(t, p.Z, test.ShouldAlmostEqual, 0)
	test.That(t, IsOrthonormal(tf.Rotation(), 1e-9), test.ShouldBeTrue)
}
