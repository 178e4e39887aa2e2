package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// RotationX returns the right-handed rotation of theta radians about the x axis.
func RotationX(theta float64) mgl64.Mat3 {
	return mgl64.Rotate3DX(theta)
}

// RotationY returns the right-handed rotation of theta radians about the y axis.
func RotationY(theta float64) mgl64.Mat3 {
	return mgl64.Rotate3DY(theta)
}

// RotationZ returns the right-handed rotation of theta radians about the z axis.
func RotationZ(theta float64) mgl64.Mat3 {
	return mgl64.Rotate3DZ(theta)
}

// IsOrthonormal reports whether r is a proper rotation within epsilon:
// R^T R = I and det(R) = 1.
func IsOrthonormal(r mgl64.Mat3, epsilon float64) bool {
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	if !RotationAlmostEqual(r.Transpose().Mul3(r), mgl64.Ident3(), epsilon) {
		return false
	}
	return math.Abs(r.Det()-1) <= epsilon
}

// RotationAlmostEqual reports whether every entry of a and b differs by at most epsilon.
// A non-positive epsilon uses 1e-5.
func RotationAlmostEqual(a, b mgl64.Mat3, epsilon float64) bool {
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

// Orthonormalize returns a copy of tf whose rotation is the closest proper
// rotation to the current one (R = U V^T from its SVD, with the sign fixed so
// that det(R) = 1). Callers composing many rotations should do this periodically.
func (tf Transformation) Orthonormalize() Transformation {
	m := mat.NewDense(3, 3, nil)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, tf.rotation.At(row, col))
		}
	}
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return tf
	}
	var u, v, r mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for row := 0; row < 3; row++ {
			u.Set(row, 2, -u.At(row, 2))
		}
		r.Mul(&u, v.T())
	}

	out := tf
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.rotation.Set(row, col, r.At(row, col))
		}
	}
	return out
}

// RotationYX returns Ry(yaw) * Rx(pitch), the orbit rotation used to spin a pattern pose
// from keyboard or mouse input.
func RotationYX(yaw, pitch float64) mgl64.Mat3 {
	return RotationY(yaw).Mul3(RotationX(pitch))
}
