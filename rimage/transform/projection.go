package transform

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ClipPlanes are the near and far clipping distances of a perspective projection, in the same
// units as the pose translations.
type ClipPlanes struct {
	Near float64 `json:"near"`
	Far  float64 `json:"far"`
}

// DefaultClipPlanes returns the clipping distances used for AR overlays.
func DefaultClipPlanes() ClipPlanes {
	return ClipPlanes{Near: 0.01, Far: 100}
}

// CheckValid requires 0 < near < far.
func (c ClipPlanes) CheckValid() error {
	if c.Near <= 0 {
		return errors.Errorf("near clipping plane must be positive, got %v", c.Near)
	}
	if c.Far <= c.Near {
		return errors.Errorf("far clipping plane (%v) must be beyond the near plane (%v)", c.Far, c.Near)
	}
	return nil
}

// BuildProjectionMatrix returns the 4x4 perspective projection that reproduces the field of
// view of the calibrated camera on a width x height viewport, so that geometry drawn with a
// pose estimate lines up with the video frame. The result is row-major (vision convention);
// use ToGL before handing it to a column-major graphics pipeline.
//
// Nothing is validated here: zero viewport sizes or focal lengths yield Inf/NaN entries.
// ProjectionForViewport is the checked entry point.
func BuildProjectionMatrix(intrinsics *PinholeCameraIntrinsics, width, height int, clip ClipPlanes) *mat.Dense {
	w, h := float64(width), float64(height)
	near, far := clip.Near, clip.Far

	m := mat.NewDense(4, 4, nil)
	m.Set(0, 0, -2*intrinsics.Fx/w)
	m.Set(1, 1, 2*intrinsics.Fy/h)
	m.Set(0, 2, 2*intrinsics.Ppx/w-1)
	m.Set(1, 2, 2*intrinsics.Ppy/h-1)
	m.Set(2, 2, -(far+near)/(far-near))
	m.Set(3, 2, -1)
	m.Set(2, 3, -2*far*near/(far-near))
	return m
}

// ToGL converts a row-major 4x4 matrix to column-major storage. This is the one transpose
// between the vision and graphics conventions. It panics if m is not 4x4.
func ToGL(m mat.Matrix) mgl32.Mat4 {
	if r, c := m.Dims(); r != 4 || c != 4 {
		panic(errors.Errorf("expected a 4x4 matrix, got %dx%d", r, c))
	}
	var out mgl32.Mat4
	for row := 0; row < 4; row++ {
		for col := 0; col < 4; col++ {
			out.Set(row, col, float32(m.At(row, col)))
		}
	}
	return out
}

// ProjectionForViewport validates its inputs, builds the projection and converts it for GL.
func ProjectionForViewport(intrinsics *PinholeCameraIntrinsics, width, height int, clip ClipPlanes) (mgl32.Mat4, error) {
	if width <= 0 || height <= 0 {
		return mgl32.Mat4{}, errors.Errorf("viewport must have positive dimensions, got %dx%d", width, height)
	}
	if err := intrinsics.CheckValid(); err != nil {
		return mgl32.Mat4{}, err
	}
	if err := clip.CheckValid(); err != nil {
		return mgl32.Mat4{}, err
	}
	return ToGL(BuildProjectionMatrix(intrinsics, width, height, clip)), nil
}

// BackgroundProjection returns the orthographic projection used to draw the video frame as a
// full-viewport quad (see BackgroundQuad). It is already column-major.
func BackgroundProjection(width, height int) mgl32.Mat4 {
	w, h := float32(width), float32(height)
	return mgl32.Mat4{
		0, -2 / w, 0, 0,
		-2 / h, 0, 0, 0,
		0, 0, 1, 0,
		1, 1, 0, 1,
	}
}

// BackgroundQuad returns the triangle-strip vertices and texture coordinates of the video
// frame quad, two floats per corner.
func BackgroundQuad(width, height int) (vertices, texCoords [8]float32) {
	w, h := float32(width), float32(height)
	vertices = [8]float32{0, 0, w, 0, 0, h, w, h}
	texCoords = [8]float32{1, 0, 1, 1, 0, 0, 0, 1}
	return vertices, texCoords
}
