// Package scene turns calibrated cameras, poses and point clouds into what a renderer draws:
// camera placements around a cloud, overlay geometry, and the two drawing contexts that feed
// a Window.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mcv-project/arview/pointcloud"
)

// FramingConfig holds the heuristics used to place a viewing camera around a cloud.
// Distances scale with the cloud's spread.
type FramingConfig struct {
	FOVDegrees  float64   `json:"fov_degrees"`
	OffsetScale float64   `json:"offset_scale"`
	NearFactor  float64   `json:"near_factor"`
	FarFactor   float64   `json:"far_factor"`
	Up          r3.Vector `json:"up"`
}

// DefaultFramingConfig looks at the cloud diagonally from one spread along +x and +z, with a
// 45 degree vertical field of view and clip planes at 0.1 and 5 spreads.
func DefaultFramingConfig() FramingConfig {
	return FramingConfig{
		FOVDegrees:  45,
		OffsetScale: 1,
		NearFactor:  0.1,
		FarFactor:   5,
		Up:          r3.Vector{Y: 1},
	}
}

// CheckValid ensures the heuristics can produce a usable camera for a non-degenerate cloud.
func (cfg FramingConfig) CheckValid() error {
	if cfg.FOVDegrees <= 0 || cfg.FOVDegrees >= 180 {
		return errors.Errorf("field of view must be in (0, 180) degrees, got %v", cfg.FOVDegrees)
	}
	if cfg.OffsetScale <= 0 {
		return errors.Errorf("offset scale must be positive, got %v", cfg.OffsetScale)
	}
	if cfg.NearFactor <= 0 || cfg.FarFactor <= cfg.NearFactor {
		return errors.Errorf("need 0 < near factor < far factor, got %v and %v", cfg.NearFactor, cfg.FarFactor)
	}
	if cfg.Up.Norm2() == 0 {
		return errors.New("up vector must be non-zero")
	}
	return nil
}

// CameraPlacement is a look-at camera with a symmetric perspective frustum.
type CameraPlacement struct {
	Position   r3.Vector
	Target     r3.Vector
	Up         r3.Vector
	Near       float64
	Far        float64
	FOVDegrees float64
}

// FrameBounds places the camera for the given bounds:
//
//	target   = center
//	position = center + (spread*k, 0, spread*k)
//	near     = spread * nearFactor
//	far      = spread * farFactor
//
// A cloud with zero spread yields a camera sitting on its target with collapsed clip planes;
// see Degenerate.
func FrameBounds(meta pointcloud.MetaData, cfg FramingConfig) CameraPlacement {
	offset := meta.Spread * cfg.OffsetScale
	return CameraPlacement{
		Position:   meta.Center.Add(r3.Vector{X: offset, Z: offset}),
		Target:     meta.Center,
		Up:         cfg.Up,
		Near:       meta.Spread * cfg.NearFactor,
		Far:        meta.Spread * cfg.FarFactor,
		FOVDegrees: cfg.FOVDegrees,
	}
}

// FrameCloud computes fresh bounds for the cloud and frames them.
func FrameCloud(cloud *pointcloud.Cloud, cfg FramingConfig) (CameraPlacement, error) {
	meta, err := pointcloud.ComputeBounds(cloud)
	if err != nil {
		return CameraPlacement{}, err
	}
	return FrameBounds(meta, cfg), nil
}

// Degenerate reports whether the frustum is empty, which happens for clouds whose samples all
// coincide. Such a placement produces NaN matrices.
func (c CameraPlacement) Degenerate() bool {
	return !(c.Far > c.Near) || c.Position == c.Target
}

// ViewMatrix returns the world to camera transform.
func (c CameraPlacement) ViewMatrix() mgl64.Mat4 {
	return mgl64.LookAtV(toVec3(c.Position), toVec3(c.Target), toVec3(c.Up))
}

// ProjectionMatrix returns the perspective projection for a viewport with the given
// width / height ratio.
func (c CameraPlacement) ProjectionMatrix(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.FOVDegrees), aspect, c.Near, c.Far)
}

func toVec3(v r3.Vector) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// toGL narrows a matrix for the renderer. Both types are column-major.
func toGL(m mgl64.Mat4) mgl32.Mat4 {
	var out mgl32.Mat4
	for i, v := range m {
		out[i] = float32(v)
	}
	return out
}
