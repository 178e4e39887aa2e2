package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/mcv-project/arview/pointcloud"
)

func planeCloud(t *testing.T) *pointcloud.Cloud {
	t.Helper()
	points := make([]r3.Vector, 0, 121)
	for y := 0; y <= 10; y++ {
		for x := 0; x <= 10; x++ {
			points = append(points, r3.Vector{X: float64(x), Y: float64(y)})
		}
	}
	cloud, err := pointcloud.NewCloud(11, 11, points, nil)
	test.That(t, err, test.ShouldBeNil)
	return cloud
}

func TestFrameCloud(t *testing.T) {
	placement, err := FrameCloud(planeCloud(t), DefaultFramingConfig())
	test.That(t, err, test.ShouldBeNil)

	spread := math.Sqrt(200)
	test.That(t, placement.Target, test.ShouldResemble, r3.Vector{X: 5, Y: 5})
	test.That(t, placement.Position.X, test.ShouldAlmostEqual, 5+spread)
	test.That(t, placement.Position.Y, test.ShouldAlmostEqual, 5)
	test.That(t, placement.Position.Z, test.ShouldAlmostEqual, spread)
	test.That(t, placement.Near, test.ShouldAlmostEqual, 0.1*spread)
	test.That(t, placement.Far, test.ShouldAlmostEqual, 5*spread)
	test.That(t, placement.FOVDegrees, test.ShouldEqual, 45)
	test.That(t, placement.Up, test.ShouldResemble, r3.Vector{Y: 1})
	test.That(t, placement.Degenerate(), test.ShouldBeFalse)

	_, err = FrameCloud(&pointcloud.Cloud{}, DefaultFramingConfig())
	test.That(t, errors.Is(err, pointcloud.ErrEmptyCloud), test.ShouldBeTrue)
}

func TestFrameSinglePoint(t *testing.T) {
	cloud, err := pointcloud.NewCloud(1, 1, []r3.Vector{{X: 3, Y: 4, Z: 5}}, nil)
	test.That(t, err, test.ShouldBeNil)
	placement, err := FrameCloud(cloud, DefaultFramingConfig())
	test.That(t, err, test.ShouldBeNil)

	// near and far collapse onto the target
	test.That(t, placement.Near, test.ShouldEqual, 0)
	test.That(t, placement.Far, test.ShouldEqual, 0)
	test.That(t, placement.Position, test.ShouldResemble, placement.Target)
	test.That(t, placement.Degenerate(), test.ShouldBeTrue)
	proj := placement.ProjectionMatrix(4.0 / 3)
	test.That(t, math.IsNaN(proj.At(2, 2)), test.ShouldBeTrue)
}

func TestFramingConfig(t *testing.T) {
	cfg := DefaultFramingConfig()
	test.That(t, cfg.CheckValid(), test.ShouldBeNil)

	meta := pointcloud.MetaData{Center: r3.Vector{X: 1}, Spread: 2}
	cfg.OffsetScale = 2
	cfg.NearFactor = 0.5
	cfg.FarFactor = 3
	placement := FrameBounds(meta, cfg)
	test.That(t, placement.Position, test.ShouldResemble, r3.Vector{X: 5, Z: 4})
	test.That(t, placement.Near, test.ShouldEqual, 1)
	test.That(t, placement.Far, test.ShouldEqual, 6)

	for _, tc := range []struct {
		name   string
		mutate func(*FramingConfig)
		msg    string
	}{
		{"fov", func(c *FramingConfig) { c.FOVDegrees = 180 }, "field of view"},
		{"offset", func(c *FramingConfig) { c.OffsetScale = 0 }, "offset scale"},
		{"clip", func(c *FramingConfig) { c.FarFactor = c.NearFactor }, "near factor"},
		{"up", func(c *FramingConfig) { c.Up = r3.Vector{} }, "up vector"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultFramingConfig()
			tc.mutate(&c)
			err := c.CheckValid()
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
}

func TestPlacementMatrices(t *testing.T) {
	placement, err := FrameCloud(planeCloud(t), DefaultFramingConfig())
	test.That(t, err, test.ShouldBeNil)

	view := placement.ViewMatrix()
	eye := view.Mul4x1(mgl64.Vec4{placement.Position.X, placement.Position.Y, placement.Position.Z, 1})
	test.That(t, eye.Vec3().Len(), test.ShouldAlmostEqual, 0)

	// the target sits straight ahead on -z, one offset diagonal away
	target := view.Mul4x1(mgl64.Vec4{5, 5, 0, 1})
	test.That(t, target.X(), test.ShouldAlmostEqual, 0)
	test.That(t, target.Y(), test.ShouldAlmostEqual, 0)
	test.That(t, target.Z(), test.ShouldAlmostEqual, -math.Sqrt(2)*math.Sqrt(200))

	proj := placement.ProjectionMatrix(640.0 / 480)
	clip := proj.Mul4x1(target)
	test.That(t, clip.Z()/clip.W(), test.ShouldBeBetween, -1, 1)

	near := proj.Mul4x1(mgl64.Vec4{0, 0, -placement.Near, 1})
	test.That(t, near.Z()/near.W(), test.ShouldAlmostEqual, -1)

	gl := toGL(proj)
	for i := range gl {
		test.That(t, gl[i], test.ShouldEqual, float32(proj[i]))
	}
}
