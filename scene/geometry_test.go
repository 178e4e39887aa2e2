package scene

import (
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
	"go.viam.com/test"
)

func TestCoordinateAxis(t *testing.T) {
	axis := CoordinateAxis()
	test.That(t, len(axis), test.ShouldEqual, 3)
	for i, line := range axis {
		var dir mgl32.Vec3
		dir[i] = 1
		test.That(t, line[0].Position, test.ShouldResemble, mgl32.Vec3{})
		test.That(t, line[1].Position, test.ShouldResemble, dir)
		test.That(t, line[0].Color, test.ShouldResemble, line[1].Color)
		test.That(t, line[0].Color, test.ShouldResemble, dir.Vec4(1))
	}
}

func TestCubeModel(t *testing.T) {
	fill, wireframe := CubeModel()
	test.That(t, len(fill), test.ShouldEqual, 6)
	test.That(t, len(wireframe), test.ShouldEqual, 6)

	for i, face := range fill {
		for j, v := range face {
			test.That(t, v.Color, test.ShouldResemble, CubeFillColor)
			test.That(t, wireframe[i][j].Color, test.ShouldResemble, CubeWireColor)
			test.That(t, wireframe[i][j].Position, test.ShouldResemble, v.Position)

			// the cube rests on the pattern plane
			test.That(t, math.Abs(float64(v.Position.X())), test.ShouldAlmostEqual, 0.25, 1e-6)
			test.That(t, math.Abs(float64(v.Position.Y())), test.ShouldAlmostEqual, 0.25, 1e-6)
			z := float64(v.Position.Z())
			test.That(t, math.Abs(z) < 1e-6 || math.Abs(z-0.5) < 1e-6, test.ShouldBeTrue)
		}

		// counter-clockwise seen from outside
		e1 := face[1].Position.Sub(face[0].Position)
		e2 := face[2].Position.Sub(face[1].Position)
		test.That(t, e1.Cross(e2).Dot(face[0].Normal), test.ShouldBeGreaterThan, 0)
	}
}

func TestColormap(t *testing.T) {
	jet := JetColormap()
	test.That(t, jet.At(0), test.ShouldResemble, colorful.Color{B: 1})
	test.That(t, jet.At(0.25), test.ShouldResemble, colorful.Color{G: 1, B: 1})
	test.That(t, jet.At(1), test.ShouldResemble, colorful.Color{R: 1})
	test.That(t, jet.At(-3), test.ShouldResemble, jet.At(0))
	test.That(t, jet.At(7), test.ShouldResemble, jet.At(1))
	test.That(t, jet.At(math.NaN()), test.ShouldResemble, jet.At(0))

	mid := jet.At(0.125)
	test.That(t, mid.R, test.ShouldAlmostEqual, 0)
	test.That(t, mid.G, test.ShouldAlmostEqual, 0.5)
	test.That(t, mid.B, test.ShouldAlmostEqual, 1)

	test.That(t, jet.NRGBA(0.75), test.ShouldResemble, color.NRGBA{R: 255, G: 255, A: 255})
	test.That(t, Colormap{}.At(0.5), test.ShouldResemble, colorful.Color{})
}

func TestColorBar(t *testing.T) {
	quads := ColorBar(JetColormap(), 15, 100)
	test.That(t, len(quads), test.ShouldEqual, 8)
	test.That(t, ColorBar(Colormap{{}}, 15, 100), test.ShouldBeNil)

	for i := 0; i < 4; i++ {
		bar, gray := quads[2*i], quads[2*i+1]
		y0, y1 := float32(i)*25, float32(i+1)*25

		test.That(t, bar[0].Position, test.ShouldResemble, mgl32.Vec3{15, y0, 0})
		test.That(t, bar[1].Position, test.ShouldResemble, mgl32.Vec3{15, y1, 0})
		test.That(t, bar[2].Position, test.ShouldResemble, mgl32.Vec3{0, y1, 0})
		test.That(t, bar[3].Position, test.ShouldResemble, mgl32.Vec3{0, y0, 0})
		test.That(t, bar[0].Color, test.ShouldResemble, vec4(JetColormap()[i]))
		test.That(t, bar[1].Color, test.ShouldResemble, vec4(JetColormap()[i+1]))

		test.That(t, gray[0].Position, test.ShouldResemble, mgl32.Vec3{40, y0, 0})
		test.That(t, gray[2].Position, test.ShouldResemble, mgl32.Vec3{25, y1, 0})
		level := float32(i) / 4
		test.That(t, gray[0].Color, test.ShouldResemble, mgl32.Vec4{level, level, level, 1})
	}
}

func TestPolygonModeString(t *testing.T) {
	test.That(t, PolygonFill.String(), test.ShouldEqual, "fill")
	test.That(t, PolygonWireframe.String(), test.ShouldEqual, "wireframe")
	test.That(t, PolygonMode(5).String(), test.ShouldEqual, "unknown")
}
