package scene

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Vertex is a colored point of a primitive. Color is RGBA in [0, 1].
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Color    mgl32.Vec4
}

// Line is a segment between two vertices.
type Line [2]Vertex

// Quad is a planar quadrilateral, vertices in counter-clockwise order seen from its front.
type Quad [4]Vertex

// PolygonMode selects how quads are rasterized.
type PolygonMode int

const (
	// PolygonFill fills quads.
	PolygonFill PolygonMode = iota
	// PolygonWireframe draws quad outlines only.
	PolygonWireframe
)

func (m PolygonMode) String() string {
	switch m {
	case PolygonFill:
		return "fill"
	case PolygonWireframe:
		return "wireframe"
	default:
		return "unknown"
	}
}

var (
	// CubeFillColor is the translucent body color of the pattern cube.
	CubeFillColor = mgl32.Vec4{0.2, 0.35, 0.3, 0.75}
	// CubeWireColor is the outline color of the pattern cube.
	CubeWireColor = mgl32.Vec4{0.2, 0.65, 0.3, 0.35}
)

const (
	cubeScale      = 0.25
	axisLineWidth  = 2
	colorBarWidth  = 15
	colorBarHeight = 100
	colorBarX      = 10
	colorBarY      = 20
	colorBarGap    = 10
)

// CoordinateAxis returns unit segments along x, y and z colored red, green and blue.
func CoordinateAxis() []Line {
	axis := func(dir mgl32.Vec3, c mgl32.Vec4) Line {
		return Line{{Color: c}, {Position: dir, Color: c}}
	}
	return []Line{
		axis(mgl32.Vec3{1, 0, 0}, mgl32.Vec4{1, 0, 0, 1}),
		axis(mgl32.Vec3{0, 1, 0}, mgl32.Vec4{0, 1, 0, 1}),
		axis(mgl32.Vec3{0, 0, 1}, mgl32.Vec4{0, 0, 1, 1}),
	}
}

// cubeFaces are the faces of the [-1, 1] cube with their outward normals.
var cubeFaces = []struct {
	normal  mgl32.Vec3
	corners [4]mgl32.Vec3
}{
	{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
	{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {1, -1, -1}}},
	{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-1, 1, -1}, {-1, 1, 1}, {1, 1, 1}, {1, 1, -1}}},
	{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
	{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{1, -1, -1}, {1, 1, -1}, {1, 1, 1}, {1, -1, 1}}},
	{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
}

// CubeModel returns the cube drawn on a detected pattern: a cube of side 0.5 resting on the
// pattern plane (z in [0, 0.5]), as filled faces and as an outline.
func CubeModel() (fill, wireframe []Quad) {
	place := mgl32.Scale3D(cubeScale, cubeScale, cubeScale).Mul4(mgl32.Translate3D(0, 0, 1))
	for _, face := range cubeFaces {
		var f, w Quad
		for i, corner := range face.corners {
			pos := mgl32.TransformCoordinate(corner, place)
			f[i] = Vertex{Position: pos, Normal: face.normal, Color: CubeFillColor}
			w[i] = Vertex{Position: pos, Normal: face.normal, Color: CubeWireColor}
		}
		fill = append(fill, f)
		wireframe = append(wireframe, w)
	}
	return fill, wireframe
}

// Colormap maps [0, 1] onto a piecewise linear RGB gradient through its stops.
type Colormap []colorful.Color

// JetColormap runs blue, cyan, green, yellow, red.
func JetColormap() Colormap {
	return Colormap{
		{R: 0, G: 0, B: 1},
		{R: 0, G: 1, B: 1},
		{R: 0, G: 1, B: 0},
		{R: 1, G: 1, B: 0},
		{R: 1, G: 0, B: 0},
	}
}

// At returns the color at t, clamped to [0, 1]. NaN maps to the first stop.
func (cm Colormap) At(t float64) colorful.Color {
	if len(cm) == 0 {
		return colorful.Color{}
	}
	if !(t > 0) {
		return cm[0]
	}
	if t >= 1 {
		return cm[len(cm)-1]
	}
	scaled := t * float64(len(cm)-1)
	i := int(math.Floor(scaled))
	return cm[i].BlendRgb(cm[i+1], scaled-float64(i))
}

// NRGBA returns the color at t as an opaque 8-bit color.
func (cm Colormap) NRGBA(t float64) color.NRGBA {
	r, g, b := cm.At(t).Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func vec4(c colorful.Color) mgl32.Vec4 {
	return mgl32.Vec4{float32(c.R), float32(c.G), float32(c.B), 1}
}

// ColorBar returns the legend drawn in the corner of the AR view, in pixels relative to its
// lower left corner: a sizeX wide band of the colormap, sizeY high, and a gray ramp of the
// same size to its right, separated by a 10 pixel gap. Each colormap segment is one quad.
func ColorBar(cm Colormap, sizeX, sizeY float32) []Quad {
	if len(cm) < 2 {
		return nil
	}
	segments := len(cm) - 1
	step := sizeY / float32(segments)
	normal := mgl32.Vec3{0, 0, 1}

	quads := make([]Quad, 0, 2*segments)
	for i := 0; i < segments; i++ {
		y0, y1 := float32(i)*step, float32(i+1)*step
		prev, next := vec4(cm[i]), vec4(cm[i+1])
		quads = append(quads, Quad{
			{Position: mgl32.Vec3{sizeX, y0, 0}, Normal: normal, Color: prev},
			{Position: mgl32.Vec3{sizeX, y1, 0}, Normal: normal, Color: next},
			{Position: mgl32.Vec3{0, y1, 0}, Normal: normal, Color: next},
			{Position: mgl32.Vec3{0, y0, 0}, Normal: normal, Color: prev},
		})

		t0 := float64(i) / float64(segments)
		t1 := float64(i+1) / float64(segments)
		gray0, gray1 := vec4(colorful.Color{R: t0, G: t0, B: t0}), vec4(colorful.Color{R: t1, G: t1, B: t1})
		left, right := sizeX+colorBarGap, 2*sizeX+colorBarGap
		quads = append(quads, Quad{
			{Position: mgl32.Vec3{right, y0, 0}, Normal: normal, Color: gray0},
			{Position: mgl32.Vec3{right, y1, 0}, Normal: normal, Color: gray1},
			{Position: mgl32.Vec3{left, y1, 0}, Normal: normal, Color: gray1},
			{Position: mgl32.Vec3{left, y0, 0}, Normal: normal, Color: gray0},
		})
	}
	return quads
}
