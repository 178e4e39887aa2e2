package scene

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// A Renderer draws primitives with the currently loaded matrices. Matrices are column-major,
// ready for a GL pipeline. Implementations own the graphics context and are only called from
// their window's draw callback.
type Renderer interface {
	// Clear clears the color and depth buffers.
	Clear()
	LoadProjection(m mgl32.Mat4)
	LoadModelView(m mgl32.Mat4)
	// DrawBackground uploads img as a texture and draws it as a triangle strip with two
	// floats per corner for positions and texture coordinates.
	DrawBackground(img image.Image, vertices, texCoords [8]float32)
	DrawLines(lines []Line, width float32)
	DrawQuads(quads []Quad, mode PolygonMode)
	DrawPoints(points []Vertex, size float32)
	// Flush submits the frame.
	Flush()
}

// A Window is a Renderer bound to an on-screen surface. It calls the registered draw callback
// whenever the surface must be repainted, and after Redraw.
type Window interface {
	Renderer
	// SetDrawCallback registers fn as the draw callback, replacing any previous one. A nil fn
	// unregisters it.
	SetDrawCallback(fn func())
	// Redraw schedules a repaint.
	Redraw()
}
