// Package inject provides structs that allow the behavior of interfaces to be injected in tests.
package inject

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mcv-project/arview/scene"
)

// Window is an injected window. Unset funcs do nothing, except that the draw callback is
// remembered so Redraw and Draw can invoke it.
type Window struct {
	ClearFunc           func()
	LoadProjectionFunc  func(m mgl32.Mat4)
	LoadModelViewFunc   func(m mgl32.Mat4)
	DrawBackgroundFunc  func(img image.Image, vertices, texCoords [8]float32)
	DrawLinesFunc       func(lines []scene.Line, width float32)
	DrawQuadsFunc       func(quads []scene.Quad, mode scene.PolygonMode)
	DrawPointsFunc      func(points []scene.Vertex, size float32)
	FlushFunc           func()
	SetDrawCallbackFunc func(fn func())
	RedrawFunc          func()

	callback func()
}

// Clear calls the injected Clear.
func (w *Window) Clear() {
	if w.ClearFunc != nil {
		w.ClearFunc()
	}
}

// LoadProjection calls the injected LoadProjection.
func (w *Window) LoadProjection(m mgl32.Mat4) {
	if w.LoadProjectionFunc != nil {
		w.LoadProjectionFunc(m)
	}
}

// LoadModelView calls the injected LoadModelView.
func (w *Window) LoadModelView(m mgl32.Mat4) {
	if w.LoadModelViewFunc != nil {
		w.LoadModelViewFunc(m)
	}
}

// DrawBackground calls the injected DrawBackground.
func (w *Window) DrawBackground(img image.Image, vertices, texCoords [8]float32) {
	if w.DrawBackgroundFunc != nil {
		w.DrawBackgroundFunc(img, vertices, texCoords)
	}
}

// DrawLines calls the injected DrawLines.
func (w *Window) DrawLines(lines []scene.Line, width float32) {
	if w.DrawLinesFunc != nil {
		w.DrawLinesFunc(lines, width)
	}
}

// DrawQuads calls the injected DrawQuads.
func (w *Window) DrawQuads(quads []scene.Quad, mode scene.PolygonMode) {
	if w.DrawQuadsFunc != nil {
		w.DrawQuadsFunc(quads, mode)
	}
}

// DrawPoints calls the injected DrawPoints.
func (w *Window) DrawPoints(points []scene.Vertex, size float32) {
	if w.DrawPointsFunc != nil {
		w.DrawPointsFunc(points, size)
	}
}

// Flush calls the injected Flush.
func (w *Window) Flush() {
	if w.FlushFunc != nil {
		w.FlushFunc()
	}
}

// SetDrawCallback records fn and calls the injected SetDrawCallback.
func (w *Window) SetDrawCallback(fn func()) {
	w.callback = fn
	if w.SetDrawCallbackFunc != nil {
		w.SetDrawCallbackFunc(fn)
	}
}

// Redraw calls the injected Redraw, or the draw callback if Redraw is not injected.
func (w *Window) Redraw() {
	if w.RedrawFunc != nil {
		w.RedrawFunc()
		return
	}
	w.Draw()
}

// Draw invokes the registered draw callback, as a window system would on expose.
func (w *Window) Draw() {
	if w.callback != nil {
		w.callback()
	}
}

// HasDrawCallback reports whether a draw callback is registered.
func (w *Window) HasDrawCallback() bool {
	return w.callback != nil
}
