package scene

import (
	"image"
	"image/draw"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mcv-project/arview/logging"
	"github.com/mcv-project/arview/rimage/transform"
	"github.com/mcv-project/arview/spatialmath"
)

// ARContext draws video frames with a pose-aligned overlay: the frame as background, a color
// bar legend and, at the pattern pose, a coordinate axis and a cube.
type ARContext struct {
	win    Window
	size   image.Point
	logger logging.Logger

	mu         sync.Mutex
	calib      transform.PinholeCameraModel
	clip       transform.ClipPlanes
	background *image.NRGBA
	pattern    *spatialmath.Transformation
}

// NewARContext registers a new context as win's draw callback. frameSize is the video frame
// size, used for the projection until a background frame arrives. The calibration is copied
// and must be set.
func NewARContext(
	win Window,
	frameSize image.Point,
	calib *transform.PinholeCameraModel,
	logger logging.Logger,
) (*ARContext, error) {
	if win == nil {
		return nil, errors.New("AR context needs a window")
	}
	if err := calib.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "AR context needs a camera calibration")
	}
	ctx := &ARContext{
		win:    win,
		size:   frameSize,
		calib:  copyCalibration(calib),
		logger: logger,
		clip:   transform.DefaultClipPlanes(),
	}
	win.SetDrawCallback(ctx.draw)
	return ctx, nil
}

func copyCalibration(calib *transform.PinholeCameraModel) transform.PinholeCameraModel {
	intrinsics := *calib.PinholeCameraIntrinsics
	return transform.PinholeCameraModel{PinholeCameraIntrinsics: &intrinsics, Distortion: calib.Distortion}
}

// Calibration returns a copy of the context's calibration.
func (ctx *ARContext) Calibration() *transform.PinholeCameraModel {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	calib := copyCalibration(&ctx.calib)
	return &calib
}

// SetCalibration replaces the calibration between frames; the next draw uses the new values.
// Values the projection cannot use are not rejected here, the overlay is skipped while they last.
func (ctx *ARContext) SetCalibration(calib *transform.PinholeCameraModel) error {
	if !calib.IsSet() {
		return transform.NewNoIntrinsicsError("calibration has no intrinsics")
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.calib = copyCalibration(calib)
	return nil
}

// SetClipPlanes changes the clipping distances of the overlay projection.
func (ctx *ARContext) SetClipPlanes(clip transform.ClipPlanes) error {
	if err := clip.CheckValid(); err != nil {
		return err
	}
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.clip = clip
	return nil
}

// UpdateBackground copies img as the next background frame.
func (ctx *ARContext) UpdateBackground(img image.Image) {
	frame := image.NewNRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(frame, frame.Bounds(), img, img.Bounds().Min, draw.Src)
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.background = frame
}

// SetPatternPose marks the pattern as present at the given camera-relative pose.
func (ctx *ARContext) SetPatternPose(pose spatialmath.Transformation) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.pattern = &pose
}

// ClearPattern marks the pattern as lost.
func (ctx *ARContext) ClearPattern() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.pattern = nil
}

// PatternPose returns the current pattern pose, if any.
func (ctx *ARContext) PatternPose() (spatialmath.Transformation, bool) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	if ctx.pattern == nil {
		return spatialmath.Transformation{}, false
	}
	return *ctx.pattern, true
}

// UpdateWindow asks the window to repaint.
func (ctx *ARContext) UpdateWindow() {
	ctx.win.Redraw()
}

// Close unregisters the draw callback.
func (ctx *ARContext) Close() {
	ctx.win.SetDrawCallback(nil)
}

func (ctx *ARContext) viewport() image.Point {
	if ctx.background != nil {
		return ctx.background.Bounds().Size()
	}
	return ctx.size
}

func (ctx *ARContext) draw() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	ctx.win.Clear()
	ctx.drawCameraFrame()
	ctx.drawAugmentedScene()
	ctx.win.Flush()
}

func (ctx *ARContext) drawCameraFrame() {
	if ctx.background == nil {
		return
	}
	size := ctx.viewport()
	vertices, texCoords := transform.BackgroundQuad(size.X, size.Y)
	ctx.win.LoadProjection(transform.BackgroundProjection(size.X, size.Y))
	ctx.win.LoadModelView(mgl32.Ident4())
	ctx.win.DrawBackground(ctx.background, vertices, texCoords)
}

func (ctx *ARContext) drawAugmentedScene() {
	size := ctx.viewport()
	proj, err := transform.ProjectionForViewport(ctx.calib.PinholeCameraIntrinsics, size.X, size.Y, ctx.clip)
	if err != nil {
		ctx.logger.Warnw("skipping augmented scene", "error", err)
		return
	}
	ctx.logger.Debugw("drawing augmented scene", "viewport", size, "pattern", ctx.pattern != nil)

	ctx.win.LoadProjection(mgl32.Ortho2D(0, float32(size.X), 0, float32(size.Y)))
	ctx.win.LoadModelView(mgl32.Translate3D(colorBarX, colorBarY, 0))
	ctx.win.DrawQuads(ColorBar(JetColormap(), colorBarWidth, colorBarHeight), PolygonFill)

	ctx.win.LoadProjection(proj)
	if ctx.pattern == nil {
		ctx.win.LoadModelView(mgl32.Ident4())
		ctx.win.DrawLines(CoordinateAxis(), axisLineWidth)
		return
	}
	ctx.win.LoadModelView(toGL(ctx.pattern.Homogeneous()))
	ctx.win.DrawLines(CoordinateAxis(), axisLineWidth)
	fill, wireframe := CubeModel()
	ctx.win.DrawQuads(fill, PolygonFill)
	ctx.win.DrawQuads(wireframe, PolygonWireframe)
}
