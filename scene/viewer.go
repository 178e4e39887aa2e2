package scene

import (
	"image"
	"image/color"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mcv-project/arview/logging"
	"github.com/mcv-project/arview/pointcloud"
)

const pointSize = 1

// PointCloudViewer draws a point cloud from a camera framed around it. Points take the cloud's
// colors, or a depth colormap when it has none.
type PointCloudViewer struct {
	win     Window
	size    image.Point
	framing FramingConfig
	logger  logging.Logger

	mu        sync.Mutex
	cloud     *pointcloud.Cloud
	placement CameraPlacement
}

// NewPointCloudViewer registers a new viewer as win's draw callback.
func NewPointCloudViewer(win Window, size image.Point, framing FramingConfig, logger logging.Logger) (*PointCloudViewer, error) {
	if win == nil {
		return nil, errors.New("point cloud viewer needs a window")
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, errors.Errorf("viewer must have positive dimensions, got %dx%d", size.X, size.Y)
	}
	if err := framing.CheckValid(); err != nil {
		return nil, err
	}
	v := &PointCloudViewer{win: win, size: size, framing: framing, logger: logger}
	win.SetDrawCallback(v.draw)
	return v, nil
}

// UpdatePointCloud copies cloud, computes its bounds and frames the camera around it.
func (v *PointCloudViewer) UpdatePointCloud(cloud *pointcloud.Cloud) error {
	if cloud == nil {
		return pointcloud.ErrEmptyCloud
	}
	c := cloud.Clone()
	placement, err := FrameCloud(c, v.framing)
	if err != nil {
		return err
	}
	c.UpdateBounds()
	if placement.Degenerate() {
		v.logger.Warnw("point cloud has no extent, camera framing is degenerate",
			"center", placement.Target, "near", placement.Near, "far", placement.Far)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.cloud = c
	v.placement = placement
	return nil
}

// Placement returns the camera placement of the current cloud.
func (v *PointCloudViewer) Placement() (CameraPlacement, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.placement, v.cloud != nil
}

// UpdateWindow asks the window to repaint.
func (v *PointCloudViewer) UpdateWindow() {
	v.win.Redraw()
}

// Close unregisters the draw callback.
func (v *PointCloudViewer) Close() {
	v.win.SetDrawCallback(nil)
}

func (v *PointCloudViewer) draw() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.win.Clear()
	if v.cloud != nil {
		aspect := float64(v.size.X) / float64(v.size.Y)
		v.win.LoadProjection(toGL(v.placement.ProjectionMatrix(aspect)))
		v.win.LoadModelView(toGL(v.placement.ViewMatrix()))
		v.win.DrawPoints(cloudVertices(v.cloud), pointSize)
		v.logger.Debugw("drew point cloud", "points", v.cloud.Size())
	}
	v.win.Flush()
}

func cloudVertices(cloud *pointcloud.Cloud) []Vertex {
	meta := cloud.MetaData()
	depth := JetColormap()
	zRange := meta.Max.Z - meta.Min.Z

	vertices := make([]Vertex, 0, cloud.Size())
	hasColor := cloud.HasColors()
	cloud.Iterate(0, 0, func(_, _ int, p r3.Vector, c color.NRGBA) bool {
		var col mgl32.Vec4
		if hasColor {
			col = mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, 1}
		} else {
			t := 0.0
			if zRange > 0 {
				t = (p.Z - meta.Min.Z) / zRange
			}
			col = vec4(depth.At(t))
		}
		vertices = append(vertices, Vertex{
			Position: mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)},
			Color:    col,
		})
		return true
	})
	return vertices
}
