// Package pointcloud defines an organized point cloud: a rows x cols grid of 3D positions,
// laid out like the depth sensor's pixels, with an optional parallel grid of colors.
//
// Setters and the slice getters copy; At, ColorAt and Iterate read in place. Bounds are
// cached and only recomputed by UpdateBounds.
package pointcloud

import (
	"image"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Cloud is an organized point cloud. Either grid may be absent; when both are present
// their shapes match. The zero value is an empty cloud.
type Cloud struct {
	rows, cols int
	points     []r3.Vector
	colors     []color.NRGBA

	meta  MetaData
	stale bool
}

// NewCloud returns a rows x cols cloud holding copies of points and colors, with its bounds
// already computed. Either slice may be nil; a non-nil slice must have rows*cols entries.
func NewCloud(rows, cols int, points []r3.Vector, colors []color.NRGBA) (*Cloud, error) {
	if rows < 0 || cols < 0 {
		return nil, errors.Errorf("invalid cloud shape %dx%d", rows, cols)
	}
	cloud := &Cloud{rows: rows, cols: cols}
	if err := cloud.SetPoints(points); err != nil {
		return nil, err
	}
	if err := cloud.SetColors(colors); err != nil {
		return nil, err
	}
	if cloud.HasPoints() {
		cloud.UpdateBounds()
	}
	return cloud, nil
}

func (cloud *Cloud) checkShape(n int, what string) error {
	if n != cloud.rows*cloud.cols {
		return errors.Errorf("%s grid has %d entries, expected %dx%d", what, n, cloud.rows, cloud.cols)
	}
	return nil
}

// Rows returns the number of grid rows.
func (cloud *Cloud) Rows() int {
	return cloud.rows
}

// Cols returns the number of grid columns.
func (cloud *Cloud) Cols() int {
	return cloud.cols
}

// Size returns the number of position samples, zero when the position grid is absent.
func (cloud *Cloud) Size() int {
	return len(cloud.points)
}

// HasPoints reports whether the position grid is present.
func (cloud *Cloud) HasPoints() bool {
	return len(cloud.points) > 0
}

// HasColors reports whether the color grid is present.
func (cloud *Cloud) HasColors() bool {
	return len(cloud.colors) > 0
}

// SetPoints replaces the position grid with a copy of points, stored row-major. A nil slice
// removes the grid. The cached bounds are marked stale, not recomputed.
func (cloud *Cloud) SetPoints(points []r3.Vector) error {
	if points == nil {
		cloud.points = nil
		cloud.stale = true
		return nil
	}
	if err := cloud.checkShape(len(points), "position"); err != nil {
		return err
	}
	cloud.points = append([]r3.Vector(nil), points...)
	cloud.stale = true
	return nil
}

// SetColors replaces the color grid with a copy of colors, stored row-major. A nil slice
// removes the grid.
func (cloud *Cloud) SetColors(colors []color.NRGBA) error {
	if colors == nil {
		cloud.colors = nil
		cloud.meta.HasColor = false
		return nil
	}
	if err := cloud.checkShape(len(colors), "color"); err != nil {
		return err
	}
	cloud.colors = append([]color.NRGBA(nil), colors...)
	cloud.meta.HasColor = true
	return nil
}

// Points returns a copy of the position grid.
func (cloud *Cloud) Points() []r3.Vector {
	if cloud.points == nil {
		return nil
	}
	return append([]r3.Vector(nil), cloud.points...)
}

// Colors returns a copy of the color grid.
func (cloud *Cloud) Colors() []color.NRGBA {
	if cloud.colors == nil {
		return nil
	}
	return append([]color.NRGBA(nil), cloud.colors...)
}

// Clone returns a deep copy, cached bounds included.
func (cloud *Cloud) Clone() *Cloud {
	out := *cloud
	out.points = cloud.Points()
	out.colors = cloud.Colors()
	return &out
}

// At returns the position at (row, col). It panics when out of range or when the position
// grid is absent.
func (cloud *Cloud) At(row, col int) r3.Vector {
	return cloud.points[cloud.index(row, col)]
}

// ColorAt returns the color at (row, col); the second return is false without a color grid.
func (cloud *Cloud) ColorAt(row, col int) (color.NRGBA, bool) {
	if !cloud.HasColors() {
		return color.NRGBA{}, false
	}
	return cloud.colors[cloud.index(row, col)], true
}

// Set writes a single position in place. Bounds become stale.
func (cloud *Cloud) Set(row, col int, p r3.Vector) {
	cloud.points[cloud.index(row, col)] = p
	cloud.stale = true
}

func (cloud *Cloud) index(row, col int) int {
	if row < 0 || row >= cloud.rows || col < 0 || col >= cloud.cols {
		panic(errors.Errorf("cell (%d, %d) out of range for %dx%d cloud", row, col, cloud.rows, cloud.cols))
	}
	return row*cloud.cols + col
}

// Iterate calls fn for every position sample in row-major order, with its color when the
// cloud has one. If fn returns false, iteration stops.
// numBatches lets you divide up the work. 0 means don't divide.
// myBatch is used iff numBatches > 0 and is which batch you want.
func (cloud *Cloud) Iterate(numBatches, myBatch int, fn func(row, col int, p r3.Vector, c color.NRGBA) bool) {
	start, end := 0, len(cloud.points)
	if numBatches > 0 {
		batchSize := (end + numBatches - 1) / numBatches
		start = myBatch * batchSize
		end = start + batchSize
		if end > len(cloud.points) {
			end = len(cloud.points)
		}
	}
	hasColor := cloud.HasColors()
	for i := start; i < end; i++ {
		var c color.NRGBA
		if hasColor {
			c = cloud.colors[i]
		}
		if !fn(i/cloud.cols, i%cloud.cols, cloud.points[i], c) {
			return
		}
	}
}

// ColorImage returns the color grid as an image, nil without a color grid.
func (cloud *Cloud) ColorImage() *image.NRGBA {
	if !cloud.HasColors() {
		return nil
	}
	img := image.NewNRGBA(image.Rect(0, 0, cloud.cols, cloud.rows))
	for i, c := range cloud.colors {
		img.SetNRGBA(i%cloud.cols, i/cloud.cols, c)
	}
	return img
}

// MetaData returns the cached bounds. They reflect the positions at the last UpdateBounds
// call; check BoundsStale after mutating the cloud.
func (cloud *Cloud) MetaData() MetaData {
	return cloud.meta
}

// BoundsStale reports whether positions changed since the bounds were last computed.
func (cloud *Cloud) BoundsStale() bool {
	return cloud.stale
}

// UpdateBounds recomputes the cached bounds. It is a no-op on an empty cloud, which keeps
// its previous (stale) bounds.
func (cloud *Cloud) UpdateBounds() {
	cloud.UpdateBoundsWithOptions(BoundsOptions{})
}

// UpdateBoundsWithOptions is UpdateBounds with explicit extrema options.
func (cloud *Cloud) UpdateBoundsWithOptions(opts BoundsOptions) {
	if !cloud.HasPoints() {
		return
	}
	cloud.meta = computeBounds(cloud.points, opts)
	cloud.meta.HasColor = cloud.HasColors()
	cloud.stale = false
}
