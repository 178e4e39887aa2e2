package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrEmptyCloud is returned when bounds are requested for a cloud without samples.
var ErrEmptyCloud = errors.New("point cloud has no samples")

// MetaData is data about what's stored in the point cloud: the axis-aligned extrema of
// its positions, their mean and the diagonal spread between the extrema.
type MetaData struct {
	HasColor bool

	Min    r3.Vector
	Max    r3.Vector
	Center r3.Vector
	Spread float64
}

// BoundsOptions tunes the extrema scan.
type BoundsOptions struct {
	// PlanarExtrema refines only the x and y extrema; z keeps the value of the first
	// sample. This matches bounds produced by older tools.
	PlanarExtrema bool
}

// ComputeBounds scans the cloud's positions once and returns their bounds. Unlike
// UpdateBounds it does not touch the cache.
func ComputeBounds(cloud *Cloud) (MetaData, error) {
	return ComputeBoundsWithOptions(cloud, BoundsOptions{})
}

// ComputeBoundsWithOptions is ComputeBounds with explicit extrema options.
func ComputeBoundsWithOptions(cloud *Cloud, opts BoundsOptions) (MetaData, error) {
	if cloud == nil || !cloud.HasPoints() {
		return MetaData{}, ErrEmptyCloud
	}
	meta := computeBounds(cloud.points, opts)
	meta.HasColor = cloud.HasColors()
	return meta, nil
}

// computeBounds requires at least one point.
func computeBounds(points []r3.Vector, opts BoundsOptions) MetaData {
	minP, maxP := points[0], points[0]
	var sum r3.Vector
	for _, p := range points {
		if p.X < minP.X {
			minP.X = p.X
		}
		if p.X > maxP.X {
			maxP.X = p.X
		}
		if p.Y < minP.Y {
			minP.Y = p.Y
		}
		if p.Y > maxP.Y {
			maxP.Y = p.Y
		}
		if !opts.PlanarExtrema {
			if p.Z < minP.Z {
				minP.Z = p.Z
			}
			if p.Z > maxP.Z {
				maxP.Z = p.Z
			}
		}
		sum = sum.Add(p)
	}
	return MetaData{
		Min:    minP,
		Max:    maxP,
		Center: mean(sum, len(points)),
		Spread: maxP.Sub(minP).Norm(),
	}
}

// CloudCentroid returns the mean position of the cloud, the zero vector when it is empty.
func CloudCentroid(cloud *Cloud) r3.Vector {
	if cloud == nil || !cloud.HasPoints() {
		return r3.Vector{}
	}
	var sum r3.Vector
	cloud.Iterate(0, 0, func(_, _ int, p r3.Vector, _ color.NRGBA) bool {
		sum = sum.Add(p)
		return true
	})
	return mean(sum, cloud.Size())
}

func mean(sum r3.Vector, n int) r3.Vector {
	d := float64(n)
	return r3.Vector{X: sum.X / d, Y: sum.Y / d, Z: sum.Z / d}
}
