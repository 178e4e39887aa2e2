package pointcloud

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"

	"github.com/mcv-project/arview/spatialmath"
)

// ApplyTransformation moves every position by tf in place. Bounds become stale.
func (cloud *Cloud) ApplyTransformation(tf spatialmath.Transformation) {
	for i, p := range cloud.points {
		cloud.points[i] = tf.TransformPoint(p)
	}
	cloud.stale = cloud.stale || cloud.HasPoints()
}

// ApplyRotation rotates every position about the origin by rotZ * rotY * rotX, i.e. x first.
func (cloud *Cloud) ApplyRotation(rotX, rotY, rotZ mgl64.Mat3) {
	cloud.ApplyTransformation(spatialmath.NewTransformation(rotZ.Mul3(rotY).Mul3(rotX), r3.Vector{}))
}

// ApplyTranslation offsets every position by t.
func (cloud *Cloud) ApplyTranslation(t r3.Vector) {
	for i, p := range cloud.points {
		cloud.points[i] = p.Add(t)
	}
	cloud.stale = cloud.stale || cloud.HasPoints()
}
