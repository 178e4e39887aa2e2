package transform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestCameraMatrix34(t *testing.T) {
	calib := NewPinholeCameraModel(1000, 1500, 333.33, 200)
	m := calib.CameraMatrix34()
	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 3)
	test.That(t, c, test.ShouldEqual, 4)
	expected := mat.NewDense(3, 4, []float64{
		1000, 0, 333.33, 0,
		0, 1500, 200, 0,
		0, 0, 1, 0,
	})
	test.That(t, mat.Equal(m, expected), test.ShouldBeTrue)

	// mutation shows up in the next derived matrix
	calib.Ppy = 250
	test.That(t, calib.CameraMatrix34().At(1, 2), test.ShouldEqual, 250)
	test.That(t, calib.GetCameraMatrix().At(1, 2), test.ShouldEqual, 250)

	var unset *PinholeCameraIntrinsics
	test.That(t, unset.CameraMatrix34(), test.ShouldBeNil)
}

func TestPinholeCameraModel(t *testing.T) {
	var unset PinholeCameraModel
	test.That(t, unset.IsSet(), test.ShouldBeFalse)
	err := unset.CheckValid()
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)

	calib := NewPinholeCameraModel(525, 525, 319.5, 239.5)
	test.That(t, calib.IsSet(), test.ShouldBeTrue)
	test.That(t, calib.CheckValid(), test.ShouldBeNil)
	test.That(t, calib.DistortionCoefficients(), test.ShouldResemble, [5]float64{})

	coeffs := [5]float64{0.1, -0.05, 0.001, 0.002, 0.01}
	withDist := NewPinholeCameraModelWithDistortion(525, 525, 319.5, 239.5, coeffs)
	test.That(t, withDist.CheckValid(), test.ShouldBeNil)
	test.That(t, withDist.DistortionCoefficients(), test.ShouldResemble, coeffs)
	bc, ok := withDist.Distortion.(*BrownConrady)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, bc.RadialK3, test.ShouldEqual, 0.01)
	test.That(t, bc.TangentialP1, test.ShouldEqual, 0.001)

	calib.Fy = -1
	err = calib.CheckValid()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "Fy")
}

func TestPixelPointRoundTrip(t *testing.T) {
	intrinsics := &PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 500, Fy: 500, Ppx: 320, Ppy: 240}
	x, y, z := intrinsics.PixelToPoint(420, 140, 2)
	test.That(t, x, test.ShouldAlmostEqual, 0.4)
	test.That(t, y, test.ShouldAlmostEqual, -0.4)
	test.That(t, z, test.ShouldEqual, 2)

	projected, ok := intrinsics.ProjectVector(r3.Vector{X: x, Y: y, Z: z})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, projected.X, test.ShouldAlmostEqual, 420)
	test.That(t, projected.Y, test.ShouldAlmostEqual, 140)
	_, ok = intrinsics.ProjectVector(r3.Vector{X: 1})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestIntrinsicsFromJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intrinsics.json")
	err := os.WriteFile(path, []byte(`{"width_px": 640, "height_px": 480, "fx": 1000, "fy": 1500, "ppx": 333.33, "ppy": 200}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	intrinsics, err := NewPinholeCameraIntrinsicsFromJSONFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, intrinsics, test.ShouldResemble, &PinholeCameraIntrinsics{640, 480, 1000, 1500, 333.33, 200})

	_, err = NewPinholeCameraIntrinsicsFromJSONFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error opening JSON file")

	bad := filepath.Join(t.TempDir(), "bad.json")
	test.That(t, os.WriteFile(bad, []byte(`{"fx": "a"}`), 0o600), test.ShouldBeNil)
	_, err = NewPinholeCameraIntrinsicsFromJSONFile(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error parsing JSON string")
}

func TestBrownConradyInverse(t *testing.T) {
	bc, err := NewBrownConrady([]float64{0.1, -0.02, 0.003, 0.001, -0.002})
	test.That(t, err, test.ShouldBeNil)
	inv := bc.Inverse()
	test.That(t, inv.Parameters(), test.ShouldResemble, bc.Parameters())

	for _, pt := range [][2]float64{{0, 0}, {0.1, 0.2}, {-0.3, 0.25}, {0.4, -0.4}} {
		xd, yd := bc.Transform(pt[0], pt[1])
		xu, yu := inv.Transform(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt[0], 1e-9)
		test.That(t, yu, test.ShouldAlmostEqual, pt[1], 1e-9)
	}

	_, err = NewBrownConrady([]float64{1, 2, 3, 4, 5, 6})
	test.That(t, err, test.ShouldNotBeNil)

	padded, err := NewInverseBrownConrady([]float64{0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, padded.Parameters(), test.ShouldResemble, []float64{0.5, 0, 0, 0, 0})

	var nilModel *BrownConrady
	x, y := nilModel.Transform(0.3, 0.4)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, 0.4)
	test.That(t, nilModel.CheckValid(), test.ShouldNotBeNil)
}

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(BrownConradyDistortionType, []float64{0.1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)

	d, err = NewDistorter(InverseBrownConradyDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)

	_, err = NewDistorter("fisheye", nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fisheye")

	err = InvalidDistortionError("k1 off by 100%")
	test.That(t, err.Error(), test.ShouldEqual, "k1 off by 100%: invalid distortion_parameters")
}

func TestDistortionMap(t *testing.T) {
	calib := NewPinholeCameraModel(500, 500, 320, 240)
	u, v := calib.DistortionMap()(100, 50)
	test.That(t, u, test.ShouldEqual, 100)
	test.That(t, v, test.ShouldEqual, 50)

	calib = NewPinholeCameraModelWithDistortion(500, 500, 320, 240, [5]float64{0.2, 0, 0, 0, 0})
	// the principal point is a fixed point of any radial model
	u, v = calib.DistortionMap()(320, 240)
	test.That(t, u, test.ShouldAlmostEqual, 320)
	test.That(t, v, test.ShouldAlmostEqual, 240)
	// positive k1 pushes points outwards
	u, _ = calib.DistortionMap()(570, 240)
	test.That(t, u, test.ShouldBeGreaterThan, 570)
}

func TestUndistortionMap(t *testing.T) {
	undistort, err := NewPinholeCameraModel(500, 500, 320, 240).UndistortionMap()
	test.That(t, err, test.ShouldBeNil)
	u, v := undistort(10, 20)
	test.That(t, u, test.ShouldEqual, 10)
	test.That(t, v, test.ShouldEqual, 20)

	calib := NewPinholeCameraModelWithDistortion(500, 500, 320, 240, [5]float64{0.1, -0.05, 0.001, -0.002, 0.01})
	undistort, err = calib.UndistortionMap()
	test.That(t, err, test.ShouldBeNil)
	for _, px := range [][2]float64{{320, 240}, {100, 50}, {600, 400}} {
		x, y := calib.DistortionMap()(px[0], px[1])
		u, v := undistort(x, y)
		test.That(t, u, test.ShouldAlmostEqual, px[0], 1e-6)
		test.That(t, v, test.ShouldAlmostEqual, px[1], 1e-6)
	}

	// an inverse model is undone by its forward model
	inverse := &PinholeCameraModel{
		PinholeCameraIntrinsics: calib.PinholeCameraIntrinsics,
		Distortion:              calib.Distortion.(*BrownConrady).Inverse(),
	}
	test.That(t, inverse.DistortionCoefficients(), test.ShouldResemble, calib.DistortionCoefficients())
	redistort, err := inverse.UndistortionMap()
	test.That(t, err, test.ShouldBeNil)
	x, y := calib.DistortionMap()(100, 50)
	rx, ry := redistort(100, 50)
	test.That(t, rx, test.ShouldAlmostEqual, x, 1e-9)
	test.That(t, ry, test.ShouldAlmostEqual, y, 1e-9)
}
