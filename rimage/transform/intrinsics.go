package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
// Width and Height are optional and zero when unknown. Fields may be tuned in place; nothing derived
// from them is cached.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
// Unlike the projection functions, which accept anything, this rejects parameters that
// would produce a degenerate projection.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width < 0 || params.Height < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	return intrinsics, nil
}

// PixelToPoint transforms a pixel with depth to a 3D point.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return 0, 0, 0
	}
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// ProjectVector projects p through the 3x4 camera matrix without rounding.
// The second return is false when p lies on the camera plane.
func (params *PinholeCameraIntrinsics) ProjectVector(p r3.Vector) (r3.Vector, bool) {
	var out mat.VecDense
	out.MulVec(params.CameraMatrix34(), mat.NewVecDense(4, []float64{p.X, p.Y, p.Z, 1}))
	w := out.AtVec(2)
	if w == 0 {
		return r3.Vector{}, false
	}
	return r3.Vector{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: p.Z}, true
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// CameraMatrix34 returns the 3x4 projection matrix of a camera sitting at the origin:
// [[fx 0 ppx 0],
//
//	[0 fy ppy 0],
//	[0 0  1   0]]
func (params *PinholeCameraIntrinsics) CameraMatrix34() *mat.Dense {
	if params == nil {
		return nil
	}
	m := mat.NewDense(3, 4, nil)
	m.Slice(0, 3, 0, 3).(*mat.Dense).Copy(params.GetCameraMatrix())
	return m
}

// PinholeCameraModel is the model of a pinhole camera: intrinsics plus an optional lens distortion.
// The zero value is the unset calibration and must be configured before rendering.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"-"`
}

// NewPinholeCameraModel returns a calibration without lens distortion.
func NewPinholeCameraModel(fx, fy, cx, cy float64) *PinholeCameraModel {
	return &PinholeCameraModel{
		PinholeCameraIntrinsics: &PinholeCameraIntrinsics{Fx: fx, Fy: fy, Ppx: cx, Ppy: cy},
	}
}

// NewPinholeCameraModelWithDistortion returns a calibration with Brown-Conrady distortion given
// as (k1, k2, p1, p2, k3).
func NewPinholeCameraModelWithDistortion(fx, fy, cx, cy float64, coeffs [5]float64) *PinholeCameraModel {
	model := NewPinholeCameraModel(fx, fy, cx, cy)
	model.Distortion = NewBrownConradyFromCoefficients(coeffs)
	return model
}

// IsSet reports whether the model carries intrinsics.
func (params *PinholeCameraModel) IsSet() bool {
	return params != nil && params.PinholeCameraIntrinsics != nil
}

// CheckValid checks the intrinsics and, if present, the distortion.
func (params *PinholeCameraModel) CheckValid() error {
	if !params.IsSet() {
		return NewNoIntrinsicsError("camera model has no intrinsics")
	}
	if err := params.PinholeCameraIntrinsics.CheckValid(); err != nil {
		return err
	}
	if params.Distortion != nil {
		return params.Distortion.CheckValid()
	}
	return nil
}

// DistortionCoefficients returns the (k1, k2, p1, p2, k3) vector, all zeros when the model
// has no Brown-Conrady distortion.
func (params *PinholeCameraModel) DistortionCoefficients() [5]float64 {
	switch d := params.Distortion.(type) {
	case *BrownConrady:
		return d.Coefficients()
	case *InverseBrownConrady:
		return d.forward().Coefficients()
	default:
		return [5]float64{}
	}
}

// DistortionMap is a function that transforms the undistorted input points (u,v) to the distorted points (x,y)
// according to the model in PinholeCameraModel.Distortion.
func (params *PinholeCameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		if params.Distortion == nil {
			return u, v
		}
		x := (u - params.Ppx) / params.Fx
		y := (v - params.Ppy) / params.Fy
		x, y = params.Distortion.Transform(x, y)
		x = x*params.Fx + params.Ppx
		y = y*params.Fy + params.Ppy
		return x, y
	}
}

// UndistortionMap returns the inverse of DistortionMap: it takes distorted pixels (x,y) back to
// where the undistorted camera would have seen them.
func (params *PinholeCameraModel) UndistortionMap() (func(x, y float64) (float64, float64), error) {
	if params.Distortion == nil {
		return func(x, y float64) (float64, float64) { return x, y }, nil
	}
	var inverse DistortionType
	switch params.Distortion.ModelType() {
	case BrownConradyDistortionType:
		inverse = InverseBrownConradyDistortionType
	case InverseBrownConradyDistortionType:
		inverse = BrownConradyDistortionType
	default:
		return nil, errors.Errorf("cannot invert %q distortion model", params.Distortion.ModelType())
	}
	d, err := NewDistorter(inverse, params.Distortion.Parameters())
	if err != nil {
		return nil, err
	}
	inverted := &PinholeCameraModel{PinholeCameraIntrinsics: params.PinholeCameraIntrinsics, Distortion: d}
	return inverted.DistortionMap(), nil
}
