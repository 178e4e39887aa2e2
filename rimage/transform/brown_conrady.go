package transform

import "github.com/pkg/errors"

// BrownConrady is the five coefficient radial/tangential lens distortion model.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats ordered rk1, rk2, rk3, tp1, tp2.
// Missing trailing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	var params [5]float64
	copy(params[:], inp)
	return &BrownConrady{params[0], params[1], params[2], params[3], params[4]}, nil
}

// NewBrownConradyFromCoefficients takes the coefficient vector in the (k1, k2, p1, p2, k3)
// order calibration tools write it in.
func NewBrownConradyFromCoefficients(coeffs [5]float64) *BrownConrady {
	return &BrownConrady{
		RadialK1:     coeffs[0],
		RadialK2:     coeffs[1],
		TangentialP1: coeffs[2],
		TangentialP2: coeffs[3],
		RadialK3:     coeffs[4],
	}
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the distortion parameters ordered rk1, rk2, rk3, tp1, tp2.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Coefficients returns the parameters in (k1, k2, p1, p2, k3) order. A nil model has all zeros.
func (bc *BrownConrady) Coefficients() [5]float64 {
	if bc == nil {
		return [5]float64{}
	}
	return [5]float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// Transform distorts the undistorted normalized point (x, y):
//
//	x_d = x * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x*y + p1*(r² + 2*y²)
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radDist := 1 + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2
	xd := x*radDist + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radDist + 2*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2*y*y)
	return xd, yd
}

// Inverse returns the model that undoes this distortion.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return nil
	}
	return &InverseBrownConrady{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}
