package transform

const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-10
)

// InverseBrownConrady undoes a Brown-Conrady distortion: given distorted normalized
// points it solves for the undistorted ones with Newton-Raphson.
type InverseBrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewInverseBrownConrady takes in a slice of floats ordered rk1, rk2, rk3, tp1, tp2.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return forward.Inverse(), nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	return ibc.forward().Parameters()
}

func (ibc *InverseBrownConrady) forward() *BrownConrady {
	if ibc == nil {
		return nil
	}
	bc := BrownConrady(*ibc)
	return &bc
}

// Transform maps the distorted point (xd, yd) back to the undistorted point. Iteration
// starts at the distorted point and stops after convergence or a fixed number of steps.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	bc := ibc.forward()
	xu, yu := xd, yd
	for i := 0; i < inverseMaxIterations; i++ {
		xEst, yEst := bc.Transform(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < inverseTolerance*inverseTolerance {
			break
		}

		dxdx, dxdy, dydx, dydy := bc.jacobian(xu, yu)
		det := dxdx*dydy - dxdy*dydx
		if det == 0 {
			break
		}
		xu -= (dydy*errX - dxdy*errY) / det
		yu -= (-dydx*errX + dxdx*errY) / det
	}
	return xu, yu
}

// jacobian returns the partial derivatives of the forward model at (x, y).
func (bc *BrownConrady) jacobian(x, y float64) (dxdx, dxdy, dydx, dydy float64) {
	k1, k2, k3 := bc.RadialK1, bc.RadialK2, bc.RadialK3
	p1, p2 := bc.TangentialP1, bc.TangentialP2

	r2 := x*x + y*y
	radDist := 1 + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
	dRad := k1 + 2*k2*r2 + 3*k3*r2*r2
	dRadDx := 2 * x * dRad
	dRadDy := 2 * y * dRad

	dxdx = radDist + x*dRadDx + 2*p1*y + 6*p2*x
	dxdy = x*dRadDy + 2*p1*x + 2*p2*y
	dydx = y*dRadDx + 2*p2*y + 2*p1*x
	dydy = radDist + y*dRadDy + 2*p2*x + 6*p1*y
	return dxdx, dxdy, dydx, dydy
}
