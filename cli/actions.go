package cli

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/mcv-project/arview/config"
	"github.com/mcv-project/arview/logging"
	"github.com/mcv-project/arview/pointcloud"
	"github.com/mcv-project/arview/rimage/transform"
	"github.com/mcv-project/arview/scene"
	"github.com/mcv-project/arview/spatialmath"
)

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func printMatrix(w io.Writer, m mat.Matrix) {
	printf(w, "%v", mat.Formatted(m, mat.Squeeze()))
}

// newLogger logs nowhere unless --debug is given or the config asks for a level.
func newLogger(c *cli.Context, cfg *config.Config) logging.Logger {
	if c.Bool(debugFlag) {
		return logging.NewDebugLogger("arview")
	}
	if cfg != nil && cfg.LogLevel != "" {
		logger := logging.NewLogger("arview")
		logger.SetLevel(cfg.Level())
		return logger
	}
	return logging.NewBlankLogger("arview")
}

// loadConfig reads --config. Without it, commands that need a calibration fail and the
// others run on defaults.
func loadConfig(c *cli.Context, needCalibration bool) (*config.Config, logging.Logger, error) {
	path := c.String(configFlag)
	if path == "" {
		if needCalibration {
			return nil, nil, errors.Errorf("%q needs a camera calibration, pass --%s", c.Command.Name, configFlag)
		}
		return config.Default(), newLogger(c, nil), nil
	}
	cfg, err := config.Read(path, newLogger(c, nil).Sublogger("config"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(c, cfg), nil
}

// ProjectAction is the corresponding Action for 'project'.
func ProjectAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	size := cfg.ViewportSize()
	if c.IsSet(widthFlag) {
		size.X = c.Int(widthFlag)
	}
	if c.IsSet(heightFlag) {
		size.Y = c.Int(heightFlag)
	}
	clip := cfg.ClipPlanes
	if c.IsSet(nearFlag) {
		clip.Near = c.Float64(nearFlag)
	}
	if c.IsSet(farFlag) {
		clip.Far = c.Float64(farFlag)
	}

	gl, err := transform.ProjectionForViewport(cfg.Intrinsics, size.X, size.Y, clip)
	if err != nil {
		return err
	}
	logger.Debugw("built projection", "viewport", size, "near", clip.Near, "far", clip.Far)

	printf(c.App.Writer, "projection for %dx%d, near %v, far %v:", size.X, size.Y, clip.Near, clip.Far)
	printMatrix(c.App.Writer, transform.BuildProjectionMatrix(cfg.Intrinsics, size.X, size.Y, clip))
	if c.Bool(glFlag) {
		printf(c.App.Writer, "column-major: %v", gl[:])
	}
	return nil
}

// CameraMatrixAction is the corresponding Action for 'camera-matrix'.
func CameraMatrixAction(c *cli.Context) error {
	cfg, _, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	model, err := cfg.CameraModel()
	if err != nil {
		return err
	}
	printMatrix(c.App.Writer, model.CameraMatrix34())
	if model.Distortion != nil {
		printf(c.App.Writer, "distortion %s (k1, k2, p1, p2, k3): %v", model.Distortion.ModelType(), model.DistortionCoefficients())
	}
	return nil
}

func readCloudArg(c *cli.Context, logger logging.Logger) (*pointcloud.Cloud, error) {
	if c.Args().Len() < 1 {
		return nil, errors.New("need a point cloud file")
	}
	return pointcloud.NewFromFile(c.Args().First(), logger)
}

// FrameAction is the corresponding Action for 'frame'.
func FrameAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, false)
	if err != nil {
		return err
	}
	cloud, err := readCloudArg(c, logger)
	if err != nil {
		return err
	}
	meta, err := pointcloud.ComputeBoundsWithOptions(cloud, pointcloud.BoundsOptions{PlanarExtrema: c.Bool(planarExtremaFlag)})
	if err != nil {
		return err
	}
	placement := scene.FrameBounds(meta, cfg.Framing)
	if placement.Degenerate() {
		logger.Warnw("point cloud has no extent, camera framing is degenerate", "center", meta.Center)
	}

	w := c.App.Writer
	printf(w, "grid: %dx%d, colors: %v", cloud.Rows(), cloud.Cols(), cloud.HasColors())
	printf(w, "min: %v", meta.Min)
	printf(w, "max: %v", meta.Max)
	printf(w, "center: %v", meta.Center)
	printf(w, "spread: %v", meta.Spread)
	printf(w, "centroid: %v", pointcloud.CloudCentroid(cloud))
	printf(w, "camera position: %v", placement.Position)
	printf(w, "camera target: %v", placement.Target)
	printf(w, "near: %v, far: %v, fov: %v", placement.Near, placement.Far, placement.FOVDegrees)
	return nil
}

func poseFromFlags(c *cli.Context) (spatialmath.Transformation, error) {
	var t r3.Vector
	if s := c.String(translationFlag); s != "" {
		var err error
		if t, err = spatialmath.ParseVector(s); err != nil {
			return spatialmath.Transformation{}, errors.Wrapf(err, "bad --%s", translationFlag)
		}
	}
	if !c.IsSet(rotationFlag) {
		rot := spatialmath.RotationYX(mgl64.DegToRad(c.Float64(yawFlag)), mgl64.DegToRad(c.Float64(pitchFlag)))
		return spatialmath.NewTransformation(rot, t), nil
	}
	if c.IsSet(yawFlag) || c.IsSet(pitchFlag) {
		return spatialmath.Transformation{}, errors.Errorf("--%s cannot be combined with --%s or --%s", rotationFlag, yawFlag, pitchFlag)
	}
	values, err := spatialmath.ParseFloats(c.String(rotationFlag))
	if err != nil {
		return spatialmath.Transformation{}, errors.Wrapf(err, "bad --%s", rotationFlag)
	}
	rot, err := spatialmath.RotationFromRowMajor(values)
	if err != nil {
		return spatialmath.Transformation{}, errors.Wrapf(err, "bad --%s", rotationFlag)
	}
	return spatialmath.NewTransformation(rot, t), nil
}

func poseFlagsSet(c *cli.Context) bool {
	return c.IsSet(translationFlag) || c.IsSet(yawFlag) || c.IsSet(pitchFlag) || c.IsSet(rotationFlag)
}

// ConvertAction is the corresponding Action for 'convert'.
func ConvertAction(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return errors.New("need an input and an output file")
	}
	_, logger, err := loadConfig(c, false)
	if err != nil {
		return err
	}
	cloud, err := readCloudArg(c, logger)
	if err != nil {
		return err
	}
	if poseFlagsSet(c) {
		tf, err := poseFromFlags(c)
		if err != nil {
			return err
		}
		cloud.ApplyTransformation(tf)
		logger.Debugw("moved point cloud", "transformation", tf)
	}
	cloud.UpdateBounds()

	out := c.Args().Get(1)
	if err := pointcloud.WriteToFile(cloud, out); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %dx%d point cloud to %s", cloud.Rows(), cloud.Cols(), out)
	return nil
}

// PlaneAction is the corresponding Action for 'plane'.
func PlaneAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errors.New("need an output file")
	}
	rows, cols := c.Int(rowsFlag), c.Int(colsFlag)
	if rows <= 0 || cols <= 0 {
		return errors.Errorf("plane must have positive dimensions, got %dx%d", rows, cols)
	}
	cloud, err := NewPlaneCloud(rows, cols, c.Float64(spacingFlag), !c.Bool(depthColorsFlag))
	if err != nil {
		return err
	}
	out := c.Args().First()
	if err := pointcloud.WriteToFile(cloud, out); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %dx%d point cloud to %s", rows, cols, out)
	return nil
}

// NewPlaneCloud returns a rows x cols grid on z = 0, colored along x by the jet colormap when
// colored is set.
func NewPlaneCloud(rows, cols int, spacing float64, colored bool) (*pointcloud.Cloud, error) {
	points := make([]r3.Vector, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			points = append(points, r3.Vector{X: float64(col) * spacing, Y: float64(row) * spacing})
		}
	}
	cloud, err := pointcloud.NewCloud(rows, cols, points, nil)
	if err != nil || !colored {
		return cloud, err
	}

	jet := scene.JetColormap()
	colors := make([]color.NRGBA, 0, rows*cols)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			t := 0.0
			if cols > 1 {
				t = float64(col) / float64(cols-1)
			}
			colors = append(colors, jet.NRGBA(t))
		}
	}
	return cloud, cloud.SetColors(colors)
}

// PoseAction is the corresponding Action for 'pose'.
func PoseAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, false)
	if err != nil {
		return err
	}
	var pose spatialmath.Transformation
	switch {
	case poseFlagsSet(c):
		if pose, err = poseFromFlags(c); err != nil {
			return err
		}
	case cfg.Pose != nil:
		pose = cfg.Pose.Transformation()
	default:
		return errors.Errorf("no pose given, pass --%s/--%s/--%s/--%s or set pose in the config",
			translationFlag, yawFlag, pitchFlag, rotationFlag)
	}
	if !spatialmath.IsOrthonormal(pose.Rotation(), 0) {
		logger.Warnw("pose rotation is not orthonormal, inverse will be off", "pose", pose)
	}

	w := c.App.Writer
	printf(w, "pose:\n%v", pose.Homogeneous())
	printf(w, "inverse:\n%v", pose.Inverse().Homogeneous())
	if cfg.Intrinsics == nil {
		return nil
	}
	model, err := cfg.CameraModel()
	if err != nil {
		return err
	}
	px, ok := model.ProjectVector(pose.Translation())
	if !ok {
		printf(w, "pattern origin is on the camera plane")
		return nil
	}
	printf(w, "pattern origin at pixel (%.2f, %.2f)", px.X, px.Y)
	if model.Distortion != nil {
		x, y := model.DistortionMap()(px.X, px.Y)
		printf(w, "distorted pixel (%.2f, %.2f)", x, y)
	}
	return nil
}

// PixelAction is the corresponding Action for 'pixel'.
func PixelAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c, true)
	if err != nil {
		return err
	}
	depth := c.Float64(depthFlag)
	if depth <= 0 {
		return errors.Errorf("--%s must be positive, got %v", depthFlag, depth)
	}
	model, err := cfg.CameraModel()
	if err != nil {
		return err
	}
	u, v := c.Float64(uFlag), c.Float64(vFlag)
	if model.Distortion != nil {
		undistort, err := model.UndistortionMap()
		if err != nil {
			return err
		}
		u, v = undistort(u, v)
		logger.Debugw("undistorted pixel", "u", c.Float64(uFlag), "v", c.Float64(vFlag), "undistorted", []float64{u, v})
		printf(c.App.Writer, "undistorted pixel (%.2f, %.2f)", u, v)
	}
	x, y, z := model.PixelToPoint(u, v, depth)
	printf(c.App.Writer, "point (%.4f, %.4f, %.4f)", x, y, z)
	return nil
}
