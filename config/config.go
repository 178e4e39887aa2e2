// Package config defines the file-based configuration of arview: camera calibration, viewport,
// clipping distances, point-cloud framing and an optional fixed pattern pose.
package config

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/mcv-project/arview/logging"
	"github.com/mcv-project/arview/rimage/transform"
	"github.com/mcv-project/arview/scene"
	"github.com/mcv-project/arview/spatialmath"
)

// Config describes how to set up the AR context and point-cloud viewer.
type Config struct {
	Intrinsics *transform.PinholeCameraIntrinsics `json:"intrinsics"`
	// IntrinsicsFile is a JSON intrinsics file used instead of Intrinsics. Relative paths
	// are resolved against the config file's directory.
	IntrinsicsFile string `json:"intrinsics_file,omitempty"`
	// Distortion holds the Brown-Conrady coefficients k1, k2, p1, p2, k3. Empty means none.
	Distortion []float64 `json:"distortion,omitempty"`
	// DistortionType picks the model the coefficients describe, brown_conrady when unset.
	DistortionType transform.DistortionType `json:"distortion_type,omitempty"`
	Viewport       Viewport                 `json:"viewport"`
	ClipPlanes     transform.ClipPlanes     `json:"clip_planes"`
	Framing        scene.FramingConfig      `json:"framing"`
	Pose           *PoseConfig              `json:"pose,omitempty"`
	LogLevel       string                   `json:"log_level,omitempty"`
}

// Viewport is the size of the drawing surface in pixels. Zero falls back to the intrinsics size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PoseConfig is a fixed pattern pose relative to the camera.
type PoseConfig struct {
	YawDegrees   float64   `json:"yaw_degrees"`
	PitchDegrees float64   `json:"pitch_degrees"`
	Translation  r3.Vector `json:"translation"`
}

// Default returns a config with every tunable set to its default and no calibration.
func Default() *Config {
	return &Config{
		ClipPlanes: transform.DefaultClipPlanes(),
		Framing:    scene.DefaultFramingConfig(),
	}
}

// NewConfigValidationError returns an error specifying the path of the config that failed.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error for a required field that was not set.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.Intrinsics == nil {
		return NewConfigValidationFieldRequiredError(path, "intrinsics")
	}
	if err := c.Intrinsics.CheckValid(); err != nil {
		return NewConfigValidationError(fmt.Sprintf("%s.intrinsics", path), err)
	}
	if n := len(c.Distortion); n != 0 && n != 5 {
		return NewConfigValidationError(path, errors.Errorf("distortion needs 5 coefficients (k1, k2, p1, p2, k3), got %d", n))
	}
	if c.DistortionType != "" && len(c.Distortion) == 0 {
		return NewConfigValidationError(path, errors.Errorf("distortion_type %q given without distortion", c.DistortionType))
	}
	if _, err := c.distorter(); err != nil {
		return NewConfigValidationError(path, err)
	}
	if c.Viewport.Width < 0 || c.Viewport.Height < 0 {
		return NewConfigValidationError(path,
			errors.Errorf("viewport must not be negative, got %dx%d", c.Viewport.Width, c.Viewport.Height))
	}
	if size := c.ViewportSize(); size.X == 0 || size.Y == 0 {
		return NewConfigValidationError(path, errors.New("viewport size is unknown, set viewport or intrinsics width_px and height_px"))
	}
	if err := c.ClipPlanes.CheckValid(); err != nil {
		return NewConfigValidationError(fmt.Sprintf("%s.clip_planes", path), err)
	}
	if err := c.Framing.CheckValid(); err != nil {
		return NewConfigValidationError(fmt.Sprintf("%s.framing", path), err)
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return NewConfigValidationError(path, err)
		}
	}
	return nil
}

// CameraModel returns the calibration described by the config.
func (c *Config) CameraModel() (*transform.PinholeCameraModel, error) {
	if c.Intrinsics == nil {
		return nil, transform.NewNoIntrinsicsError("config has no intrinsics")
	}
	distortion, err := c.distorter()
	if err != nil {
		return nil, err
	}
	intrinsics := *c.Intrinsics
	return &transform.PinholeCameraModel{PinholeCameraIntrinsics: &intrinsics, Distortion: distortion}, nil
}

// distorter builds the configured distortion model, nil without coefficients.
func (c *Config) distorter() (transform.Distorter, error) {
	if len(c.Distortion) != 5 {
		return nil, nil
	}
	distortionType := c.DistortionType
	if distortionType == "" {
		distortionType = transform.BrownConradyDistortionType
	}
	// coefficients are k1, k2, p1, p2, k3; the models take rk1, rk2, rk3, tp1, tp2
	k := c.Distortion
	return transform.NewDistorter(distortionType, []float64{k[0], k[1], k[4], k[2], k[3]})
}

// loadIntrinsicsFile fills Intrinsics from IntrinsicsFile. configPath is the file the config
// was read from.
func (c *Config) loadIntrinsicsFile(configPath string) error {
	if c.IntrinsicsFile == "" {
		return nil
	}
	if c.Intrinsics != nil {
		return NewConfigValidationError(configPath, errors.New("set only one of intrinsics and intrinsics_file"))
	}
	fn := c.IntrinsicsFile
	if !filepath.IsAbs(fn) {
		fn = filepath.Join(filepath.Dir(configPath), fn)
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromJSONFile(fn)
	if err != nil {
		return NewConfigValidationError(fmt.Sprintf("%s.intrinsics_file", configPath), err)
	}
	c.Intrinsics = intrinsics
	return nil
}

// ViewportSize returns the configured viewport, or the calibrated image size when unset.
func (c *Config) ViewportSize() image.Point {
	if c.Viewport.Width > 0 && c.Viewport.Height > 0 {
		return image.Point{c.Viewport.Width, c.Viewport.Height}
	}
	if c.Intrinsics != nil {
		return image.Point{c.Intrinsics.Width, c.Intrinsics.Height}
	}
	return image.Point{}
}

// Level returns the configured log level, INFO when unset.
func (c *Config) Level() logging.Level {
	level, err := logging.LevelFromString(c.LogLevel)
	if err != nil {
		return logging.INFO
	}
	return level
}

// Transformation returns the pose as a camera-relative transformation.
func (p *PoseConfig) Transformation() spatialmath.Transformation {
	rot := spatialmath.RotationYX(mgl64.DegToRad(p.YawDegrees), mgl64.DegToRad(p.PitchDegrees))
	return spatialmath.NewTransformation(rot, p.Translation)
}
