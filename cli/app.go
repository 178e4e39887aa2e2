// Package cli contains the arview command line: projection and camera matrices from a
// calibration, pattern poses, and point-cloud framing and conversion.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	debugFlag           = "debug"
	configFlag          = "config"
	widthFlag           = "width"
	heightFlag          = "height"
	nearFlag            = "near"
	farFlag             = "far"
	glFlag              = "gl"
	planarExtremaFlag   = "planar-extrema"
	translationFlag     = "translation"
	yawFlag             = "yaw"
	pitchFlag           = "pitch"
	rotationFlag        = "rotation"
	rowsFlag            = "rows"
	colsFlag            = "cols"
	spacingFlag         = "spacing"
	depthColorsFlag     = "depth-colors"
	uFlag               = "u"
	vFlag               = "v"
	depthFlag           = "depth"
	defaultPlaneSize    = 11
	defaultPlaneSpacing = 1.0
)

var poseFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  translationFlag,
		Usage: "translation as `X,Y,Z`",
	},
	&cli.Float64Flag{
		Name:  yawFlag,
		Usage: "rotation about the y axis in `DEGREES`",
	},
	&cli.Float64Flag{
		Name:  pitchFlag,
		Usage: "rotation about the x axis in `DEGREES`, applied before yaw",
	},
	&cli.StringFlag{
		Name:  rotationFlag,
		Usage: "rotation matrix as nine row-major `VALUES`, instead of yaw and pitch",
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "arview",
		Usage:           "camera projection and point cloud framing tools",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    configFlag,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:    debugFlag,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "project",
				Usage: "print the perspective projection matching the configured camera",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  widthFlag,
						Usage: "viewport width in pixels, overrides the config",
					},
					&cli.IntFlag{
						Name:  heightFlag,
						Usage: "viewport height in pixels, overrides the config",
					},
					&cli.Float64Flag{
						Name:  nearFlag,
						Usage: "near clipping distance, overrides the config",
					},
					&cli.Float64Flag{
						Name:  farFlag,
						Usage: "far clipping distance, overrides the config",
					},
					&cli.BoolFlag{
						Name:  glFlag,
						Usage: "also print the column-major values handed to a GL pipeline",
					},
				},
				Action: ProjectAction,
			},
			{
				Name:   "camera-matrix",
				Usage:  "print the 3x4 camera matrix of the configured calibration",
				Action: CameraMatrixAction,
			},
			{
				Name:      "frame",
				Usage:     "compute the bounds of a point cloud and the camera framing it",
				ArgsUsage: "<cloud file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  planarExtremaFlag,
						Usage: "only refine x and y extrema, as older tools did",
					},
				},
				Action: FrameAction,
			},
			{
				Name:      "convert",
				Usage:     "convert a point cloud between .yml, .pcd and .las, optionally moving it; .png writes its colors",
				ArgsUsage: "<input file> <output file>",
				Flags:     poseFlags,
				Action:    ConvertAction,
			},
			{
				Name:      "plane",
				Usage:     "write a flat test point cloud colored along x",
				ArgsUsage: "<output file>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  rowsFlag,
						Value: defaultPlaneSize,
					},
					&cli.IntFlag{
						Name:  colsFlag,
						Value: defaultPlaneSize,
					},
					&cli.Float64Flag{
						Name:  spacingFlag,
						Value: defaultPlaneSpacing,
						Usage: "distance between neighboring points",
					},
					&cli.BoolFlag{
						Name:  depthColorsFlag,
						Usage: "leave the cloud uncolored so viewers use a depth colormap",
					},
				},
				Action: PlaneAction,
			},
			{
				Name:  "pixel",
				Usage: "back-project a distorted image pixel at a known depth into camera coordinates",
				Flags: []cli.Flag{
					&cli.Float64Flag{
						Name:     uFlag,
						Usage:    "pixel column",
						Required: true,
					},
					&cli.Float64Flag{
						Name:     vFlag,
						Usage:    "pixel row",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  depthFlag,
						Usage: "distance along the optical axis",
						Value: 1,
					},
				},
				Action: PixelAction,
			},
			{
				Name:   "pose",
				Usage:  "print a pattern pose, its inverse and where its origin lands in the image",
				Flags:  poseFlags,
				Action: PoseAction,
			},
		},
	}
}
