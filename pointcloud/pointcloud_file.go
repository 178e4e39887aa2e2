package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/mcv-project/arview/logging"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed binary format for pcd.
	PCDCompressed PCDType = 2
)

// NewFromFile returns a pointcloud read in from the given file. The format follows the
// extension: .yml/.yaml frame storage, .pcd or .las.
func NewFromFile(fn string, logger logging.Logger) (*Cloud, error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yml", ".yaml":
		return ReadFrame(fn)
	case ".pcd":
		//nolint:gosec
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadPCD(f)
	case ".las":
		return NewFromLASFile(fn, logger)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}

// WriteToFile writes the cloud to the given file, picking the format like NewFromFile.
// PCD files are written in binary. A .png file holds only the color grid, one pixel per point.
func WriteToFile(cloud *Cloud, fn string) (err error) {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".yml", ".yaml":
		return cloud.WriteFrame(fn)
	case ".pcd":
		//nolint:gosec
		f, createErr := os.Create(fn)
		if createErr != nil {
			return createErr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		w := bufio.NewWriter(f)
		if err := ToPCD(cloud, w, PCDBinary); err != nil {
			return err
		}
		return w.Flush()
	case ".las":
		return WriteToLASFile(cloud, fn)
	case ".png":
		img := cloud.ColorImage()
		if img == nil {
			return errors.Errorf("cannot write %q, point cloud has no colors", fn)
		}
		//nolint:gosec
		f, createErr := os.Create(fn)
		if createErr != nil {
			return createErr
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		return png.Encode(f, img)
	default:
		return errors.Errorf("do not know how to write file %q", fn)
	}
}

// gridShapeTag marks the VLR holding the rows and cols of an organized cloud.
const gridShapeTag = "arview|grid"

// LAS coordinates are int32s at millimeter scale.
const (
	maxPreciseFloat64 = float64(math.MaxInt32) / 1000
	minPreciseFloat64 = float64(math.MinInt32) / 1000
)

// NewFromLASFile returns a point cloud from reading a LAS file. If any
// lossiness of points could occur from reading it in, it's reported but is not
// an error. Files without a grid record are read as a single row.
func NewFromLASFile(fn string, logger logging.Logger) (*Cloud, error) {
	lf, err := lidario.NewLasFile(fn, "r")
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(lf.Close)

	rows, cols := 1, lf.Header.NumberPoints
	for _, d := range lf.VlrData {
		if d.Description == gridShapeTag && len(d.BinaryData) == 16 {
			rows = int(binary.LittleEndian.Uint64(d.BinaryData[:8]))
			cols = int(binary.LittleEndian.Uint64(d.BinaryData[8:]))
			break
		}
	}
	if rows*cols != lf.Header.NumberPoints {
		return nil, errors.Errorf("LAS grid %dx%d does not hold %d points", rows, cols, lf.Header.NumberPoints)
	}

	points := make([]r3.Vector, 0, lf.Header.NumberPoints)
	var colors []color.NRGBA
	if lf.Header.PointFormatID == 2 {
		colors = make([]color.NRGBA, 0, lf.Header.NumberPoints)
	}
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, err
		}
		data := p.PointData()

		x, y, z := data.X, data.Y, data.Z
		if x < minPreciseFloat64 || x > maxPreciseFloat64 ||
			y < minPreciseFloat64 || y > maxPreciseFloat64 ||
			z < minPreciseFloat64 || z > maxPreciseFloat64 {
			logger.Warnw("potential floating point lossiness for LAS point",
				"point", data, "range", fmt.Sprintf("[%f,%f]", minPreciseFloat64, maxPreciseFloat64))
		}
		points = append(points, r3.Vector{X: x, Y: y, Z: z})

		if colors != nil {
			c := color.NRGBA{A: 255}
			if rgb := p.RgbData(); rgb != nil {
				c.R = uint8(rgb.Red / 256)
				c.G = uint8(rgb.Green / 256)
				c.B = uint8(rgb.Blue / 256)
			}
			colors = append(colors, c)
		}
	}
	return NewCloud(rows, cols, points, colors)
}

// WriteToLASFile writes the point cloud out to a LAS file. The grid shape is kept in a
// variable length record so NewFromLASFile can restore it.
func WriteToLASFile(cloud *Cloud, fn string) (err error) {
	lf, err := lidario.NewLasFile(fn, "w")
	if err != nil {
		return
	}
	defer func() {
		cerr := lf.Close()
		err = multierr.Combine(err, cerr)
	}()

	pointFormatID := 0
	if cloud.HasColors() {
		pointFormatID = 2
	}
	if err = lf.AddHeader(lidario.LasHeader{
		PointFormatID: byte(pointFormatID),
	}); err != nil {
		return
	}

	var lastErr error
	cloud.Iterate(0, 0, func(_, _ int, pos r3.Vector, c color.NRGBA) bool {
		var lp lidario.LasPointer
		pr0 := &lidario.PointRecord0{
			X: pos.X,
			Y: pos.Y,
			Z: pos.Z,
			BitField: lidario.PointBitField{
				Value: (1) | (1 << 3) | (0 << 6) | (0 << 7),
			},
			ClassBitField: lidario.ClassificationBitField{
				Value: 0,
			},
			PointSourceID: 1,
		}
		lp = pr0

		if cloud.HasColors() {
			lp = &lidario.PointRecord2{
				PointRecord0: pr0,
				RGB: &lidario.RgbData{
					Red:   uint16(c.R) * 256,
					Green: uint16(c.G) * 256,
					Blue:  uint16(c.B) * 256,
				},
			}
		}
		if lerr := lf.AddLasPoint(lp); lerr != nil {
			lastErr = lerr
			return false
		}
		return true
	})
	if lastErr != nil {
		err = lastErr
		return
	}

	var buf bytes.Buffer
	shape := make([]byte, 8)
	binary.LittleEndian.PutUint64(shape, uint64(cloud.Rows()))
	buf.Write(shape)
	binary.LittleEndian.PutUint64(shape, uint64(cloud.Cols()))
	buf.Write(shape)
	err = lf.AddVLR(lidario.VLR{
		UserID:                  "",
		Description:             gridShapeTag,
		BinaryData:              buf.Bytes(),
		RecordLengthAfterHeader: buf.Len(),
	})
	// nolint:nakedret
	return
}

func colorToPCDInt(c color.NRGBA) int {
	return int(c.R)<<16 | int(c.G)<<8 | int(c.B)
}

func pcdIntToColor(c int) color.NRGBA {
	r := uint8(0xFF & (c >> 16))
	g := uint8(0xFF & (c >> 8))
	b := uint8(0xFF & (c >> 0))
	return color.NRGBA{r, g, b, 255}
}

// ToPCD writes the cloud as an organized PCD file: WIDTH is the number of columns and HEIGHT
// the number of rows. Coordinates are stored as float32.
func ToPCD(cloud *Cloud, out io.Writer, outputType PCDType) error {
	if !cloud.HasPoints() && cloud.Rows()*cloud.Cols() > 0 {
		return errors.New("cannot write a PCD file without positions")
	}
	var err error

	_, err = fmt.Fprintf(out, "VERSION .7\n")
	if err != nil {
		return err
	}
	switch cloud.HasColors() {
	case true:
		_, err = fmt.Fprintf(out, "FIELDS x y z rgb\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F I\n"+
			"COUNT 1 1 1 1\n")
	case false:
		_, err = fmt.Fprintf(out, "FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Cols(),
		cloud.Rows(),
		cloud.Size())
	if err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		_, err = fmt.Fprintf(out, "DATA binary\n")
		if err != nil {
			return err
		}
	case PCDAscii:
		_, err = fmt.Fprintf(out, "DATA ascii\n")
		if err != nil {
			return err
		}
	case PCDCompressed:
		return errors.New("compressed PCD not yet implemented")
	default:
		return errors.Errorf("unknown PCD type %d", outputType)
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud *Cloud, out io.Writer, pcdtype PCDType) error {
	hasColor := cloud.HasColors()
	var err error
	cloud.Iterate(0, 0, func(_, _ int, pos r3.Vector, c color.NRGBA) bool {
		switch pcdtype {
		case PCDBinary:
			buf := make([]byte, 12, 16)
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(pos.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(pos.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(pos.Z)))
			if hasColor {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(colorToPCDInt(c)))
			}
			_, err = out.Write(buf)
		case PCDAscii:
			if hasColor {
				_, err = fmt.Fprintf(out, "%f %f %f %d\n", pos.X, pos.Y, pos.Z, colorToPCDInt(c))
			} else {
				_, err = fmt.Fprintf(out, "%f %f %f\n", pos.X, pos.Y, pos.Z)
			}
		}
		return err == nil
	})
	return err
}

type pcdFieldType int

const (
	pcdPointOnly  pcdFieldType = 3
	pcdPointColor pcdFieldType = 4
)

type pcdHeader struct {
	fields pcdFieldType
	size   []uint64
	count  []uint64
	width  uint64
	height uint64
	points uint64
	data   PCDType
}

const pcdCommentChar = "#"

const (
	// a position takes 24 bytes, so no grid can hold more than this.
	maxPCDPoints = math.MaxInt / 24
	// grids grow past this as points are read instead of trusting the header.
	maxPreallocPoints = 1 << 20
)

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		switch value {
		case "x y z":
			header.fields = pcdPointOnly
		case "x y z rgb":
			header.fields = pcdPointColor
		default:
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil || header.size[i] != 4 {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
	case "COUNT":
		if len(tokens) != int(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]uint64, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.ParseUint(token, 10, 64)
			if err != nil {
				return errors.Wrapf(err, "invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
		for _, token := range tokens {
			if _, err := strconv.ParseFloat(token, 64); err != nil {
				return errors.Wrapf(err, "invalid VIEWPOINT field %s", token)
			}
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		if header.width > maxPCDPoints || header.height > maxPCDPoints ||
			(header.width != 0 && header.height > maxPCDPoints/header.width) {
			return errors.Errorf("WIDTH %d and HEIGHT %d make too many points", header.width, header.height)
		}
		if points != header.width*header.height {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, header.width*header.height)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

// ReadPCD reads an ascii or binary PCD file with x y z or x y z rgb fields. WIDTH and HEIGHT
// become the grid's columns and rows.
func ReadPCD(inRaw io.Reader) (*Cloud, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}

	var points []r3.Vector
	var colors []color.NRGBA
	var err error
	switch header.data {
	case PCDAscii:
		points, colors, err = readPCDAscii(in, header)
	case PCDBinary:
		points, colors, err = readPCDBinary(in, header)
	case PCDCompressed:
		return nil, errors.New("compressed pcd not yet supported")
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
	if err != nil {
		return nil, err
	}
	return NewCloud(int(header.height), int(header.width), points, colors)
}

func newPCDGrids(header pcdHeader) ([]r3.Vector, []color.NRGBA) {
	capacity := header.points
	if capacity > maxPreallocPoints {
		capacity = maxPreallocPoints
	}
	points := make([]r3.Vector, 0, capacity)
	var colors []color.NRGBA
	if header.fields == pcdPointColor {
		colors = make([]color.NRGBA, 0, capacity)
	}
	return points, colors
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) ([]r3.Vector, []color.NRGBA, error) {
	points, colors := newPCDGrids(header)
	for i := uint64(0); i < header.points; i++ {
		line, err := in.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return nil, nil, errors.Wrapf(err, "error reading point %d", i)
		}
		tokens := strings.Fields(line)
		if len(tokens) != int(header.fields) {
			return nil, nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		values := make([]float64, len(tokens))
		for j, token := range tokens {
			values[j], err = strconv.ParseFloat(token, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "invalid point %d field %s", i, token)
			}
		}
		points = append(points, r3.Vector{X: values[0], Y: values[1], Z: values[2]})
		if colors != nil {
			colors = append(colors, pcdIntToColor(int(values[3])))
		}
	}
	return points, colors, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) ([]r3.Vector, []color.NRGBA, error) {
	points, colors := newPCDGrids(header)
	buf := make([]byte, 4*int(header.fields))
	for i := uint64(0); i < header.points; i++ {
		if _, err := io.ReadFull(in, buf); err != nil {
			return nil, nil, errors.Wrapf(err, "error reading point %d", i)
		}
		points = append(points, r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[8:]))),
		})
		if colors != nil {
			colors = append(colors, pcdIntToColor(int(binary.LittleEndian.Uint32(buf[12:]))))
		}
	}
	return points, colors, nil
}
