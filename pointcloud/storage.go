package pointcloud

import (
	"bufio"
	"bytes"
	"image/color"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"
)

// Keys and element types of the frame storage format, a YAML document in the layout of
// OpenCV's FileStorage. Positions are three doubles per cell, colors three bytes in BGR order.
const (
	storageHeader   = "%YAML:1.0"
	storagePointKey = "3data"
	storageColorKey = "Cdata"
	matrixTag       = "!!opencv-matrix"

	pointTypeDouble = "3d"
	pointTypeFloat  = "3f"
	colorTypeBytes  = "3u"
)

type storedMatrix struct {
	Rows int       `yaml:"rows"`
	Cols int       `yaml:"cols"`
	Dt   string    `yaml:"dt"`
	Data []float64 `yaml:"data"`
}

// WriteStorage writes the cloud's grids in the frame storage format. A missing grid is
// omitted. Positions are written with the shortest representation that parses back to the
// same float64. The format keeps no alpha, so colors read back opaque, and a cloud with
// neither grid keeps no shape and reads back as 0x0.
func WriteStorage(out io.Writer, cloud *Cloud) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	if cloud.HasPoints() {
		data := make([]string, 0, 3*len(cloud.points))
		for _, p := range cloud.points {
			data = append(data, formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
		}
		root.Content = append(root.Content, keyNode(storagePointKey), matrixNode(cloud.rows, cloud.cols, pointTypeDouble, data))
	}
	if cloud.HasColors() {
		data := make([]string, 0, 3*len(cloud.colors))
		for _, c := range cloud.colors {
			data = append(data, strconv.Itoa(int(c.B)), strconv.Itoa(int(c.G)), strconv.Itoa(int(c.R)))
		}
		root.Content = append(root.Content, keyNode(storageColorKey), matrixNode(cloud.rows, cloud.cols, colorTypeBytes, data))
	}

	if _, err := io.WriteString(out, storageHeader+"\n---\n"); err != nil {
		return err
	}
	if len(root.Content) == 0 {
		return nil
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(3)
	if err := enc.Encode(root); err != nil {
		return errors.Wrap(err, "error encoding point cloud storage")
	}
	return enc.Close()
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: key}
}

func matrixNode(rows, cols int, dt string, data []string) *yaml.Node {
	values := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range data {
		values.Content = append(values.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v})
	}
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  matrixTag,
		Content: []*yaml.Node{
			keyNode("rows"), keyNode(strconv.Itoa(rows)),
			keyNode("cols"), keyNode(strconv.Itoa(cols)),
			keyNode("dt"), {Kind: yaml.ScalarNode, Value: dt, Style: yaml.DoubleQuotedStyle},
			keyNode("data"), values,
		},
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ".nan"
	case math.IsInf(v, 1):
		return ".inf"
	case math.IsInf(v, -1):
		return "-.inf"
	case v == 0 && math.Signbit(v):
		// "-0" would be read back as the integer 0
		return "-0.0"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadStorage reads a cloud written by WriteStorage or by OpenCV's FileStorage. Positions may
// be stored as doubles or floats. Either key may be missing; when both are present their
// shapes must match.
func ReadStorage(in io.Reader) (*Cloud, error) {
	raw, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "error reading point cloud storage")
	}
	raw = stripStorageHeader(raw)

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "error parsing point cloud storage")
	}
	if doc.Kind == 0 || len(doc.Content) == 0 || doc.Content[0].ShortTag() == "!!null" {
		return &Cloud{}, nil
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, errors.New("point cloud storage must be a mapping")
	}

	var points, colors *storedMatrix
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i].Value, root.Content[i+1]
		switch key {
		case storagePointKey:
			if points, err = decodeMatrix(key, value); err != nil {
				return nil, err
			}
		case storageColorKey:
			if colors, err = decodeMatrix(key, value); err != nil {
				return nil, err
			}
		}
	}
	return cloudFromMatrices(points, colors)
}

func stripStorageHeader(raw []byte) []byte {
	if !bytes.HasPrefix(raw, []byte("%YAML")) {
		return raw
	}
	if idx := bytes.IndexByte(raw, '\n'); idx >= 0 {
		return raw[idx+1:]
	}
	return nil
}

func decodeMatrix(key string, node *yaml.Node) (*storedMatrix, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.Errorf("%q is not a matrix", key)
	}
	// the matrix tag is not one yaml knows how to decode
	node.Tag = "!!map"
	var m storedMatrix
	if err := node.Decode(&m); err != nil {
		return nil, errors.Wrapf(err, "error decoding %q", key)
	}
	if m.Rows < 0 || m.Cols < 0 {
		return nil, errors.Errorf("%q has invalid shape %dx%d", key, m.Rows, m.Cols)
	}
	if m.Rows*m.Cols == 0 {
		return nil, nil
	}
	if len(m.Data) != 3*m.Rows*m.Cols {
		return nil, errors.Errorf("%q has %d values, expected %d for a %dx%d matrix of %s",
			key, len(m.Data), 3*m.Rows*m.Cols, m.Rows, m.Cols, m.Dt)
	}
	return &m, nil
}

func cloudFromMatrices(points, colors *storedMatrix) (*Cloud, error) {
	var rows, cols int
	var positions []r3.Vector
	var bgr []color.NRGBA

	if points != nil {
		if points.Dt != pointTypeDouble && points.Dt != pointTypeFloat {
			return nil, errors.Errorf("unsupported %q element type %q", storagePointKey, points.Dt)
		}
		rows, cols = points.Rows, points.Cols
		positions = make([]r3.Vector, rows*cols)
		for i := range positions {
			positions[i] = r3.Vector{X: points.Data[3*i], Y: points.Data[3*i+1], Z: points.Data[3*i+2]}
		}
	}
	if colors != nil {
		if colors.Dt != colorTypeBytes {
			return nil, errors.Errorf("unsupported %q element type %q", storageColorKey, colors.Dt)
		}
		if points != nil && (colors.Rows != rows || colors.Cols != cols) {
			return nil, errors.Errorf("color grid is %dx%d but position grid is %dx%d", colors.Rows, colors.Cols, rows, cols)
		}
		rows, cols = colors.Rows, colors.Cols
		bgr = make([]color.NRGBA, rows*cols)
		for i := range bgr {
			b, g, r := colors.Data[3*i], colors.Data[3*i+1], colors.Data[3*i+2]
			for _, v := range [3]float64{b, g, r} {
				if v < 0 || v > 255 || v != math.Trunc(v) {
					return nil, errors.Errorf("invalid color component %v in %q", v, storageColorKey)
				}
			}
			bgr[i] = color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
		}
	}
	return NewCloud(rows, cols, positions, bgr)
}

// WriteFrame writes the cloud to the named file in the frame storage format.
func (cloud *Cloud) WriteFrame(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	w := bufio.NewWriter(f)
	if err := WriteStorage(w, cloud); err != nil {
		return err
	}
	return w.Flush()
}

// ReadFrame reads a cloud from the named file in the frame storage format.
func ReadFrame(fn string) (*Cloud, error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	return ReadStorage(bufio.NewReader(f))
}
