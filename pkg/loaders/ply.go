// Package loaders reads mesh and image files into the renderer's types.
package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-light-transport/pkg/core"
	"github.com/df07/go-light-transport/pkg/geometry"
	"github.com/df07/go-light-transport/pkg/log"
)

var logger = log.New("loaders")

var (
	ErrPLYHeader = errors.New("loaders: malformed PLY header")
	ErrPLYData   = errors.New("loaders: malformed PLY data")
)

// PLYFormat is the body encoding declared in a PLY header
type PLYFormat int

const (
	PLYASCII PLYFormat = iota
	PLYBinaryLittleEndian
	PLYBinaryBigEndian
)

// PLYProperty is one property of a header element. List properties carry
// the type of their count and the type of their items.
type PLYProperty struct {
	Name      string
	Type      string
	IsList    bool
	CountType string
}

// PLYElement is a header element and its properties in file order
type PLYElement struct {
	Name       string
	Count      int
	Properties []PLYProperty
}

// PLYHeader is the parsed header of a PLY file
type PLYHeader struct {
	Format   PLYFormat
	Elements []PLYElement
}

// PLYData is the triangle soup of a PLY file. Polygons are fan triangulated.
type PLYData struct {
	Positions []core.Vec3
	Normals   []core.Vec3 // per vertex, empty when the file has none
	Triangles [][3]int
}

// Mesh validates the data and builds a geometry mesh from it
func (d *PLYData) Mesh() (*geometry.Mesh, error) {
	return geometry.NewMesh(d.Positions, d.Normals, d.Triangles)
}

// LoadPLY reads an ASCII or binary PLY file
func LoadPLY(filename string) (*PLYData, error) {
	start := time.Now()
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("loaders: open PLY: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("loaders: %s: %w", filename, err)
	}
	logger.Infof("loaded %s: %d vertices, %d triangles in %d ms",
		filename, len(data.Positions), len(data.Triangles), time.Since(start).Milliseconds())
	return data, nil
}

// ReadPLY parses a PLY stream
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReader(r)
	header, err := readPLYHeader(reader)
	if err != nil {
		return nil, err
	}

	var body plyBody
	switch header.Format {
	case PLYASCII:
		body = &asciiBody{reader: reader}
	case PLYBinaryLittleEndian:
		body = &binaryBody{reader: reader, order: binary.LittleEndian}
	default:
		body = &binaryBody{reader: reader, order: binary.BigEndian}
	}

	data := &PLYData{}
	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			err = readVertices(body, element, data)
		case "face":
			err = readFaces(body, element, data)
		default:
			err = skipElement(body, element)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: element %s: %v", ErrPLYData, element.Name, err)
		}
	}
	return data, nil
}

func readPLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	first := true
	haveFormat := false
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPLYHeader, err)
		}
		fields := strings.Fields(line)
		if first {
			if len(fields) != 1 || fields[0] != "ply" {
				return nil, fmt.Errorf("%w: missing magic number", ErrPLYHeader)
			}
			first = false
			continue
		}
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %q", ErrPLYHeader, strings.TrimSpace(line))
			}
			switch fields[1] {
			case "ascii":
				header.Format = PLYASCII
			case "binary_little_endian":
				header.Format = PLYBinaryLittleEndian
			case "binary_big_endian":
				header.Format = PLYBinaryBigEndian
			default:
				return nil, fmt.Errorf("%w: unknown format %q", ErrPLYHeader, fields[1])
			}
			haveFormat = true
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: %q", ErrPLYHeader, strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("%w: element count %q", ErrPLYHeader, fields[2])
			}
			header.Elements = append(header.Elements, PLYElement{Name: fields[1], Count: count})
		case "property":
			if len(header.Elements) == 0 {
				return nil, fmt.Errorf("%w: property before any element", ErrPLYHeader)
			}
			var prop PLYProperty
			switch {
			case len(fields) == 5 && fields[1] == "list":
				prop = PLYProperty{Name: fields[4], Type: fields[3], IsList: true, CountType: fields[2]}
			case len(fields) == 3:
				prop = PLYProperty{Name: fields[2], Type: fields[1]}
			default:
				return nil, fmt.Errorf("%w: %q", ErrPLYHeader, strings.TrimSpace(line))
			}
			if scalarSize(prop.Type) == 0 || (prop.IsList && scalarSize(prop.CountType) == 0) {
				return nil, fmt.Errorf("%w: unknown type in %q", ErrPLYHeader, strings.TrimSpace(line))
			}
			last := &header.Elements[len(header.Elements)-1]
			last.Properties = append(last.Properties, prop)
		case "end_header":
			if !haveFormat {
				return nil, fmt.Errorf("%w: no format line", ErrPLYHeader)
			}
			return header, nil
		case "comment", "obj_info":
		default:
			return nil, fmt.Errorf("%w: unexpected keyword %q", ErrPLYHeader, fields[0])
		}
	}
}

// scalarSize returns the byte size of a PLY scalar type, 0 when unknown
func scalarSize(t string) int {
	switch t {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "int", "int32", "uint", "uint32", "float", "float32":
		return 4
	case "double", "float64":
		return 8
	}
	return 0
}

// plyBody reads scalar values one after another in the file's encoding
type plyBody interface {
	next(t string) (float64, error)
}

type asciiBody struct {
	reader *bufio.Reader
}

func (b *asciiBody) next(string) (float64, error) {
	var token []byte
	for {
		c, err := b.reader.ReadByte()
		if err != nil {
			if err == io.EOF && len(token) > 0 {
				break
			}
			return 0, err
		}
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			if len(token) > 0 {
				break
			}
			continue
		}
		token = append(token, c)
	}
	return strconv.ParseFloat(string(token), 64)
}

type binaryBody struct {
	reader *bufio.Reader
	order  binary.ByteOrder
	buf    [8]byte
}

func (b *binaryBody) next(t string) (float64, error) {
	n := scalarSize(t)
	if _, err := io.ReadFull(b.reader, b.buf[:n]); err != nil {
		return 0, err
	}
	p := b.buf[:n]
	switch t {
	case "char", "int8":
		return float64(int8(p[0])), nil
	case "uchar", "uint8":
		return float64(p[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(p))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(p)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(p))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(p)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(p))), nil
	default:
		return math.Float64frombits(b.order.Uint64(p)), nil
	}
}

func readVertices(body plyBody, element PLYElement, data *PLYData) error {
	index := map[string]int{}
	for i, p := range element.Properties {
		if !p.IsList {
			index[p.Name] = i
		}
	}
	for _, name := range []string{"x", "y", "z"} {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("vertex property %s missing", name)
		}
	}
	_, nx := index["nx"]
	_, ny := index["ny"]
	_, nz := index["nz"]
	hasNormals := nx && ny && nz

	data.Positions = make([]core.Vec3, element.Count)
	if hasNormals {
		data.Normals = make([]core.Vec3, element.Count)
	}
	values := make([]float64, len(element.Properties))
	for v := 0; v < element.Count; v++ {
		for i, p := range element.Properties {
			if p.IsList {
				if err := skipList(body, p); err != nil {
					return err
				}
				continue
			}
			value, err := body.next(p.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", v, err)
			}
			values[i] = value
		}
		data.Positions[v] = core.NewVec3(values[index["x"]], values[index["y"]], values[index["z"]])
		if hasNormals {
			data.Normals[v] = core.NewVec3(values[index["nx"]], values[index["ny"]], values[index["nz"]])
		}
	}
	return nil
}

func readFaces(body plyBody, element PLYElement, data *PLYData) error {
	for f := 0; f < element.Count; f++ {
		for _, p := range element.Properties {
			if !p.IsList || (p.Name != "vertex_indices" && p.Name != "vertex_index") {
				if err := skipProperty(body, p); err != nil {
					return err
				}
				continue
			}
			count, err := body.next(p.CountType)
			if err != nil {
				return fmt.Errorf("face %d: %w", f, err)
			}
			polygon := make([]int, int(count))
			for i := range polygon {
				value, err := body.next(p.Type)
				if err != nil {
					return fmt.Errorf("face %d: %w", f, err)
				}
				polygon[i] = int(value)
			}
			if len(polygon) < 3 {
				return fmt.Errorf("face %d has %d vertices", f, len(polygon))
			}
			for i := 1; i+1 < len(polygon); i++ {
				data.Triangles = append(data.Triangles, [3]int{polygon[0], polygon[i], polygon[i+1]})
			}
		}
	}
	return nil
}

func skipElement(body plyBody, element PLYElement) error {
	for i := 0; i < element.Count; i++ {
		for _, p := range element.Properties {
			if err := skipProperty(body, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipProperty(body plyBody, p PLYProperty) error {
	if p.IsList {
		return skipList(body, p)
	}
	_, err := body.next(p.Type)
	return err
}

func skipList(body plyBody, p PLYProperty) error {
	count, err := body.next(p.CountType)
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if _, err := body.next(p.Type); err != nil {
			return err
		}
	}
	return nil
}
