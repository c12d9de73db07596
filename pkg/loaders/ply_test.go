package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-light-transport/pkg/core"
)

const asciiQuad = `ply
format ascii 1.0
comment unit quad in the xz plane
element vertex 4
property float x
property float y
property float z
property float nx
property float ny
property float nz
element face 1
property list uchar int vertex_indices
end_header
0 0 0 0 1 0
1 0 0 0 1 0
1 0 1 0 1 0
0 0 1 0 1 0
4 0 1 2 3
`

func TestReadPLY_ASCII(t *testing.T) {
	data, err := ReadPLY(strings.NewReader(asciiQuad))
	if err != nil {
		t.Fatalf("ReadPLY failed: %v", err)
	}
	if len(data.Positions) != 4 || len(data.Normals) != 4 {
		t.Fatalf("got %d positions and %d normals, expected 4 and 4", len(data.Positions), len(data.Normals))
	}
	if data.Positions[2] != core.NewVec3(1, 0, 1) {
		t.Errorf("vertex 2: got %v", data.Positions[2])
	}
	want := [][3]int{{0, 1, 2}, {0, 2, 3}}
	if len(data.Triangles) != len(want) {
		t.Fatalf("got %d triangles, expected %d", len(data.Triangles), len(want))
	}
	for i := range want {
		if data.Triangles[i] != want[i] {
			t.Errorf("triangle %d: got %v, expected %v", i, data.Triangles[i], want[i])
		}
	}

	mesh, err := data.Mesh()
	if err != nil {
		t.Fatalf("Mesh failed: %v", err)
	}
	if math.Abs(mesh.Area()-1) > 1e-12 {
		t.Errorf("mesh area: got %f, expected 1", mesh.Area())
	}
}

// binaryTriangle encodes one triangle with an extra per-vertex property and
// an element the reader has to skip
func binaryTriangle(t *testing.T, order binary.ByteOrder, format string) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("ply\nformat " + format + " 1.0\n")
	buf.WriteString("element vertex 3\nproperty float x\nproperty float y\nproperty float z\nproperty uchar red\n")
	buf.WriteString("element face 1\nproperty list uchar uint vertex_indices\n")
	buf.WriteString("element edge 1\nproperty int vertex1\nproperty int vertex2\n")
	buf.WriteString("end_header\n")

	for _, v := range [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 2, 0}} {
		for _, c := range v {
			if err := binary.Write(&buf, order, c); err != nil {
				t.Fatal(err)
			}
		}
		buf.WriteByte(200)
	}
	buf.WriteByte(3)
	for _, i := range []uint32{0, 1, 2} {
		binary.Write(&buf, order, i)
	}
	binary.Write(&buf, order, int32(0))
	binary.Write(&buf, order, int32(1))
	return buf.Bytes()
}

func TestReadPLY_Binary(t *testing.T) {
	tests := []struct {
		format string
		order  binary.ByteOrder
	}{
		{"binary_little_endian", binary.LittleEndian},
		{"binary_big_endian", binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(binaryTriangle(t, tt.order, tt.format)))
			if err != nil {
				t.Fatalf("ReadPLY failed: %v", err)
			}
			if len(data.Normals) != 0 {
				t.Errorf("expected no normals, got %d", len(data.Normals))
			}
			if data.Positions[1] != core.NewVec3(2, 0, 0) {
				t.Errorf("vertex 1: got %v", data.Positions[1])
			}
			if len(data.Triangles) != 1 || data.Triangles[0] != [3]int{0, 1, 2} {
				t.Errorf("triangles: got %v", data.Triangles)
			}
		})
	}
}

func TestReadPLY_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"no magic", "plx\nformat ascii 1.0\nend_header\n", ErrPLYHeader},
		{"no format", "ply\nelement vertex 0\nend_header\n", ErrPLYHeader},
		{"bad type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n", ErrPLYHeader},
		{"truncated", "ply\nformat ascii 1.0\nelement vertex 2\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", ErrPLYData},
		{"missing z", "ply\nformat ascii 1.0\nelement vertex 1\nproperty float x\nproperty float y\nend_header\n0 0\n", ErrPLYData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadPLY(strings.NewReader(tt.input)); !errors.Is(err, tt.want) {
				t.Errorf("got error %v, expected %v", err, tt.want)
			}
		})
	}
}

func TestLoadPLY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.ply")
	if err := os.WriteFile(path, []byte(asciiQuad), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadPLY(path)
	if err != nil {
		t.Fatalf("LoadPLY failed: %v", err)
	}
	if len(data.Triangles) != 2 {
		t.Errorf("got %d triangles, expected 2", len(data.Triangles))
	}

	if _, err := LoadPLY(filepath.Join(t.TempDir(), "missing.ply")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
