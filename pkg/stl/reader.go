package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/reliefmesh/pkg/mesh"
)

const (
	binaryHeaderSize = 80
	binaryRecordSize = 50 // normal + 3 vertices as float32, uint16 attribute
)

// ReadFile reads an ASCII or binary STL file.
func ReadFile(path string) (*mesh.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Read reads an ASCII or binary STL stream.
func Read(r io.Reader) (*mesh.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes STL data. Binary files whose header happens to begin with
// "solid" are recognised by their exact record size.
func Parse(data []byte) (*mesh.Mesh, error) {
	if len(data) >= binaryHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[binaryHeaderSize:])
		if int64(len(data)) == binaryHeaderSize+4+int64(count)*binaryRecordSize {
			return parseBinary(data, int(count))
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCII(data)
	}
	return nil, fmt.Errorf("%w: neither ASCII nor binary layout", ErrInvalidSTL)
}

func parseBinary(data []byte, count int) (*mesh.Mesh, error) {
	m := &mesh.Mesh{Triangles: make([]mesh.Triangle, count)}
	off := binaryHeaderSize + 4
	for i := range count {
		rec := data[off : off+binaryRecordSize]
		var vs [4]mgl64.Vec3
		for j := range vs {
			for c := range 3 {
				bits := binary.LittleEndian.Uint32(rec[12*j+4*c:])
				vs[j][c] = float64(math.Float32frombits(bits))
			}
		}
		m.Triangles[i] = mesh.Triangle{Normal: vs[0], Vertices: [3]mgl64.Vec3{vs[1], vs[2], vs[3]}}
		off += binaryRecordSize
	}
	return m, nil
}

// asciiScanner walks whitespace-separated STL tokens.
type asciiScanner struct {
	s   *bufio.Scanner
	tok string
}

func (a *asciiScanner) next() bool {
	if !a.s.Scan() {
		return false
	}
	a.tok = a.s.Text()
	return true
}

func (a *asciiScanner) expect(words ...string) error {
	for _, w := range words {
		if !a.next() {
			return fmt.Errorf("%w: unexpected end of data, expected %q", ErrInvalidSTL, w)
		}
		if a.tok != w {
			return fmt.Errorf("%w: expected %q, got %q", ErrInvalidSTL, w, a.tok)
		}
	}
	return nil
}

func (a *asciiScanner) vec() (mgl64.Vec3, error) {
	var v mgl64.Vec3
	for i := range 3 {
		if !a.next() {
			return v, fmt.Errorf("%w: truncated coordinate", ErrInvalidSTL)
		}
		f, err := strconv.ParseFloat(a.tok, 64)
		if err != nil {
			return v, fmt.Errorf("%w: bad number %q", ErrInvalidSTL, a.tok)
		}
		v[i] = f
	}
	return v, nil
}

func parseASCII(data []byte) (*mesh.Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	a := &asciiScanner{s: sc}

	if err := a.expect("solid"); err != nil {
		return nil, err
	}

	m := &mesh.Mesh{}
	for a.next() {
		switch a.tok {
		case "facet":
			t, err := a.facet()
			if err != nil {
				return nil, fmt.Errorf("facet %d: %w", len(m.Triangles), err)
			}
			m.Triangles = append(m.Triangles, t)
		case "endsolid":
			return m, nil
		default:
			// Solid name tokens between "solid" and the first facet.
			if len(m.Triangles) > 0 {
				return nil, fmt.Errorf("%w: unexpected token %q", ErrInvalidSTL, a.tok)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: missing endsolid", ErrInvalidSTL)
}

func (a *asciiScanner) facet() (mesh.Triangle, error) {
	var t mesh.Triangle
	if err := a.expect("normal"); err != nil {
		return t, err
	}
	n, err := a.vec()
	if err != nil {
		return t, err
	}
	t.Normal = n
	if err := a.expect("outer", "loop"); err != nil {
		return t, err
	}
	for i := range 3 {
		if err := a.expect("vertex"); err != nil {
			return t, err
		}
		if t.Vertices[i], err = a.vec(); err != nil {
			return t, err
		}
	}
	if err := a.expect("endloop", "endfacet"); err != nil {
		return t, err
	}
	return t, nil
}
