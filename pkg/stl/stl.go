// Package stl reads and writes STL triangle mesh files.
package stl

import (
	"errors"
	"fmt"
	"strings"
)

// SolidName is the name written in ASCII headers.
const SolidName = "relief_model"

// STL format errors.
var (
	ErrInvalidSTL        = errors.New("invalid STL data")
	ErrUnsupportedFormat = errors.New("unsupported STL format")
)

// Format selects the STL encoding.
type Format int

const (
	// FormatASCII writes the textual "solid ... endsolid" encoding.
	FormatASCII Format = iota
	// FormatBinary writes the 80-byte header + little-endian triangle records.
	FormatBinary
)

// String returns the format name used in configuration.
func (f Format) String() string {
	switch f {
	case FormatASCII:
		return "ascii"
	case FormatBinary:
		return "binary"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat converts a configuration name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "text":
		return FormatASCII, nil
	case "binary", "bin":
		return FormatBinary, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}
