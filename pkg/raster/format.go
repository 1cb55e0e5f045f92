package raster

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[Format]bool{
	FormatPNG:  true,
	FormatJPEG: true,
	FormatWebP: true,
}

// ParseFormat maps a user-supplied name to a Format. "jpg" is accepted as an
// alias for jpeg; matching is case-insensitive.
func ParseFormat(s string) (Format, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "jpg" {
		name = string(FormatJPEG)
	}
	f := Format(name)
	if !ValidFormats[f] {
		return "", fmt.Errorf("invalid format: %q (must be one of: webp, png, jpeg)", s)
	}
	return f, nil
}

// Extension returns the file extension for f, including the leading dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatWebP:
		return ".webp"
	default:
		return ".png"
	}
}

// Lossy reports whether the quality setting affects the encoding.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// IsPNGName reports whether name carries a .png extension, case-insensitive.
func IsPNGName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".png")
}
