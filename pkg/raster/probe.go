package raster

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// sniffLen is how many leading bytes are handed to mimetype.
const sniffLen = 3072

// Info describes a raster file without its pixels.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"` // decoder name: "png", "jpeg", "webp"
	MIME   string `json:"mime"`
}

// Exceeds reports whether either side is larger than the bound.
func (i Info) Exceeds(maxWidth, maxHeight int) bool {
	return i.Width > maxWidth || i.Height > maxHeight
}

// Probe reads the dimensions of the image at path from its header.
// Failures are returned as PROBE_FAILED errors carrying the path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeProbeFailed, err, "open %s", path)
	}
	defer f.Close()
	return ProbeReader(f, path)
}

// ProbeReader is Probe for an already opened file. The name is only used in
// error messages.
func ProbeReader(r io.ReadSeeker, name string) (Info, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Info{}, errors.Wrap(errors.ErrCodeProbeFailed, err, "read header of %s", name)
	}
	mime := mimetype.Detect(head[:n])
	if !strings.HasPrefix(mime.String(), "image/") {
		return Info{}, errors.New(errors.ErrCodeProbeFailed, "%s is not an image (detected %s)", name, mime.String())
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeProbeFailed, err, "rewind %s", name)
	}
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Info{}, errors.Wrap(errors.ErrCodeProbeFailed, err, "decode header of %s", name)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, errors.New(errors.ErrCodeProbeFailed, "%s reports empty dimensions %dx%d", name, cfg.Width, cfg.Height)
	}

	return Info{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		MIME:   mime.String(),
	}, nil
}
