package raster

import (
	"bufio"
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/webp"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// webpMethod trades encode speed for size; 4 is libwebp's default.
const webpMethod = 4

// Encode writes img to w in the given format. Quality is ignored for PNG.
func Encode(w io.Writer, img image.Image, format Format, quality int) error {
	var err error
	switch format {
	case FormatPNG:
		err = imaging.Encode(w, img, imaging.PNG)
	case FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatWebP:
		err = webp.Encode(w, img, webp.Options{Quality: quality, Method: webpMethod})
	default:
		return errors.New(errors.ErrCodeUnsupported, "unsupported format %q", format)
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncodeFailed, err, "encode %s", format)
	}
	return nil
}

// EncodeBytes is Encode into memory.
func EncodeBytes(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile encodes img to path. The data goes to a temporary file in the
// same directory first and is renamed over path only once fully written.
func WriteFile(path string, img image.Image, format Format, quality int) error {
	return writeAtomic(path, func(w io.Writer) error {
		return Encode(w, img, format, quality)
	})
}

// WriteBytes writes already encoded data to path atomically.
func WriteBytes(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeIO, err, "create temp file for %s", path)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	bw := bufio.NewWriter(tmp)
	if err := fill(bw); err != nil {
		cleanup()
		return err
	}
	if err := bw.Flush(); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.Wrap(errors.ErrCodeIO, err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "close %s", path)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "chmod %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeIO, err, "rename into %s", path)
	}
	return nil
}
