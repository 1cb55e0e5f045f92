package raster

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/layerpress/pkg/errors"
)

// Open decodes the image at path.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProbeFailed, err, "decode %s", path)
	}
	return img, nil
}

// FitInside scales img down to fit within maxWidth x maxHeight, preserving
// the aspect ratio. Images already within the bound are returned unscaled.
func FitInside(img image.Image, maxWidth, maxHeight int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxWidth && b.Dy() <= maxHeight {
		return img
	}
	w, h := FitDimensions(b.Dx(), b.Dy(), maxWidth, maxHeight)
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// FitDimensions returns the size FitInside produces for a width x height
// source. Each side is at least one pixel.
func FitDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}
	scale := math.Min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	w = min(max(w, 1), maxWidth)
	h = min(max(h, 1), maxHeight)
	return w, h
}

// Cover scales and center-crops img to exactly width x height.
func Cover(img image.Image, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.ErrCodeResizeFailed, "cover target must be positive, got %dx%d", width, height)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New(errors.ErrCodeResizeFailed, "cannot cover from an empty image")
	}
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos), nil
}
