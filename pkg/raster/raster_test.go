package raster

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/webp"

	"github.com/matzehuels/layerpress/pkg/errors"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 90, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"webp", FormatWebP, false},
		{"WEBP", FormatWebP, false},
		{"png", FormatPNG, false},
		{"jpeg", FormatJPEG, false},
		{"jpg", FormatJPEG, false},
		{"gif", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatExtension(t *testing.T) {
	if FormatWebP.Extension() != ".webp" || FormatPNG.Extension() != ".png" || FormatJPEG.Extension() != ".jpg" {
		t.Error("unexpected extensions")
	}
	if FormatPNG.Lossy() || !FormatWebP.Lossy() {
		t.Error("unexpected Lossy() results")
	}
}

func TestIsPNGName(t *testing.T) {
	for name, want := range map[string]bool{
		"eyes.png":  true,
		"EYES.PNG":  true,
		"eyes.PnG":  true,
		"eyes.webp": false,
		"png":       false,
		"notes.txt": false,
	} {
		if got := IsPNGName(name); got != want {
			t.Errorf("IsPNGName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layer.png")
	writePNG(t, path, 300, 120)

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Width != 300 || info.Height != 120 {
		t.Errorf("Probe dims = %dx%d, want 300x120", info.Width, info.Height)
	}
	if info.Format != "png" || info.MIME != "image/png" {
		t.Errorf("Probe format = %q mime = %q", info.Format, info.MIME)
	}
	if !info.Exceeds(200, 200) || info.Exceeds(300, 120) {
		t.Error("Exceeds mismatch")
	}
}

func TestProbeFailures(t *testing.T) {
	dir := t.TempDir()

	notImage := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(notImage, []byte("just some text, not pixels"), 0o644); err != nil {
		t.Fatal(err)
	}
	truncated := filepath.Join(dir, "truncated.png")
	if err := os.WriteFile(truncated, []byte("\x89PNG\r\n\x1a\n\x00\x00"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{notImage, truncated, filepath.Join(dir, "missing.png")} {
		_, err := Probe(path)
		if err == nil {
			t.Errorf("Probe(%s) should fail", filepath.Base(path))
			continue
		}
		if !errors.Is(err, errors.ErrCodeProbeFailed) {
			t.Errorf("Probe(%s) code = %v, want PROBE_FAILED", filepath.Base(path), errors.GetCode(err))
		}
	}
}

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxW, maxH   int
		wantW, wantH int
	}{
		{"within bound", 800, 600, 1024, 1024, 800, 600},
		{"exactly bound", 1024, 1024, 1024, 1024, 1024, 1024},
		{"square halves", 2048, 2048, 1024, 1024, 1024, 1024},
		{"wide", 4000, 1000, 1000, 1000, 1000, 250},
		{"tall", 1000, 4000, 1000, 1000, 250, 1000},
		{"only height over", 500, 2000, 1024, 1024, 256, 1024},
		{"extreme sliver keeps one pixel", 100000, 1, 100, 100, 100, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitDimensions(tt.w, tt.h, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("FitDimensions = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitInside(t *testing.T) {
	src := imaging.New(1600, 900, color.White)

	got := FitInside(src, 800, 800)
	b := got.Bounds()
	if b.Dx() > 800 || b.Dy() > 800 {
		t.Fatalf("FitInside = %dx%d, exceeds 800x800", b.Dx(), b.Dy())
	}
	srcRatio := 1600.0 / 900.0
	gotRatio := float64(b.Dx()) / float64(b.Dy())
	if math.Abs(srcRatio-gotRatio) > 0.01 {
		t.Errorf("aspect ratio %.3f, want %.3f", gotRatio, srcRatio)
	}

	small := imaging.New(10, 10, color.White)
	if FitInside(small, 800, 800) != image.Image(small) {
		t.Error("FitInside should not touch images within the bound")
	}
}

func TestCover(t *testing.T) {
	src := imaging.New(640, 480, color.Black)

	got, err := Cover(src, 512, 512)
	if err != nil {
		t.Fatalf("Cover: %v", err)
	}
	if b := got.Bounds(); b.Dx() != 512 || b.Dy() != 512 {
		t.Errorf("Cover = %dx%d, want 512x512", b.Dx(), b.Dy())
	}

	up, err := Cover(imaging.New(10, 20, color.Black), 100, 100)
	if err != nil {
		t.Fatalf("Cover upscale: %v", err)
	}
	if b := up.Bounds(); b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("Cover upscale = %dx%d, want 100x100", b.Dx(), b.Dy())
	}

	if _, err := Cover(src, 0, 10); err == nil {
		t.Error("Cover with zero width should fail")
	}
}

func TestEncodeWebP(t *testing.T) {
	img := imaging.New(64, 32, color.NRGBA{R: 10, G: 200, B: 30, A: 255})

	data, err := EncodeBytes(img, FormatWebP, 80)
	if err != nil {
		t.Fatalf("EncodeBytes: %v", err)
	}

	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode webp: %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 32 {
		t.Errorf("webp dims = %dx%d, want 64x32", cfg.Width, cfg.Height)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	img := imaging.New(1, 1, color.Black)
	if _, err := EncodeBytes(img, Format("gif"), 80); !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("EncodeBytes(gif) error = %v, want UNSUPPORTED", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")
	img := imaging.New(20, 10, color.White)

	if err := WriteFile(path, img, FormatPNG, 0); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Width != 20 || info.Height != 10 {
		t.Errorf("written dims = %dx%d", info.Width, info.Height)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the final file, found %d entries", len(entries))
	}
}

func TestWriteFileMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.png")
	err := WriteFile(path, imaging.New(1, 1, color.White), FormatPNG, 0)
	if !errors.Is(err, errors.ErrCodeIO) {
		t.Errorf("WriteFile into missing dir error = %v, want IO_FAILURE", err)
	}
}
