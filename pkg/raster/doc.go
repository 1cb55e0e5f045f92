// Package raster holds the image primitives shared by both pipeline stages.
//
// Two resize policies live here and are deliberately different:
//
//   - [FitInside] caps runaway sizes before composition. It scales down,
//     preserving aspect ratio, until both sides are within the bound and
//     never enlarges.
//   - [Cover] produces the exact fixed canvas of a final artifact. It scales
//     up or down to fill the target box and crops the overflow, centered.
//
// [Probe] reads only the image header, so callers can decide whether a file
// needs re-encoding without decoding its pixels. Content is sniffed with
// mimetype first so a text file renamed to .png fails fast with a clear
// reason instead of a decoder error.
//
// Encoding supports PNG, JPEG and WebP. WebP decoding is registered through
// golang.org/x/image/webp; encoding uses gen2brain/webp.
package raster
