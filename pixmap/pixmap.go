// Package pixmap provides the RGBA pixel buffer shared by every tier of the
// tile cache and by the tile renderer. Every boundary in tilecore that
// touches raw pixels — the PDF engine, the RAM cache, the disk cache —
// speaks this one buffer type, so the BGRA/RGBA conversion happens at
// exactly one place (tilerender.bgraToRGBA).
package pixmap

import (
	"image"
	"image/color"
)

// Buffer is a row-major RGBA pixel buffer with straight (non-premultiplied)
// alpha, four bytes per pixel. It implements image.Image and draw.Image so
// it composes with the standard image ecosystem (golang.org/x/image
// interpolation in tilerender.RenderThumbnail's downscale).
type Buffer struct {
	width  int
	height int
	data   []byte
}

// Compile-time interface checks.
var (
	_ image.Image = (*Buffer)(nil)
)

// New allocates a zeroed buffer of the given pixel dimensions.
func New(width, height int) *Buffer {
	return &Buffer{
		width:  width,
		height: height,
		data:   make([]byte, width*height*4),
	}
}

// FromBytes wraps an existing RGBA byte slice without copying. The slice
// must have exactly width*height*4 bytes; callers that received bytes from
// an external boundary (the PDF engine, a disk blob) use this to avoid a
// redundant allocation.
func FromBytes(width, height int, data []byte) *Buffer {
	return &Buffer{width: width, height: height, data: data}
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.height }

// Bytes returns the raw RGBA byte slice (row-major, 4 bytes per pixel).
// Callers must not retain the slice past the buffer's lifetime if the
// buffer is returned to a pool.
func (b *Buffer) Bytes() []byte { return b.data }

// DecodedBytes returns width*height*4, the quantity the RAM and disk
// cache byte budgets are accounted in.
func (b *Buffer) DecodedBytes() int { return b.width * b.height * 4 }

// SubRegion copies a w×h rectangle starting at (x, y) in src into a new
// buffer. Used by the tile renderer to carve a page-sized raster into
// individual tile buffers.
func SubRegion(src *Buffer, x, y, w, h int) *Buffer {
	dst := New(w, h)
	for row := 0; row < h; row++ {
		srcY := y + row
		if srcY < 0 || srcY >= src.height {
			continue
		}
		srcStart := (srcY*src.width + x) * 4
		srcEnd := srcStart + w*4
		if x < 0 || x+w > src.width {
			// Clip horizontally pixel-by-pixel for edge tiles.
			for col := 0; col < w; col++ {
				sx := x + col
				if sx < 0 || sx >= src.width {
					continue
				}
				si := (srcY*src.width + sx) * 4
				di := (row*w + col) * 4
				copy(dst.data[di:di+4], src.data[si:si+4])
			}
			continue
		}
		di := row * w * 4
		copy(dst.data[di:di+w*4], src.data[srcStart:srcEnd])
	}
	return dst
}

// At implements image.Image.
func (b *Buffer) At(x, y int) color.Color {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return color.RGBA{}
	}
	i := (y*b.width + x) * 4
	return color.NRGBA{R: b.data[i], G: b.data[i+1], B: b.data[i+2], A: b.data[i+3]}
}

// Set implements draw.Image.
func (b *Buffer) Set(x, y int, c color.Color) {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return
	}
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	i := (y*b.width + x) * 4
	b.data[i+0] = nrgba.R
	b.data[i+1] = nrgba.G
	b.data[i+2] = nrgba.B
	b.data[i+3] = nrgba.A
}

// Bounds implements image.Image.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// ColorModel implements image.Image.
func (b *Buffer) ColorModel() color.Model {
	return color.NRGBAModel
}

// Equal reports whether two buffers have identical dimensions and bytes.
// Used by the disk cache round-trip tests.
func Equal(a, b *Buffer) bool {
	if a.width != b.width || a.height != b.height {
		return false
	}
	if len(a.data) != len(b.data) {
		return false
	}
	for i := range a.data {
		if a.data[i] != b.data[i] {
			return false
		}
	}
	return true
}
