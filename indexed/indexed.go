/*
Package indexed implements a palette-indexed image and its artifact encoder
and decoder.

Each pixel holds an index into the palette rather than a color. Indices are
stored with a fixed width of one or two bytes, which bounds the palette to
256 or 65536 entries respectively.

The file is written little-endian as the four byte magic "IDXI", one byte
holding the index width, the width and height as 32-bit values, the number
of palette entries as a 32-bit value, the palette as four bytes (R, G, B, A)
per entry and finally the indices in row-major order. There is no
compression.
*/
package indexed

import (
	"image"
	"image/color"

	"github.com/juju/errors"
)

const (
	magic      = "IDXI"
	headerSize = len(magic) + 1 + 4 + 4 + 4
)

// Depth is the number of bytes used to store each index.
type Depth int

const (
	// Depth8 stores indices as single bytes
	Depth8 Depth = 1
	// Depth16 stores indices as little-endian 16-bit values
	Depth16 Depth = 2
)

// MaxColors returns the largest palette addressable at this depth
func (d Depth) MaxColors() int {
	return 1 << (8 * uint(d))
}

// Valid reports whether d is a supported depth
func (d Depth) Valid() bool {
	return d == Depth8 || d == Depth16
}

// Bits returns the depth in bits
func (d Depth) Bits() int {
	return 8 * int(d)
}

// DepthFromBits returns the Depth for a width of 8 or 16 bits.
func DepthFromBits(bits int) (Depth, error) {
	switch bits {
	case 8:
		return Depth8, nil
	case 16:
		return Depth16, nil
	}
	return 0, errors.NotValidf("index width of %d bits", bits)
}

// Image is an in-memory image whose pixels are indices into Palette.
type Image struct {
	// Pix holds the indices, Depth bytes each, little-endian
	Pix     []byte
	Stride  int
	Rect    image.Rectangle
	Depth   Depth
	Palette color.Palette
}

// New returns a new Image with the given bounds, depth and palette. Every
// pixel starts at index zero.
func New(r image.Rectangle, d Depth, p color.Palette) (*Image, error) {
	if !d.Valid() {
		return nil, errors.NotValidf("depth %d", d)
	}
	if len(p) > d.MaxColors() {
		return nil, errors.NotValidf("%d colors for %d-bit indices", len(p), d.Bits())
	}
	w, h := r.Dx(), r.Dy()
	if w < 0 || h < 0 {
		return nil, errors.NotValidf("rectangle %v", r)
	}
	return &Image{
		Pix:     make([]byte, w*h*int(d)),
		Stride:  w * int(d),
		Rect:    r,
		Depth:   d,
		Palette: p,
	}, nil
}

// ColorModel returns the palette
func (m *Image) ColorModel() color.Model {
	return m.Palette
}

// Bounds returns the image bounds
func (m *Image) Bounds() image.Rectangle {
	return m.Rect
}

// At returns the palette color at (x, y). An image without a palette is
// transparent.
func (m *Image) At(x, y int) color.Color {
	if len(m.Palette) == 0 {
		return color.Transparent
	}
	if !(image.Point{x, y}.In(m.Rect)) {
		return m.Palette[0]
	}
	i := m.ColorIndexAt(x, y)
	if i >= len(m.Palette) {
		return m.Palette[0]
	}
	return m.Palette[i]
}

// PixOffset returns the index of the first byte of the pixel at (x, y)
func (m *Image) PixOffset(x, y int) int {
	return (y-m.Rect.Min.Y)*m.Stride + (x-m.Rect.Min.X)*int(m.Depth)
}

// ColorIndexAt returns the palette index of the pixel at (x, y)
func (m *Image) ColorIndexAt(x, y int) int {
	if !(image.Point{x, y}.In(m.Rect)) {
		return 0
	}
	i := m.PixOffset(x, y)
	if m.Depth == Depth16 {
		return int(m.Pix[i]) | int(m.Pix[i+1])<<8
	}
	return int(m.Pix[i])
}

// SetColorIndex sets the palette index of the pixel at (x, y)
func (m *Image) SetColorIndex(x, y, index int) error {
	if !(image.Point{x, y}.In(m.Rect)) {
		return errors.NotValidf("point (%d, %d) outside %v", x, y, m.Rect)
	}
	if index < 0 || index >= len(m.Palette) {
		return errors.NotValidf("index %d for %d colors", index, len(m.Palette))
	}
	i := m.PixOffset(x, y)
	m.Pix[i] = byte(index)
	if m.Depth == Depth16 {
		m.Pix[i+1] = byte(index >> 8)
	}
	return nil
}

// Paletted returns the image as an *image.Paletted which can be passed to
// the standard library encoders. Only 8-bit images can be converted.
func (m *Image) Paletted() (*image.Paletted, error) {
	if m.Depth != Depth8 {
		return nil, errors.NotSupportedf("converting %d-bit image", m.Depth.Bits())
	}
	p := image.NewPaletted(m.Rect, m.Palette)
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		copy(p.Pix[p.PixOffset(m.Rect.Min.X, y):], m.Pix[m.PixOffset(m.Rect.Min.X, y):m.PixOffset(m.Rect.Min.X, y)+m.Stride])
	}
	return p, nil
}
