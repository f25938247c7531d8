/*
Package palette maps arbitrary colors onto a fixed palette.

A palette is read from an image; every pixel, taken in row-major order, is
one palette entry and its linear position is its index. Colors found
verbatim in the palette map to the index of their first occurrence, any
other color maps to the nearest entry as measured by a Metric.
*/
package palette

import (
	"image"
	"image/color"

	"github.com/juju/errors"
)

// ErrEmptyPalette is returned when a palette image has no pixels.
const ErrEmptyPalette = errors.ConstError("empty palette")

// Pack returns c as a single 32-bit value suitable as a map key
func Pack(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// Table is a conversion table from colors to palette indices. It is not
// modified once built and can be shared between goroutines.
type Table struct {
	colors []color.NRGBA
	index  map[uint32]int
}

// NewTable builds a conversion table from the pixels of m.
func NewTable(m image.Image) (*Table, error) {
	b := m.Bounds()
	if b.Empty() {
		return nil, errors.WithType(errors.Annotatef(ErrEmptyPalette, "palette with %dx%d pixels", b.Dx(), b.Dy()), errors.NotValid)
	}

	t := &Table{
		colors: make([]color.NRGBA, 0, b.Dx()*b.Dy()),
		index:  make(map[uint32]int),
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(m.At(x, y)).(color.NRGBA)
			// First occurrence wins
			if _, ok := t.index[Pack(c)]; !ok {
				t.index[Pack(c)] = len(t.colors)
			}
			t.colors = append(t.colors, c)
		}
	}

	return t, nil
}

// Len returns the number of palette entries, including duplicates
func (t *Table) Len() int {
	return len(t.colors)
}

// Colors returns the palette entries in index order
func (t *Table) Colors() color.Palette {
	p := make(color.Palette, len(t.colors))
	for i, c := range t.colors {
		p[i] = c
	}
	return p
}

// Lookup returns the index of c if it appears verbatim in the palette.
func (t *Table) Lookup(c color.NRGBA) (int, bool) {
	i, ok := t.index[Pack(c)]
	return i, ok
}

// Nearest returns the index of the palette entry closest to c according to
// metric. When several entries are equally close the lowest index wins.
func (t *Table) Nearest(c color.NRGBA, metric Metric) int {
	if metric == nil {
		metric = RGBA
	}

	best, bestDistance := 0, metric.Distance(c, t.colors[0])
	for i, p := range t.colors[1:] {
		if d := metric.Distance(c, p); d < bestDistance {
			best, bestDistance = i+1, d
		}
	}
	return best
}

// Index returns the exact match for c if there is one, otherwise the nearest
// match.
func (t *Table) Index(c color.NRGBA, metric Metric) int {
	if i, ok := t.Lookup(c); ok {
		return i
	}
	return t.Nearest(c, metric)
}
