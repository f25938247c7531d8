package importer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/bodgit/assetpipe/indexed"
	"github.com/bodgit/assetpipe/palette"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	green = color.NRGBA{0x00, 0xff, 0x00, 0xff}
	blue  = color.NRGBA{0x00, 0x00, 0xff, 0xff}
	grey  = color.NRGBA{0x80, 0x80, 0x80, 0xff}
)

type collector struct {
	artifacts []Artifact
}

func (c *collector) Output(a Artifact) error {
	c.artifacts = append(c.artifacts, a)
	return nil
}

func pngAsset(t *testing.T, name string, w, h int, colors ...color.NRGBA) Asset {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, c := range colors {
		m.SetNRGBA(i%w, i/w, c)
	}
	b := new(bytes.Buffer)
	require.NoError(t, png.Encode(b, m))
	return Asset{Name: name, Data: b.Bytes()}
}

func indices(t *testing.T, a Artifact) []int {
	m, ok := a.Image.(*indexed.Image)
	require.True(t, ok)
	var out []int
	b := m.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, m.ColorIndexAt(x, y))
		}
	}
	return out
}

func TestImportExact(t *testing.T) {
	pal := pngAsset(t, "palette.png", 2, 1, red, blue)
	src := pngAsset(t, "sprite.png", 1, 1, red)

	c := new(collector)
	require.NoError(t, ImageImporter{}.Import(src, pal, Options{}, c))
	require.Len(t, c.artifacts, 1)

	a := c.artifacts[0]
	assert.Equal(t, []int{0}, indices(t, a))
	assert.Equal(t, FormatIndexed, a.Format)
	assert.Equal(t, "sprite.png", a.Name)
	assert.Equal(t, "sprite.png", a.Source)
	assert.Equal(t, "palette.png", a.Palette)
	assert.Equal(t, Options{}.Checksum(src, pal), a.Checksum)
	assert.Equal(t, image.Rect(0, 0, 1, 1), a.Image.Bounds())
}

func TestImportNearestTieBreak(t *testing.T) {
	pal := pngAsset(t, "palette.png", 2, 1, red, blue)
	src := pngAsset(t, "sprite.png", 1, 1, green)

	c := new(collector)
	require.NoError(t, ImageImporter{}.Import(src, pal, Options{}, c))
	require.Len(t, c.artifacts, 1)
	assert.Equal(t, []int{0}, indices(t, c.artifacts[0]))
}

func TestImportMixed(t *testing.T) {
	pal := pngAsset(t, "palette.png", 2, 2, red, green, blue, grey)
	src := pngAsset(t, "sprite.png", 3, 2,
		blue, grey, red,
		color.NRGBA{0xf0, 0x10, 0x10, 0xff}, color.NRGBA{0x70, 0x88, 0x80, 0xff}, color.NRGBA{0xf0, 0x10, 0x10, 0xff},
	)

	c := new(collector)
	require.NoError(t, ImageImporter{}.Import(src, pal, Options{Metric: "lab"}, c))
	require.Len(t, c.artifacts, 1)
	assert.Equal(t, []int{2, 3, 0, 0, 3, 0}, indices(t, c.artifacts[0]))
}

func TestImportExactBeatsNearest(t *testing.T) {
	// Both shades are close, a duplicate of the second comes later
	dark := color.NRGBA{0x80, 0x80, 0x80, 0xff}
	light := color.NRGBA{0x81, 0x81, 0x81, 0xff}
	pal := pngAsset(t, "palette.png", 3, 1, dark, light, light)
	src := pngAsset(t, "sprite.png", 2, 1, light, dark)

	c := new(collector)
	require.NoError(t, ImageImporter{}.Import(src, pal, Options{}, c))
	require.Len(t, c.artifacts, 1)
	assert.Equal(t, []int{1, 0}, indices(t, c.artifacts[0]))
}

func TestImportEmptyPalette(t *testing.T) {
	m, err := indexed.New(image.Rect(0, 0, 0, 0), indexed.Depth8, nil)
	require.NoError(t, err)
	b := new(bytes.Buffer)
	require.NoError(t, indexed.Encode(b, m))

	pal := Asset{Name: "empty.idx", Data: b.Bytes()}
	src := pngAsset(t, "sprite.png", 1, 1, red)

	c := new(collector)
	err = ImageImporter{}.Import(src, pal, Options{}, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, palette.ErrEmptyPalette))
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "empty.idx")
	assert.Empty(t, c.artifacts)
}

func TestImportPaletteTooLarge(t *testing.T) {
	colors := make([]color.NRGBA, 257)
	for i := range colors {
		colors[i] = color.NRGBA{uint8(i), uint8(i >> 8), 0, 0xff}
	}
	pal := pngAsset(t, "big.png", 257, 1, colors...)
	src := pngAsset(t, "sprite.png", 1, 1, colors[256])

	c := new(collector)
	err := ImageImporter{}.Import(src, pal, Options{Depth: indexed.Depth8}, c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.NotValid))
	assert.Contains(t, err.Error(), "big.png")
	assert.Empty(t, c.artifacts)

	require.NoError(t, ImageImporter{}.Import(src, pal, Options{Depth: indexed.Depth16}, c))
	require.Len(t, c.artifacts, 1)
	assert.Equal(t, []int{256}, indices(t, c.artifacts[0]))
}

func TestImportMalformed(t *testing.T) {
	pal := pngAsset(t, "palette.png", 2, 1, red, blue)
	src := pngAsset(t, "sprite.png", 1, 1, red)
	junk := Asset{Name: "junk.png", Data: []byte("not an image")}

	c := new(collector)

	err := ImageImporter{}.Import(junk, pal, Options{}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "junk.png")

	err = ImageImporter{}.Import(src, junk, Options{}, c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "junk.png")

	err = ImageImporter{}.Import(src, pal, Options{Depth: indexed.Depth(3)}, c)
	assert.True(t, errors.Is(err, errors.NotValid))

	err = ImageImporter{}.Import(src, pal, Options{Metric: "manhattan"}, c)
	assert.True(t, errors.Is(err, errors.NotValid))

	assert.Empty(t, c.artifacts)
}

func TestImportCollectorError(t *testing.T) {
	pal := pngAsset(t, "palette.png", 2, 1, red, blue)
	src := pngAsset(t, "sprite.png", 1, 1, red)

	err := ImageImporter{}.Import(src, pal, Options{}, CollectorFunc(func(Artifact) error {
		return errors.New("disk full")
	}))
	assert.EqualError(t, err, "disk full")
}

func TestImportImage(t *testing.T) {
	src := pngAsset(t, "sprite.png", 2, 1, red, blue)

	c := new(collector)
	require.NoError(t, ImageImporter{}.ImportImage(src, c))
	require.Len(t, c.artifacts, 1)

	a := c.artifacts[0]
	assert.Equal(t, FormatRGBA, a.Format)
	assert.Empty(t, a.Palette)
	assert.Equal(t, Checksum(src), a.Checksum)
	assert.Equal(t, red, a.Image.(*image.NRGBA).NRGBAAt(0, 0))
	assert.Equal(t, blue, a.Image.(*image.NRGBA).NRGBAAt(1, 0))
}

func TestChecksum(t *testing.T) {
	a := Asset{Name: "a", Data: []byte{1, 2, 3}}
	b := Asset{Name: "b", Data: []byte{1, 2, 3}}

	assert.Len(t, Checksum(a), 8)
	assert.Equal(t, Checksum(a, b), Checksum(a, b))
	assert.NotEqual(t, Checksum(a), Checksum(b))
	assert.NotEqual(t, Checksum(a, b), Checksum(b, a))
}

func TestOptionsChecksum(t *testing.T) {
	a := Asset{Name: "a", Data: []byte{1, 2, 3}}
	b := Asset{Name: "b", Data: []byte{4, 5, 6}}

	// Defaults are spelt out before hashing
	assert.Equal(t, Options{}.Checksum(a, b), Options{Depth: indexed.Depth8, Metric: "RGBA"}.Checksum(a, b))
	assert.NotEqual(t, Checksum(a, b), Options{}.Checksum(a, b))
	assert.NotEqual(t, Options{}.Checksum(a, b), Options{Depth: indexed.Depth16}.Checksum(a, b))
	assert.NotEqual(t, Options{}.Checksum(a, b), Options{Metric: "lab"}.Checksum(a, b))

	h := NewHash()
	h.AddOptions(Options{Metric: "lab"})
	require.NoError(t, h.Add(a.Name, int64(len(a.Data)), bytes.NewReader(a.Data)))
	require.NoError(t, h.Add(b.Name, int64(len(b.Data)), bytes.NewReader(b.Data)))
	assert.Equal(t, Options{Metric: "lab"}.Checksum(a, b), h.Sum())
}
