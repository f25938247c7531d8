/*
Package importer converts source images into engine-ready artifacts.

An image imported against a palette image becomes a palette-indexed image:
every pixel is replaced by the index of the palette entry with the same
color or, failing that, the nearest one. An image imported without a
palette is passed through as 8-bit RGBA.
*/
package importer

import (
	"bytes"
	"fmt"
	"hash"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"strings"

	"github.com/bodgit/assetpipe/indexed"
	"github.com/bodgit/assetpipe/palette"
	"github.com/juju/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Artifact formats
const (
	FormatIndexed = "indexed"
	FormatRGBA    = "rgba"
)

// Asset is a named input to an import.
type Asset struct {
	Name string
	Data []byte
}

// Artifact is the result of an import.
type Artifact struct {
	// Name is the name the artifact is stored under, that of its source
	Name    string
	Format  string
	Source  string
	Palette string
	// Checksum identifies the inputs the artifact was produced from
	Checksum string
	Image    image.Image
}

// Collector receives the artifacts produced by an import.
type Collector interface {
	Output(Artifact) error
}

// CollectorFunc adapts an ordinary function to the Collector interface.
type CollectorFunc func(Artifact) error

// Output calls f(a)
func (f CollectorFunc) Output(a Artifact) error {
	return f(a)
}

// Options control how an image is converted to palette indices.
type Options struct {
	// Depth is the width of each index, defaults to indexed.Depth8
	Depth indexed.Depth
	// Metric names the palette.Metric choosing the nearest palette entry,
	// defaults to "rgba"
	Metric string
}

func (o Options) withDefaults() Options {
	if o.Depth == 0 {
		o.Depth = indexed.Depth8
	}
	if o.Metric == "" {
		o.Metric = "rgba"
	}
	o.Metric = strings.ToLower(o.Metric)
	return o
}

// Checksum returns a checksum of the options and the given assets. Changing
// any option changes the checksum.
func (o Options) Checksum(assets ...Asset) string {
	h := NewHash()
	h.AddOptions(o)
	for _, a := range assets {
		// Reading from memory cannot fail
		_ = h.Add(a.Name, int64(len(a.Data)), bytes.NewReader(a.Data))
	}
	return h.Sum()
}

// Hash accumulates a checksum over a sequence of named inputs.
type Hash struct {
	h hash.Hash32
}

// NewHash returns an empty Hash
func NewHash() *Hash {
	return &Hash{h: crc32.NewIEEE()}
}

// Add reads size bytes of the named input from r into the checksum.
func (h *Hash) Add(name string, size int64, r io.Reader) error {
	fmt.Fprintf(h.h, "%s\x00%d\x00", name, size)
	if _, err := io.CopyN(h.h, r, size); err != nil {
		return errors.Annotatef(err, "checksumming %q", name)
	}
	return nil
}

// AddOptions adds the options an import runs with into the checksum.
func (h *Hash) AddOptions(o Options) {
	o = o.withDefaults()
	fmt.Fprintf(h.h, "depth=%d\x00metric=%s\x00", o.Depth.Bits(), o.Metric)
}

// Sum returns the checksum as a hex string
func (h *Hash) Sum() string {
	return fmt.Sprintf("%.*X", crc32.Size<<1, h.h.Sum(nil))
}

// Checksum returns a CRC-32 of the names and contents of the given assets.
func Checksum(assets ...Asset) string {
	h := NewHash()
	for _, a := range assets {
		// Reading from memory cannot fail
		_ = h.Add(a.Name, int64(len(a.Data)), bytes.NewReader(a.Data))
	}
	return h.Sum()
}

// Decode decodes the asset as an image, naming the asset in any error.
func Decode(a Asset) (image.Image, error) {
	m, _, err := image.Decode(bytes.NewReader(a.Data))
	if err != nil {
		return nil, errors.Annotatef(err, "decoding %q", a.Name)
	}
	return m, nil
}

// ImageImporter imports images. It holds no state between imports so a
// single value can be used from many goroutines.
type ImageImporter struct{}

// Import converts source to a palette-indexed image using the colors of the
// palette image and sends the result to c.
//
// The palette must have at least one pixel and no more pixels than can be
// addressed at opts.Depth, otherwise an error satisfying
// errors.Is(err, errors.NotValid) is returned. Nothing is sent to c if an
// error is returned.
func (ImageImporter) Import(source, pal Asset, opts Options, c Collector) error {
	opts = opts.withDefaults()
	if !opts.Depth.Valid() {
		return errors.NotValidf("depth %d importing %q", opts.Depth, source.Name)
	}
	metric, err := palette.MetricByName(opts.Metric)
	if err != nil {
		return errors.Annotatef(err, "importing %q", source.Name)
	}

	pm, err := Decode(pal)
	if err != nil {
		return err
	}

	table, err := palette.NewTable(pm)
	if err != nil {
		return errors.Annotatef(err, "palette %q", pal.Name)
	}

	if table.Len() > opts.Depth.MaxColors() {
		return errors.NotValidf("palette %q with %d colors for %d-bit indices", pal.Name, table.Len(), opts.Depth.Bits())
	}

	sm, err := Decode(source)
	if err != nil {
		return err
	}

	m, err := convert(sm, table, opts.Depth, metric)
	if err != nil {
		return errors.Annotatef(err, "converting %q", source.Name)
	}

	return c.Output(Artifact{
		Name:     source.Name,
		Format:   FormatIndexed,
		Source:   source.Name,
		Palette:  pal.Name,
		Checksum: opts.Checksum(source, pal),
		Image:    m,
	})
}

func convert(sm image.Image, table *palette.Table, depth indexed.Depth, metric palette.Metric) (*indexed.Image, error) {
	b := sm.Bounds()

	m, err := indexed.New(image.Rect(0, 0, b.Dx(), b.Dy()), depth, table.Colors())
	if err != nil {
		return nil, err
	}

	// Colors without an exact match tend to repeat, e.g. anti-aliased edges
	nearest := make(map[uint32]int)

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(sm.At(x, y)).(color.NRGBA)

			i, ok := table.Lookup(c)
			if !ok {
				if i, ok = nearest[palette.Pack(c)]; !ok {
					i = table.Nearest(c, metric)
					nearest[palette.Pack(c)] = i
				}
			}

			if err := m.SetColorIndex(x-b.Min.X, y-b.Min.Y, i); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// ImportImage decodes source and sends it to c unchanged as an RGBA image.
func (ImageImporter) ImportImage(source Asset, c Collector) error {
	sm, err := Decode(source)
	if err != nil {
		return err
	}

	b := sm.Bounds()
	m := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), sm, b.Min, draw.Src)

	return c.Output(Artifact{
		Name:     source.Name,
		Format:   FormatRGBA,
		Source:   source.Name,
		Checksum: Checksum(source),
		Image:    m,
	})
}
