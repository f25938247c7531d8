package indexed

import (
	"encoding/binary"
	"image"
	"image/color"
	"io"

	"github.com/juju/errors"
)

const (
	errNotEnough = errors.ConstError("indexed: not enough image data")
	errTooMuch   = errors.ConstError("indexed: too much image data")
	errBadMagic  = errors.ConstError("indexed: invalid format")
	errBadDepth  = errors.ConstError("indexed: invalid index width")
	errBadIndex  = errors.ConstError("indexed: invalid palette index")
	errTooBig    = errors.ConstError("indexed: image is too large")
)

// maxPixels guards against allocating absurd buffers from a corrupt header
const maxPixels = 1 << 28

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type decoder struct {
	r io.Reader

	depth         Depth
	width, height int

	image   *Image
	palette color.Palette

	tmp [headerSize]byte
}

func (d *decoder) readHeader() error {
	if err := readFull(d.r, d.tmp[:]); err != nil {
		return err
	}

	if string(d.tmp[:len(magic)]) != magic {
		return errBadMagic
	}

	b := d.tmp[len(magic):]
	d.depth = Depth(b[0])
	if !d.depth.Valid() {
		return errBadDepth
	}

	width := binary.LittleEndian.Uint32(b[1:])
	height := binary.LittleEndian.Uint32(b[5:])
	if uint64(width)*uint64(height) > maxPixels {
		return errTooBig
	}
	d.width, d.height = int(width), int(height)

	colors := binary.LittleEndian.Uint32(b[9:])
	if int64(colors) > int64(d.depth.MaxColors()) {
		return errBadIndex
	}
	d.palette = make(color.Palette, colors)

	return nil
}

func (d *decoder) readPalette() error {
	for i := range d.palette {
		var tmp [4]byte
		if err := readFull(d.r, tmp[:]); err != nil {
			return err
		}
		d.palette[i] = color.NRGBA{tmp[0], tmp[1], tmp[2], tmp[3]}
	}
	return nil
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	if err := d.readHeader(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return errNotEnough
	}

	if err := d.readPalette(); err != nil {
		if err != io.ErrUnexpectedEOF {
			return err
		}
		return errNotEnough
	}

	if configOnly {
		return nil
	}

	// Grow the buffer as data arrives rather than trusting the header
	size := int64(d.width) * int64(d.height) * int64(d.depth)
	pix, err := io.ReadAll(io.LimitReader(r, size))
	if err != nil {
		return err
	}
	if int64(len(pix)) < size {
		return errNotEnough
	}

	m := &Image{
		Pix:     pix,
		Stride:  d.width * int(d.depth),
		Rect:    image.Rect(0, 0, d.width, d.height),
		Depth:   d.depth,
		Palette: d.palette,
	}

	if n, err := r.Read(d.tmp[:1]); n != 0 || (err != io.EOF && err != io.ErrUnexpectedEOF) {
		if err != nil {
			return err
		}
		return errTooMuch
	}

	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			if m.ColorIndexAt(x, y) >= len(d.palette) {
				return errBadIndex
			}
		}
	}

	d.image = m

	return nil
}

// Decode reads an indexed image from r.
func Decode(r io.Reader) (*Image, error) {
	var d decoder
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// DecodeConfig returns the palette and dimensions of an indexed image without
// decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: d.palette,
		Width:      d.width,
		Height:     d.height,
	}, nil
}

func decodeImage(r io.Reader) (image.Image, error) {
	return Decode(r)
}

func init() {
	image.RegisterFormat("indexed", magic, decodeImage, DecodeConfig)
}
