package palette

import (
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/juju/errors"
)

// MaxGenerated is the largest palette Generate will produce.
const MaxGenerated = 1 << 16

// Generate reduces the colors of m to at most n using median cut
// quantization and returns them as an n by 1 palette image, suitable for
// NewTable. Unused trailing entries are transparent black.
func Generate(m image.Image, n int) (*image.NRGBA, error) {
	if n < 1 || n > MaxGenerated {
		return nil, errors.NotValidf("palette size %d", n)
	}
	if m.Bounds().Empty() {
		return nil, errors.NotValidf("empty image")
	}

	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, n), m)

	out := image.NewNRGBA(image.Rect(0, 0, n, 1))
	for i, c := range p {
		out.SetNRGBA(i, 0, color.NRGBAModel.Convert(c).(color.NRGBA))
	}

	return out, nil
}
