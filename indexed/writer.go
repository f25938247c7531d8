package indexed

import (
	"bufio"
	"encoding/binary"
	"image/color"
	"io"

	"github.com/juju/errors"
)

type encoder struct {
	w *bufio.Writer
}

func (e *encoder) encode(m *Image) error {
	var tmp [headerSize]byte
	copy(tmp[:], magic)

	b := tmp[len(magic):]
	b[0] = byte(m.Depth)
	binary.LittleEndian.PutUint32(b[1:], uint32(m.Rect.Dx()))
	binary.LittleEndian.PutUint32(b[5:], uint32(m.Rect.Dy()))
	binary.LittleEndian.PutUint32(b[9:], uint32(len(m.Palette)))

	if _, err := e.w.Write(tmp[:]); err != nil {
		return err
	}

	for _, c := range m.Palette {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		if _, err := e.w.Write([]byte{n.R, n.G, n.B, n.A}); err != nil {
			return err
		}
	}

	// Rows are written out so that any sub-image is packed tightly
	for y := m.Rect.Min.Y; y < m.Rect.Max.Y; y++ {
		i := m.PixOffset(m.Rect.Min.X, y)
		if _, err := e.w.Write(m.Pix[i : i+m.Rect.Dx()*int(m.Depth)]); err != nil {
			return err
		}
	}

	return e.w.Flush()
}

// Encode writes the Image m to w in indexed format.
func Encode(w io.Writer, m *Image) error {
	if !m.Depth.Valid() {
		return errors.NotValidf("depth %d", m.Depth)
	}
	if len(m.Palette) > m.Depth.MaxColors() {
		return errors.NotValidf("%d colors for %d-bit indices", len(m.Palette), m.Depth.Bits())
	}

	e := encoder{w: bufio.NewWriter(w)}

	return e.encode(m)
}
