package vector

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// encoded is the wire form of a VectorWithOffsets.
// msgpack has no complex type, so amplitudes are split into real and imaginary parts.
type encoded struct {
	Size    int         `msgpack:"size"`
	Offsets []int       `msgpack:"offsets"`
	Sectors []int       `msgpack:"sectors"`
	Re      [][]float32 `msgpack:"re"`
	Im      [][]float32 `msgpack:"im"`
}

// MarshalBinary encodes v with msgpack.
func (v *VectorWithOffsets) MarshalBinary() ([]byte, error) {
	e := encoded{Size: v.size, Offsets: v.offsets, Sectors: v.sectors}
	for _, m := range v.sectors {
		re := make([]float32, len(v.data[m]))
		im := make([]float32, len(v.data[m]))
		for i, c := range v.data[m] {
			re[i], im[i] = real(c), imag(c)
		}
		e.Re = append(e.Re, re)
		e.Im = append(e.Im, im)
	}

	b, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return b, nil
}

// UnmarshalBinary decodes a vector encoded by MarshalBinary into v.
func (v *VectorWithOffsets) UnmarshalBinary(b []byte) error {
	var e encoded
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return errors.Wrap(err, "")
	}
	if len(e.Sectors) != len(e.Re) || len(e.Sectors) != len(e.Im) {
		return errors.Errorf("%d %d %d", len(e.Sectors), len(e.Re), len(e.Im))
	}
	if e.Size == 0 {
		*v = VectorWithOffsets{}
		return nil
	}
	if len(e.Offsets) < 2 || e.Offsets[0] != 0 || e.Offsets[len(e.Offsets)-1] != e.Size || !slices.IsSorted(e.Offsets) {
		return errors.Errorf("%v %d", e.Offsets, e.Size)
	}
	for i := 1; i < len(e.Sectors); i++ {
		if e.Sectors[i] <= e.Sectors[i-1] {
			return errors.Errorf("%v", e.Sectors)
		}
	}

	d := VectorWithOffsets{size: e.Size, offsets: e.Offsets, sectors: e.Sectors}
	d.data = make([][]complex64, len(e.Offsets)-1)
	for i, m := range e.Sectors {
		if m < 0 || m >= len(d.data) {
			return errors.Errorf("%d %d", m, len(d.data))
		}
		if len(e.Re[i]) != d.SectorSize(m) || len(e.Im[i]) != d.SectorSize(m) {
			return errors.Errorf("%d %d %d %d", m, len(e.Re[i]), len(e.Im[i]), d.SectorSize(m))
		}
		d.data[m] = make([]complex64, len(e.Re[i]))
		for j := range d.data[m] {
			d.data[m][j] = complex(e.Re[i][j], e.Im[i][j])
		}
	}
	*v = d
	return nil
}
