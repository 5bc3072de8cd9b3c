package decoder

import "github.com/mmdbkit/mmdbreader/internal/mmdberrors"

// Decoder allows decoding of a single value stored at a specific offset in
// the data section. It is the type handed to an Unmarshaler's
// UnmarshalMaxMindDB method, mirroring how json.Decoder exposes a single
// token stream rather than a whole document.
type Decoder struct {
	d      DataDecoder
	offset uint

	hasNextOffset bool
	nextOffset    uint
}

// NewDecoder builds a Decoder over dd starting at offset.
func NewDecoder(dd DataDecoder, offset uint) *Decoder {
	return &Decoder{d: dd, offset: offset}
}

func (d *Decoder) unmarshal(u Unmarshaler) error {
	if err := u.UnmarshalMaxMindDB(d); err != nil {
		return err
	}
	return nil
}

func (d *Decoder) reset(offset uint) {
	d.offset = offset
	d.hasNextOffset = false
	d.nextOffset = 0
}

func (d *Decoder) next(numberToSkip uint) error {
	if numberToSkip > 1 || !d.hasNextOffset {
		offset, err := d.d.nextValueOffset(d.offset, numberToSkip)
		if err != nil {
			return err
		}
		d.reset(offset)
		return nil
	}
	d.reset(d.nextOffset)
	return nil
}

func (d *Decoder) setNextOffset(offset uint) {
	if !d.hasNextOffset {
		d.hasNextOffset = true
		d.nextOffset = offset
	}
}

func (d *Decoder) new(offset uint) *Decoder {
	return &Decoder{d: d.d, offset: offset}
}

func unexpectedKindErr(expected, actual Kind) error {
	return mmdberrors.NewInvalidDatabaseError("unexpected type %s, expected %s", actual, expected)
}

// decodeCtrlDataAndFollow decodes the control data at the decoder's current
// position, transparently following pointers, and checks the result matches
// expectedKind.
func (d *Decoder) decodeCtrlDataAndFollow(expectedKind Kind) (uint, uint, error) {
	dataOffset := d.offset
	for {
		kind, size, next, err := d.d.decodeCtrlData(dataOffset)
		if err != nil {
			return 0, 0, err
		}
		dataOffset = next

		if kind == KindPointer {
			pointer, nextOffset, err := d.d.decodePointer(size, dataOffset)
			if err != nil {
				return 0, 0, err
			}
			dataOffset = pointer
			d.setNextOffset(nextOffset)
			continue
		}

		if kind != expectedKind {
			return 0, 0, unexpectedKindErr(expectedKind, kind)
		}
		return size, dataOffset, nil
	}
}

// DecodeBool decodes the value at the decoder's position as a bool.
func (d *Decoder) DecodeBool() (bool, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindBool)
	if err != nil {
		return false, err
	}
	if size > 1 {
		return false, mmdberrors.NewInvalidDatabaseError("bad data (bool size of %v)", size)
	}
	value, _ := d.d.decodeBool(size, offset)
	d.setNextOffset(offset)
	return value, nil
}

func (d *Decoder) decodeRawBytes(kind Kind) ([]byte, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(kind)
	if err != nil {
		return nil, err
	}
	value, next, err := d.d.decodeBytes(size, offset)
	if err != nil {
		return nil, err
	}
	d.setNextOffset(next)
	return value, nil
}

// DecodeString decodes the value at the decoder's position as a string.
func (d *Decoder) DecodeString() (string, error) {
	val, err := d.decodeRawBytes(KindString)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// DecodeBytes decodes the value at the decoder's position as bytes.
func (d *Decoder) DecodeBytes() ([]byte, error) {
	return d.decodeRawBytes(KindBytes)
}

// DecodeFloat32 decodes the value at the decoder's position as a float32.
func (d *Decoder) DecodeFloat32() (float32, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindFloat32)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeFloat32(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return value, nil
}

// DecodeFloat64 decodes the value at the decoder's position as a float64.
func (d *Decoder) DecodeFloat64() (float64, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindFloat64)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeFloat64(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return value, nil
}

// DecodeInt32 decodes the value at the decoder's position as an int32.
func (d *Decoder) DecodeInt32() (int32, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindInt32)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeInt32(size, offset)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return value, nil
}

// DecodeUInt16 decodes the value at the decoder's position as a uint16.
func (d *Decoder) DecodeUInt16() (uint16, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindUint16)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeUint(size, offset, 2)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return uint16(value), nil
}

// DecodeUInt32 decodes the value at the decoder's position as a uint32.
func (d *Decoder) DecodeUInt32() (uint32, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindUint32)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeUint(size, offset, 4)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return uint32(value), nil
}

// DecodeUInt64 decodes the value at the decoder's position as a uint64.
func (d *Decoder) DecodeUInt64() (uint64, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindUint64)
	if err != nil {
		return 0, err
	}
	value, next, err := d.d.decodeUint(size, offset, 8)
	if err != nil {
		return 0, err
	}
	d.setNextOffset(next)
	return value, nil
}

// DecodeUInt128 decodes the value at the decoder's position as a uint128,
// returned as its canonical base-10 string (no native Go type holds 128
// bits, and callers that need arithmetic on it can parse it into math/big
// themselves).
func (d *Decoder) DecodeUInt128() (string, error) {
	size, offset, err := d.decodeCtrlDataAndFollow(KindUint128)
	if err != nil {
		return "", err
	}
	value, next, err := d.d.decodeUint128(size, offset)
	if err != nil {
		return "", err
	}
	d.setNextOffset(next)
	return value.String(), nil
}

// DecodeMap decodes the value at the decoder's position as a map, invoking
// cb for each key/value pair in encounter order. Returning false from cb
// stops iteration early without error; returning a non-nil error aborts
// decoding of the whole map with that error.
func (d *Decoder) DecodeMap(cb func(key string, value *Decoder) (bool, error)) error {
	size, offset, err := d.decodeCtrlDataAndFollow(KindMap)
	if err != nil {
		return err
	}

	dec := d.new(offset)
	for i := uint(0); i < size; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return err
		}
		if err := dec.next(1); err != nil {
			return err
		}

		ok, cbErr := cb(key, dec)
		if err := dec.next(1); err != nil {
			return err
		}
		if cbErr != nil {
			return cbErr
		}
		if !ok {
			return dec.next((size - i - 1) * 2)
		}
	}
	d.setNextOffset(dec.offset)
	return nil
}

// DecodeSlice decodes the value at the decoder's position as a slice,
// invoking cb for each element in order. Returning false from cb stops
// iteration early without error.
func (d *Decoder) DecodeSlice(cb func(value *Decoder) (bool, error)) error {
	size, offset, err := d.decodeCtrlDataAndFollow(KindSlice)
	if err != nil {
		return err
	}

	dec := d.new(offset)
	for i := uint(0); i < size; i++ {
		ok, cbErr := cb(dec)
		if err := dec.next(1); err != nil {
			return err
		}
		if cbErr != nil {
			return cbErr
		}
		if !ok {
			return dec.next(size - i - 1)
		}
	}
	d.setNextOffset(dec.offset)
	return nil
}
