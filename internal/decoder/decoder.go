// Package decoder implements the MaxMind DB data-section decoder: the
// control-byte parser, the recursive value decoder, and a reflection-based
// struct decoder built on top of it.
package decoder

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"

	"github.com/mmdbkit/mmdbreader/internal/bigint"
	"github.com/mmdbkit/mmdbreader/internal/mmdberrors"
)

// Kind identifies the type tag carried by an encoded value's control byte.
type Kind int

// Data kind constants, matching the type codes in the format's data model.
const (
	KindExtended Kind = iota
	KindPointer
	KindString
	KindFloat64
	KindBytes
	KindUint16
	KindUint32
	KindMap
	KindInt32
	KindUint64
	KindUint128
	KindSlice
	// KindContainer and KindEndMarker are unused placeholder type codes
	// reserved by the format; no encoder emits them.
	KindContainer
	KindEndMarker
	KindBool
	KindFloat32
)

func (k Kind) String() string {
	switch k {
	case KindExtended:
		return "Extended"
	case KindPointer:
		return "Pointer"
	case KindString:
		return "String"
	case KindFloat64:
		return "Float64"
	case KindBytes:
		return "Bytes"
	case KindUint16:
		return "Uint16"
	case KindUint32:
		return "Uint32"
	case KindMap:
		return "Map"
	case KindInt32:
		return "Int32"
	case KindUint64:
		return "Uint64"
	case KindUint128:
		return "Uint128"
	case KindSlice:
		return "Slice"
	case KindContainer:
		return "Container"
	case KindEndMarker:
		return "EndMarker"
	case KindBool:
		return "Bool"
	case KindFloat32:
		return "Float32"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// IsContainer reports whether the kind is a Map or Slice.
func (k Kind) IsContainer() bool {
	return k == KindMap || k == KindSlice
}

// IsScalar reports whether the kind is a leaf scalar value.
func (k Kind) IsScalar() bool {
	switch k {
	case KindString, KindFloat64, KindBytes, KindUint16, KindUint32,
		KindInt32, KindUint64, KindUint128, KindBool, KindFloat32:
		return true
	default:
		return false
	}
}

// maximumDataStructureDepth bounds recursive pointer-following. Well-formed
// databases are acyclic (pointers only ever reference earlier-written
// offsets), but a depth cap keeps an adversarial or corrupt file from
// blowing the goroutine stack. The value matches libmaxminddb.
const maximumDataStructureDepth = 512

// DataDecoder reads type-tagged values out of a data section buffer. It
// holds no cursor of its own: every decode method is given the offset to
// start from and returns the offset immediately past what it consumed, so
// callers can thread state however they like.
type DataDecoder struct {
	buffer []byte
}

// NewDataDecoder builds a DataDecoder over buffer. Pointer offsets decoded
// from this buffer are relative to buffer's own start: callers slice the
// file's data or metadata section before constructing a DataDecoder so
// that base_address (per §4.D) is always zero from the decoder's point of
// view.
func NewDataDecoder(buffer []byte) DataDecoder {
	return DataDecoder{buffer: buffer}
}

// decodeCtrlData decodes the control byte at offset, following the single
// extended-type byte when present, and returns the kind, the size (with any
// extended-size bytes already folded in), and the offset immediately past
// all of those bytes.
func (d *DataDecoder) decodeCtrlData(offset uint) (Kind, uint, uint, error) {
	if offset >= uint(len(d.buffer)) {
		return 0, 0, 0, mmdberrors.NewOffsetError()
	}
	ctrlByte := d.buffer[offset]
	newOffset := offset + 1

	kind := Kind(ctrlByte >> 5)
	if kind == KindExtended {
		if newOffset >= uint(len(d.buffer)) {
			return 0, 0, 0, mmdberrors.NewOffsetError()
		}
		kind = Kind(d.buffer[newOffset] + 7)
		newOffset++
	}

	size, newOffset, err := d.sizeFromCtrlByte(ctrlByte, newOffset, kind)
	return kind, size, newOffset, err
}

func (d *DataDecoder) sizeFromCtrlByte(ctrlByte byte, offset uint, kind Kind) (uint, uint, error) {
	size := uint(ctrlByte & 0x1f)
	if kind == KindExtended {
		return size, offset, nil
	}
	if size < 29 {
		return size, offset, nil
	}

	bytesToRead := size - 28
	newOffset := offset + bytesToRead
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	if size == 29 {
		return 29 + uint(d.buffer[offset]), offset + 1, nil
	}

	sizeBytes := d.buffer[offset:newOffset]
	switch size {
	case 30:
		size = 285 + uintFromBytes(0, sizeBytes)
	default:
		size = 65821 + uintFromBytes(0, sizeBytes)
	}
	return size, newOffset, nil
}

// decodePointer decodes a type-1 pointer payload (the ss+1 bytes following
// the control byte) into a base-address-relative offset, per §4.D's pointer
// table. The returned offset is the position immediately past the pointer's
// own bytes, not past whatever it points to — callers recurse separately.
func (d *DataDecoder) decodePointer(size, offset uint) (uint, uint, error) {
	pointerSize := ((size >> 3) & 0x3) + 1
	newOffset := offset + pointerSize
	if newOffset > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	pointerBytes := d.buffer[offset:newOffset]

	var prefix uint
	if pointerSize != 4 {
		prefix = size & 0x7
	}
	unpacked := uintFromBytes(prefix, pointerBytes)

	var bias uint
	switch pointerSize {
	case 2:
		bias = 2048
	case 3:
		bias = 526336
	}

	return unpacked + bias, newOffset, nil
}

func (d *DataDecoder) decodeBool(size, offset uint) (bool, uint) {
	return size != 0, offset
}

func (d *DataDecoder) decodeBytes(size, offset uint) ([]byte, uint, error) {
	if offset+size > uint(len(d.buffer)) {
		return nil, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	out := make([]byte, size)
	copy(out, d.buffer[offset:newOffset])
	return out, newOffset, nil
}

func (d *DataDecoder) decodeString(size, offset uint) (string, uint, error) {
	if offset+size > uint(len(d.buffer)) {
		return "", 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	return string(d.buffer[offset:newOffset]), newOffset, nil
}

func (d *DataDecoder) decodeFloat64(size, offset uint) (float64, uint, error) {
	if size != 8 {
		return 0, 0, mmdberrors.NewInvalidDatabaseError(
			"the MMDB data section contains bad data (float64 size of %v)", size,
		)
	}
	if offset+size > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	bits := binary.BigEndian.Uint64(d.buffer[offset:newOffset])
	return math.Float64frombits(bits), newOffset, nil
}

func (d *DataDecoder) decodeFloat32(size, offset uint) (float32, uint, error) {
	if size != 4 {
		return 0, 0, mmdberrors.NewInvalidDatabaseError(
			"the MMDB data section contains bad data (float32 size of %v)", size,
		)
	}
	if offset+size > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	bits := binary.BigEndian.Uint32(d.buffer[offset:newOffset])
	return math.Float32frombits(bits), newOffset, nil
}

// decodeInt32 decodes a type-8 signed integer. The format guarantees the
// encoded value is nonnegative for size < 4, so left-padding with zero
// bytes before a signed big-endian read is always correct.
func (d *DataDecoder) decodeInt32(size, offset uint) (int32, uint, error) {
	if size > 4 {
		return 0, 0, mmdberrors.NewInvalidDatabaseError(
			"the MMDB data section contains bad data (int32 size of %v)", size,
		)
	}
	if offset+size > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	var val int32
	for _, b := range d.buffer[offset:newOffset] {
		val = (val << 8) | int32(b)
	}
	return val, newOffset, nil
}

// decodeUint decodes a type 5/6/9 unsigned integer of up to maxSize bytes
// using the native-word accumulator: §4.B's decision rule always picks
// native arithmetic here because the result is returned as a uint64.
func (d *DataDecoder) decodeUint(size, offset, maxSize uint) (uint64, uint, error) {
	if size > maxSize {
		return 0, 0, mmdberrors.NewInvalidDatabaseError(
			"the MMDB data section contains bad data (uint size of %v, want <= %v)", size, maxSize,
		)
	}
	if offset+size > uint(len(d.buffer)) {
		return 0, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	var acc bigint.Accumulator = bigint.NewAccumulator(int(size))
	for _, b := range d.buffer[offset:newOffset] {
		acc = acc.Append(b)
	}
	val, _ := acc.Uint64()
	return val, newOffset, nil
}

// decodeUint128 decodes a type-10 unsigned integer of up to 16 bytes. Sizes
// beyond 8 bytes cannot fit a uint64 and take the arbitrary-precision
// accumulator; smaller sizes accumulate natively. Either way the result is
// returned as a *big.Int.
func (d *DataDecoder) decodeUint128(size, offset uint) (*big.Int, uint, error) {
	if size > 16 {
		return nil, 0, mmdberrors.NewInvalidDatabaseError(
			"the MMDB data section contains bad data (uint128 size of %v)", size,
		)
	}
	if offset+size > uint(len(d.buffer)) {
		return nil, 0, mmdberrors.NewOffsetError()
	}
	newOffset := offset + size
	acc := bigint.NewAccumulator(int(size))
	for _, b := range d.buffer[offset:newOffset] {
		acc = acc.Append(b)
	}
	return acc.Big(), newOffset, nil
}

// decodeKey decodes a map key, which must be a string or a pointer to one.
func (d *DataDecoder) decodeKey(offset uint) ([]byte, uint, error) {
	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return nil, 0, err
	}
	if kind == KindPointer {
		pointer, ptrOffset, err := d.decodePointer(size, dataOffset)
		if err != nil {
			return nil, 0, err
		}
		key, _, err := d.decodeKey(pointer)
		return key, ptrOffset, err
	}
	if kind != KindString {
		return nil, 0, mmdberrors.NewInvalidDatabaseError(
			"unexpected type when decoding string: %v", kind,
		)
	}
	newOffset := dataOffset + size
	if newOffset > uint(len(d.buffer)) {
		return nil, 0, mmdberrors.NewOffsetError()
	}
	return d.buffer[dataOffset:newOffset], newOffset, nil
}

// nextValueOffset skips numberToSkip encoded values starting at offset,
// without decoding them, and returns the offset immediately past the last
// one skipped. Maps and slices count their elements (2x for maps, to skip
// key and value) toward the running total instead of recursing.
func (d *DataDecoder) nextValueOffset(offset, numberToSkip uint) (uint, error) {
	if numberToSkip == 0 {
		return offset, nil
	}
	kind, size, offset, err := d.decodeCtrlData(offset)
	if err != nil {
		return 0, err
	}
	switch kind {
	case KindPointer:
		_, offset, err = d.decodePointer(size, offset)
		if err != nil {
			return 0, err
		}
	case KindMap:
		numberToSkip += 2 * size
	case KindSlice:
		numberToSkip += size
	case KindBool:
	default:
		offset += size
	}
	return d.nextValueOffset(offset, numberToSkip-1)
}

func uintFromBytes(prefix uint, b []byte) uint {
	val := prefix
	for _, c := range b {
		val = (val << 8) | uint(c)
	}
	return val
}
