package decoder

import "github.com/mmdbkit/mmdbreader/internal/mmdberrors"

// Value is the sum type returned by the low-level recursive decoder. Exactly
// one field is meaningful, selected by Kind: Uint64 for Uint16/Uint32/Uint64,
// Big for Uint128 (always populated there, since no Go integer type holds
// 128 bits natively), Int32 for signed integers, Float64/Float32 for the two
// float kinds, Str for strings, Bytes for the bytes kind, Bool for booleans,
// and Map/Slice for the two container kinds.
type Value struct {
	Kind    Kind
	Uint64  uint64
	Big     *bigValue
	Int32   int32
	Float64 float64
	Float32 float32
	Str     string
	Bytes   []byte
	Bool    bool
	Map     []MapEntry
	Slice   []Value
}

// MapEntry is one key/value pair of a decoded Map, preserving insertion
// order the way the format's spec requires.
type MapEntry struct {
	Key   string
	Value Value
}

// bigValue carries a decoded Uint128 as its decimal string, behind a named
// type so this package's public surface doesn't leak math/big into call
// sites that only want that string form (String).
type bigValue struct {
	text string
}

// String returns the canonical base-10 representation of a Uint128 value.
func (b *bigValue) String() string {
	if b == nil {
		return "0"
	}
	return b.text
}

// DecodeValue recursively decodes the value at offset into a Value tree and
// returns the offset immediately past it. Pointers are followed in place:
// the returned offset reflects the position after the pointer's own bytes,
// not after whatever it points to, matching §4.D.
func (d *DataDecoder) DecodeValue(offset uint) (Value, uint, error) {
	return d.decodeValue(offset, 0)
}

func (d *DataDecoder) decodeValue(offset uint, depth int) (Value, uint, error) {
	if depth > maximumDataStructureDepth {
		return Value{}, 0, mmdberrors.NewInvalidDatabaseError(
			"exceeded maximum data structure depth; database is likely corrupt",
		)
	}

	kind, size, dataOffset, err := d.decodeCtrlData(offset)
	if err != nil {
		return Value{}, 0, err
	}

	switch kind {
	case KindPointer:
		pointer, nextOffset, err := d.decodePointer(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		target, _, err := d.decodeValue(pointer, depth+1)
		return target, nextOffset, err
	case KindBool:
		v, next := d.decodeBool(size, dataOffset)
		return Value{Kind: KindBool, Bool: v}, next, nil
	case KindString:
		v, next, err := d.decodeString(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindString, Str: v}, next, nil
	case KindBytes:
		v, next, err := d.decodeBytes(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindBytes, Bytes: v}, next, nil
	case KindFloat64:
		v, next, err := d.decodeFloat64(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindFloat64, Float64: v}, next, nil
	case KindFloat32:
		v, next, err := d.decodeFloat32(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindFloat32, Float32: v}, next, nil
	case KindInt32:
		v, next, err := d.decodeInt32(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindInt32, Int32: v}, next, nil
	case KindUint16:
		v, next, err := d.decodeUint(size, dataOffset, 2)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindUint16, Uint64: v}, next, nil
	case KindUint32:
		v, next, err := d.decodeUint(size, dataOffset, 4)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindUint32, Uint64: v}, next, nil
	case KindUint64:
		v, next, err := d.decodeUint(size, dataOffset, 8)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindUint64, Uint64: v}, next, nil
	case KindUint128:
		v, next, err := d.decodeUint128(size, dataOffset)
		if err != nil {
			return Value{}, 0, err
		}
		return Value{Kind: KindUint128, Big: &bigValue{text: v.String()}}, next, nil
	case KindMap:
		entries := make([]MapEntry, 0, size)
		next := dataOffset
		for i := uint(0); i < size; i++ {
			key, keyNext, err := d.decodeKey(next)
			if err != nil {
				return Value{}, 0, err
			}
			val, valNext, err := d.decodeValue(keyNext, depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			entries = append(entries, MapEntry{Key: string(key), Value: val})
			next = valNext
		}
		return Value{Kind: KindMap, Map: entries}, next, nil
	case KindSlice:
		elems := make([]Value, 0, size)
		next := dataOffset
		for i := uint(0); i < size; i++ {
			val, valNext, err := d.decodeValue(next, depth+1)
			if err != nil {
				return Value{}, 0, err
			}
			elems = append(elems, val)
			next = valNext
		}
		return Value{Kind: KindSlice, Slice: elems}, next, nil
	default:
		return Value{}, 0, mmdberrors.NewInvalidDatabaseError("unknown type: %d", kind)
	}
}
