package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "Map", KindMap.String())
	assert.Equal(t, "Uint128", KindUint128.String())
	assert.Contains(t, Kind(99).String(), "Unknown")
}

func TestKindPredicates(t *testing.T) {
	assert.True(t, KindMap.IsContainer())
	assert.True(t, KindSlice.IsContainer())
	assert.False(t, KindString.IsContainer())

	assert.True(t, KindString.IsScalar())
	assert.True(t, KindBool.IsScalar())
	assert.False(t, KindMap.IsContainer() == KindMap.IsScalar())
}

func TestDecodeCtrlDataSmallSize(t *testing.T) {
	// Map, size 3: top 3 bits = 0b111 (KindMap), low 5 bits = 3.
	buf := []byte{0xE3}
	d := NewDataDecoder(buf)
	kind, size, offset, err := d.decodeCtrlData(0)
	require.NoError(t, err)
	assert.Equal(t, KindMap, kind)
	assert.Equal(t, uint(3), size)
	assert.Equal(t, uint(1), offset)
}

func TestDecodeCtrlDataExtendedType(t *testing.T) {
	// Extended type control byte (kind 0, size 1); the extended type byte
	// is added to 7, so byte 7 yields KindBool (14).
	buf := []byte{0x01, 0x07}
	d := NewDataDecoder(buf)
	kind, size, offset, err := d.decodeCtrlData(0)
	require.NoError(t, err)
	assert.Equal(t, KindBool, kind)
	assert.Equal(t, uint(1), size)
	assert.Equal(t, uint(2), offset)
}

func TestDecodeCtrlDataSizeExtension(t *testing.T) {
	// String (kind 2), size nibble 29 means "one extra size byte, value+29".
	buf := []byte{0x5D, 0x0A} // 0b010_11101, extra byte 10 -> size 29+10=39
	d := NewDataDecoder(buf)
	kind, size, offset, err := d.decodeCtrlData(0)
	require.NoError(t, err)
	assert.Equal(t, KindString, kind)
	assert.Equal(t, uint(39), size)
	assert.Equal(t, uint(2), offset)
}

func TestDecodeCtrlDataSizeExtensionTwoBytes(t *testing.T) {
	// String (kind 2), size nibble 30 means "two extra size bytes,
	// value = 285 + the two bytes read big-endian".
	tests := []struct {
		name     string
		extra    []byte
		wantSize uint
	}{
		{"minimum two-byte size", []byte{0x00, 0x00}, 285},
		{"two-byte size plus one", []byte{0x00, 0x01}, 286},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte{0x5E}, tt.extra...) // 0b010_11110
			d := NewDataDecoder(buf)
			kind, size, offset, err := d.decodeCtrlData(0)
			require.NoError(t, err)
			assert.Equal(t, KindString, kind)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, uint(len(buf)), offset)
		})
	}
}

func TestDecodeCtrlDataSizeExtensionThreeBytes(t *testing.T) {
	// String (kind 2), size nibble 31 means "three extra size bytes,
	// value = 65821 + the three bytes read big-endian".
	tests := []struct {
		name     string
		extra    []byte
		wantSize uint
	}{
		{"minimum three-byte size", []byte{0x00, 0x00, 0x00}, 65821},
		{"three-byte size plus one", []byte{0x00, 0x00, 0x01}, 65822},
		{"maximum three-byte size", []byte{0xFF, 0xFF, 0xFF}, 16843036},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := append([]byte{0x5F}, tt.extra...) // 0b010_11111
			d := NewDataDecoder(buf)
			kind, size, offset, err := d.decodeCtrlData(0)
			require.NoError(t, err)
			assert.Equal(t, KindString, kind)
			assert.Equal(t, tt.wantSize, size)
			assert.Equal(t, uint(len(buf)), offset)
		})
	}
}

func TestDecodePointerSizes(t *testing.T) {
	tests := []struct {
		name       string
		sizeBits   uint // the 2-bit pointer-size field packed with kind bits
		bytes      []byte
		wantOffset uint
	}{
		{"1-byte pointer", 0, []byte{0x05}, 5},
		{"2-byte pointer with bias", 1, []byte{0x00, 0x01}, 2048 + 1},
		{"3-byte pointer with bias", 2, []byte{0x00, 0x00, 0x01}, 526336 + 1},
		{"4-byte pointer no bias", 3, []byte{0x00, 0x00, 0x00, 0x01}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDataDecoder(tt.bytes)
			size := tt.sizeBits << 3
			pointer, newOffset, err := d.decodePointer(size, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOffset, pointer)
			assert.Equal(t, uint(len(tt.bytes)), newOffset)
		})
	}
}

func TestDecodeBool(t *testing.T) {
	d := NewDataDecoder(nil)
	v, offset := d.decodeBool(1, 5)
	assert.True(t, v)
	assert.Equal(t, uint(5), offset)

	v, offset = d.decodeBool(0, 5)
	assert.False(t, v)
	assert.Equal(t, uint(5), offset)
}

func TestDecodeUintRoundTrip(t *testing.T) {
	buf := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	d := NewDataDecoder(buf)
	v, offset, err := d.decodeUint(4, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFF), v)
	assert.Equal(t, uint(4), offset)
}

func TestDecodeUintRejectsOversizedValue(t *testing.T) {
	buf := make([]byte, 5)
	d := NewDataDecoder(buf)
	_, _, err := d.decodeUint(5, 0, 4)
	require.Error(t, err)
}

func TestDecodeUint128RoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0x80 // top bit set: 2^127
	d := NewDataDecoder(buf)
	v, offset, err := d.decodeUint128(16, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(16), offset)
	assert.Equal(t, "170141183460469231731687303715884105728", v.String())
}

func TestDecodeFloat64RejectsBadSize(t *testing.T) {
	d := NewDataDecoder(make([]byte, 4))
	_, _, err := d.decodeFloat64(4, 0)
	require.Error(t, err)
}

func TestDecodeStringAndBytes(t *testing.T) {
	buf := []byte("hello")
	d := NewDataDecoder(buf)

	s, offset, err := d.decodeString(5, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Equal(t, uint(5), offset)

	b, offset, err := d.decodeBytes(5, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), b)
	assert.Equal(t, uint(5), offset)
}

func TestNextValueOffsetSkipsContainers(t *testing.T) {
	// A map of size 1 ({"a": [1, 2]}) built up from explicit control bytes
	// so the test doesn't depend on guessed bit patterns.
	mapCtrl := byte(KindMap)<<5 | 1
	keyCtrl := byte(KindString)<<5 | 1
	sliceCtrl := byte(KindExtended)<<5 | 2
	sliceExt := byte(KindSlice) - 7
	elemCtrl := byte(KindUint16)<<5 | 1

	data := []byte{
		mapCtrl,
		keyCtrl, 'a',
		sliceCtrl, sliceExt,
		elemCtrl, 0x01,
		elemCtrl, 0x02,
	}
	d := NewDataDecoder(data)
	next, err := d.nextValueOffset(0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(len(data)), next)
}

func TestDecodeKeyFollowsPointer(t *testing.T) {
	// Data section: [pointer to offset 3][padding][string "k"]
	ptrCtrl := byte(KindPointer)<<5 | 0<<3 | 0 // 1-byte pointer, size field top bits 0
	strCtrl := byte(KindString)<<5 | 1
	data := []byte{ptrCtrl, 0x03, 0x00, strCtrl, 'k'}
	d := NewDataDecoder(data)
	key, next, err := d.decodeKey(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("k"), key)
	assert.Equal(t, uint(2), next) // past the pointer's own bytes
}
