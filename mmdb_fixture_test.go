package mmdbreader

import "bytes"

// buildFixture assembles a minimal, hand-encoded MaxMind DB file in memory:
// a one-node, 24-bit-record, IPv4-only search tree whose low (0.0.0.0/1)
// half resolves to a data record and whose high (128.0.0.0/1) half is
// empty. It exists so tests can exercise Open/FromBytes/Lookup/Networks/
// Verify without shipping binary .mmdb fixtures.
func buildFixture() []byte {
	dataSection := encodeDataMap([]dataField{
		{"name", "test"},
	})

	const nodeCount = 1
	const recordSize = 24
	searchTree := []byte{
		0x00, 0x00, 0x11, // left record: pointer value 17 (data offset 0)
		0x00, 0x00, 0x01, // right record: nodeCount (empty)
	}

	separator := make([]byte, dataSectionSeparatorSize)

	metadata := encodeDataMap([]dataField{
		{"database_type", "Test-DB"},
		{"binary_format_major_version", uint(2)},
		{"binary_format_minor_version", uint(0)},
		{"build_epoch", uint(1)},
		{"ip_version", uint(4)},
		{"node_count", uint(nodeCount)},
		{"record_size", uint(recordSize)},
		{"description", map[string]string{"en": "test database"}},
		{"languages", []string{"en"}},
	})

	var buf bytes.Buffer
	buf.Write(searchTree)
	buf.Write(separator)
	buf.Write(dataSection)
	buf.Write(metadataStartMarker)
	buf.Write(metadata)
	return buf.Bytes()
}

// buildIPv6Fixture assembles a one-node, IPv6 search tree using recordSize
// (28 or 32), whose low (::/1) half resolves to a data record and whose
// high (8000::/1) half is empty. recordSize 28 exercises the nibble-sharing
// record packing that 24 and 32 don't need; 32 exercises the other
// non-byte-aligned-free case. Addresses whose first bit is 0 — including
// IPv4-mapped forms like "::ffff:1.2.3.4", which never hit the IPv4 search
// shortcut because netip.Addr.Is4() is false for them — resolve to the same
// data record as a native "::1" lookup would.
func buildIPv6Fixture(recordSize uint) []byte {
	dataSection := encodeDataMap([]dataField{
		{"name", "test"},
	})

	const nodeCount = 1
	var searchTree []byte
	switch recordSize {
	case 28:
		searchTree = []byte{
			0x00, 0x00, 0x11, // left record low 3 bytes: pointer value 17
			0x00,             // shared nibble byte: both top nibbles are 0
			0x00, 0x00, 0x01, // right record low 3 bytes: nodeCount (empty)
		}
	case 32:
		searchTree = []byte{
			0x00, 0x00, 0x00, 0x11, // left record: pointer value 17
			0x00, 0x00, 0x00, 0x01, // right record: nodeCount (empty)
		}
	default:
		panic("buildIPv6Fixture: unsupported record size")
	}

	separator := make([]byte, dataSectionSeparatorSize)

	metadata := encodeDataMap([]dataField{
		{"database_type", "Test-DB-v6"},
		{"binary_format_major_version", uint(2)},
		{"binary_format_minor_version", uint(0)},
		{"build_epoch", uint(1)},
		{"ip_version", uint(6)},
		{"node_count", uint(nodeCount)},
		{"record_size", recordSize},
		{"description", map[string]string{"en": "test database"}},
		{"languages", []string{"en"}},
	})

	var buf bytes.Buffer
	buf.Write(searchTree)
	buf.Write(separator)
	buf.Write(dataSection)
	buf.Write(metadataStartMarker)
	buf.Write(metadata)
	return buf.Bytes()
}

type dataField struct {
	key   string
	value any
}

// encodeDataMap hand-encodes a flat MaxMind DB map value: every field name
// here is short enough to need no control-byte size extension, which keeps
// this helper a direct transliteration of §4 of the format rather than a
// second decoder implementation.
func encodeDataMap(fields []dataField) []byte {
	var buf bytes.Buffer
	buf.WriteByte(ctrlByte(kindMap, len(fields)))
	for _, f := range fields {
		encodeString(&buf, f.key)
		encodeValue(&buf, f.value)
	}
	return buf.Bytes()
}

func encodeValue(buf *bytes.Buffer, v any) {
	switch value := v.(type) {
	case string:
		encodeString(buf, value)
	case uint:
		encodeUint32(buf, uint32(value))
	case map[string]string:
		buf.WriteByte(ctrlByte(kindMap, len(value)))
		for k, s := range value {
			encodeString(buf, k)
			encodeString(buf, s)
		}
	case []string:
		// kindSlice does not fit in 3 bits: control byte type 0, then an
		// extended-type byte holding kindSlice-7.
		buf.WriteByte(ctrlByte(0, len(value)))
		buf.WriteByte(kindSlice - 7)
		for _, s := range value {
			encodeString(buf, s)
		}
	default:
		panic("encodeValue: unsupported type")
	}
}

func encodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte(ctrlByte(kindString, len(s)))
	buf.WriteString(s)
}

func encodeUint32(buf *bytes.Buffer, v uint32) {
	b := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	for len(b) > 1 && b[0] == 0 {
		b = b[1:]
	}
	buf.WriteByte(ctrlByte(kindUint32, len(b)))
	buf.Write(b)
}

const (
	kindString = 2
	kindUint32 = 6
	kindMap    = 7
	kindSlice  = 11
)

func ctrlByte(kind, size int) byte {
	if size >= 29 {
		panic("ctrlByte: fixture helper does not support extended sizes")
	}
	return byte(kind<<5 | size)
}
