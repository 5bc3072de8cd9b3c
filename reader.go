// Package mmdbreader provides a reader for the MaxMind DB file format.
//
// This package provides an API for reading GeoIP2/GeoLite2-style databases
// and any other file conforming to the MaxMind DB binary format (.mmdb
// files): a type-tagged data section plus a binary search tree keyed on IP
// address bits.
//
// # Basic Usage
//
//	db, err := mmdbreader.Open("GeoLite2-City.mmdb")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	ip, err := netip.ParseAddr("81.2.69.142")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	var record struct {
//		Country struct {
//			ISOCode string            `maxminddb:"iso_code"`
//			Names   map[string]string `maxminddb:"names"`
//		} `maxminddb:"country"`
//	}
//	if err := db.Lookup(ip).Decode(&record); err != nil {
//		log.Fatal(err)
//	}
//
// # Custom Unmarshaling
//
// Types implementing mmdbdata.Unmarshaler take over their own decoding,
// bypassing reflection, the way json.Unmarshaler does for encoding/json.
//
// # Network Iteration
//
//	for result := range db.Networks() {
//		...
//	}
//
// # Thread Safety
//
// All Reader methods are safe for concurrent use by multiple goroutines.
package mmdbreader

import (
	"bytes"
	"errors"
	"io"
	"net/netip"
	"os"
	"runtime"
	"time"

	"github.com/mmdbkit/mmdbreader/internal/decoder"
	"github.com/mmdbkit/mmdbreader/internal/mmdberrors"
	"github.com/mmdbkit/mmdbreader/mmdbdata"
)

const dataSectionSeparatorSize = 16

var metadataStartMarker = []byte("\xAB\xCD\xEFMaxMind.com")

// Reader holds the data corresponding to a MaxMind DB file. Its only public
// field is Metadata. All methods on Reader are safe for concurrent use.
type Reader struct {
	buffer            []byte
	decoder           decoder.ReflectionDecoder
	Metadata          Metadata
	ipv4Start         uint
	ipv4StartBitDepth int
	nodeOffsetMult    uint
	hasMappedFile     bool
	hooks             MetricsHooks
}

// Metadata holds the metadata decoded from a MaxMind DB file's metadata
// section. See https://maxmind.github.io/MaxMind-DB/ for field semantics.
type Metadata struct {
	Description              map[string]string `maxminddb:"description"`
	DatabaseType             string            `maxminddb:"database_type"`
	Languages                []string          `maxminddb:"languages"`
	BinaryFormatMajorVersion uint              `maxminddb:"binary_format_major_version"`
	BinaryFormatMinorVersion uint              `maxminddb:"binary_format_minor_version"`
	BuildEpoch               uint              `maxminddb:"build_epoch"`
	IPVersion                uint              `maxminddb:"ip_version"`
	NodeCount                uint              `maxminddb:"node_count"`
	RecordSize               uint              `maxminddb:"record_size"`
}

// BuildTime returns the database build time as a time.Time, converted from
// BuildEpoch.
func (m Metadata) BuildTime() time.Time {
	return time.Unix(int64(m.BuildEpoch), 0)
}

type readerOptions struct {
	hooks MetricsHooks
}

// ReaderOption configures Open and FromBytes.
type ReaderOption func(*readerOptions)

// WithMetricsHooks attaches a MetricsHooks implementation the Reader will
// call on every lookup. Passing nil (the default) disables instrumentation
// entirely, at no runtime cost beyond a nil check.
func WithMetricsHooks(hooks MetricsHooks) ReaderOption {
	return func(o *readerOptions) {
		o.hooks = hooks
	}
}

// Open takes a path to a MaxMind DB file and any options. The file is
// opened with a memory map where the platform supports it; otherwise it is
// read fully into memory. Call Close to release the underlying resources.
func Open(file string, options ...ReaderOption) (*Reader, error) {
	mapFile, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer mapFile.Close() //nolint:errcheck // error is generally not relevant

	stats, err := mapFile.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stats.Size()
	if size64 == 0 {
		return nil, mmdberrors.NewConfigError("cannot open %q: file is empty", file)
	}

	size := int(size64)
	if int64(size) != size64 {
		return nil, mmdberrors.NewConfigError("cannot open %q: file too large to map into memory", file)
	}

	data, err := mmap(int(mapFile.Fd()), size)
	if err != nil {
		if errors.Is(err, errors.ErrUnsupported) {
			data, err = openFallback(mapFile, size)
			if err != nil {
				return nil, err
			}
			return FromBytes(data, options...)
		}
		return nil, err
	}

	reader, err := FromBytes(data, options...)
	if err != nil {
		_ = munmap(data)
		return nil, err
	}

	reader.hasMappedFile = true
	runtime.SetFinalizer(reader, (*Reader).Close)
	return reader, nil
}

func openFallback(f *os.File, size int) ([]byte, error) {
	data := make([]byte, size)
	_, err := io.ReadFull(f, data)
	return data, err
}

// Close releases the resources used by the database. After Close, Lookup
// and Networks return errors.
func (r *Reader) Close() error {
	var err error
	if r.hasMappedFile {
		runtime.SetFinalizer(r, nil)
		r.hasMappedFile = false
		err = munmap(r.buffer)
	}
	r.buffer = nil
	return err
}

// FromBytes takes a byte slice containing a whole MaxMind DB file and any
// options. Unlike Open, the caller retains ownership of buffer.
func FromBytes(buffer []byte, options ...ReaderOption) (*Reader, error) {
	opts := &readerOptions{}
	for _, option := range options {
		option(opts)
	}

	metadataStart := bytes.LastIndex(buffer, metadataStartMarker)
	if metadataStart == -1 {
		return nil, mmdberrors.NewInvalidDatabaseError(
			"error opening database: invalid MaxMind DB file",
		)
	}
	metadataStart += len(metadataStartMarker)

	metadataDecoder := decoder.New(buffer[metadataStart:])

	var metadata Metadata
	if err := metadataDecoder.Decode(0, &metadata); err != nil {
		return nil, err
	}
	if metadata.IPVersion != 4 && metadata.IPVersion != 6 {
		return nil, mmdberrors.NewInvalidDatabaseError(
			"the MaxMind DB has an unsupported ip_version: %d", metadata.IPVersion,
		)
	}

	searchTreeSize := metadata.NodeCount * (metadata.RecordSize / 4)
	dataSectionStart := searchTreeSize + dataSectionSeparatorSize
	dataSectionEnd := uint(metadataStart - len(metadataStartMarker))
	if dataSectionStart > dataSectionEnd {
		return nil, mmdberrors.NewInvalidDatabaseError("the MaxMind DB contains invalid metadata")
	}

	d := decoder.New(buffer[searchTreeSize+dataSectionSeparatorSize : dataSectionEnd])

	reader := &Reader{
		buffer:         buffer,
		decoder:        d,
		Metadata:       metadata,
		nodeOffsetMult: metadata.RecordSize / 4,
		hooks:          opts.hooks,
	}
	reader.setIPv4Start()

	return reader, nil
}

// Lookup retrieves the database record for ip and returns a Result, which
// can be used to decode the data.
func (r *Reader) Lookup(ip netip.Addr) Result {
	var start time.Time
	if r.hooks != nil {
		start = metricsNow()
	}
	var (
		pointer   uint
		prefixLen int
		err       error
	)
	if r.buffer != nil {
		pointer, prefixLen, err = r.lookupPointer(ip)
	}
	res := r.lookupResult(ip, pointer, prefixLen, err)
	r.observeLookup(start, res)
	return res
}

func (r *Reader) lookupResult(ip netip.Addr, pointer uint, prefixLen int, err error) Result {
	if r.buffer == nil {
		return Result{err: errors.New("cannot call Lookup on a closed database")}
	}
	if err != nil {
		return Result{ip: ip, prefixLen: uint8(prefixLen), err: err}
	}
	if pointer == 0 {
		return Result{ip: ip, prefixLen: uint8(prefixLen), offset: notFound}
	}
	offset, err := r.resolveDataPointer(pointer)
	return Result{
		decoder:   r.decoder,
		ip:        ip,
		offset:    uint(offset),
		prefixLen: uint8(prefixLen),
		err:       err,
	}
}

// LookupOffset returns the Result for the specified data section offset,
// typically one previously obtained from Result.RecordOffset. The
// netip.Prefix returned by such a Result's Network method is meaningless,
// since no lookup walked the search tree to produce it.
func (r *Reader) LookupOffset(offset uintptr) Result {
	if r.buffer == nil {
		return Result{err: errors.New("cannot call LookupOffset on a closed database")}
	}
	return Result{decoder: r.decoder, offset: uint(offset)}
}

// Decoder returns a low-level Decoder for the value stored at offset,
// bypassing reflection entirely. This is the type handed to an
// mmdbdata.Unmarshaler.
func (r *Reader) Decoder(offset uintptr) *mmdbdata.Decoder {
	return decoder.NewDecoder(r.decoder.DataDecoder, uint(offset))
}

func (r *Reader) setIPv4Start() {
	if r.Metadata.IPVersion != 6 {
		r.ipv4StartBitDepth = 96
		return
	}

	nodeCount := r.Metadata.NodeCount
	node := uint(0)
	i := 0
	for ; i < 96 && node < nodeCount; i++ {
		node = r.record(node, 0)
	}
	r.ipv4Start = node
	r.ipv4StartBitDepth = i
}

var zeroIP = netip.MustParseAddr("::")

func (r *Reader) lookupPointer(ip netip.Addr) (uint, int, error) {
	if r.Metadata.IPVersion == 4 && ip.Is6() {
		return 0, 0, mmdberrors.NewInvalidInputError(
			"error looking up '%s': you attempted to look up an IPv6 address in an IPv4-only database",
			ip.String(),
		)
	}

	node, prefixLength := r.traverseTree(ip, 128)

	nodeCount := r.Metadata.NodeCount
	switch {
	case node == nodeCount:
		return 0, prefixLength, nil
	case node > nodeCount:
		return node, prefixLength, nil
	default:
		return 0, prefixLength, mmdberrors.NewInvalidDatabaseError("invalid node in search tree")
	}
}

// record reads the child pointer for node in direction bit (0 or 1),
// dispatching on the database's record size. Real-world databases use one
// record size for their entire search tree, so this check costs one branch
// per bit traversed rather than per database.
func (r *Reader) record(node, bit uint) uint {
	buffer := r.buffer
	switch r.Metadata.RecordSize {
	case 24:
		offset := node*6 + bit*3
		return (uint(buffer[offset]) << 16) | (uint(buffer[offset+1]) << 8) | uint(buffer[offset+2])
	case 28:
		baseOffset := node * 7
		sharedByte := uint(buffer[baseOffset+3])
		mask := uint(0xF0 >> (bit * 4))
		shift := 20 + bit*4
		nibble := (sharedByte & mask) << shift
		offset := baseOffset + bit*4
		return nibble | (uint(buffer[offset]) << 16) | (uint(buffer[offset+1]) << 8) | uint(buffer[offset+2])
	case 32:
		offset := node*8 + bit*4
		return (uint(buffer[offset]) << 24) | (uint(buffer[offset+1]) << 16) |
			(uint(buffer[offset+2]) << 8) | uint(buffer[offset+3])
	default:
		return r.Metadata.NodeCount + 1 // resolves as a data pointer that fails the corrupt-search-tree check
	}
}

func (r *Reader) traverseTree(ip netip.Addr, stopBit int) (uint, int) {
	node := uint(0)
	i := 0
	if ip.Is4() {
		i = r.ipv4StartBitDepth
		node = r.ipv4Start
	}

	nodeCount := r.Metadata.NodeCount
	ip16 := ip.As16()

	for ; i < stopBit && node < nodeCount; i++ {
		byteIdx := i >> 3
		bitPos := 7 - (i & 7)
		bit := (uint(ip16[byteIdx]) >> bitPos) & 1
		node = r.record(node, bit)
	}

	return node, i
}

func (r *Reader) resolveDataPointer(pointer uint) (uintptr, error) {
	resolved := uintptr(pointer - r.Metadata.NodeCount - dataSectionSeparatorSize)
	if resolved >= uintptr(len(r.buffer)) {
		return 0, mmdberrors.NewInvalidDatabaseError("the MaxMind DB file's search tree is corrupt")
	}
	return resolved, nil
}
