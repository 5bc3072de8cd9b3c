package mmdbreader

import (
	"errors"
	"math"
	"net/netip"
	"reflect"

	"github.com/mmdbkit/mmdbreader/internal/decoder"
)

const notFound uint = math.MaxUint

// Result is returned by Reader.Lookup and Reader.LookupOffset. It defers
// decoding until Decode or DecodePath is called, so looking up a record
// whose fields you don't need costs nothing beyond the search tree walk.
type Result struct {
	ip        netip.Addr
	err       error
	decoder   decoder.ReflectionDecoder
	offset    uint
	prefixLen uint8
}

// Decode unmarshals the data from the data section into the value pointed
// to by v. If v is nil or not a pointer, an error is returned. If the
// database is invalid or otherwise cannot be read, an InvalidDatabaseError
// is returned. If the lookup did not find a value for the address, no
// error is returned and v is left unchanged.
func (r Result) Decode(v any) error {
	if r.err != nil {
		return r.err
	}
	if r.offset == notFound {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("result param must be a pointer")
	}
	return r.decoder.Decode(r.offset, v)
}

// DecodePath unmarshals a value from the data section into v, following
// path: a sequence of map keys (string) and slice indices (int) describing
// where in the nested structure the desired value lives. A negative index
// counts from the end of a slice, the way Python slicing does.
func (r Result) DecodePath(v any, path ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.offset == notFound {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("result param must be a pointer")
	}
	return r.decoder.DecodePath(r.offset, path, v)
}

// Err reports the error, if any, encountered during the Lookup that
// produced this Result.
func (r Result) Err() error {
	return r.err
}

// Found reports whether the address was found in the search tree.
func (r Result) Found() bool {
	return r.err == nil && r.offset != notFound
}

// RecordOffset returns the data section offset of this Result's record. It
// can be passed to Reader.LookupOffset or Reader.Decoder, and is stable for
// the lifetime of a given database file's contents.
func (r Result) RecordOffset() uintptr {
	return uintptr(r.offset)
}

// Network returns the network associated with the data record, i.e. the
// range of addresses that resolve to the same record as r.ip did.
func (r Result) Network() netip.Prefix {
	ip := r.ip
	prefixLen := int(r.prefixLen)

	if ip.Is4() {
		// The IPv4 start node can sit at a bit depth shallower than 96 if
		// a record was inserted at a prefix like ::/8; none of MaxMind's
		// distributed databases do this, but a handwritten one could.
		if prefixLen < 96 {
			return netip.PrefixFrom(zeroIP, prefixLen)
		}
		prefixLen -= 96
	}

	prefix, _ := ip.Prefix(prefixLen)
	return prefix
}
