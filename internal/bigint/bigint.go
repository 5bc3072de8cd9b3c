// Package bigint provides the pluggable arithmetic used to accumulate
// MaxMind DB unsigned integers of up to 128 bits. Most values fit in a
// native machine word; values longer than 8 bytes (only possible for
// Uint128) never do on any Go target, so they take the arbitrary-precision
// path.
package bigint

import "math/big"

// Accumulator accumulates an unsigned integer from its big-endian byte
// representation, one byte at a time, shifting the existing value left by
// 8 bits before adding the next byte.
//
// Two implementations exist: a native uint64-backed one used while the
// value is known to fit, and a math/big-backed one used once it might not.
// Decode callers choose between them using NewAccumulator, mirroring the decision
// rule in the format's reference documentation: prefer native arithmetic
// up to the platform's native word size, fall back to arbitrary precision
// beyond it.
type Accumulator interface {
	// Append folds in the next big-endian byte.
	Append(b byte) Accumulator
	// Uint64 returns the value as a uint64 and whether it fit without
	// truncation.
	Uint64() (uint64, bool)
	// Text returns the canonical base-10 representation.
	Text() string
	// Big returns the value as a *big.Int, converting if necessary.
	Big() *big.Int
}

type nativeAccumulator uint64

func (a nativeAccumulator) Append(b byte) Accumulator {
	return nativeAccumulator(uint64(a)<<8 | uint64(b))
}

func (a nativeAccumulator) Uint64() (uint64, bool) { return uint64(a), true }

func (a nativeAccumulator) Text() string { return big.NewInt(0).SetUint64(uint64(a)).String() }

func (a nativeAccumulator) Big() *big.Int { return new(big.Int).SetUint64(uint64(a)) }

type bigAccumulator struct {
	v *big.Int
}

func (a bigAccumulator) Append(b byte) Accumulator {
	v := new(big.Int).Lsh(a.v, 8)
	v.Or(v, big.NewInt(int64(b)))
	return bigAccumulator{v: v}
}

func (a bigAccumulator) Uint64() (uint64, bool) {
	if !a.v.IsUint64() {
		return 0, false
	}
	return a.v.Uint64(), true
}

func (a bigAccumulator) Text() string { return a.v.String() }

func (a bigAccumulator) Big() *big.Int { return new(big.Int).Set(a.v) }

// NewAccumulator selects a zero-valued Accumulator sized for an unsigned
// integer encoded in byteLen bytes, per the decision rule in §4.B of the
// format spec: native arithmetic is used when the accumulating value is
// guaranteed to fit in a native word (byteLen at most 8, the widest native
// word this package targets), and arbitrary precision is used otherwise.
// byteLen 8 takes the native path too: the first-byte-high-bit refinement
// the spec describes is unnecessary here because Go's uint64 is unsigned
// and holds every 8-byte value, unlike the signed native word the original
// PHP implementation reasoned about.
func NewAccumulator(byteLen int) Accumulator {
	if byteLen <= 8 {
		return nativeAccumulator(0)
	}
	return bigAccumulator{v: new(big.Int)}
}

// ErrPlatformLimit is returned when a decode requires arbitrary-precision
// arithmetic but no such backend is configured. Go always has math/big
// available, so this is never actually returned by NewAccumulator; it
// exists for API callers that plug in a restricted Accumulator
// implementation of their own (e.g., for a size-constrained embedded
// build) and need a well-known sentinel for that case.
var ErrPlatformLimit = platformLimitError{}

type platformLimitError struct{}

func (platformLimitError) Error() string {
	return "mmdbreader: value exceeds native range and no arbitrary-precision backend is configured"
}
