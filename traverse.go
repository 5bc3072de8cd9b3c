package mmdbreader

import "net/netip"

// pendingNode is a node in the search tree the traversal has discovered but
// not yet visited, together with the address bits that led to it. Bits are
// always tracked in the database's native 128-bit addressing: for an
// IPv4-only database the walk starts already past the ::ffff:0:0/96
// prefix, mirroring the shortcut Lookup takes via ipv4Start.
type pendingNode struct {
	node      uint
	ip        [16]byte
	prefixLen uint8
}

// Networks returns an iterator over every network recorded in the
// database's search tree, visited depth-first with the low (0) child
// before the high (1) child. Each yielded Result behaves like one from
// Reader.Lookup, except its Network reflects the network actually stored
// in the tree rather than a single looked-up address.
//
//	for result := range db.Networks() {
//		var record any
//		if err := result.Decode(&record); err != nil {
//			...
//		}
//	}
func (r *Reader) Networks() func(func(Result) bool) {
	return func(yield func(Result) bool) {
		if r.buffer == nil {
			yield(Result{err: errClosed})
			return
		}

		start := pendingNode{node: 0}
		if r.Metadata.IPVersion != 6 {
			start.ip[10], start.ip[11] = 0xff, 0xff
			start.prefixLen = 96
		}
		stack := []pendingNode{start}

		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			switch {
			case n.node > r.Metadata.NodeCount:
				if !yield(r.networksResult(n)) {
					return
				}
			case n.node == r.Metadata.NodeCount:
				// empty node; nothing to visit
			default:
				// push high child first so the low child is visited first
				stack = append(stack, r.childNode(n, 1), r.childNode(n, 0))
			}
		}
	}
}

func (r *Reader) childNode(n pendingNode, bit uint) pendingNode {
	childIP := n.ip
	if bit == 1 {
		byteIdx := n.prefixLen >> 3
		bitPos := 7 - (n.prefixLen & 7)
		childIP[byteIdx] |= 1 << bitPos
	}
	return pendingNode{
		node:      r.record(n.node, bit),
		ip:        childIP,
		prefixLen: n.prefixLen + 1,
	}
}

func (r *Reader) networksResult(n pendingNode) Result {
	offset, err := r.resolveDataPointer(n.node)
	ip := netip.AddrFrom16(n.ip).Unmap()
	return Result{
		decoder:   r.decoder,
		ip:        ip,
		offset:    uint(offset),
		prefixLen: n.prefixLen,
		err:       err,
	}
}

var errClosed = errNetworksOnClosed{}

type errNetworksOnClosed struct{}

func (errNetworksOnClosed) Error() string {
	return "cannot call Networks on a closed database"
}
