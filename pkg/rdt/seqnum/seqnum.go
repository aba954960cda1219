// Package seqnum implements the RDT sequence-number arithmetic: a modulus
// M = 2*wSize space with wrap-around increment and clockwise distance.
package seqnum

import (
	"fmt"

	"github.com/lithdew/seq"
)

// Space is the sequence-number space for a given window size. The space
// has modulus M = 2*WSize, per spec §3.
type Space struct {
	WSize   uint16
	Modulus uint32
}

// MaxWSize is the largest window size the 15-bit sequence space supports
// (wSize <= 2^14 - 1).
const MaxWSize = (1 << 14) - 1

// New builds a Space for the given window size, clamping it to MaxWSize.
func New(wSize uint16) Space {
	if wSize > MaxWSize {
		wSize = MaxWSize
	}
	if wSize == 0 {
		wSize = 1
	}
	return Space{WSize: wSize, Modulus: uint32(wSize) * 2}
}

// Incr returns (x + 1) mod M.
func (s Space) Incr(x uint16) uint16 {
	return uint16((uint32(x) + 1) % s.Modulus)
}

// Diff returns (x - y + M) mod M, the clockwise distance from y to x.
func (s Space) Diff(x, y uint16) uint16 {
	return uint16((uint32(x) - uint32(y) + s.Modulus) % s.Modulus)
}

// Valid reports whether x lies in [0, M).
func (s Space) Valid(x uint16) bool {
	return uint32(x) < s.Modulus
}

// String renders the space for logging/debug output.
func (s Space) String() string {
	return fmt.Sprintf("seqnum.Space{wSize=%d, M=%d}", s.WSize, s.Modulus)
}

// Newer reports whether a is strictly ahead of b in wrap-around order,
// delegating to github.com/lithdew/seq's GT (a full mod-65536 comparison,
// a superset of RDT's mod-M space). Nothing else in this module calls
// it; the core window arithmetic above does not use it.
func Newer(a, b uint16) bool {
	return seq.GT(a, b)
}
