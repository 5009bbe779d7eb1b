// Package pack maps a flat composite index to a pair of sub-indices and back.
//
// A composite of two spaces of dimensions n and m numbers its states i = x + y*n,
// where x in [0, n) is the fast index.
// This is the ordering produced by basis.Kron.
package pack

import (
	"fmt"
)

// Indices packs and unpacks composite indices of radix n.
type Indices struct {
	n int
}

// New returns the packer of radix n.
func New(n int) Indices {
	if n <= 0 {
		panic(fmt.Sprintf("%d", n))
	}
	return Indices{n: n}
}

// Pack returns x + y*n.
func (p Indices) Pack(x, y int) int {
	return x + y*p.n
}

// Unpack is the inverse of Pack.
// x is the minor part in [0, n), and y is the major part, so that i = y*n + x.
func (p Indices) Unpack(i int) (x, y int) {
	y = i / p.n
	x = i - y*p.n
	return x, y
}
