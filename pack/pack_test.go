package pack

import (
	"fmt"
	"testing"
)

func TestUnpack(t *testing.T) {
	t.Parallel()
	tests := []struct {
		n int
		i int
		x int
		y int
	}{
		{n: 1, i: 0, x: 0, y: 0},
		{n: 1, i: 7, x: 0, y: 7},
		{n: 2, i: 5, x: 1, y: 2},
		{n: 4, i: 3, x: 3, y: 0},
		{n: 4, i: 4, x: 0, y: 1},
		{n: 3, i: 17, x: 2, y: 5},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%#v", test), func(t *testing.T) {
			t.Parallel()
			p := New(test.n)
			x, y := p.Unpack(test.i)
			if x != test.x || y != test.y {
				t.Fatalf("%d %d, expected %d %d", x, y, test.x, test.y)
			}
			if i := p.Pack(x, y); i != test.i {
				t.Fatalf("%d, expected %d", i, test.i)
			}
		})
	}
}

func TestPackRoundTrip(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 2, 3, 8} {
		p := New(n)
		for i := range 5 * n {
			x, y := p.Unpack(i)
			if x < 0 || x >= n {
				t.Fatalf("%d %d: x=%d out of range", n, i, x)
			}
			if y*n+x != i {
				t.Fatalf("%d %d: %d*%d+%d", n, i, y, n, x)
			}
		}
	}
}

func TestNewInvalidRadix(t *testing.T) {
	t.Parallel()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic")
		}
	}()
	New(0)
}
