// Package kernel holds the 3x3 convolution kernels understood by the engine.
package kernel

import (
	"fmt"
	"strings"
)

// Kernel is a 3x3 matrix of weights indexed [row][column]. Row 0 is the
// neighbor row above the sampled pixel, column 0 the neighbor to its left.
//
// Kernel is a value type: passing it to a worker copies it.
type Kernel [3][3]float64

// Sum returns the sum of all nine weights. Smoothing kernels sum to 1,
// edge detectors to 0; nothing requires either.
func (k Kernel) Sum() float64 {
	s := 0.0
	for _, row := range k {
		for _, w := range row {
			s += w
		}
	}
	return s
}

// String renders the kernel as [[a b c] [d e f] [g h i]] with compact floats.
func (k Kernel) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, row := range k {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "[%g %g %g]", row[0], row[1], row[2])
	}
	sb.WriteByte(']')
	return sb.String()
}
