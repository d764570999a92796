package stdimg

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/Fepozopo/convolve/pkg/kernel"
)

// Narrowing selects how an accumulated float sum becomes an 8-bit sample.
type Narrowing int

const (
	// Wrap truncates toward zero and keeps the low 8 bits, so -40 becomes
	// 216 and 290 becomes 34. This matches an unchecked C cast.
	Wrap Narrowing = iota
	// Saturate clamps to [0,255] before truncating.
	Saturate
)

func (n Narrowing) String() string {
	switch n {
	case Wrap:
		return "wrap"
	case Saturate:
		return "saturate"
	default:
		return fmt.Sprintf("Narrowing(%d)", int(n))
	}
}

// ParseNarrowing accepts "wrap" or "saturate".
func ParseNarrowing(s string) (Narrowing, error) {
	switch s {
	case "wrap", "":
		return Wrap, nil
	case "saturate":
		return Saturate, nil
	}
	return 0, fmt.Errorf("unknown narrowing %q (want wrap or saturate)", s)
}

// Narrow converts v to a byte. Neither mode rounds.
func (n Narrowing) Narrow(v float64) uint8 {
	if n == Saturate {
		if v <= 0 {
			return 0
		}
		if v >= 255 {
			return 255
		}
		return uint8(v)
	}
	if math.IsNaN(v) {
		return 0
	}
	return uint8(int64(v))
}

// taps accumulates the nine weighted samples of channel c. xs and ys hold the
// already clamped column and row indices for offsets -1, 0, +1. Each product
// is rounded to float64 before it is added so results do not depend on
// whether the compiler fuses multiply-add.
func taps(src *Image, xs, ys *[3]int, c int, k *kernel.Kernel) float64 {
	acc := 0.0
	for ky := 0; ky < 3; ky++ {
		row := ys[ky] * src.Width
		for kx := 0; kx < 3; kx++ {
			v := src.Pix[(row+xs[kx])*src.Channels+c]
			acc += float64(k[ky][kx] * float64(v))
		}
	}
	return acc
}

// neighbors returns {v-1, v, v+1} clamped to [0, size-1].
func neighbors(v, size int) [3]int {
	return [3]int{clampInt(v-1, 0, size-1), v, clampInt(v+1, 0, size-1)}
}

// Accumulate returns the unnarrowed kernel response at (x, y) for channel c.
// Out-of-range neighbors reuse the nearest edge pixel.
func Accumulate(src *Image, x, y, c int, k kernel.Kernel) float64 {
	xs := neighbors(x, src.Width)
	ys := neighbors(y, src.Height)
	return taps(src, &xs, &ys, c, &k)
}

// Sample returns the output byte for channel c of pixel (x, y) using Wrap
// narrowing.
func Sample(src *Image, x, y, c int, k kernel.Kernel) uint8 {
	return Wrap.Narrow(Accumulate(src, x, y, c, k))
}

// ConvolveRows writes every column and channel of the rows in r into dst.
// It reads only src and writes only dst rows inside r, so calls with disjoint
// ranges may run concurrently on one dst. ctx is checked before each row; on
// cancellation the rows already written stay and ctx.Err() is returned.
func ConvolveRows(ctx context.Context, src, dst *Image, k kernel.Kernel, r WorkRange, n Narrowing) error {
	for y := r.Start; y < r.End; y++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		convolveRow(src, dst, &k, y, n)
	}
	return nil
}

func convolveRow(src, dst *Image, k *kernel.Kernel, y int, n Narrowing) {
	ys := neighbors(y, src.Height)
	out := dst.Pix[dst.Index(0, y, 0):dst.Index(0, y+1, 0)]
	i := 0
	for x := 0; x < src.Width; x++ {
		xs := neighbors(x, src.Width)
		for c := 0; c < src.Channels; c++ {
			out[i] = n.Narrow(taps(src, &xs, &ys, c, k))
			i++
		}
	}
}

// Options controls ConvolveContext. Workers must be in [1, MaxWorkers]; the zero
// values of Narrowing and Remainder are Wrap and RemainderLast.
type Options struct {
	Workers   int
	Narrowing Narrowing
	Remainder RemainderPolicy
}

// Convolve applies k to src using workers goroutines and returns a new image
// of the same shape. workers must be in [1, MaxWorkers].
func Convolve(src *Image, k kernel.Kernel, workers int) (*Image, error) {
	return ConvolveContext(context.Background(), src, k, Options{Workers: workers})
}

// ConvolveContext is Convolve with cancellation and policy options. One
// goroutine is started per row range, including empty ranges, and all of them
// are joined before returning. Workers check ctx between rows; if it is done
// the partially written destination is discarded and the context error is
// returned.
func ConvolveContext(ctx context.Context, src *Image, k kernel.Kernel, opts Options) (*Image, error) {
	if opts.Workers <= 0 || opts.Workers > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidWorkerCount, opts.Workers, MaxWorkers)
	}
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	ranges, err := Partition(src.Height, opts.Workers, opts.Remainder)
	if err != nil {
		return nil, err
	}
	dst, err := NewImage(src.Width, src.Height, src.Channels)
	if err != nil {
		return nil, err
	}

	log := Logger()
	log.Debug("convolve",
		"width", src.Width,
		"height", src.Height,
		"channels", src.Channels,
		"workers", opts.Workers,
		"narrowing", opts.Narrowing,
		"remainder", opts.Remainder)
	if missing := Uncovered(src.Height, ranges); missing > 0 {
		log.Warn("rows not assigned to any worker; left zero",
			"rows", missing,
			"first", src.Height-missing,
			"height", src.Height,
			"workers", opts.Workers)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		g.Go(func() error {
			return ConvolveRows(gctx, src, dst, k, r, opts.Narrowing)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("convolve: %w", err)
	}
	return dst, nil
}
