package stdimg

import (
	"errors"
	"fmt"
)

// MaxWorkers bounds the worker count. Every worker costs a range and a
// goroutine even when its range is empty.
const MaxWorkers = 1 << 16

// ErrInvalidWorkerCount is returned when the worker count is below 1 or
// above MaxWorkers.
var ErrInvalidWorkerCount = errors.New("stdimg: worker count out of range")

// WorkRange is a half-open interval of rows [Start, End) owned by one worker.
type WorkRange struct {
	Start int
	End   int
}

// Len returns the number of rows in r.
func (r WorkRange) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// RemainderPolicy decides what happens to the height%workers rows left over
// by integer division.
type RemainderPolicy int

const (
	// RemainderLast extends the final range to the last row, so the ranges
	// cover every row exactly once.
	RemainderLast RemainderPolicy = iota
	// RemainderDrop leaves the leftover rows unassigned. Those destination
	// rows stay zero. Kept for output compatibility with the pthreads tool
	// this engine replaces.
	RemainderDrop
)

func (p RemainderPolicy) String() string {
	switch p {
	case RemainderLast:
		return "last"
	case RemainderDrop:
		return "drop"
	default:
		return fmt.Sprintf("RemainderPolicy(%d)", int(p))
	}
}

// ParseRemainderPolicy accepts "last" or "drop".
func ParseRemainderPolicy(s string) (RemainderPolicy, error) {
	switch s {
	case "last", "":
		return RemainderLast, nil
	case "drop":
		return RemainderDrop, nil
	}
	return 0, fmt.Errorf("unknown remainder policy %q (want last or drop)", s)
}

// Partition splits [0, height) into exactly workers contiguous ranges of
// height/workers rows each. Worker i gets [i*q, (i+1)*q). When workers exceeds
// height some ranges are empty, which is legal.
func Partition(height, workers int, policy RemainderPolicy) ([]WorkRange, error) {
	if workers <= 0 || workers > MaxWorkers {
		return nil, fmt.Errorf("%w: got %d, want 1..%d", ErrInvalidWorkerCount, workers, MaxWorkers)
	}
	if height < 0 {
		return nil, fmt.Errorf("%w: negative height %d", ErrInvalidImage, height)
	}
	q := height / workers
	ranges := make([]WorkRange, workers)
	for i := range ranges {
		ranges[i] = WorkRange{Start: i * q, End: (i + 1) * q}
	}
	if policy == RemainderLast {
		ranges[workers-1].End = height
	}
	return ranges, nil
}

// Uncovered returns how many rows of [0, height) fall outside every range.
func Uncovered(height int, ranges []WorkRange) int {
	covered := 0
	for _, r := range ranges {
		covered += r.Len()
	}
	return height - covered
}
