package matrixio

import "fmt"

// selection maps a local in-memory buffer onto a rectangular region of a
// dataset's global index space. start and count give the hyperslab's
// per-axis offset and extent. stride is the memory stride along the
// innermost axis: the buffer's last axis spans count[last]*stride slots
// of which every stride-th one participates in the transfer, so element
// k of the selection lives at buffer index k*stride.
type selection struct {
	start  []int
	count  []int
	stride int
}

func newSelection(start, count []int, stride int) selection {
	if stride < 1 {
		stride = 1
	}
	return selection{start: start, count: count, stride: stride}
}

// validate checks the selection against the dataset's stored extents.
func (s selection) validate(extents []int) error {
	if len(s.count) == 0 {
		return fmt.Errorf("%w: selection rank must be positive", ErrValidation)
	}
	if len(s.count) != len(extents) {
		return fmt.Errorf("%w: selection rank %d does not match dataset rank %d",
			ErrValidation, len(s.count), len(extents))
	}
	if len(s.start) != len(s.count) {
		return fmt.Errorf("%w: selection start has rank %d, extents have rank %d",
			ErrValidation, len(s.start), len(s.count))
	}
	for i := range s.count {
		if s.count[i] <= 0 {
			return fmt.Errorf("%w: selection extent %d on axis %d must be positive",
				ErrValidation, s.count[i], i)
		}
		if s.start[i] < 0 || s.start[i]+s.count[i] > extents[i] {
			return fmt.Errorf("%w: selection %d..%d exceeds extent %d on axis %d",
				ErrValidation, s.start[i], s.start[i]+s.count[i], extents[i], i)
		}
	}
	return nil
}

// numElements returns the number of dataset elements the selection covers.
func (s selection) numElements() int {
	return product(s.count)
}

// bufferLen returns the minimum buffer length the selection requires,
// accounting for the expanded last axis.
func (s selection) bufferLen() int {
	return s.numElements() * s.stride
}

// rows returns the number of contiguous runs in the dataset's index
// space; each run spans count[last] elements along the innermost axis.
func (s selection) rows() int {
	return product(s.count[:len(s.count)-1])
}

// rowStart returns the global corner of run row, enumerating the leading
// axes in row-major order.
func (s selection) rowStart(row int) []int {
	rank := len(s.count)
	corner := make([]int, rank)
	rem := row
	for i := rank - 2; i >= 0; i-- {
		corner[i] = s.start[i] + rem%s.count[i]
		rem /= s.count[i]
	}
	corner[rank-1] = s.start[rank-1]
	return corner
}

func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
