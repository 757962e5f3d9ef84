package sdos

import (
	"fmt"

	"github.com/hwz0428/mpb/matrixio"
)

// OverlapProducer supplies the band-overlap tensor for a band range and
// a rectangular range of reciprocal-lattice indices. The returned slice
// has shape [nG x numBands] in row-major order, where nG is the number
// of requested G-vectors enumerated in row-major (G1, G2, G3) order.
type OverlapProducer interface {
	Overlap(bandMin, numBands int, gMin, gMax [3]int) ([]complex128, error)
}

// CountGVectors returns the number of G-vectors in the inclusive index
// ranges [gMin[k], gMax[k]]. Every range must be non-decreasing.
func CountGVectors(gMin, gMax [3]int) (int, error) {
	n := 1
	for k := 0; k < 3; k++ {
		if gMin[k] > gMax[k] {
			return 0, fmt.Errorf("%w: G index range %d..%d on axis %d is not monotonic",
				matrixio.ErrValidation, gMin[k], gMax[k], k)
		}
		n *= gMax[k] - gMin[k] + 1
	}
	return n, nil
}

// FoldIndex maps a signed reciprocal-lattice index onto an FFT-ordered
// axis of length n: non-positive indices fold to -i, positive ones wrap
// to n-i.
func FoldIndex(i, n int) int {
	if i <= 0 {
		return -i
	}
	return n - i
}

// GridOffset returns the row-major offset of grid position (ix, iy, iz)
// on an FFT grid whose trailing axes have lengths ny and nz.
func GridOffset(ix, iy, iz, ny, nz int) int {
	return (ix*ny+iy)*nz + iz
}

// GridOffsets enumerates the FFT-grid offsets of the G-vectors in the
// inclusive ranges [gMin, gMax], in row-major order, for a grid of size
// n. Each requested index must fold onto the grid: on every axis the
// range must satisfy gMin > -n/2 and gMax <= n/2, except for a
// degenerate single-point axis.
func GridOffsets(gMin, gMax, n [3]int) ([]int, error) {
	nG, err := CountGVectors(gMin, gMax)
	if err != nil {
		return nil, err
	}
	for k := 0; k < 3; k++ {
		if !axisInBounds(gMin[k], gMax[k], n[k]) {
			return nil, fmt.Errorf("%w: G indices %d..%d out of bounds for grid axis %d of length %d",
				matrixio.ErrValidation, gMin[k], gMax[k], k, n[k])
		}
	}
	offs := make([]int, 0, nG)
	for i1 := gMin[0]; i1 <= gMax[0]; i1++ {
		ix := FoldIndex(i1, n[0])
		for i2 := gMin[1]; i2 <= gMax[1]; i2++ {
			iy := FoldIndex(i2, n[1])
			for i3 := gMin[2]; i3 <= gMax[2]; i3++ {
				offs = append(offs, GridOffset(ix, iy, FoldIndex(i3, n[2]), n[1], n[2]))
			}
		}
	}
	return offs, nil
}

func axisInBounds(min, max, n int) bool {
	if min > -(n/2) && max <= n/2 {
		return true
	}
	return n == 1 && min == 0 && max == 0
}
