package matrixio

import (
	"errors"
	"fmt"
	"io"
)

// valueLen returns the element count of a []float32 or []float64, or -1
// for any other type.
func valueLen(values interface{}) int {
	switch v := values.(type) {
	case []float32:
		return len(v)
	case []float64:
		return len(v)
	}
	return -1
}

// matchesPrecision reports whether values is a slice of p's element type.
func matchesPrecision(values interface{}, p Precision) bool {
	switch values.(type) {
	case []float32:
		return p == Single
	case []float64:
		return p == Double
	}
	return false
}

// subslice returns values[base : base+n] with the dynamic type preserved.
func subslice(values interface{}, base, n int) interface{} {
	switch v := values.(type) {
	case []float32:
		return v[base : base+n]
	case []float64:
		return v[base : base+n]
	}
	panic(fmt.Sprintf("matrixio: unsupported buffer type %T", values))
}

// gather copies n elements spaced stride apart starting at base out of
// values into a fresh contiguous slice of the same element type.
func gather(values interface{}, base, n, stride int) interface{} {
	switch v := values.(type) {
	case []float32:
		out := make([]float32, n)
		for i := range out {
			out[i] = v[base+i*stride]
		}
		return out
	case []float64:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[base+i*stride]
		}
		return out
	}
	panic(fmt.Sprintf("matrixio: unsupported buffer type %T", values))
}

// scatter copies src into values, spacing elements stride apart starting
// at index 0. Slots between selected elements are left untouched.
func scatter(values, src interface{}, stride int) {
	switch v := values.(type) {
	case []float32:
		for i, x := range src.([]float32) {
			v[i*stride] = x
		}
	case []float64:
		for i, x := range src.([]float64) {
			v[i*stride] = x
		}
	default:
		panic(fmt.Sprintf("matrixio: unsupported buffer type %T", values))
	}
}

// checkTransfer normalizes a cdf transfer result. The cdf strider
// reports io.EOF when a transfer ends exactly at the variable's last
// byte, so a complete transfer is not an error.
func checkTransfer(n, want int, err error) error {
	if err != nil && (!errors.Is(err, io.EOF) || n != want) {
		return err
	}
	if n != want {
		return fmt.Errorf("short transfer: %d of %d elements", n, want)
	}
	return nil
}
