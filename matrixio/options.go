package matrixio

import "github.com/hwz0428/mpb/comm"

// Precision selects the floating-point element type used by every
// dataset in a container. It is fixed for the container's lifetime;
// mixing element types within one container is not supported.
type Precision int

const (
	// Double stores float64 elements. This is the default.
	Double Precision = iota
	// Single stores float32 elements.
	Single
)

func (p Precision) String() string {
	if p == Single {
		return "single"
	}
	return "double"
}

// zero returns a zeroed slice of the precision's element type.
func (p Precision) zero(n int) interface{} {
	if p == Single {
		return make([]float32, n)
	}
	return make([]float64, n)
}

// Option configures container creation and opening.
type Option func(*options)

type options struct {
	precision Precision
	group     comm.Group
}

func defaultOptions() *options {
	return &options{
		precision: Double,
		group:     comm.Self(),
	}
}

// WithPrecision sets the container-wide element precision.
func WithPrecision(p Precision) Option {
	return func(o *options) {
		o.precision = p
	}
}

// WithGroup configures collective access by a worker group. Every
// member of the group must open the container with its own handle and
// make the same sequence of Create, CreateGroup, and CreateDataset
// calls; those operations synchronize at the group's barrier.
func WithGroup(g comm.Group) Option {
	return func(o *options) {
		o.group = g
	}
}
