package matrixio

import "fmt"

// Dataset is a named, fixed-shape array endpoint inside a container.
type Dataset struct {
	c      *Container
	name   string
	dims   []int
	closed bool
}

// OpenDataset opens an existing dataset by name, including any group
// prefix. Opening is not collective and performs no shape validation;
// Read validates shape on every call.
func (c *Container) OpenDataset(name string) (*Dataset, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	lens := c.cf.Header.Lengths(name)
	if lens == nil || name == schemaVar {
		return nil, fmt.Errorf("%w: dataset %q", ErrNotFound, name)
	}
	c.handles++
	return &Dataset{c: c, name: name, dims: lens}, nil
}

// Name returns the dataset's full name within the container.
func (d *Dataset) Name() string { return d.name }

// Rank returns the number of axes.
func (d *Dataset) Rank() int { return len(d.dims) }

// Dims returns a copy of the per-axis extents.
func (d *Dataset) Dims() []int {
	return append([]int(nil), d.dims...)
}

// NumElements returns the total number of elements.
func (d *Dataset) NumElements() int {
	return product(d.dims)
}

// Description returns the dataset's description, if one was recorded.
func (d *Dataset) Description() (string, bool) {
	s, ok := d.c.cf.Header.GetAttribute(d.name, "description").(string)
	return s, ok && s != ""
}

// Close releases the dataset handle. Closing is not collective.
func (d *Dataset) Close() error {
	if d.closed {
		return fmt.Errorf("%w: dataset %q", ErrClosed, d.name)
	}
	d.closed = true
	d.c.handles--
	return nil
}

// ReadFloat64 reads the entire dataset contiguously, converting from
// single precision if necessary.
func (d *Dataset) ReadFloat64() ([]float64, error) {
	if err := d.checkUsable(); err != nil {
		return nil, err
	}
	n := d.NumElements()
	r := d.c.cf.Reader(d.name, nil, nil)
	buf := r.Zero(n)
	nr, err := r.Read(buf)
	if err := checkTransfer(nr, n, err); err != nil {
		return nil, fmt.Errorf("%w: reading dataset %q: %w", ErrResource, d.name, err)
	}
	switch v := buf.(type) {
	case []float64:
		return v, nil
	case []float32:
		out := make([]float64, len(v))
		for i, x := range v {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: dataset %q does not hold floating-point elements",
		ErrValidation, d.name)
}

func (d *Dataset) checkUsable() error {
	if err := d.c.checkOpen(); err != nil {
		return err
	}
	if d.closed {
		return fmt.Errorf("%w: dataset %q", ErrClosed, d.name)
	}
	return nil
}

// Read reads one hyperslab of the named dataset into values, validating
// the stored shape before any data is transferred. dims declares the
// expected full extents; its rank and every extent except dims[0] must
// match what is stored. Axis 0 is the distribution axis: localDim0 rows
// starting at global row localDim0Start are read, all other axes in
// full. values is laid out as on the write path, with the last axis
// expanded by stride; only every stride-th slot is written and the slots
// in between are left untouched. On a validation error values is not
// modified.
func (c *Container) Read(name string, dims []int, localDim0, localDim0Start, stride int, values interface{}) error {
	d, err := c.OpenDataset(name)
	if err != nil {
		return err
	}
	defer d.Close()

	stored := d.dims
	if len(dims) == 0 {
		return fmt.Errorf("%w: dataset %q: expected rank must be positive", ErrValidation, name)
	}
	if len(dims) != len(stored) {
		return fmt.Errorf("%w: dataset %q: expected rank %d, stored rank %d",
			ErrValidation, name, len(dims), len(stored))
	}
	for i := 1; i < len(stored); i++ {
		if dims[i] != stored[i] {
			return fmt.Errorf("%w: dataset %q: expected extent %d on axis %d, stored %d",
				ErrValidation, name, dims[i], i, stored[i])
		}
	}
	if localDim0 <= 0 {
		return fmt.Errorf("%w: dataset %q: local extent %d on axis 0 must be positive",
			ErrValidation, name, localDim0)
	}
	if localDim0Start < 0 || localDim0Start+localDim0 > stored[0] {
		return fmt.Errorf("%w: dataset %q: rows %d..%d exceed extent %d on axis 0",
			ErrValidation, name, localDim0Start, localDim0Start+localDim0, stored[0])
	}
	if stride < 1 {
		stride = 1
	}
	p, err := c.datasetPrecision(name)
	if err != nil {
		return err
	}
	if !matchesPrecision(values, p) {
		return fmt.Errorf("%w: dataset %q: buffer type %T does not match %s precision elements",
			ErrValidation, name, values, p)
	}
	n := localDim0 * product(stored[1:])
	if valueLen(values) < n*stride {
		return fmt.Errorf("%w: dataset %q: buffer holds %d elements, selection requires %d",
			ErrValidation, name, valueLen(values), n*stride)
	}

	begin := make([]int, len(stored))
	begin[0] = localDim0Start
	r := c.cf.Reader(name, begin, nil)
	if stride == 1 {
		nr, err := r.Read(subslice(values, 0, n))
		if err := checkTransfer(nr, n, err); err != nil {
			return fmt.Errorf("%w: reading dataset %q: %w", ErrResource, name, err)
		}
		return nil
	}
	tmp := r.Zero(n)
	nr, err := r.Read(tmp)
	if err := checkTransfer(nr, n, err); err != nil {
		return fmt.Errorf("%w: reading dataset %q: %w", ErrResource, name, err)
	}
	scatter(values, tmp, stride)
	return nil
}

// datasetPrecision reports the stored element precision of a dataset.
func (c *Container) datasetPrecision(name string) (Precision, error) {
	switch c.cf.Header.ZeroValue(name, 0).(type) {
	case []float32:
		return Single, nil
	case []float64:
		return Double, nil
	}
	return Double, fmt.Errorf("%w: dataset %q does not hold floating-point elements",
		ErrValidation, name)
}
