package matrixio

import "fmt"

// CreateDataset creates a named fixed-shape dataset at the container
// root. The call is collective: validation runs on every participant,
// then the coordinator adds the definition, fills the dataset with fill
// values, and publishes the new header; followers pick it up after the
// barrier. The description is recorded once, by the coordinator; an
// empty description is skipped.
func (c *Container) CreateDataset(name, description string, dims []int) (*Dataset, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name must not be empty", ErrValidation)
	}
	return c.createDataset(name, description, dims)
}

func (c *Container) createDataset(name, description string, dims []int) (*Dataset, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.writable {
		return nil, fmt.Errorf("%w: creating dataset %q", ErrReadOnly, name)
	}
	if name == schemaVar {
		return nil, fmt.Errorf("%w: dataset name %q is reserved", ErrValidation, name)
	}
	if len(dims) == 0 {
		return nil, fmt.Errorf("%w: dataset %q: rank must be positive", ErrValidation, name)
	}
	for i, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("%w: dataset %q: extent %d on axis %d must be positive",
				ErrValidation, name, d, i)
		}
	}
	// Validation runs identically on every participant before any of
	// them reaches the barrier, so an invalid call fails everywhere
	// instead of deadlocking the group.
	if c.cf.Header.Lengths(name) != nil {
		return nil, fmt.Errorf("%w: dataset %q already exists", ErrValidation, name)
	}

	// All participants quiesce before the header rewrite relocates the
	// data region; writes from the previous epoch must have landed.
	c.group.Barrier()
	if c.group.IsCoordinator() {
		def := &varDef{name: name, dims: dims, description: description}
		if err := c.redefine(def, nil); err != nil {
			return nil, err
		}
		if err := c.publish(); err != nil {
			return nil, err
		}
	} else if err := c.await(); err != nil {
		return nil, err
	}
	c.handles++
	return &Dataset{c: c, name: name, dims: append([]int(nil), dims...)}, nil
}

// Write transfers one hyperslab from values into the dataset. localDims
// and localStart give the extent and global offset of the region this
// worker contributes. stride is the memory stride along the buffer's
// innermost axis (stride <= 1 means contiguous): the buffer's last axis
// spans localDims[last]*stride slots of which every stride-th one is
// transferred, so interleaved channels can be written with separate
// calls. Elements correspond in row-major order. Writing is not
// collective; callers must partition the global index space disjointly,
// since overlapping writes are not detected.
func (d *Dataset) Write(localDims, localStart []int, stride int, values interface{}) error {
	if err := d.checkUsable(); err != nil {
		return err
	}
	if !d.c.writable {
		return fmt.Errorf("%w: writing dataset %q", ErrReadOnly, d.name)
	}
	sel := newSelection(localStart, localDims, stride)
	if err := sel.validate(d.dims); err != nil {
		return fmt.Errorf("dataset %q: %w", d.name, err)
	}
	if !matchesPrecision(values, d.c.precision) {
		return fmt.Errorf("%w: dataset %q: buffer type %T does not match %s precision elements",
			ErrValidation, d.name, values, d.c.precision)
	}
	if valueLen(values) < sel.bufferLen() {
		return fmt.Errorf("%w: dataset %q: buffer holds %d elements, selection requires %d",
			ErrValidation, d.name, valueLen(values), sel.bufferLen())
	}

	last := sel.count[len(sel.count)-1]
	for row := 0; row < sel.rows(); row++ {
		base := row * last * sel.stride
		var chunk interface{}
		if sel.stride > 1 {
			chunk = gather(values, base, last, sel.stride)
		} else {
			chunk = subslice(values, base, last)
		}
		w := d.c.cf.Writer(d.name, sel.rowStart(row), nil)
		n, err := w.Write(chunk)
		if err := checkTransfer(n, last, err); err != nil {
			return fmt.Errorf("%w: writing dataset %q: %w", ErrResource, d.name, err)
		}
	}
	return nil
}
