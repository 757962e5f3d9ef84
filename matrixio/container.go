package matrixio

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"

	"github.com/hwz0428/mpb/comm"
)

// schemaVar is a hidden bookkeeping variable present in every container.
// The NetCDF classic header cannot be defined without at least one
// variable, so creation seeds this one-element placeholder; it is
// filtered out of Datasets and cannot be opened or redefined by name.
const schemaVar = "@schema"

// Container is one worker's handle on a NetCDF container file. In a
// collective deployment every worker holds its own Container on the same
// path; structural operations (Create, CreateGroup, CreateDataset) are
// performed by the group's coordinator between barriers: one where all
// participants quiesce before the header moves, one releasing the
// followers to re-open the header, and one holding the coordinator back
// until they all have. Data transfers between structural operations
// target disjoint file regions and need no synchronization.
type Container struct {
	path      string
	file      *os.File
	cf        *cdf.File
	group     comm.Group
	precision Precision
	writable  bool
	closed    bool
	handles   int
}

// Create creates a new container, truncating any existing file after
// filename normalization. The call is collective: the coordinator
// creates and initializes the file, flushes it, and releases the
// barrier; the other group members then open the same file. Exactly one
// file creation happens regardless of group size.
func Create(path string, opts ...Option) (*Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	name := NormalizeName(path)
	c := &Container{
		path:      name,
		group:     o.group,
		precision: o.precision,
		writable:  true,
	}
	if o.group.IsCoordinator() {
		f, err := os.Create(name)
		if err != nil {
			return nil, fmt.Errorf("%w: creating container %s: %w", ErrResource, name, err)
		}
		h := cdf.NewHeader([]string{schemaVar + "_d0"}, []int{1})
		h.AddVariable(schemaVar, []string{schemaVar + "_d0"}, []int32{})
		h.Define()
		cf, err := cdf.Create(f, h)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: initializing container %s: %w", ErrResource, name, err)
		}
		if err := cf.Fill(schemaVar); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: initializing container %s: %w", ErrResource, name, err)
		}
		c.file, c.cf = f, cf
		if err := c.Flush(); err != nil {
			f.Close()
			return nil, err
		}
		o.group.Barrier()
		o.group.Barrier()
		return c, nil
	}

	o.group.Barrier()
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		o.group.Barrier()
		return nil, fmt.Errorf("%w: opening container %s: %w", ErrResource, name, err)
	}
	cf, err := cdf.Open(f)
	o.group.Barrier()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading container header %s: %w", ErrResource, name, err)
	}
	c.file, c.cf = f, cf
	return c, nil
}

// Open opens an existing container read-only after filename
// normalization. Opening is not collective; any worker may open a
// container independently.
func Open(path string, opts ...Option) (*Container, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	name := NormalizeName(path)
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: opening container %s: %w", ErrResource, name, err)
	}
	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: reading container header %s: %w", ErrResource, name, err)
	}
	return &Container{
		path:      name,
		file:      f,
		cf:        cf,
		group:     o.group,
		precision: o.precision,
	}, nil
}

// Path returns the container's normalized file path.
func (c *Container) Path() string { return c.path }

// Precision returns the element precision used for writes.
func (c *Container) Precision() Precision { return c.precision }

// Datasets returns the names of all datasets in the container, group
// prefixes included, in definition order.
func (c *Container) Datasets() []string {
	var names []string
	for _, v := range c.cf.Header.Variables() {
		if v != schemaVar {
			names = append(names, v)
		}
	}
	return names
}

// Flush forces buffered state to stable storage.
func (c *Container) Flush() error {
	if err := c.checkOpen(); err != nil {
		return err
	}
	if err := c.file.Sync(); err != nil {
		return fmt.Errorf("%w: flushing container %s: %w", ErrResource, c.path, err)
	}
	return nil
}

// Close releases the container handle. Every group or dataset handle
// opened from the container must be closed first; a leaked handle is
// reported as a resource error. Closing is not collective.
func (c *Container) Close() error {
	if c.closed {
		return fmt.Errorf("%w: container %s", ErrClosed, c.path)
	}
	c.closed = true
	if c.handles != 0 {
		c.file.Close()
		return fmt.Errorf("%w: closing container %s: %d child handles still open",
			ErrResource, c.path, c.handles)
	}
	if c.writable {
		if err := c.file.Sync(); err != nil {
			c.file.Close()
			return fmt.Errorf("%w: flushing container %s: %w", ErrResource, c.path, err)
		}
	}
	if err := c.file.Close(); err != nil {
		return fmt.Errorf("%w: closing container %s: %w", ErrResource, c.path, err)
	}
	return nil
}

func (c *Container) checkOpen() error {
	if c.closed {
		return fmt.Errorf("%w: container %s", ErrClosed, c.path)
	}
	return nil
}

// refresh re-reads the header from disk, picking up definitions the
// coordinator published since this worker last looked.
func (c *Container) refresh() error {
	cf, err := cdf.Open(c.file)
	if err != nil {
		return fmt.Errorf("%w: refreshing container header %s: %w", ErrResource, c.path, err)
	}
	c.cf = cf
	return nil
}

// publish flushes the coordinator's structural change, releases the
// followers to re-read the header, and waits until they all have. The
// closing barrier keeps the coordinator's next header rewrite from
// racing a follower that is still reopening this one.
func (c *Container) publish() error {
	if err := c.Flush(); err != nil {
		return err
	}
	c.group.Barrier()
	c.group.Barrier()
	return nil
}

// await is the follower half of a collective structural operation.
func (c *Container) await() error {
	c.group.Barrier()
	err := c.refresh()
	c.group.Barrier()
	return err
}
