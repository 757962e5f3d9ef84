package matrixio

import (
	"fmt"
	"strings"
)

// Group is a named namespace node inside a container. The NetCDF classic
// format has no group objects, so a group is a logical path prefix: a
// dataset created under the group "fields" is stored as the variable
// "fields/name". A group's existence and its optional description are
// recorded as global attributes keyed by the group path.
type Group struct {
	c      *Container
	path   string
	closed bool
}

const (
	groupMarkerSuffix = "@group"
	groupDescSuffix   = "@description"
)

// CreateGroup creates a namespace node shared by the container's worker
// group. The call is collective: the coordinator records the node and
// publishes it, every participant synchronizes at the barrier, and the
// followers then open the node. Exactly one creation happens per call
// regardless of group size. The description is recorded once, by the
// coordinator; an empty description is skipped.
func (c *Container) CreateGroup(name, description string) (*Group, error) {
	return c.createGroup("", name, description)
}

// CreateGroup creates a nested namespace node under g. Collective, with
// the same protocol as Container.CreateGroup.
func (g *Group) CreateGroup(name, description string) (*Group, error) {
	if g.closed {
		return nil, fmt.Errorf("%w: group %q", ErrClosed, g.path)
	}
	return g.c.createGroup(g.path, name, description)
}

func (c *Container) createGroup(parent, name, description string) (*Group, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.writable {
		return nil, fmt.Errorf("%w: creating group %q", ErrReadOnly, name)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: group name must not be empty", ErrValidation)
	}
	if strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: group name %q must not contain '/'", ErrValidation, name)
	}
	path := name
	if parent != "" {
		path = parent + "/" + name
	}
	// Validation runs identically on every participant before any of
	// them reaches the barrier, so an invalid call fails everywhere
	// instead of deadlocking the group.
	if c.groupExists(path) {
		return nil, fmt.Errorf("%w: group %q already exists", ErrValidation, path)
	}

	// All participants quiesce before the header rewrite relocates the
	// data region; writes from the previous epoch must have landed.
	c.group.Barrier()
	if c.group.IsCoordinator() {
		attrs := []attrDef{{path + groupMarkerSuffix, name}}
		if description != "" {
			attrs = append(attrs, attrDef{path + groupDescSuffix, description})
		}
		if err := c.redefine(nil, attrs); err != nil {
			return nil, err
		}
		if err := c.publish(); err != nil {
			return nil, err
		}
	} else if err := c.await(); err != nil {
		return nil, err
	}
	c.handles++
	return &Group{c: c, path: path}, nil
}

// OpenGroup opens an existing namespace node by its full path. Opening
// is not collective.
func (c *Container) OpenGroup(path string) (*Group, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if !c.groupExists(path) {
		return nil, fmt.Errorf("%w: group %q", ErrNotFound, path)
	}
	c.handles++
	return &Group{c: c, path: path}, nil
}

func (c *Container) groupExists(path string) bool {
	return c.cf.Header.GetAttribute("", path+groupMarkerSuffix) != nil
}

// Path returns the group's full path within the container.
func (g *Group) Path() string { return g.path }

// Name returns the last component of the group's path.
func (g *Group) Name() string {
	if i := strings.LastIndex(g.path, "/"); i >= 0 {
		return g.path[i+1:]
	}
	return g.path
}

// Description returns the group's description, if one was recorded.
func (g *Group) Description() (string, bool) {
	s, ok := g.c.cf.Header.GetAttribute("", g.path+groupDescSuffix).(string)
	return s, ok && s != ""
}

// CreateDataset creates a dataset inside the group. Collective, with the
// same protocol as Container.CreateDataset.
func (g *Group) CreateDataset(name, description string, dims []int) (*Dataset, error) {
	if g.closed {
		return nil, fmt.Errorf("%w: group %q", ErrClosed, g.path)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: dataset name must not be empty", ErrValidation)
	}
	return g.c.createDataset(g.path+"/"+name, description, dims)
}

// OpenDataset opens an existing dataset inside the group.
func (g *Group) OpenDataset(name string) (*Dataset, error) {
	if g.closed {
		return nil, fmt.Errorf("%w: group %q", ErrClosed, g.path)
	}
	return g.c.OpenDataset(g.path + "/" + name)
}

// Close releases the group handle. Closing is not collective.
func (g *Group) Close() error {
	if g.closed {
		return fmt.Errorf("%w: group %q", ErrClosed, g.path)
	}
	g.closed = true
	g.c.handles--
	return nil
}
