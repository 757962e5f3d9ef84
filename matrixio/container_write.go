package matrixio

import (
	"fmt"

	"github.com/ctessum/cdf"
)

// varDef describes a dataset to add during a header redefinition.
type varDef struct {
	name        string
	dims        []int
	description string
}

// attrDef is one attribute captured from or destined for the header.
type attrDef struct {
	name  string
	value interface{}
}

// savedVar is a snapshot of an existing dataset taken before a header
// rewrite.
type savedVar struct {
	name  string
	dims  []int
	data  interface{}
	attrs []attrDef
}

// redefine rebuilds the container header with the given dataset and
// global attributes added, then rewrites the data region. The NetCDF
// classic format keeps the whole schema in a header that precedes all
// data, so adding a definition shifts every data offset; existing
// datasets are read into memory and written back at their new offsets,
// mirroring netCDF's own redef/enddef data move. Either add or
// globalAttrs may be nil. Coordinator only.
func (c *Container) redefine(add *varDef, globalAttrs []attrDef) error {
	old := c.cf.Header
	names := old.Variables()
	saved := make([]savedVar, 0, len(names))
	for _, v := range names {
		lens := old.Lengths(v)
		n := product(lens)
		r := c.cf.Reader(v, nil, nil)
		buf := r.Zero(n)
		nr, err := r.Read(buf)
		if err := checkTransfer(nr, n, err); err != nil {
			return fmt.Errorf("%w: preserving dataset %q: %w", ErrResource, v, err)
		}
		var attrs []attrDef
		for _, a := range old.Attributes(v) {
			attrs = append(attrs, attrDef{a, old.GetAttribute(v, a)})
		}
		saved = append(saved, savedVar{name: v, dims: lens, data: buf, attrs: attrs})
	}

	// Dimensions are regenerated one set per dataset; sharing dimension
	// objects between datasets buys nothing here.
	var dimNames []string
	var dimLens []int
	addDims := func(name string, lens []int) []string {
		ds := make([]string, len(lens))
		for i, l := range lens {
			ds[i] = fmt.Sprintf("%s_d%d", name, i)
			dimNames = append(dimNames, ds[i])
			dimLens = append(dimLens, l)
		}
		return ds
	}

	type pendingVar struct {
		name string
		dims []string
	}
	pending := make([]pendingVar, len(saved))
	for i, sv := range saved {
		pending[i] = pendingVar{sv.name, addDims(sv.name, sv.dims)}
	}
	var addedDims []string
	if add != nil {
		addedDims = addDims(add.name, add.dims)
	}

	h := cdf.NewHeader(dimNames, dimLens)
	for i, sv := range saved {
		h.AddVariable(sv.name, pending[i].dims, sv.data)
		for _, a := range sv.attrs {
			h.AddAttribute(sv.name, a.name, a.value)
		}
	}
	if add != nil {
		h.AddVariable(add.name, addedDims, c.precision.zero(0))
		if add.description != "" {
			h.AddAttribute(add.name, "description", add.description)
		}
	}
	for _, a := range old.Attributes("") {
		h.AddAttribute("", a, old.GetAttribute("", a))
	}
	for _, a := range globalAttrs {
		h.AddAttribute("", a.name, a.value)
	}
	h.Define()

	cf, err := cdf.Create(c.file, h)
	if err != nil {
		return fmt.Errorf("%w: rewriting container header %s: %w", ErrResource, c.path, err)
	}
	c.cf = cf
	for _, sv := range saved {
		n := product(sv.dims)
		w := cf.Writer(sv.name, nil, nil)
		nw, err := w.Write(sv.data)
		if err := checkTransfer(nw, n, err); err != nil {
			return fmt.Errorf("%w: restoring dataset %q: %w", ErrResource, sv.name, err)
		}
	}
	if add != nil {
		if err := cf.Fill(add.name); err != nil {
			return fmt.Errorf("%w: filling dataset %q: %w", ErrResource, add.name, err)
		}
	}
	return nil
}
