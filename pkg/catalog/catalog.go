// Package catalog holds the versioned, declarative list of functions the
// model may ask the coach to invoke. A Catalog is immutable once built and
// safe for concurrent use: descriptors are copied in and handed out as
// copies.
package catalog

import (
	"fmt"
	"strings"

	cerrors "github.com/blueberrycongee/llmcoach/pkg/errors"
)

// Descriptor describes one callable function.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

// Catalog is an ordered, name-indexed set of descriptors.
type Catalog struct {
	version string
	list    []Descriptor
	index   map[string]int
}

// New builds a catalog. Empty or duplicate names are configuration errors.
func New(version string, descs ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		version: version,
		list:    make([]Descriptor, 0, len(descs)),
		index:   make(map[string]int, len(descs)),
	}
	for i, d := range descs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, cerrors.NewConfigurationError(fmt.Sprintf("catalog %s: descriptor %d has no name", version, i), nil)
		}
		if _, dup := c.index[name]; dup {
			return nil, cerrors.NewConfigurationError(fmt.Sprintf("catalog %s: duplicate function %q", version, name), nil)
		}
		if d.Parameters.Type == "" {
			d.Parameters.Type = TypeObject
		}
		d = d.Clone()
		d.Name = name
		c.index[name] = len(c.list)
		c.list = append(c.list, d)
	}
	return c, nil
}

// MustNew is like New but panics on error. Intended for package-level catalogs.
func MustNew(version string, descs ...Descriptor) *Catalog {
	c, err := New(version, descs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Version returns the catalog version. Entries are not versioned individually.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of functions.
func (c *Catalog) Len() int { return len(c.list) }

// Lookup returns the descriptor registered under name.
func (c *Catalog) Lookup(name string) (Descriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.list[i].Clone(), true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// List returns deep copies of the descriptors in declaration order.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, len(c.list))
	for i, d := range c.list {
		out[i] = d.Clone()
	}
	return out
}

// Names returns the function names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.list))
	for i, d := range c.list {
		out[i] = d.Name
	}
	return out
}
