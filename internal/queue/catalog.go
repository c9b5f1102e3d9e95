// Package queue holds the static table of batch queues and their capacity limits.
package queue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Spec describes one named queue.
type Spec struct {
	Name           string `mapstructure:"name"`
	CoresPerNode   int    `mapstructure:"cores_per_node"`
	MaxNodes       int    `mapstructure:"max_nodes"`
	MaxCoresPerJob int    `mapstructure:"max_cores_per_job"`
}

// Validate checks that the spec has a name and positive limits.
func (s Spec) Validate() error {
	var result *multierror.Error
	if s.Name == "" {
		result = multierror.Append(result, fmt.Errorf("queue name is empty"))
	}
	if s.CoresPerNode <= 0 {
		result = multierror.Append(result, fmt.Errorf("queue %q: cores_per_node must be positive, got %d", s.Name, s.CoresPerNode))
	}
	if s.MaxNodes <= 0 {
		result = multierror.Append(result, fmt.Errorf("queue %q: max_nodes must be positive, got %d", s.Name, s.MaxNodes))
	}
	if s.MaxCoresPerJob <= 0 {
		result = multierror.Append(result, fmt.Errorf("queue %q: max_cores_per_job must be positive, got %d", s.Name, s.MaxCoresPerJob))
	}
	return result.ErrorOrNil()
}

// Catalog is an immutable set of queue specs keyed by name.
// The zero value is an empty catalog.
type Catalog struct {
	specs map[string]Spec
}

// New builds a catalog, reporting every invalid or duplicate entry at once.
func New(specs ...Spec) (*Catalog, error) {
	var result *multierror.Error
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, dup := m[s.Name]; dup {
			result = multierror.Append(result, fmt.Errorf("queue %q defined more than once", s.Name))
			continue
		}
		m[s.Name] = s
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Catalog{specs: m}, nil
}

// MustNew is like New but panics on error. Only for static tables.
func MustNew(specs ...Spec) *Catalog {
	c, err := New(specs...)
	if err != nil {
		panic(err)
	}
	return c
}

var defaultSpecs = []Spec{
	{Name: "normal", CoresPerNode: 48, MaxNodes: 171, MaxCoresPerJob: 4104},
	{Name: "largemem", CoresPerNode: 32, MaxNodes: 342, MaxCoresPerJob: 8208},
	{Name: "hugemem", CoresPerNode: 20, MaxNodes: 2, MaxCoresPerJob: 40},
	{Name: "development", CoresPerNode: 48, MaxNodes: 11, MaxCoresPerJob: 264},
	{Name: "gpu", CoresPerNode: 10, MaxNodes: 4, MaxCoresPerJob: 40},
	{Name: "largemem512GB", CoresPerNode: 64, MaxNodes: 4, MaxCoresPerJob: 4 * 64},
	{Name: "skx-normal", CoresPerNode: 48, MaxNodes: 128, MaxCoresPerJob: 3072},
}

// Default returns the built-in queue table.
func Default() *Catalog {
	return MustNew(defaultSpecs...)
}

// Lookup returns the spec for name or an *UnknownQueueError. An exact match
// wins; otherwise names are compared case-insensitively.
func (c *Catalog) Lookup(name string) (Spec, error) {
	if c != nil {
		if s, ok := c.specs[name]; ok {
			return s, nil
		}
		for _, known := range c.Names() {
			if strings.EqualFold(known, name) {
				return c.specs[known], nil
			}
		}
	}
	return Spec{}, &UnknownQueueError{Name: name, Known: c.Names()}
}

// Names returns the queue names in sorted order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.specs))
	for name := range c.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns every spec sorted by name.
func (c *Catalog) Specs() []Spec {
	names := c.Names()
	out := make([]Spec, 0, len(names))
	for _, name := range names {
		out = append(out, c.specs[name])
	}
	return out
}

// Len returns the number of queues.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.specs)
}

// With returns a new catalog with the given specs added, replacing any
// existing entries of the same name. The receiver is left untouched.
func (c *Catalog) With(overrides ...Spec) (*Catalog, error) {
	var result *multierror.Error
	merged := make(map[string]Spec, c.Len()+len(overrides))
	if c != nil {
		for name, s := range c.specs {
			merged[name] = s
		}
	}
	for _, s := range overrides {
		if err := s.Validate(); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		merged[s.Name] = s
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Catalog{specs: merged}, nil
}
