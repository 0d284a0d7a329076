package resource

import (
	"sort"
	"strings"
)

// DefaultDelay is the execution delay of a kind the library has no entry for.
const DefaultDelay = 1

// Type is the resource type of an operation: what kind of unit executes it and
// for how many time steps.
type Type struct {
	Kind  string `json:"kind" yaml:"kind"`
	Delay int    `json:"delay" yaml:"delay"`
}

// Library maps operation kinds to their Type.
type Library struct {
	types map[string]Type
}

// NewLibrary creates a library from the given types. Kinds are case-insensitive.
func NewLibrary(types ...Type) *Library {
	l := &Library{types: make(map[string]Type, len(types))}
	for _, t := range types {
		l.Define(t.Kind, t.Delay)
	}
	return l
}

// Define registers or replaces the delay of kind.
func (l *Library) Define(kind string, delay int) {
	k := normalizeKind(kind)
	l.types[k] = Type{Kind: k, Delay: delay}
}

// Lookup returns the Type for kind, falling back to DefaultDelay for unknown kinds.
func (l *Library) Lookup(kind string) Type {
	k := normalizeKind(kind)
	if l != nil {
		if t, ok := l.types[k]; ok {
			return t
		}
	}
	return Type{Kind: k, Delay: DefaultDelay}
}

// Kinds returns the defined kinds in sorted order.
func (l *Library) Kinds() []string {
	out := make([]string, 0, len(l.types))
	for k := range l.types {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Instance is one physical resource able to execute a set of operation kinds.
type Instance struct {
	Name  string
	kinds map[string]struct{}
}

// Executes reports whether the instance can run operations of kind.
func (i Instance) Executes(kind string) bool {
	_, ok := i.kinds[normalizeKind(kind)]
	return ok
}

// Kinds returns the kinds this instance executes, sorted.
func (i Instance) Kinds() []string {
	out := make([]string, 0, len(i.kinds))
	for k := range i.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Constraints is the resource-constraint table: instance name → executable kinds.
// Instances keep their declaration order, which is the order the list scheduler
// offers them work in.
type Constraints struct {
	instances []Instance
	byName    map[string]int
}

// NewConstraints creates an empty constraint table.
func NewConstraints() *Constraints {
	return &Constraints{byName: make(map[string]int)}
}

// Add declares an instance or extends the kinds of an existing one.
func (c *Constraints) Add(name string, kinds ...string) {
	idx, ok := c.byName[name]
	if !ok {
		idx = len(c.instances)
		c.byName[name] = idx
		c.instances = append(c.instances, Instance{Name: name, kinds: make(map[string]struct{})})
	}
	for _, k := range kinds {
		c.instances[idx].kinds[normalizeKind(k)] = struct{}{}
	}
}

// Instances returns all instances in declaration order.
func (c *Constraints) Instances() []Instance {
	return c.instances
}

// Len returns the number of instances.
func (c *Constraints) Len() int {
	return len(c.instances)
}

// Covers reports whether at least one instance executes kind.
func (c *Constraints) Covers(kind string) bool {
	for _, inst := range c.instances {
		if inst.Executes(kind) {
			return true
		}
	}
	return false
}

func normalizeKind(kind string) string {
	return strings.ToUpper(strings.TrimSpace(kind))
}
