package ops

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
)

// Class is the published contract of an operator type. A new operator is admitted by
// building a Class with its category, parameters, IO types, restrictions and kernel;
// Register makes it resolvable by name when parsing documents.
type Class struct {
	Name     string
	Category Category
	// ColumnAgnostic classes may be used without a bound column.
	ColumnAgnostic bool

	Parameters       []Parameter
	InputOutputTypes []IOType
	// RestrictedTags disqualify a column carrying any of them.
	RestrictedTags []string
	// RequiredTags, when non-empty, require the column to carry at least one of them.
	RequiredTags []string
	// RestrictedOps names operator classes this one must not be paired with.
	RestrictedOps []string

	Describe  func(o *Op) string
	Filter    func(o *Op, f *frame.Frame) (*frame.Frame, error)
	Transform func(o *Op, f *frame.Frame) (*frame.Frame, error)
	Aggregate func(o *Op, f *frame.Frame) (any, error)
}

// New returns an operator of this class bound to column ("" for unbound).
func (c *Class) New(column string) *Op {
	return &Op{class: c, column: column}
}

func (c *Class) parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Restricts reports whether either class names the other in its RestrictedOps.
func Restricts(a, b *Class) bool {
	return slices.Contains(a.RestrictedOps, b.Name) || slices.Contains(b.RestrictedOps, a.Name)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Class)
)

// Register makes a class resolvable by Lookup. Registering a name twice replaces the class.
func Register(c *Class) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[c.Name] = c
}

// Lookup returns the registered class with the given name.
func Lookup(name string) (*Class, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if c, ok := registry[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownOperator, name)
}

// Registered returns the names of all registered classes, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func init() {
	for _, c := range slices.Concat(DefaultFilters(), DefaultTransformations(), DefaultAggregations()) {
		Register(c)
	}
}
