package checksum

import (
	"fmt"
	"sort"
	"strings"
)

// Registry holds registered algorithms.
type Registry struct {
	algorithms map[string]Algorithm
}

// DefaultRegistry is the global algorithm registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		algorithms: make(map[string]Algorithm),
	}
}

// Register adds an algorithm to the registry.
func (r *Registry) Register(a Algorithm) {
	r.algorithms[a.Name()] = a
}

// Get retrieves an algorithm by name. The "sum" suffix of the coreutils
// program names is accepted, so "md5sum" and "sha256sum" work too.
func (r *Registry) Get(name string) (Algorithm, error) {
	key := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), "sum")
	if key == "" {
		key = DefaultAlgorithm
	}
	a, ok := r.algorithms[key]
	if !ok {
		return nil, fmt.Errorf("unknown checksum algorithm: %s (available: %s)", name, strings.Join(r.List(), ", "))
	}
	return a, nil
}

// List returns registered algorithm names in sorted order.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.algorithms))
	for name := range r.algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register adds an algorithm to the default registry.
func Register(a Algorithm) {
	DefaultRegistry.Register(a)
}

// Get retrieves an algorithm from the default registry.
func Get(name string) (Algorithm, error) {
	return DefaultRegistry.Get(name)
}

// List returns the algorithms in the default registry.
func List() []string {
	return DefaultRegistry.List()
}
