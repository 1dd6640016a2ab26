package fusion

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
)

var ErrUnknownAlgorithm = errors.New("tilemerge: unknown fusion algorithm")

// DefaultAlgorithm is the name resolved when no algorithm is selected.
const DefaultAlgorithm = "standard"

// Registry resolves fusion algorithms by name.
type Registry struct {
	algorithms map[string]Algorithm
}

// NewRegistry returns a registry holding algs. Later entries replace earlier
// ones with the same name.
func NewRegistry(algs ...Algorithm) *Registry {
	r := &Registry{algorithms: make(map[string]Algorithm, len(algs))}
	for _, alg := range algs {
		r.Register(alg)
	}
	return r
}

// Builtin returns a registry with the algorithms shipped with this module.
func Builtin() *Registry {
	return NewRegistry(DefaultStandard(), DefaultLab())
}

func (r *Registry) Register(alg Algorithm) {
	r.algorithms[alg.Name()] = alg
}

// Lookup returns the algorithm registered under name.
func (r *Registry) Lookup(name string) (Algorithm, error) {
	alg, ok := r.algorithms[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownAlgorithm, name, r.Names())
	}
	return alg, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.algorithms))
}

// All iterates the registered algorithms in name order.
func (r *Registry) All() iter.Seq2[string, Algorithm] {
	return func(yield func(string, Algorithm) bool) {
		for _, name := range r.Names() {
			if !yield(name, r.algorithms[name]) {
				return
			}
		}
	}
}
