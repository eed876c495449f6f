// Package layout maps concrete specs to install prefixes.
package layout

import (
	"maps"
	"slices"
	"sync"

	"go.trai.ch/depot/internal/core/domain"
	"go.trai.ch/depot/internal/core/ports"
	"go.trai.ch/zerr"
)

// Constructor creates a layout rooted at root.
type Constructor func(root string) ports.Layout

var (
	mu       sync.RWMutex
	registry = make(map[string]Constructor)
)

func init() {
	Register(HashedName, NewHashed)
	Register(ArchName, NewArch)
	Register(FlatName, NewFlat)
}

// Register makes a layout available under name. Registering a name twice replaces it.
func Register(name string, ctor Constructor) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = ctor
}

// Names returns the registered layout names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

// New creates the layout registered under name.
func New(name, root string) (ports.Layout, error) {
	mu.RLock()
	ctor, ok := registry[name]
	mu.RUnlock()
	if !ok {
		err := zerr.With(zerr.Wrap(domain.ErrUnknownLayout, "layout is not registered"), "layout", name)
		return nil, zerr.With(err, "known", Names())
	}
	return ctor(root), nil
}
