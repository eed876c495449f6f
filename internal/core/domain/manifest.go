package domain

import (
	"maps"
	"slices"

	"go.trai.ch/zerr"
)

// Manifest is a set of concrete specs read from a manifest file, keyed by package name.
type Manifest struct {
	Specs map[string]*Spec

	// Steps holds the install steps per spec hash. Steps do not take part in the hash.
	Steps map[string][]string
}

// Roots resolves names to specs in the manifest.
func (m *Manifest) Roots(names []string) ([]*Spec, error) {
	roots := make([]*Spec, 0, len(names))
	for _, name := range names {
		spec, ok := m.Specs[name]
		if !ok {
			err := zerr.With(zerr.Wrap(ErrMissingDependency, "package is not in the manifest"), "name", name)
			return nil, zerr.With(err, "known", slices.Sorted(maps.Keys(m.Specs)))
		}
		roots = append(roots, spec)
	}
	return roots, nil
}
