// Package domain contains the core models of the install tree: concrete specs, install records,
// manifests and queries.
package domain

import (
	"crypto/sha256"
	"encoding/base32"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"go.trai.ch/zerr"
)

// HashLength is the number of base32 characters in a spec hash (160 bits).
const HashLength = 32

// ShortHashLength is the number of hash characters shown in short spec strings.
const ShortHashLength = 7

var hashEncoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// Spec is a fully resolved package: one node of a concrete dependency DAG.
// A Spec is treated as immutable once it is part of a DAG.
type Spec struct {
	Name         InternedString
	Version      InternedString
	Compiler     InternedString
	Platform     InternedString
	Variants     map[string]Variant
	Dependencies []*Spec
}

// Hash returns the canonical identity of the spec.
// The hash covers every field of the node and, through the dependency hashes,
// the whole DAG below it. It assumes the DAG is acyclic.
func (s *Spec) Hash() string {
	return s.hash(make(map[*Spec]string))
}

func (s *Spec) hash(memo map[*Spec]string) string {
	if h, ok := memo[s]; ok {
		return h
	}

	var b strings.Builder
	writeField := func(v string) {
		b.WriteString(v)
		b.WriteByte(0)
	}

	writeField(s.Name.String())
	writeField(s.Version.String())
	writeField(s.Compiler.String())
	writeField(s.Platform.String())
	b.WriteByte(0) // Section separator

	for _, name := range slices.Sorted(maps.Keys(s.Variants)) {
		v := s.Variants[name]
		writeField(name)
		b.WriteByte(byte('0' + v.Kind))
		if v.Kind == VariantMulti {
			// Each value is its own field so that a value containing a comma
			// never hashes like two values.
			writeField(strconv.Itoa(len(v.Values)))
			for _, value := range v.Values {
				writeField(value)
			}
			continue
		}
		writeField(v.String())
	}
	b.WriteByte(0)

	deps := make([]string, 0, len(s.Dependencies))
	for _, dep := range s.Dependencies {
		deps = append(deps, dep.Name.String()+"\x00"+dep.hash(memo))
	}
	slices.Sort(deps)
	for _, dep := range deps {
		writeField(dep)
	}
	b.WriteByte(0)

	sum := sha256.Sum256([]byte(b.String()))
	h := hashEncoding.EncodeToString(sum[:20])
	memo[s] = h
	return h
}

// ShortHash returns the first ShortHashLength characters of the hash.
func (s *Spec) ShortHash() string {
	return s.Hash()[:ShortHashLength]
}

// Equal reports whether two specs have the same canonical identity.
func (s *Spec) Equal(other *Spec) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.Hash() == other.Hash()
}

// Validate checks the node's own fields. It does not descend into dependencies.
func (s *Spec) Validate() error {
	name := s.Name.String()
	if name == "" {
		return zerr.Wrap(ErrInvalidSpec, "spec has no name")
	}
	if strings.ContainsAny(name, "@/% \t\n") {
		return zerr.With(zerr.Wrap(ErrInvalidSpec, "spec name contains reserved characters"), "name", name)
	}
	if s.Version.IsZero() {
		return zerr.With(zerr.Wrap(ErrInvalidSpec, "spec has no version"), "name", name)
	}
	for variant, v := range s.Variants {
		if variant == "" {
			return zerr.With(zerr.Wrap(ErrInvalidSpec, "variant has no name"), "name", name)
		}
		if v.Kind == VariantSingle && len(v.Values) != 1 {
			err := zerr.With(zerr.Wrap(ErrInvalidSpec, "single-valued variant must have exactly one value"), "name", name)
			return zerr.With(err, "variant", variant)
		}
	}
	return nil
}

// Dependency returns the direct dependency with the given name, or nil.
func (s *Spec) Dependency(name string) *Spec {
	for _, dep := range s.Dependencies {
		if dep.Name.String() == name {
			return dep
		}
	}
	return nil
}

// Traverse yields every node of the DAG rooted at s exactly once, dependencies
// before dependents. Nodes with equal hashes are visited once.
func (s *Spec) Traverse() iter.Seq[*Spec] {
	return TraverseAll([]*Spec{s})
}

// TraverseAll is Traverse over the union of several DAGs.
func TraverseAll(roots []*Spec) iter.Seq[*Spec] {
	return func(yield func(*Spec) bool) {
		memo := make(map[*Spec]string)
		visited := make(map[string]bool)

		var visit func(*Spec) bool
		visit = func(n *Spec) bool {
			h := n.hash(memo)
			if visited[h] {
				return true
			}
			visited[h] = true

			deps := slices.Clone(n.Dependencies)
			slices.SortFunc(deps, func(a, b *Spec) int {
				if c := strings.Compare(a.Name.String(), b.Name.String()); c != 0 {
					return c
				}
				return strings.Compare(a.hash(memo), b.hash(memo))
			})
			for _, dep := range deps {
				if !visit(dep) {
					return false
				}
			}
			return yield(n)
		}

		for _, root := range roots {
			if !visit(root) {
				return
			}
		}
	}
}

// String renders the spec in the familiar name@version%compiler arch=platform +variant form.
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString(s.Name.String())
	b.WriteByte('@')
	b.WriteString(s.Version.String())
	if !s.Compiler.IsZero() {
		b.WriteByte('%')
		b.WriteString(s.Compiler.String())
	}
	if !s.Platform.IsZero() {
		b.WriteString(" arch=")
		b.WriteString(s.Platform.String())
	}
	for _, name := range slices.Sorted(maps.Keys(s.Variants)) {
		b.WriteByte(' ')
		b.WriteString(s.Variants[name].format(name))
	}
	return b.String()
}

// Short renders name@version/hash7.
func (s *Spec) Short() string {
	return s.Name.String() + "@" + s.Version.String() + "/" + s.ShortHash()
}
