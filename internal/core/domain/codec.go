package domain

import (
	"cmp"
	"maps"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// SpecFormatVersion is the version of the serialized spec and database node format.
const SpecFormatVersion = 1

// SpecNode is the serialized form of one DAG node. Dependencies are referenced by hash.
type SpecNode struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Compiler     string             `json:"compiler,omitzero"`
	Platform     string             `json:"platform,omitzero"`
	Variants     map[string]Variant `json:"variants,omitzero"`
	Dependencies []DependencyRef    `json:"dependencies,omitzero"`
	Hash         string             `json:"hash"`
}

// DependencyRef names a dependency edge.
type DependencyRef struct {
	Name string `json:"name"`
	Hash string `json:"hash"`
}

// SpecDocument is a self-contained serialization of a DAG, as written to a prefix's spec file.
type SpecDocument struct {
	Version int        `json:"version"`
	Root    string     `json:"root"`
	Nodes   []SpecNode `json:"nodes"`
}

// NodeOf serializes a single node.
func NodeOf(s *Spec) SpecNode {
	n := SpecNode{
		Name:     s.Name.String(),
		Version:  s.Version.String(),
		Compiler: s.Compiler.String(),
		Platform: s.Platform.String(),
		Hash:     s.Hash(),
	}
	if len(s.Variants) > 0 {
		n.Variants = maps.Clone(s.Variants)
	}
	for _, dep := range s.Dependencies {
		n.Dependencies = append(n.Dependencies, DependencyRef{Name: dep.Name.String(), Hash: dep.Hash()})
	}
	slices.SortFunc(n.Dependencies, func(a, b DependencyRef) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.Hash, b.Hash))
	})
	return n
}

// EncodeSpec serializes the DAG rooted at s.
func EncodeSpec(s *Spec) SpecDocument {
	doc := SpecDocument{Version: SpecFormatVersion, Root: s.Hash()}
	for n := range s.Traverse() {
		doc.Nodes = append(doc.Nodes, NodeOf(n))
	}
	return doc
}

// Decode rebuilds the DAG and returns its root.
func (d SpecDocument) Decode() (*Spec, error) {
	nodes := make(map[string]SpecNode, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes[n.Hash] = n
	}
	specs, err := ResolveNodes(nodes)
	if err != nil {
		return nil, err
	}
	root, ok := specs[d.Root]
	if !ok {
		return nil, zerr.With(zerr.Wrap(ErrMissingDependency, "root node missing from spec document"), "hash", d.Root)
	}
	return root, nil
}

// ResolveNodes links serialized nodes into specs keyed by hash.
// Every rebuilt spec must hash to the key it was stored under.
func ResolveNodes(nodes map[string]SpecNode) (map[string]*Spec, error) {
	specs := make(map[string]*Spec, len(nodes))
	visiting := make(map[string]bool)

	var resolve func(hash string) (*Spec, error)
	resolve = func(hash string) (*Spec, error) {
		if s, ok := specs[hash]; ok {
			return s, nil
		}
		if visiting[hash] {
			return nil, zerr.With(zerr.Wrap(ErrCycleDetected, "serialized spec references itself"), "hash", hash)
		}
		n, ok := nodes[hash]
		if !ok {
			return nil, zerr.With(zerr.Wrap(ErrMissingDependency, "dependency node not found"), "hash", hash)
		}
		visiting[hash] = true
		defer delete(visiting, hash)

		s := &Spec{
			Name:     NewInternedString(n.Name),
			Version:  NewInternedString(n.Version),
			Compiler: NewInternedString(n.Compiler),
			Platform: NewInternedString(n.Platform),
		}
		if len(n.Variants) > 0 {
			s.Variants = maps.Clone(n.Variants)
		}
		for _, ref := range n.Dependencies {
			dep, err := resolve(ref.Hash)
			if err != nil {
				return nil, zerr.With(err, "required_by", n.Name)
			}
			s.Dependencies = append(s.Dependencies, dep)
		}

		if got := s.Hash(); got != hash {
			err := zerr.With(zerr.Wrap(ErrCorruptDatabase, "spec hash mismatch"), "name", n.Name)
			err = zerr.With(err, "stored_hash", hash)
			return nil, zerr.With(err, "computed_hash", got)
		}
		specs[hash] = s
		return s, nil
	}

	for _, hash := range slices.Sorted(maps.Keys(nodes)) {
		if _, err := resolve(hash); err != nil {
			return nil, err
		}
	}
	return specs, nil
}
