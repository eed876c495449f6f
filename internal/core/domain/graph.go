package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// GraphNode is a package declared by name together with the names of its direct dependencies.
type GraphNode struct {
	Name         InternedString
	Dependencies []InternedString
}

// Graph is the name-level dependency graph of a manifest, used to validate it
// and to build concrete specs bottom-up.
type Graph struct {
	nodes          map[InternedString]GraphNode
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[InternedString]GraphNode),
	}
}

// AddNode adds a node to the graph.
// It returns an error if a node with the same name already exists.
func (g *Graph) AddNode(n GraphNode) error {
	if _, exists := g.nodes[n.Name]; exists {
		return zerr.With(zerr.Wrap(ErrSpecAlreadyExists, "duplicate package"), "name", n.Name.String())
	}
	g.nodes[n.Name] = n
	return nil
}

// Validate checks for missing dependencies and cycles using a topological sort.
// It populates the execution order if successful.
func (g *Graph) Validate() error {
	g.executionOrder = make([]InternedString, 0, len(g.nodes))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		node, exists := g.nodes[u]
		if !exists {
			err := zerr.With(zerr.Wrap(ErrMissingDependency, "unknown package"), "dependency", u.String())
			if len(path) > 1 {
				err = zerr.With(err, "required_by", path[len(path)-2].String())
			}
			return err
		}

		for _, dep := range node.Dependencies {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	// Sorted so that the execution order, and therefore every error, is reproducible.
	names := make([]InternedString, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	return nil
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "dependency cycle"), "cycle", strings.Join(parts, " -> "))
}

// Walk returns an iterator that yields nodes dependencies-first.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[GraphNode] {
	return func(yield func(GraphNode) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.nodes[name]) {
				return
			}
		}
	}
}

// Dependents returns the names of nodes that directly depend on name.
func (g *Graph) Dependents(name InternedString) []InternedString {
	var out []InternedString
	for _, n := range g.nodes {
		if slices.Contains(n.Dependencies, name) {
			out = append(out, n.Name)
		}
	}
	slices.SortFunc(out, func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
