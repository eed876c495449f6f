package database

import (
	"slices"

	"go.trai.ch/depot/internal/core/domain"
)

// sorted returns every record ordered by name, version and hash.
func (st *state) sorted() []*domain.InstallRecord {
	out := make([]*domain.InstallRecord, 0, len(st.records))
	for _, rec := range st.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *domain.InstallRecord) int {
		return compareSpecs(a.Spec, b.Spec)
	})
	return out
}

// directDeps returns the distinct hashes of the direct dependencies of rec.
func directDeps(rec *domain.InstallRecord) []string {
	hashes := make([]string, 0, len(rec.Spec.Dependencies))
	for _, dep := range rec.Spec.Dependencies {
		hashes = append(hashes, dep.Hash())
	}
	slices.Sort(hashes)
	return slices.Compact(hashes)
}

// reverseEdges maps each hash to the hashes of the records that depend on it directly.
func (st *state) reverseEdges() map[string][]string {
	rev := make(map[string][]string, len(st.records))
	for hash, rec := range st.records {
		for _, dep := range directDeps(rec) {
			rev[dep] = append(rev[dep], hash)
		}
	}
	return rev
}

// dependents returns the installed specs whose DAG contains hash, excluding hash itself.
func (st *state) dependents(hash string) []*domain.Spec {
	rev := st.reverseEdges()
	seen := map[string]bool{hash: true}
	queue := []string{hash}
	var out []*domain.Spec
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, parent := range rev[cur] {
			if seen[parent] {
				continue
			}
			seen[parent] = true
			queue = append(queue, parent)
			if rec := st.records[parent]; rec.Installed {
				out = append(out, rec.Spec)
			}
		}
	}
	slices.SortFunc(out, compareSpecs)
	return out
}

// referenced reports whether any other record lists hash as a direct dependency.
func (st *state) referenced(hash string) bool {
	for other, rec := range st.records {
		if other != hash && slices.Contains(directDeps(rec), hash) {
			return true
		}
	}
	return false
}

// unused returns implicit installed specs not needed by any explicit installed spec,
// dependents before their dependencies.
func (st *state) unused() []*domain.Spec {
	var roots []*domain.Spec
	for _, rec := range st.sorted() {
		if rec.Installed && rec.Explicit {
			roots = append(roots, rec.Spec)
		}
	}
	needed := make(map[string]bool)
	for node := range domain.TraverseAll(roots) {
		needed[node.Hash()] = true
	}

	var candidates []*domain.Spec
	for _, rec := range st.sorted() {
		if rec.Installed && !rec.Explicit && !needed[rec.Spec.Hash()] {
			candidates = append(candidates, rec.Spec)
		}
	}
	set := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		set[c.Hash()] = true
	}

	var order []*domain.Spec
	for node := range domain.TraverseAll(candidates) {
		if set[node.Hash()] {
			order = append(order, node)
		}
	}
	slices.Reverse(order)
	return order
}

// prune drops uninstalled records that nothing references any more.
func (st *state) prune() {
	for {
		dropped := false
		for hash, rec := range st.records {
			if !rec.Installed && !st.referenced(hash) {
				delete(st.records, hash)
				dropped = true
			}
		}
		if !dropped {
			return
		}
	}
}

// recount sets every RefCount to the number of installed records that depend on it directly.
func (st *state) recount() {
	for _, rec := range st.records {
		rec.RefCount = 0
	}
	for _, rec := range st.records {
		if !rec.Installed {
			continue
		}
		for _, dep := range directDeps(rec) {
			if target := st.records[dep]; target != nil {
				target.RefCount++
			}
		}
	}
}
