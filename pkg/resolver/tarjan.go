package resolver

import (
	"sort"

	"github.com/mossforge/moss/pkg/types"
)

// stagingOrder topologically orders nodes by their dependency edges so that
// a package's dependencies are staged before it, per spec.md §4.4 step 5.
// Cycles are permitted in the resolved graph; Tarjan's algorithm condenses
// each strongly-connected component into one unit for the topological
// sort, and members within a component are ordered by repository priority
// (highest first) then name, per spec.md §4.4's "broken by repository
// order within strongly connected components".
func stagingOrder(nodes map[types.Hash]*closureNode) []types.Hash {
	t := &tarjan{
		nodes:   nodes,
		index:   make(map[types.Hash]int),
		lowlink: make(map[types.Hash]int),
		onStack: make(map[types.Hash]bool),
	}

	// Deterministic iteration order so repeated calls over the same
	// closure produce the same component discovery order.
	var keys []types.Hash
	for h := range nodes {
		keys = append(keys, h)
	}
	sort.Slice(keys, func(i, j int) bool { return nodes[keys[i]].pkg.Name < nodes[keys[j]].pkg.Name })

	for _, h := range keys {
		if _, ok := t.index[h]; !ok {
			t.strongConnect(h)
		}
	}

	// Tarjan closes a component only after every component it depends on
	// has already closed (DFS recurses into dependencies first), so
	// t.components is already dependency-first: exactly the staging order
	// we want, with no reversal needed.
	var out []types.Hash
	for _, comp := range t.components {
		sort.Slice(comp, func(a, b int) bool {
			pa, pb := nodes[comp[a]].pkg, nodes[comp[b]].pkg
			if pa.RepoPriority != pb.RepoPriority {
				return pa.RepoPriority > pb.RepoPriority
			}
			return pa.Name < pb.Name
		})
		out = append(out, comp...)
	}
	return out
}

type tarjan struct {
	nodes      map[types.Hash]*closureNode
	index      map[types.Hash]int
	lowlink    map[types.Hash]int
	onStack    map[types.Hash]bool
	stack      []types.Hash
	counter    int
	components [][]types.Hash
}

func (t *tarjan) strongConnect(v types.Hash) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.nodes[v].deps {
		if _, ok := t.nodes[w]; !ok {
			continue // dependency outside the closure (already installed elsewhere)
		}
		if _, seen := t.index[w]; !seen {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var comp []types.Hash
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			comp = append(comp, w)
			if w == v {
				break
			}
		}
		t.components = append(t.components, comp)
	}
}
