package resolver

import (
	"fmt"

	"github.com/mossforge/moss/pkg/types"
)

// Resolver resolves selection changes against a metadata database.
type Resolver struct {
	src CandidateSource
}

// New returns a Resolver reading candidates from src.
func New(src CandidateSource) *Resolver {
	return &Resolver{src: src}
}

// ChangeSet is the requested mutation to a selection set, per spec.md §4.4.
type ChangeSet struct {
	// Add is a set of provider expressions to resolve and mark explicit.
	Add []types.Dependency
	// Remove names packages to drop from the explicit set.
	Remove []string
}

// Plan is the result of resolution: a new selection set plus an ordered
// install/remove list ready for the transaction engine.
type Plan struct {
	Selections []types.Selection
	Install    []*types.Package
	Remove     []types.Hash
}

type closureNode struct {
	pkg      *types.Package
	explicit bool
	reason   string
	deps     []types.Hash
}

// Resolve computes S₁ and the ordered install/remove list from S₀ (current)
// and a requested change, per spec.md §4.4.
func (r *Resolver) Resolve(current *types.State, change ChangeSet) (*Plan, error) {
	removedNames := make(map[string]bool, len(change.Remove))
	for _, name := range change.Remove {
		removedNames[name] = true
	}

	var roots []*types.Package
	if current != nil {
		for _, sel := range current.Selections {
			if !sel.Explicit {
				continue
			}
			pkg, err := r.src.GetPackage(sel.PackageHash)
			if err != nil {
				return nil, fmt.Errorf("resolver: load explicit selection: %w", err)
			}
			if pkg == nil || removedNames[pkg.Name] {
				continue
			}
			roots = append(roots, pkg)
		}
	}

	for _, expr := range change.Add {
		pkg, err := resolveExpression(r.src, expr)
		if err != nil {
			return nil, err
		}
		roots = append(roots, pkg)
	}

	closure := make(map[types.Hash]*closureNode)
	queue := make([]*types.Package, len(roots))
	copy(queue, roots)
	for _, p := range roots {
		closure[p.Hash] = &closureNode{pkg: p, explicit: true, reason: "explicit"}
	}

	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		node := closure[p.Hash]

		for _, dep := range p.Depends {
			cand, err := resolveExpression(r.src, dep)
			if err != nil {
				return nil, fmt.Errorf("resolver: %s requires %s:%s: %w", p.Name, dep.Kind, dep.Value, err)
			}
			node.deps = append(node.deps, cand.Hash)
			if _, ok := closure[cand.Hash]; ok {
				continue
			}
			closure[cand.Hash] = &closureNode{
				pkg:      cand,
				explicit: false,
				reason:   fmt.Sprintf("dependency of %s", p.Name),
			}
			queue = append(queue, cand)
		}
	}

	if err := checkConflicts(closure); err != nil {
		return nil, err
	}

	order := stagingOrder(closure)

	currentHashes := make(map[types.Hash]bool)
	if current != nil {
		for _, sel := range current.Selections {
			currentHashes[sel.PackageHash] = true
		}
	}

	plan := &Plan{}
	for _, h := range order {
		node := closure[h]
		plan.Selections = append(plan.Selections, types.Selection{
			PackageHash: h,
			Explicit:    node.explicit,
			Reason:      node.reason,
		})
		if !currentHashes[h] {
			plan.Install = append(plan.Install, node.pkg)
		}
	}

	removedSet := removalSubgraph(current, closure, r.src)
	for _, h := range stagingOrder(removedSet) {
		plan.Remove = append(plan.Remove, h)
	}
	// Remove in reverse topological order: a package is removed only after
	// everything that depends on it within the removal set is gone.
	for i, j := 0, len(plan.Remove)-1; i < j; i, j = i+1, j-1 {
		plan.Remove[i], plan.Remove[j] = plan.Remove[j], plan.Remove[i]
	}

	return plan, nil
}

// removalSubgraph builds a closureNode graph over packages present in
// current but absent from the new closure, with dependency edges
// restricted to other members of that same removal set, so stagingOrder
// can be reused to sequence removals.
func removalSubgraph(current *types.State, closure map[types.Hash]*closureNode, src CandidateSource) map[types.Hash]*closureNode {
	out := make(map[types.Hash]*closureNode)
	if current == nil {
		return out
	}
	for _, sel := range current.Selections {
		if _, stillSelected := closure[sel.PackageHash]; stillSelected {
			continue
		}
		pkg, err := src.GetPackage(sel.PackageHash)
		if err != nil || pkg == nil {
			continue
		}
		out[sel.PackageHash] = &closureNode{pkg: pkg}
	}
	for h, node := range out {
		pkg := node.pkg
		for _, dep := range pkg.Depends {
			for candHash, candNode := range out {
				if candHash == h {
					continue
				}
				if providesExpr(candNode.pkg, dep.Kind, dep.Value) {
					node.deps = append(node.deps, candHash)
				}
			}
		}
	}
	return out
}

func checkConflicts(closure map[types.Hash]*closureNode) error {
	for _, node := range closure {
		for _, conflict := range node.pkg.Conflicts {
			for _, other := range closure {
				if other.pkg.Hash == node.pkg.Hash {
					continue
				}
				if providesExpr(other.pkg, conflict.Kind, conflict.Value) {
					return &ConflictError{Package: node.pkg, Conflict: other.pkg, Value: conflict.Value}
				}
			}
		}
	}
	return nil
}
