package resolver

import (
	"sort"

	"github.com/mossforge/moss/pkg/types"
)

// CandidateSource is the read side of the metadata database the resolver
// needs. Accepting an interface rather than *meta.Store keeps the resolver
// testable without a real sqlite file.
type CandidateSource interface {
	GetPackage(hash types.Hash) (*types.Package, error)
	FindByName(name string) ([]*types.Package, error)
	FindProviders(kind types.DependencyKind, value string) ([]*types.Package, error)
}

// resolveExpression returns the best candidate satisfying a dependency
// expression, per the tie-break order in spec.md §4.4 step 2: highest
// source_release, then highest build_release, then repository priority,
// then lexicographic name.
func resolveExpression(src CandidateSource, expr types.Dependency) (*types.Package, error) {
	var candidates []*types.Package

	if expr.Kind == types.KindPackageName {
		byName, err := src.FindByName(expr.Value)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, byName...)
	}

	byProvider, err := src.FindProviders(expr.Kind, expr.Value)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, dedup(candidates, byProvider)...)

	if len(candidates) == 0 {
		return nil, &ProviderNotFoundError{Kind: expr.Kind, Value: expr.Value}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Less(candidates[j]) })
	return candidates[0], nil
}

func dedup(have []*types.Package, add []*types.Package) []*types.Package {
	seen := make(map[types.Hash]bool, len(have))
	for _, p := range have {
		seen[p.Hash] = true
	}
	var out []*types.Package
	for _, p := range add {
		if !seen[p.Hash] {
			seen[p.Hash] = true
			out = append(out, p)
		}
	}
	return out
}

// providesExpr reports whether p satisfies the given provider expression,
// either explicitly (Provides) or implicitly via its own name.
func providesExpr(p *types.Package, kind types.DependencyKind, value string) bool {
	if kind == types.KindPackageName && p.Name == value {
		return true
	}
	for _, prov := range p.Provides {
		if prov.Kind == kind && prov.Value == value {
			return true
		}
	}
	return false
}
