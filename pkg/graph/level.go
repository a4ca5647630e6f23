package graph

import (
	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/types"
)

// DepthGroup holds the entry points sharing one depth, sorted by ID
type DepthGroup struct {
	Depth   int
	Entries []*types.EntryPoint
}

// Plan is the leveled build order: groups in ascending depth, the primary
// entry point alone in the last group
type Plan struct {
	Groups []DepthGroup
	depths map[string]int
}

// Depth returns the depth assigned to an entry point
func (p *Plan) Depth(id string) (int, bool) {
	d, ok := p.depths[id]
	return d, ok
}

// Size returns the number of entry points in the plan
func (p *Plan) Size() int {
	return len(p.depths)
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	done
)

// Level assigns every secondary entry point depth 0 when it has no
// intra-package dependencies and 1 + the maximum depth of its dependencies
// otherwise. The primary entry point is placed one level below the deepest
// secondary. A cycle fails the whole leveling with a *CycleError.
func Level(cat *catalog.Catalog, g *Graph) (*Plan, error) {
	state := make(map[string]visitState)
	depths := make(map[string]int)
	var stack []string

	var visit func(id string) (int, error)
	visit = func(id string) (int, error) {
		switch state[id] {
		case done:
			return depths[id], nil
		case visiting:
			start := 0
			for i, s := range stack {
				if s == id {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), stack[start:]...), id)
			return 0, &CycleError{Cycle: cycle}
		}

		state[id] = visiting
		stack = append(stack, id)

		depth := 0
		for _, dep := range g.Dependencies(id) {
			if dep == "" {
				continue
			}
			d, err := visit(dep)
			if err != nil {
				return 0, err
			}
			if d+1 > depth {
				depth = d + 1
			}
		}

		stack = stack[:len(stack)-1]
		state[id] = done
		depths[id] = depth
		return depth, nil
	}

	maxDepth := -1
	for _, ep := range cat.Secondary {
		d, err := visit(ep.ID)
		if err != nil {
			return nil, err
		}
		if d > maxDepth {
			maxDepth = d
		}
	}

	plan := &Plan{depths: make(map[string]int, len(cat.Secondary)+1)}
	if maxDepth >= 0 {
		plan.Groups = make([]DepthGroup, maxDepth+1)
		for d := range plan.Groups {
			plan.Groups[d].Depth = d
		}
		for _, ep := range cat.Secondary {
			d := depths[ep.ID]
			plan.depths[ep.ID] = d
			plan.Groups[d].Entries = append(plan.Groups[d].Entries, ep)
		}
	}

	primaryDepth := maxDepth + 1
	plan.depths[cat.Primary.ID] = primaryDepth
	plan.Groups = append(plan.Groups, DepthGroup{
		Depth:   primaryDepth,
		Entries: []*types.EntryPoint{cat.Primary},
	})
	return plan, nil
}
