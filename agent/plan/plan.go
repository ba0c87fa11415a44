package plan

import (
	"fmt"

	contractx "github.com/jirapatw/TAM-Copilot-Orchestrator/agent/contract"
)

// ValidatePlan checks the structural invariants the executor relies on:
// unique step ids, dependencies that reference existing steps, BindFrom
// sources that are declared dependencies, and an acyclic dependency graph.
func ValidatePlan(p *contractx.Plan) error {
	if p == nil {
		return fmt.Errorf("%w: plan is nil", contractx.ErrValidation)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", contractx.ErrValidation)
	}

	ids := make(map[string]struct{}, len(p.Steps))
	for _, s := range p.Steps {
		if s.ID == "" {
			return fmt.Errorf("%w: step id is empty", contractx.ErrValidation)
		}
		if s.Tool == "" {
			return fmt.Errorf("%w: step=%s has no tool", contractx.ErrValidation, s.ID)
		}
		if _, dup := ids[s.ID]; dup {
			return fmt.Errorf("%w: duplicate step id=%s", contractx.ErrValidation, s.ID)
		}
		ids[s.ID] = struct{}{}
	}

	for _, s := range p.Steps {
		deps := make(map[string]struct{}, len(s.DependsOn))
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return fmt.Errorf("%w: step=%s depends on itself", contractx.ErrValidation, s.ID)
			}
			if _, ok := ids[dep]; !ok {
				return fmt.Errorf("%w: step=%s depends on unknown step=%s", contractx.ErrValidation, s.ID, dep)
			}
			deps[dep] = struct{}{}
		}
		for arg, sources := range s.BindFrom {
			for _, src := range sources {
				if _, ok := deps[src]; !ok {
					return fmt.Errorf("%w: step=%s binds arg=%s from step=%s which is not a dependency", contractx.ErrValidation, s.ID, arg, src)
				}
			}
		}
	}

	return checkAcyclic(p)
}

// checkAcyclic runs Kahn's algorithm over the dependency edges.
func checkAcyclic(p *contractx.Plan) error {
	indegree := make(map[string]int, len(p.Steps))
	dependents := make(map[string][]string, len(p.Steps))
	for _, s := range p.Steps {
		indegree[s.ID] += 0
		for _, dep := range s.DependsOn {
			indegree[s.ID]++
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	queue := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		if indegree[s.ID] == 0 {
			queue = append(queue, s.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited != len(p.Steps) {
		return fmt.Errorf("%w: plan dependency graph has a cycle", contractx.ErrValidation)
	}
	return nil
}
