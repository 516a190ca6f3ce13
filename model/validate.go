package model

import "fmt"

// Validate tests that a plan is valid using the following logic:
// - more than 0 stages
// - no duplicate stage names
// - all referenced stages and services exist
// - graph is not cyclic
// - graph is contiguous (no orphaned stages)
// The server performs the same checks when a plan is saved; validating locally gives a
// faster failure with the same error messages.
func (p *Plan) Validate() error {

	if p.Name == "" {
		return &PlanValidationError{"plans must have a name"}
	}

	// are there more than 0 stages?
	if len(p.Stages) == 0 {
		return &PlanValidationError{"plans must have more than 0 stages"}
	}

	// are there any duplicate stage names?
	var stageNames []string
	for _, s := range p.Stages {
		if contains(stageNames, s.Name) {
			return &PlanValidationError{fmt.Sprintf("stage name '%v' is not unique", s.Name)}
		}
		stageNames = append(stageNames, s.Name)
	}

	// are all stages referred to in upstream/downstream defined?
	// does every stage's service exist?
	for _, s := range p.Stages {
		for _, u := range s.Upstream {
			if !contains(stageNames, u) {
				return &PlanValidationError{fmt.Sprintf("stage '%v' has upstream dependency '%v' which is not defined", s.Name, u)}
			}
		}
		for _, d := range s.Downstream {
			if !contains(stageNames, d) {
				return &PlanValidationError{fmt.Sprintf("stage '%v' has downstream dependency '%v' which is not defined", s.Name, d)}
			}
		}
		if s.Service != "" && p.GetService(s.Service) == nil {
			return &PlanValidationError{fmt.Sprintf("stage '%v' uses service '%v' which is not defined", s.Name, s.Service)}
		}
	}

	g := newGraph(p)

	// is graph cyclic?
	// follow every path in the graph starting from each stage. If a stage ends up visiting
	// itself then it's cyclic
	visited := make(map[*Stage]bool)
	recursion := make(map[*Stage]bool)
	for _, s := range p.Stages {
		visited[s] = false
		recursion[s] = false
	}
	for _, s := range p.Stages {
		if !visited[s] {
			if g.checkForCycle(s, visited, recursion) {
				return &PlanValidationError{fmt.Sprintf("stage '%v' is dependent on itself (infinite loop)", s.Name)}
			}
		}
	}

	// is graph contiguous?
	// follow every path forwards and backwards from a single node and check that every
	// node was visited at least once
	if unreachableStage := g.checkForIncontiguity(p.Stages); unreachableStage != nil {
		return &PlanValidationError{fmt.Sprintf("not contiguous - '%v' cannot be reached from '%v'", unreachableStage.Name, p.Stages[0].Name)}
	}

	return nil
}
