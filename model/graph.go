package model

// graph represents a plan's DAG in terms of links between stages. It is only used for
// client-side validation; all runtime dependency bookkeeping happens on the server.
type graph struct {
	down map[*Stage][]*Stage
	up   map[*Stage][]*Stage
}

// addLink is used to create the graph object from each link seen in the plan.
func (g *graph) addLink(from *Stage, to *Stage) {
	if !stageListContains(g.down[from], to) { // prevent duplicates
		g.down[from] = append(g.down[from], to)
	}
	if !stageListContains(g.up[to], from) { // prevent duplicates
		g.up[to] = append(g.up[to], from)
	}
}

// checkForCycle recursively crawls the graph and returns true if the starting stage is
// seen again.
func (g *graph) checkForCycle(s *Stage, visited map[*Stage]bool, recursion map[*Stage]bool) bool {
	visited[s] = true
	recursion[s] = true // flag as recursive in this cycle so if we see it we know there's a cycle
	for _, downstreamStage := range g.down[s] {
		if !visited[downstreamStage] {
			if g.checkForCycle(downstreamStage, visited, recursion) {
				return true
			}
			// else, finish visiting this node
		} else if recursion[downstreamStage] {
			return true // we saw the same node again --> graph is cyclic
		}
	}
	recursion[s] = false // we didn't see the same node again in this cycle, reset
	return false
}

// utility used by checkForIncontiguity to visit every stage in the graph
func (g *graph) visitRecursively(s *Stage, visited map[*Stage]bool) {
	if visited[s] {
		return // already visited - end loop
	}
	visited[s] = true
	for _, u := range g.up[s] {
		g.visitRecursively(u, visited)
	}
	for _, d := range g.down[s] {
		g.visitRecursively(d, visited)
	}
}

// checkForIncontiguity returns the first stage found that can't be reached from the
// starting stage. If the graph is contiguous then it will return nil.
func (g *graph) checkForIncontiguity(stages []*Stage) *Stage {
	startingStage := stages[0]
	visited := make(map[*Stage]bool)
	for _, s := range stages {
		visited[s] = false
	}
	g.visitRecursively(startingStage, visited) // ends when all stages have been visited
	for s, v := range visited {
		if !v {
			return s // a stage was not visited
		}
	}
	return nil
}

// newGraph builds the graph object for a plan.
// note: This runs before we check that all stages are defined, so it just skips stages
// that can't be found.
func newGraph(p *Plan) *graph {

	g := &graph{make(map[*Stage][]*Stage), make(map[*Stage][]*Stage)}

	for _, s := range p.Stages {
		for _, u := range s.Upstream {
			if upstreamStage := p.GetStage(u); upstreamStage != nil {
				g.addLink(upstreamStage, s)
			}
		}
		for _, d := range s.Downstream {
			if downstreamStage := p.GetStage(d); downstreamStage != nil {
				g.addLink(s, downstreamStage)
			}
		}
	}

	return g
}

func stageListContains(s []*Stage, e *Stage) bool {
	for _, a := range s {
		if a.Name == e.Name {
			return true
		}
	}
	return false
}
