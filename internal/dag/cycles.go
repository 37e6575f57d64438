package dag

import (
	"fmt"
	"sort"
)

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, naming the first node found on it.
func (g *Graph) DetectCycles() error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(n *node) error
	visit = func(n *node) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			return fmt.Errorf("cycle detected involving node '%s'", n.id)
		}

		temporary[n.id] = true
		for _, id := range sortedIDs(n.dependents) {
			if err := visit(n.dependents[id]); err != nil {
				return err
			}
		}
		delete(temporary, n.id)
		permanent[n.id] = true
		return nil
	}

	for _, id := range sortedIDs(g.nodes) {
		if err := visit(g.nodes[id]); err != nil {
			return err
		}
	}
	return nil
}

// CycleMembers returns every node that lies on at least one cycle, in
// lexical order. It is empty for an acyclic graph.
func (g *Graph) CycleMembers() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	// Tarjan's strongly connected components; any component with more than
	// one node is a cycle because self edges are rejected by AddEdge.
	index := 0
	indices := make(map[string]int, len(g.nodes))
	lowlink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var stack []string
	var members []string

	var strongconnect func(n *node)
	strongconnect = func(n *node) {
		indices[n.id] = index
		lowlink[n.id] = index
		index++
		stack = append(stack, n.id)
		onStack[n.id] = true

		for _, id := range sortedIDs(n.dependents) {
			if _, visited := indices[id]; !visited {
				strongconnect(n.dependents[id])
				lowlink[n.id] = min(lowlink[n.id], lowlink[id])
			} else if onStack[id] {
				lowlink[n.id] = min(lowlink[n.id], indices[id])
			}
		}

		if lowlink[n.id] != indices[n.id] {
			return
		}
		var component []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			component = append(component, top)
			if top == n.id {
				break
			}
		}
		if len(component) > 1 {
			members = append(members, component...)
		}
	}

	for _, id := range sortedIDs(g.nodes) {
		if _, visited := indices[id]; !visited {
			strongconnect(g.nodes[id])
		}
	}
	sort.Strings(members)
	return members
}

// TopologicalSort orders all nodes dependency-first. Among nodes that are
// ready at the same time the lexically smallest id comes first, so the
// order is stable across runs. It fails if the graph has a cycle.
func (g *Graph) TopologicalSort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	var ready []string
	for id, n := range g.nodes {
		remaining[id] = len(n.deps)
		if len(n.deps) == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(g.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		var unlocked []string
		for _, depID := range sortedIDs(g.nodes[id].dependents) {
			remaining[depID]--
			if remaining[depID] == 0 {
				unlocked = append(unlocked, depID)
			}
		}
		if len(unlocked) > 0 {
			ready = append(ready, unlocked...)
			sort.Strings(ready)
		}
	}

	if len(order) != len(g.nodes) {
		return nil, fmt.Errorf("graph has a cycle: %d of %d nodes could not be ordered", len(g.nodes)-len(order), len(g.nodes))
	}
	return order, nil
}
