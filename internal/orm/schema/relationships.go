package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationshipGraph represents the dependency graph between resources.
// A belongs_to association makes the owner depend on its target.
type RelationshipGraph struct {
	nodes map[string]*ResourceSchema
	names []string
	edges map[string][]string // resource -> dependencies
}

// NewRelationshipGraph creates a new relationship graph
func NewRelationshipGraph(schemas map[string]*ResourceSchema) *RelationshipGraph {
	graph := &RelationshipGraph{
		nodes: schemas,
		names: make([]string, 0, len(schemas)),
		edges: make(map[string][]string),
	}

	for name := range schemas {
		graph.names = append(graph.names, name)
	}
	sort.Strings(graph.names)

	for _, name := range graph.names {
		for _, rel := range schemas[name].Relationships() {
			if rel.Type == RelationshipBelongsTo {
				graph.edges[name] = append(graph.edges[name], rel.Target)
			}
		}
	}

	return graph
}

// DetectCycles detects circular dependencies in the relationship graph.
// A self reference is not a cycle.
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	recursionStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		recursionStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if neighbor == node {
				continue
			}
			if !visited[neighbor] {
				dfs(neighbor, path)
			} else if recursionStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
			}
		}

		recursionStack[node] = false
	}

	for _, node := range g.names {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// TopologicalSort returns resources in dependency order (dependencies first).
// Resources at the same depth are ordered by name.
func (g *RelationshipGraph) TopologicalSort() ([]string, error) {
	outDegree := make(map[string]int, len(g.names))
	reverseEdges := make(map[string][]string)
	for _, source := range g.names {
		for _, target := range g.edges[source] {
			if target == source {
				continue
			}
			if _, known := g.nodes[target]; !known {
				continue
			}
			outDegree[source]++
			reverseEdges[target] = append(reverseEdges[target], source)
		}
	}

	var queue []string
	for _, node := range g.names {
		if outDegree[node] == 0 {
			queue = append(queue, node)
		}
	}

	result := make([]string, 0, len(g.names))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		var ready []string
		for _, dependent := range reverseEdges[node] {
			outDegree[dependent]--
			if outDegree[dependent] == 0 {
				ready = append(ready, dependent)
			}
		}
		sort.Strings(ready)
		queue = append(queue, ready...)
	}

	if len(result) != len(g.names) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("circular dependency detected:\n%s", formatCycles(cycles))
		}
		return nil, fmt.Errorf("circular dependency detected")
	}

	return result, nil
}

// GetDependencies returns all direct dependencies of a resource
func (g *RelationshipGraph) GetDependencies(resource string) []string {
	deps := g.edges[resource]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// GetDependents returns all resources that depend on the given resource
func (g *RelationshipGraph) GetDependents(resource string) []string {
	dependents := []string{}
	for _, node := range g.names {
		for _, dep := range g.edges[node] {
			if dep == resource {
				dependents = append(dependents, node)
				break
			}
		}
	}
	return dependents
}

// formatCycles formats cycle information for error messages
func formatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "  Cycle %d: %s -> %s", i+1, strings.Join(cycle, " -> "), cycle[0])
	}
	return b.String()
}
