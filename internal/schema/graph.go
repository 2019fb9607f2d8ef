package schema

import (
	"fmt"
	"strings"
)

// InheritanceGraph is the single-inheritance tree of declared record types
type InheritanceGraph struct {
	nodes []string          // declaration order
	edges map[string]string // type -> parent
}

// NewInheritanceGraph creates a graph from a type -> parent mapping.
// The order slice fixes iteration order so results are deterministic.
func NewInheritanceGraph(order []string, parents map[string]string) *InheritanceGraph {
	g := &InheritanceGraph{
		nodes: order,
		edges: make(map[string]string, len(parents)),
	}
	for name, parent := range parents {
		if parent != "" {
			g.edges[name] = parent
		}
	}
	return g
}

// DetectCycles returns every inheritance cycle, each listed from its first visited member
func (g *InheritanceGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onPath := make(map[string]bool)

	for _, start := range g.nodes {
		if visited[start] {
			continue
		}

		var path []string
		node := start
		for node != "" && !visited[node] {
			visited[node] = true
			onPath[node] = true
			path = append(path, node)
			node = g.edges[node]
		}

		if node != "" && onPath[node] {
			for i, n := range path {
				if n == node {
					cycle := make([]string, len(path)-i)
					copy(cycle, path[i:])
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		for _, n := range path {
			onPath[n] = false
		}
	}

	return cycles
}

// TopologicalSort returns types with every parent before its children
func (g *InheritanceGraph) TopologicalSort() ([]string, error) {
	children := make(map[string][]string)
	var queue []string
	for _, node := range g.nodes {
		parent, ok := g.edges[node]
		if !ok {
			queue = append(queue, node)
			continue
		}
		children[parent] = append(children[parent], node)
	}

	result := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)
		queue = append(queue, children[node]...)
	}

	if len(result) != len(g.nodes) {
		if cycles := g.DetectCycles(); len(cycles) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrInheritanceCycle, formatCycles(cycles))
		}
		return nil, fmt.Errorf("%w: unreachable types", ErrUnresolvedParent)
	}

	return result, nil
}

// Ancestors returns the chain of parents of name, nearest first
func (g *InheritanceGraph) Ancestors(name string) []string {
	var chain []string
	seen := map[string]bool{name: true}
	for parent := g.edges[name]; parent != "" && !seen[parent]; parent = g.edges[parent] {
		seen[parent] = true
		chain = append(chain, parent)
	}
	return chain
}

func formatCycles(cycles [][]string) string {
	parts := make([]string, len(cycles))
	for i, cycle := range cycles {
		parts[i] = strings.Join(append(cycle, cycle[0]), " -> ")
	}
	return strings.Join(parts, "; ")
}
