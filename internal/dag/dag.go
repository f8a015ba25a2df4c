// Package dag tracks dependencies between derived aliases. It provides
// cycle detection with the participating aliases reported, and a
// deterministic topological evaluation order.
package dag

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports a dependency cycle. Aliases holds the participants in
// path order, with the entry alias repeated at the end.
type CycleError struct {
	Aliases []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Aliases, " -> "))
}

// Graph is a directed graph of alias dependencies. An edge from A to B
// means B's expression references A, so A must be evaluated first.
type Graph struct {
	nodes    map[string]bool
	children map[string][]string // dependency -> dependents
	parents  map[string][]string // dependent -> dependencies
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]bool),
		children: make(map[string][]string),
		parents:  make(map[string][]string),
	}
}

// AddAlias registers an alias node. Adding an existing alias is a no-op.
func (g *Graph) AddAlias(alias string) {
	if !g.nodes[alias] {
		g.nodes[alias] = true
		g.children[alias] = []string{}
		g.parents[alias] = []string{}
	}
}

// AddDependency records that dependent references dependency. Both aliases
// must already be registered.
func (g *Graph) AddDependency(dependent, dependency string) error {
	if !g.nodes[dependency] {
		return fmt.Errorf("unknown alias %q", dependency)
	}
	if !g.nodes[dependent] {
		return fmt.Errorf("unknown alias %q", dependent)
	}
	if dependent == dependency {
		return &CycleError{Aliases: []string{dependent, dependent}}
	}
	if !contains(g.children[dependency], dependent) {
		g.children[dependency] = append(g.children[dependency], dependent)
	}
	if !contains(g.parents[dependent], dependency) {
		g.parents[dependent] = append(g.parents[dependent], dependency)
	}
	return nil
}

// Dependencies returns the aliases the given alias references.
func (g *Graph) Dependencies(alias string) []string {
	return append([]string(nil), g.parents[alias]...)
}

// Size returns the number of aliases in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// FindCycle returns a *CycleError if the graph contains a cycle, nil
// otherwise.
func (g *Graph) FindCycle() *CycleError {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	cameFrom := make(map[string]string)

	var cycle []string
	var dfs func(alias string) bool
	dfs = func(alias string) bool {
		visited[alias] = true
		onStack[alias] = true

		for _, child := range g.children[alias] {
			if !visited[child] {
				cameFrom[child] = alias
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for curr := alias; curr != child; curr = cameFrom[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}

		onStack[alias] = false
		return false
	}

	// Sort roots for a stable cycle report.
	aliases := make([]string, 0, len(g.nodes))
	for alias := range g.nodes {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		if !visited[alias] {
			if dfs(alias) {
				return &CycleError{Aliases: cycle}
			}
		}
	}
	return nil
}

// Sort returns the aliases in topological order (dependencies before
// dependents), deterministic for a given graph. A cycle is returned as a
// *CycleError before any ordering is produced.
func (g *Graph) Sort() ([]string, error) {
	if err := g.FindCycle(); err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	var order []string

	var visit func(alias string)
	visit = func(alias string) {
		if visited[alias] {
			return
		}
		visited[alias] = true
		for _, dep := range g.parents[alias] {
			visit(dep)
		}
		order = append(order, alias)
	}

	aliases := make([]string, 0, len(g.nodes))
	for alias := range g.nodes {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		visit(alias)
	}
	return order, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
