package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/contract-composer/internal/catalog"
)

// ErrCycle is matched by errors.Is on a *CycleError.
var ErrCycle = errors.New("resolver: dependency cycle")

// Cycle is a closed dependency path: the first and last entries are the same
// module.
type Cycle []string

// Members returns the distinct modules on the cycle.
func (c Cycle) Members() []string {
	if len(c) <= 1 {
		return append([]string(nil), c...)
	}
	return append([]string(nil), c[:len(c)-1]...)
}

func (c Cycle) String() string {
	return strings.Join(c, " -> ")
}

// CycleError reports the cycle that prevented ordering.
type CycleError struct {
	Cycle Cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolver: dependency cycle %s", e.Cycle)
}

// Is lets errors.Is match ErrCycle.
func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Node is one module plus its in-selection edges.
type Node struct {
	Name   string
	Module catalog.Module
	// Dependencies are required modules present in the selection, in the
	// order the module declares them.
	Dependencies []string
	Dependents   []string
	index        int
}

// Graph is the requires-graph over a selection. Build a fresh Graph per call;
// it holds no shared state.
type Graph struct {
	nodes map[string]*Node
	order []string
}

// New builds the graph. Duplicate module names keep the first occurrence.
func New(mods []catalog.Module) *Graph {
	unique := catalog.Unique(mods)
	g := &Graph{
		nodes: make(map[string]*Node, len(unique)),
		order: make([]string, 0, len(unique)),
	}
	for idx, mod := range unique {
		g.nodes[mod.Name] = &Node{Name: mod.Name, Module: mod, index: idx}
		g.order = append(g.order, mod.Name)
	}
	for _, name := range g.order {
		node := g.nodes[name]
		seen := map[string]struct{}{}
		for _, dep := range node.Module.Requires {
			target, ok := g.nodes[dep]
			if !ok {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			node.Dependencies = append(node.Dependencies, dep)
			target.Dependents = append(target.Dependents, node.Name)
		}
	}
	return g
}

// Nodes returns nodes in selection order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Node retrieves a node by module name.
func (g *Graph) Node(name string) (*Node, bool) {
	node, ok := g.nodes[name]
	return node, ok
}

// DetectCycle walks the graph depth-first in selection order and returns the
// first cycle found. The cycle is the recursion-stack slice from the revisited
// module to the top, closed back to that module.
func (g *Graph) DetectCycle() (Cycle, bool) {
	visited := make(map[string]bool, len(g.nodes))
	onStack := make(map[string]bool, len(g.nodes))
	var stack []string
	var found Cycle

	var visit func(string) bool
	visit = func(name string) bool {
		visited[name] = true
		onStack[name] = true
		stack = append(stack, name)
		for _, dep := range g.nodes[name].Dependencies {
			if onStack[dep] {
				start := indexOf(stack, dep)
				found = append(Cycle{}, stack[start:]...)
				found = append(found, dep)
				return true
			}
			if !visited[dep] && visit(dep) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		onStack[name] = false
		return false
	}

	for _, name := range g.order {
		if visited[name] {
			continue
		}
		if visit(name) {
			return found, true
		}
	}
	return nil, false
}

// Order returns the modules so that each follows every module it requires.
// Among modules whose requirements are met, the one earliest in the selection
// goes first, so unconstrained modules keep their relative order.
func (g *Graph) Order() ([]catalog.Module, error) {
	if cycle, ok := g.DetectCycle(); ok {
		return nil, &CycleError{Cycle: cycle}
	}
	pending := make(map[string]int, len(g.nodes))
	for name, node := range g.nodes {
		pending[name] = len(node.Dependencies)
	}
	placed := make(map[string]bool, len(g.nodes))
	out := make([]catalog.Module, 0, len(g.nodes))
	for len(out) < len(g.order) {
		next := ""
		for _, name := range g.order {
			if !placed[name] && pending[name] == 0 {
				next = name
				break
			}
		}
		if next == "" {
			// Unreachable once DetectCycle reports no cycle.
			return nil, fmt.Errorf("resolver: could not order %d remaining modules", len(g.order)-len(out))
		}
		placed[next] = true
		node := g.nodes[next]
		out = append(out, node.Module)
		for _, dependent := range node.Dependents {
			pending[dependent]--
		}
	}
	return out, nil
}

// Resolve is a convenience wrapper around New(mods).Order().
func Resolve(mods []catalog.Module) ([]catalog.Module, error) {
	return New(mods).Order()
}

func indexOf(values []string, target string) int {
	for i, value := range values {
		if value == target {
			return i
		}
	}
	return -1
}
