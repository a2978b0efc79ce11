// Package depgraph builds the global reference graph over a program's
// named elements and certifies it is acyclic.
package depgraph

import (
	"sort"
	"strings"

	"github.com/thunderstruck-community/thunderstruck-dev-tools/internal/ast"
)

// Graph maps an element name to the set of names it directly
// references. Edges are recorded verbatim as written; an edge to a
// name with no node is inert during traversal (unresolved references
// are a separate concern).
type Graph map[string]map[string]bool

// Build constructs the graph fresh from the program. Every named
// element becomes a node, even with no edges; import statements are
// skipped.
func Build(program *ast.Program) Graph {
	g := make(Graph)
	for _, el := range program.Elements {
		if _, ok := el.(*ast.Import); ok {
			continue
		}
		name := el.Name()
		if name == "" {
			continue
		}
		if g[name] == nil {
			g[name] = make(map[string]bool)
		}
		if ref := ast.InputRef(el); ref != nil && ref.RefText != "" {
			g[name][ref.RefText] = true
		}
	}
	return g
}

// Cycle is one detected reference cycle. Names lists the full path
// with the closing node repeated, e.g. [A B C A]; a self-loop is
// [A A].
type Cycle struct {
	Names []string
}

func (c Cycle) String() string {
	return strings.Join(c.Names, " -> ")
}

type color int

const (
	white color = iota
	gray
	black
)

// DetectCycles runs a depth-first search from every unvisited node and
// returns the discovered cycles, or nil if the graph is a DAG. At most
// one cycle is reported per DFS root: the first one closed. Fully
// visited nodes are never re-explored, so a cycle reachable from
// several roots surfaces once.
func DetectCycles(g Graph) []Cycle {
	roots := make([]string, 0, len(g))
	for name := range g {
		roots = append(roots, name)
	}
	sort.Strings(roots)

	colors := make(map[string]color, len(g))
	var cycles []Cycle

	for _, root := range roots {
		if colors[root] != white {
			continue
		}
		if cyc, ok := dfs(g, root, colors); ok {
			cycles = append(cycles, cyc)
		}
	}
	return cycles
}

type frame struct {
	node  string
	edges []string
	next  int
}

// dfs is an explicit-stack depth-first search; recursion depth on
// pathological programs would otherwise be bounded by the call stack.
func dfs(g Graph, root string, colors map[string]color) (Cycle, bool) {
	stack := []frame{newFrame(g, root)}
	colors[root] = gray
	path := []string{root}

	finish := func() {
		// Whatever remains gray from this root is done exploring.
		for _, name := range path {
			colors[name] = black
		}
	}

	for len(stack) > 0 {
		f := &stack[len(stack)-1]
		if f.next >= len(f.edges) {
			colors[f.node] = black
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			continue
		}
		target := f.edges[f.next]
		f.next++

		if _, exists := g[target]; !exists {
			continue
		}
		switch colors[target] {
		case gray:
			// Closed a cycle: slice the current path from the
			// target's first occurrence, repeating it at the end.
			start := 0
			for i, name := range path {
				if name == target {
					start = i
					break
				}
			}
			names := append(append([]string{}, path[start:]...), target)
			finish()
			return Cycle{Names: names}, true
		case white:
			colors[target] = gray
			path = append(path, target)
			stack = append(stack, newFrame(g, target))
		}
	}
	return Cycle{}, false
}

func newFrame(g Graph, node string) frame {
	edges := make([]string, 0, len(g[node]))
	for target := range g[node] {
		edges = append(edges, target)
	}
	sort.Strings(edges)
	return frame{node: node, edges: edges}
}

// TransitiveDependencies returns every name reachable from name,
// sorted, excluding name itself unless it participates in a cycle.
func TransitiveDependencies(name string, g Graph) []string {
	seen := make(map[string]bool)
	queue := make([]string, 0, len(g[name]))
	for target := range g[name] {
		queue = append(queue, target)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, exists := g[n]; !exists {
			continue
		}
		for target := range g[n] {
			if !seen[target] {
				queue = append(queue, target)
			}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ReverseDependencies returns the names that directly reference name,
// sorted. This answers "what breaks if I change this cube".
func ReverseDependencies(name string, g Graph) []string {
	var out []string
	for node, edges := range g {
		if edges[name] {
			out = append(out, node)
		}
	}
	sort.Strings(out)
	return out
}
