package conversion

import (
	"slices"
	"sort"
)

// node wraps one registered converter. Its edges point at every node whose
// input format equals this node's output format.
type node struct {
	id        int
	converter Converter
	edges     []*node
}

func (n *node) input() string  { return n.converter.InputFormat() }
func (n *node) output() string { return n.converter.OutputFormat() }
func (n *node) weight() int    { return n.converter.Quality().Weight() }

// graph is the converter adjacency structure. It is not safe for
// concurrent use; Registry serializes access.
type graph struct {
	nodes []*node // registration order

	// understands indexes nodes by input format, supplies by output format
	understands map[string][]*node
	supplies    map[string][]*node

	nextID int
}

func newGraph() *graph {
	return &graph{
		understands: make(map[string][]*node),
		supplies:    make(map[string][]*node),
	}
}

// add creates a node for c and back-fills edges in both directions, so the
// final graph does not depend on registration order.
func (g *graph) add(c Converter) *node {
	n := &node{id: g.nextID, converter: c}
	g.nextID++

	// Predecessors: everything that already produces our input
	for _, pred := range g.supplies[n.input()] {
		pred.edges = append(pred.edges, n)
	}

	// Successors: everything that already consumes our output
	n.edges = append(n.edges, g.understands[n.output()]...)

	// A format-preserving converter can follow itself
	if n.input() == n.output() {
		n.edges = append(n.edges, n)
	}

	g.understands[n.input()] = append(g.understands[n.input()], n)
	g.supplies[n.output()] = append(g.supplies[n.output()], n)
	g.nodes = append(g.nodes, n)

	return n
}

// remove drops every node wrapping c, prunes edges pointing at them and
// unindexes them. It returns the number of nodes removed.
func (g *graph) remove(c Converter) int {
	doomed := make(map[*node]bool)
	for _, n := range g.nodes {
		if n.converter == c {
			doomed[n] = true
		}
	}
	if len(doomed) == 0 {
		return 0
	}

	isDoomed := func(n *node) bool { return doomed[n] }

	g.nodes = slices.DeleteFunc(g.nodes, isDoomed)
	for _, n := range g.nodes {
		n.edges = slices.DeleteFunc(n.edges, isDoomed)
	}
	pruneIndex(g.understands, isDoomed)
	pruneIndex(g.supplies, isDoomed)

	return len(doomed)
}

func pruneIndex(index map[string][]*node, drop func(*node) bool) {
	for format, nodes := range index {
		nodes = slices.DeleteFunc(nodes, drop)
		if len(nodes) == 0 {
			delete(index, format)
			continue
		}
		index[format] = nodes
	}
}

// formats returns every format named by a registered converter, sorted
func (g *graph) formats() []string {
	seen := make(map[string]struct{}, len(g.understands)+len(g.supplies))
	for f := range g.understands {
		seen[f] = struct{}{}
	}
	for f := range g.supplies {
		seen[f] = struct{}{}
	}

	formats := make([]string, 0, len(seen))
	for f := range seen {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

func (g *graph) converters() []Converter {
	out := make([]Converter, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.converter
	}
	return out
}
