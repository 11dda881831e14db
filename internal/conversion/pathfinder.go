package conversion

import (
	"container/heap"
	"math"
	"slices"
)

// mark is the per-node search state
type mark struct {
	weight  int
	prev    *node
	visited bool
}

// frontierItem is a tentative (node, weight) pair waiting to be settled.
// seq records discovery order and breaks weight ties.
type frontierItem struct {
	node   *node
	weight int
	seq    int
}

type frontier []frontierItem

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].weight != f[j].weight {
		return f[i].weight < f[j].weight
	}
	return f[i].seq < f[j].seq
}

func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }

func (f *frontier) Push(x any) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() any {
	old := *f
	item := old[len(old)-1]
	*f = old[:len(old)-1]
	return item
}

// search holds the state of one shortest-path computation
type search struct {
	marks    map[*node]*mark
	frontier frontier
	seq      int
}

func (s *search) mark(n *node) *mark {
	m, ok := s.marks[n]
	if !ok {
		m = &mark{weight: math.MaxInt}
		s.marks[n] = m
	}
	return m
}

// relax records weight as the best known cost of reaching n through prev,
// if it improves on what is already known.
func (s *search) relax(n, prev *node, weight int) {
	m := s.mark(n)
	if m.visited || weight >= m.weight {
		return
	}
	m.weight = weight
	m.prev = prev
	heap.Push(&s.frontier, frontierItem{node: n, weight: weight, seq: s.seq})
	s.seq++
}

// shortestPath finds the cheapest chain of converters taking data from
// format from to format to.
//
// The search starts from a virtual node connected to every converter that
// accepts from. Hops into a converter cost its quality weight, including
// the first hop, so a path costs the sum of the weights of every converter
// on it. A node is settled when it is the cheapest unsettled node
// on the frontier; the first settled node producing to ends the search.
func (g *graph) shortestPath(from, to string) (*Chain, error) {
	starts := g.understands[from]
	if len(starts) == 0 {
		return nil, &UnknownFormatError{Format: from, To: to}
	}
	if len(g.supplies[to]) == 0 {
		return nil, &NoPathError{From: from, To: to}
	}

	s := &search{marks: make(map[*node]*mark, len(g.nodes))}
	for _, n := range starts {
		s.relax(n, nil, n.weight())
	}

	for s.frontier.Len() > 0 {
		item := heap.Pop(&s.frontier).(frontierItem)
		current := s.marks[item.node]
		if current.visited || item.weight > current.weight {
			// superseded by a cheaper entry
			continue
		}
		current.visited = true

		if item.node.output() == to {
			return s.unwind(from, to, item.node), nil
		}

		for _, next := range item.node.edges {
			s.relax(next, item.node, current.weight+next.weight())
		}
	}

	return nil, &NoPathError{From: from, To: to}
}

// unwind follows back-pointers from last to the virtual start and returns
// the steps earliest first.
func (s *search) unwind(from, to string, last *node) *Chain {
	var steps []Converter
	for n := last; n != nil; n = s.marks[n].prev {
		steps = append(steps, n.converter)
	}
	slices.Reverse(steps)

	return &Chain{
		From:   from,
		To:     to,
		Steps:  steps,
		Weight: s.marks[last].weight,
	}
}
