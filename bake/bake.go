/*
Package bake compiles an assembled topology into a dense model: states are
renumbered, transitions are checked and converted to log space, and tie
groups are resolved.

Baking validates the graph but never repairs it. A graph is rejected if any
state's outgoing probability does not sum to one, if a state cannot be
reached from the start or cannot reach the end, if silent states form a
cycle, or if an emitting state has no distribution.
*/
package bake

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/TuftsBCB/analogue/topology"
)

// DefaultTolerance is the slack allowed when checking that outgoing
// probabilities sum to one.
const DefaultTolerance = 1e-9

// Runtime bakes topologies. It satisfies topology.Runtime[*Model].
type Runtime struct {
	Tolerance float64
}

func New() Runtime {
	return Runtime{Tolerance: DefaultTolerance}
}

// Transition is a compiled edge.
type Transition struct {
	To      int
	Prob    float64
	LogProb float64
	Group   string
}

// EdgeRef locates a compiled transition: Trans[From][Index].
type EdgeRef struct {
	From, Index int
}

// Model is a baked topology. State 0 is the start state, followed by the
// silent states in topological order, then the emitting states in the order
// they were built. The end state is last.
type Model struct {
	Names  []string
	Silent []bool
	Trans  [][]Transition
	Start  int
	End    int

	// EdgeGroups lists the transitions trained together under each group.
	EdgeGroups map[string][]EdgeRef

	// TieGroups lists emitting states sharing one distribution.
	TieGroups [][]int

	params []*topology.Param
}

// Bake validates g and compiles it.
func (rt Runtime) Bake(g *topology.Graph) (*Model, error) {
	tol := rt.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if err := checkMass(g, tol); err != nil {
		return nil, err
	}
	if err := checkReachable(g); err != nil {
		return nil, err
	}
	silent, err := silentOrder(g)
	if err != nil {
		return nil, err
	}

	// Renumber.
	order := make([]topology.StateID, 0, g.Len())
	order = append(order, g.Start())
	order = append(order, silent...)
	for id := topology.StateID(0); int(id) < g.Len(); id++ {
		if !g.State(id).Silent() {
			order = append(order, id)
		}
	}
	order = append(order, g.End())
	index := make([]int, g.Len())
	for i, id := range order {
		index[id] = i
	}

	m := &Model{
		Names:      make([]string, len(order)),
		Silent:     make([]bool, len(order)),
		Trans:      make([][]Transition, len(order)),
		Start:      index[g.Start()],
		End:        index[g.End()],
		EdgeGroups: make(map[string][]EdgeRef),
		params:     make([]*topology.Param, len(order)),
	}
	for i, id := range order {
		s := g.State(id)
		m.Names[i] = s.Name
		m.Silent[i] = s.Silent()
		m.params[i] = s.Param
		for _, e := range g.Out(id) {
			if e.Group != "" {
				m.EdgeGroups[e.Group] = append(m.EdgeGroups[e.Group],
					EdgeRef{From: i, Index: len(m.Trans[i])})
			}
			m.Trans[i] = append(m.Trans[i], Transition{
				To:      index[e.To],
				Prob:    e.Prob,
				LogProb: math.Log(e.Prob),
				Group:   e.Group,
			})
		}
	}
	for _, group := range g.TieGroups() {
		tied := make([]int, len(group))
		for i, id := range group {
			tied[i] = index[id]
		}
		m.TieGroups = append(m.TieGroups, tied)
	}
	glog.V(1).Infof("Baked %s.", m.Summary())
	return m, nil
}

func checkMass(g *topology.Graph, tol float64) error {
	for id := topology.StateID(0); int(id) < g.Len(); id++ {
		s := g.State(id)
		out := g.Out(id)
		if id == g.End() {
			if len(out) > 0 {
				return fmt.Errorf("End state has %d outgoing transitions.",
					len(out))
			}
			continue
		}
		if !s.Silent() && s.Param.Dist() == nil {
			return fmt.Errorf("Emitting state '%s' has no distribution.",
				s.Name)
		}
		probs := make([]float64, len(out))
		for i, e := range out {
			if e.To == g.Start() {
				return fmt.Errorf("State '%s' transitions into the start "+
					"state.", s.Name)
			}
			if e.Prob < 0 || math.IsNaN(e.Prob) {
				return fmt.Errorf("Transition '%s' -> '%s' has probability "+
					"%f.", s.Name, g.State(e.To).Name, e.Prob)
			}
			probs[i] = e.Prob
		}
		if sum := floats.Sum(probs); !scalar.EqualWithinAbs(sum, 1, tol) {
			return fmt.Errorf("State '%s' has outgoing probability %f, "+
				"not 1.", s.Name, sum)
		}
	}
	return nil
}

// checkReachable ensures every state lies on some path from start to end.
// Edges of probability zero still count; they may be trained away from zero.
func checkReachable(g *topology.Graph) error {
	forward, backward := simple.NewDirectedGraph(), simple.NewDirectedGraph()
	for id := 0; id < g.Len(); id++ {
		forward.AddNode(simple.Node(id))
		backward.AddNode(simple.Node(id))
	}
	for _, e := range g.Edges() {
		if e.From == e.To {
			continue
		}
		forward.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
		backward.SetEdge(simple.Edge{F: simple.Node(e.To), T: simple.Node(e.From)})
	}

	var fromStart, toEnd traverse.BreadthFirst
	fromStart.Walk(forward, simple.Node(g.Start()), nil)
	toEnd.Walk(backward, simple.Node(g.End()), nil)
	for id := 0; id < g.Len(); id++ {
		if !fromStart.Visited(simple.Node(id)) {
			return fmt.Errorf("State '%s' cannot be reached from the start.",
				g.State(topology.StateID(id)).Name)
		}
		if !toEnd.Visited(simple.Node(id)) {
			return fmt.Errorf("State '%s' cannot reach the end.",
				g.State(topology.StateID(id)).Name)
		}
	}
	return nil
}

// silentOrder sorts the silent states other than start and end so that every
// silent-to-silent edge points forward.
func silentOrder(g *topology.Graph) ([]topology.StateID, error) {
	isInner := func(id topology.StateID) bool {
		return g.State(id).Silent() && id != g.Start() && id != g.End()
	}
	silent := simple.NewDirectedGraph()
	for id := topology.StateID(0); int(id) < g.Len(); id++ {
		if isInner(id) {
			silent.AddNode(simple.Node(id))
		}
	}
	for _, e := range g.Edges() {
		if !isInner(e.From) || !isInner(e.To) {
			continue
		}
		if e.From == e.To {
			return nil, fmt.Errorf("Silent state '%s' loops on itself.",
				g.State(e.From).Name)
		}
		silent.SetEdge(simple.Edge{F: simple.Node(e.From), T: simple.Node(e.To)})
	}

	sorted, err := topo.SortStabilized(silent, nil)
	if err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return nil, fmt.Errorf("Silent states form %d cycle(s), e.g., "+
				"through '%s'.", len(cycles),
				g.State(topology.StateID(cycles[0][0].ID())).Name)
		}
		return nil, err
	}
	order := make([]topology.StateID, len(sorted))
	for i, n := range sorted {
		order[i] = topology.StateID(n.ID())
	}
	return order, nil
}

// Len returns the number of states.
func (m *Model) Len() int {
	return len(m.Names)
}

// Dist returns the live distribution of an emitting state, or nil for a
// silent one.
func (m *Model) Dist(state int) topology.Distribution {
	if m.params[state] == nil {
		return nil
	}
	return m.params[state].Dist()
}

// LogEmission returns the log density of current x in state. Silent states
// emit nothing and return negative infinity.
func (m *Model) LogEmission(state int, x float64) float64 {
	d := m.Dist(state)
	if d == nil {
		return math.Inf(-1)
	}
	return d.LogProb(x)
}

// Summary describes the size of the model in one line.
func (m *Model) Summary() string {
	silent, trans := 0, 0
	for i := range m.Names {
		if m.Silent[i] {
			silent++
		}
		trans += len(m.Trans[i])
	}
	return fmt.Sprintf("%d states (%d silent), %d transitions, "+
		"%d transition groups, %d emission groups",
		m.Len(), silent, trans, len(m.EdgeGroups), len(m.TieGroups))
}
