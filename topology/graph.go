package topology

import (
	"fmt"
	"sort"
)

// EdgeKind says which part of the topology an edge belongs to.
type EdgeKind int

const (
	// Internal edges stay inside a module.
	Internal EdgeKind = iota
	// Main edges join consecutive modules on the canonical path.
	Main
	// ForkIn edges leave a canonical module for the first branch module.
	ForkIn
	// BranchStep edges join the two modules of a branch.
	BranchStep
	// Merge edges return from a branch to the canonical path.
	Merge
	// Entry and Exit edges connect the pseudo-states.
	Entry
	Exit
)

var kindNames = [...]string{
	"internal", "main", "fork", "branch", "merge", "entry", "exit",
}

func (k EdgeKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
	return kindNames[k]
}

// Edge is a transition between two states.
//
// Prob is Base*Scale. Base comes from the probability table; Scale is the
// analogue concentration (or its complement) on a fork and 1 elsewhere.
// Edges sharing a Group are trained in lockstep.
type Edge struct {
	From, To StateID
	Prob     float64
	Base     float64
	Scale    float64
	Kind     EdgeKind
	Group    string
}

// Module is the fixed set of states built for one reference position.
type Module struct {
	Pos    int
	Source int // -1 unless this is a branch module
	States [ModuleSize]StateID
}

// State returns the ID of the module's state with role r.
func (m Module) State(r Role) StateID {
	return m.States[r]
}

// Graph is an assembled topology: states, their tied parameters and the
// edges between them. A Graph is built once and is not changed by this
// package afterwards.
type Graph struct {
	states   []State
	edges    []Edge
	out      [][]int
	modules  []Module
	branches map[int][2]Module
	start    StateID
	end      StateID
}

func newGraph(modules int) *Graph {
	g := &Graph{
		states:   make([]State, 0, 2+ModuleSize*modules),
		edges:    make([]Edge, 0, 15*modules),
		modules:  make([]Module, 0, modules),
		branches: make(map[int][2]Module),
	}
	g.start = g.addState(State{Name: "start", Role: Begin, Pos: -1, Source: -1})
	g.end = g.addState(State{Name: "end", Role: End, Pos: -1, Source: -1})
	return g
}

func (g *Graph) addState(s State) StateID {
	g.states = append(g.states, s)
	g.out = append(g.out, nil)
	return StateID(len(g.states) - 1)
}

func (g *Graph) addEdge(e Edge) {
	g.out[e.From] = append(g.out[e.From], len(g.edges))
	g.edges = append(g.edges, e)
}

// tieStates makes a share b's parameters. A silent a simply takes b's
// handle.
func (g *Graph) tieStates(a, b StateID) {
	sa, sb := &g.states[a], &g.states[b]
	if sa.Param == nil {
		sa.Param = sb.Param
		return
	}
	tie(sa.Param, sb.Param)
}

// Start returns the begin pseudo-state.
func (g *Graph) Start() StateID { return g.start }

// End returns the end pseudo-state.
func (g *Graph) End() StateID { return g.end }

// Len returns the number of states, pseudo-states included.
func (g *Graph) Len() int { return len(g.states) }

// State returns the state with the given ID.
func (g *Graph) State(id StateID) *State { return &g.states[id] }

// Edges returns a copy of every edge in the order it was added.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// Out returns the edges leaving id.
func (g *Graph) Out(id StateID) []Edge {
	es := make([]Edge, len(g.out[id]))
	for i, ei := range g.out[id] {
		es[i] = g.edges[ei]
	}
	return es
}

// Modules returns a copy of the canonical modules ordered by position.
func (g *Graph) Modules() []Module { return append([]Module(nil), g.modules...) }

// Module returns the canonical module at reference position pos.
func (g *Graph) Module(pos int) Module { return g.modules[pos] }

// Branch returns the two branch modules forking from position source.
func (g *Graph) Branch(source int) ([2]Module, bool) {
	b, ok := g.branches[source]
	return b, ok
}

// Forks returns the positions that spawn a branch, in increasing order.
func (g *Graph) Forks() []int {
	forks := make([]int, 0, len(g.branches))
	for pos := range g.branches {
		forks = append(forks, pos)
	}
	sort.Ints(forks)
	return forks
}

// Tied reports whether a and b share live emission parameters.
func (g *Graph) Tied(a, b StateID) bool {
	pa, pb := g.states[a].Param, g.states[b].Param
	return pa != nil && pb != nil && pa.Same(pb)
}

// TieGroups partitions the emitting states by the distribution they share.
// Groups are ordered by their first state.
func (g *Graph) TieGroups() [][]StateID {
	var groups [][]StateID
	index := make(map[*Param]int)
	for i := range g.states {
		p := g.states[i].Param
		if p == nil {
			continue
		}
		r := p.root()
		gi, ok := index[r]
		if !ok {
			gi = len(groups)
			index[r] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], StateID(i))
	}
	return groups
}

// EdgeGroups maps each edge group to the indices (into Edges) of its edges.
// Entry and exit edges belong to no group.
func (g *Graph) EdgeGroups() map[string][]int {
	groups := make(map[string][]int)
	for i, e := range g.edges {
		if e.Group == "" {
			continue
		}
		groups[e.Group] = append(groups[e.Group], i)
	}
	return groups
}

func edgeGroup(k EdgeKind, from, to Role) string {
	return fmt.Sprintf("%s_%s-to-%s", k, from, to)
}
