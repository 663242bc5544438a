package topology

import (
	"fmt"
)

// Role is the part a state plays inside its module.
type Role int

const (
	SkipStart Role = iota
	Delete
	Insert
	Match1
	Match2
	SkipEnd

	// Begin and End are the model's pseudo-states. They belong to no module.
	Begin
	End
)

// ModuleSize is the number of states in every module.
const ModuleSize = int(SkipEnd) + 1

var roleNames = [...]string{"SS", "D", "I", "M1", "M2", "SE", "start", "end"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// StateID indexes a state in its Graph.
type StateID int

// A Distribution is an emission distribution over current levels. Both
// distuv.Normal and distuv.Uniform satisfy it.
type Distribution interface {
	LogProb(x float64) float64
	Mean() float64
	StdDev() float64
}

// Param is a handle on an emission distribution. States whose parameters
// are tied hold handles that resolve to one live distribution, so a change
// made through any of them is seen by all.
type Param struct {
	parent *Param
	dist   Distribution
}

// NewParam returns a handle owning d.
func NewParam(d Distribution) *Param {
	return &Param{dist: d}
}

func (p *Param) root() *Param {
	r := p
	for r.parent != nil {
		r = r.parent
	}
	// Path compression.
	for p != r {
		next := p.parent
		p.parent = r
		p = next
	}
	return r
}

// Dist returns the live distribution shared by every handle tied to p.
func (p *Param) Dist() Distribution {
	return p.root().dist
}

// Set replaces the distribution for every handle tied to p.
func (p *Param) Set(d Distribution) {
	p.root().dist = d
}

// Same reports whether p and q resolve to the same distribution.
func (p *Param) Same(q *Param) bool {
	return p.root() == q.root()
}

// tie joins the groups of p and q. The distribution of q's group survives.
func tie(p, q *Param) {
	rp, rq := p.root(), q.root()
	if rp != rq {
		rp.parent = rq
		rp.dist = nil
	}
}

// State is a node of the topology. Silent states have no Param.
type State struct {
	Name   string
	Role   Role
	Pos    int // reference position of the module; -1 for Begin and End
	Source int // position a branch module forks from; -1 on the main path
	Weight float64
	Param  *Param
}

// Silent reports whether the state emits nothing.
func (s *State) Silent() bool {
	return s.Param == nil
}

// Branch reports whether the state lives in an analogue branch.
func (s *State) Branch() bool {
	return s.Source >= 0
}

func stateName(r Role, pos, source int) string {
	if source >= 0 {
		return fmt.Sprintf("%s_%d_from_%d", r, pos, source)
	}
	return fmt.Sprintf("%s_%d", r, pos)
}
