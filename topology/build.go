package topology

import (
	"fmt"

	"github.com/TuftsBCB/seq"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat/distuv"
)

// Builder builds topologies. The zero value is not usable; use NewBuilder.
type Builder struct {
	Internal InternalProbs
	External ExternalProbs

	// Analogue enables branching when non-nil.
	Analogue *Analogue

	// Progress, if set, is called after the edges leaving each canonical
	// module have been added.
	Progress func(pos int)
}

// NewBuilder returns a builder using the default probability tables. A nil
// analogue builds a topology without branches.
func NewBuilder(a *Analogue) *Builder {
	return &Builder{
		Internal: DefaultInternal,
		External: DefaultExternal,
		Analogue: a,
	}
}

// BuildDetection builds a topology for detecting analogue a in reads of ref.
// With a nil analogue the result is the same as BuildTraining.
func BuildDetection(ref seq.Sequence, table Emissions, a *Analogue) (*Graph, error) {
	return NewBuilder(a).Build(ref, table)
}

// BuildTraining builds the topology used to train emissions when the
// analogue position is known. It never branches.
func BuildTraining(ref seq.Sequence, table Emissions) (*Graph, error) {
	return NewBuilder(nil).Build(ref, table)
}

// Build assembles the full topology over ref.
//
// Every canonical module is built before any edge between modules is added,
// since branches reach up to three modules ahead.
func (b *Builder) Build(ref seq.Sequence, table Emissions) (*Graph, error) {
	if len(ref.Residues) < MinReference {
		return nil, fmt.Errorf("Reference '%s' has length %d, need at "+
			"least %d: %w", ref.Name, len(ref.Residues), MinReference,
			ErrShortReference)
	}
	if b.Analogue != nil {
		if err := b.Analogue.Validate(); err != nil {
			return nil, err
		}
	}

	n := len(ref.Residues) - K
	g := newGraph(n)
	for i := 0; i < n; i++ {
		kmer := window(ref, i)
		mean, stdv, ok := b.lookup(table, string(kmer))
		if !ok {
			return nil, fmt.Errorf("Could not find k-mer '%s' at "+
				"position %d: %w", kmer, i, ErrMissingKmer)
		}
		m := b.addModule(g, i, -1, distuv.Normal{Mu: mean, Sigma: stdv})
		if i > 0 {
			g.tieStates(m.State(Insert), g.modules[0].State(Insert))
		}
		g.modules = append(g.modules, m)
	}

	last := n - 1
	for i := 0; i < n; i++ {
		if b.forks(ref, i, last) {
			b.addBranch(g, ref, table, i)
		} else if i != last {
			b.link(g, Main, g.modules[i], g.modules[i+1], 1)
		}
		if b.Progress != nil {
			b.Progress(i)
		}
	}
	b.assemble(g)

	glog.Infof("Built topology over '%s': %d modules, %d forks, "+
		"%d states, %d edges.", ref.Name, n, len(g.branches), g.Len(),
		len(g.edges))
	return g, nil
}

// lookup finds the level of a canonical window. In detection mode the
// analogue's entries are consulted too, so references that already carry the
// analogue symbol can be modelled.
func (b *Builder) lookup(table Emissions, kmer string) (float64, float64, bool) {
	if b.Analogue != nil {
		return b.Analogue.lookup(table, kmer)
	}
	return table.Lookup(kmer)
}

// assemble wires the pseudo-states: the first module is entered at SS or D
// with equal probability, and the last module leaves for the end state.
func (b *Builder) assemble(g *Graph) {
	first := g.modules[0]
	for _, r := range []Role{SkipStart, Delete} {
		g.addEdge(Edge{
			From:  g.start,
			To:    first.State(r),
			Prob:  StartProb,
			Base:  StartProb,
			Scale: 1,
			Kind:  Entry,
		})
	}

	last := g.modules[len(g.modules)-1]
	for _, re := range b.External.exits() {
		g.addEdge(Edge{
			From:  last.State(re.from),
			To:    g.end,
			Prob:  re.prob,
			Base:  re.prob,
			Scale: 1,
			Kind:  Exit,
		})
	}
}
