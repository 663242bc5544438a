package topology

import (
	"github.com/TuftsBCB/seq"
	"gonum.org/v1/gonum/stat/distuv"
)

// Emissions looks up the pore model entry for a k-mer.
type Emissions interface {
	Lookup(kmer string) (mean, stdv float64, ok bool)
}

func uniform() Distribution {
	return distuv.Uniform{Min: SignalMin, Max: SignalMax}
}

// window returns the k-mer of ref starting at pos.
func window(ref seq.Sequence, pos int) []byte {
	kmer := make([]byte, K)
	for i := range kmer {
		kmer[i] = byte(ref.Residues[pos+i])
	}
	return kmer
}

// addModule adds the six states of one module and its internal edges. The
// module's M1 is tied to its M2; the caller ties the insert state.
func (b *Builder) addModule(g *Graph, pos, source int, match Distribution) Module {
	m := Module{Pos: pos, Source: source}
	for r := SkipStart; r <= SkipEnd; r++ {
		s := State{
			Name:   stateName(r, pos, source),
			Role:   r,
			Pos:    pos,
			Source: source,
			Weight: StateWeight,
		}
		switch r {
		case Insert:
			s.Param = NewParam(uniform())
		case Match2:
			s.Param = NewParam(match)
		}
		m.States[r] = g.addState(s)
	}
	g.tieStates(m.State(Match1), m.State(Match2))

	for _, re := range b.Internal.edges() {
		g.addEdge(Edge{
			From:  m.State(re.from),
			To:    m.State(re.to),
			Prob:  re.prob,
			Base:  re.prob,
			Scale: 1,
			Kind:  Internal,
			Group: edgeGroup(Internal, re.from, re.to),
		})
	}
	return m
}

// link adds the five external edges from module from into module to, each
// scaled by scale.
func (b *Builder) link(g *Graph, kind EdgeKind, from, to Module, scale float64) {
	for _, re := range b.External.edges() {
		g.addEdge(Edge{
			From:  from.State(re.from),
			To:    to.State(re.to),
			Prob:  scale * re.prob,
			Base:  re.prob,
			Scale: scale,
			Kind:  kind,
			Group: edgeGroup(kind, re.from, re.to),
		})
	}
}
