package topology

import (
	"fmt"
	"math"

	"github.com/TuftsBCB/seq"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/stat/distuv"
)

// The base that enters the centre of the pore two modules after position i
// sits at this offset into the window at i.
const forkOffset = 4

// Analogue describes a base analogue that may be incorporated in place of a
// canonical base.
type Analogue struct {
	Name string

	// Symbol marks the analogue inside pore model k-mers.
	Symbol seq.Residue

	// Replaces is the canonical base the analogue is incorporated for.
	Replaces seq.Residue

	// Concentration is the prior probability, in [0, 1], of taking the
	// analogue branch at each fork.
	Concentration float64

	// Emissions holds pore model entries for analogue k-mers. It may be nil,
	// in which case analogue k-mers are looked up in the main pore model.
	Emissions Emissions
}

// NewAnalogue returns the usual thymidine analogue (e.g., BrdU) marked 'B'.
func NewAnalogue(name string, concentration float64, em Emissions) *Analogue {
	return &Analogue{
		Name:          name,
		Symbol:        'B',
		Replaces:      'T',
		Concentration: concentration,
		Emissions:     em,
	}
}

// Validate checks that the concentration is a probability.
func (a *Analogue) Validate() error {
	c := a.Concentration
	if math.IsNaN(c) || c < 0 || c > 1 {
		return fmt.Errorf("Analogue '%s' has concentration %f: %w",
			a.Name, c, ErrConcentration)
	}
	return nil
}

func (a *Analogue) lookup(main Emissions, kmer string) (float64, float64, bool) {
	if a.Emissions != nil {
		if mean, stdv, ok := a.Emissions.Lookup(kmer); ok {
			return mean, stdv, true
		}
	}
	return main.Lookup(kmer)
}

// forks reports whether position i spawns an analogue branch. There must be
// room for both branch modules and the canonical module they merge into.
func (b *Builder) forks(ref seq.Sequence, i, last int) bool {
	a := b.Analogue
	return a != nil && i <= last-forkOffset && ref.Residues[i+forkOffset] == a.Replaces
}

// analogueMatch returns the match distribution of the branch module at pos,
// where the analogue sits at offset in the window. The spread is doubled
// since analogue models are less certain.
func (b *Builder) analogueMatch(ref seq.Sequence, table Emissions, pos, offset int) Distribution {
	kmer := window(ref, pos)
	kmer[offset] = byte(b.Analogue.Symbol)
	if mean, stdv, ok := b.Analogue.lookup(table, string(kmer)); ok {
		return distuv.Normal{Mu: mean, Sigma: 2 * stdv}
	}
	glog.Warningf("No pore model entry for analogue k-mer '%s'; "+
		"emitting uniformly on [%g, %g].", kmer, SignalMin, SignalMax)
	return uniform()
}

// addBranch builds the branch forking from canonical module i and wires it
// in. Module i's outgoing mass is split between the branch (concentration)
// and module i+1 (its complement).
func (b *Builder) addBranch(g *Graph, ref seq.Sequence, table Emissions, i int) {
	first := b.addModule(g, i+1, i, b.analogueMatch(ref, table, i+1, forkOffset-1))
	second := b.addModule(g, i+2, i, b.analogueMatch(ref, table, i+2, forkOffset-2))

	insert := g.modules[0].State(Insert)
	g.tieStates(first.State(Insert), insert)
	g.tieStates(second.State(Insert), insert)
	g.branches[i] = [2]Module{first, second}

	c := b.Analogue.Concentration
	b.link(g, ForkIn, g.modules[i], first, c)
	b.link(g, Main, g.modules[i], g.modules[i+1], 1-c)
	b.link(g, BranchStep, first, second, 1)
	b.link(g, Merge, second, g.modules[i+3], 1)

	glog.V(1).Infof("Forked %s branch from position %d to rejoin at %d.",
		b.Analogue.Name, i, i+3)
}
