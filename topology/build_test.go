package topology

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/TuftsBCB/analogue/poremodel"
)

func TestModuleCount(t *testing.T) {
	table := testTable(t)
	for n := MinReference; n <= 20; n++ {
		g, err := BuildTraining(testRef(strings.Repeat("ACGT", 5)[:n]), table)
		require.NoError(t, err)

		modules := g.Modules()
		require.Len(t, modules, n-K)
		assert.Equal(t, 2+ModuleSize*(n-K), g.Len())

		internal := make(map[int]int)
		for _, e := range g.Edges() {
			if e.Kind == Internal {
				internal[g.State(e.From).Pos]++
			}
		}
		for i, m := range modules {
			assert.Equal(t, i, m.Pos)
			assert.Equal(t, 10, internal[i], "internal edges of module %d", i)
			for r := SkipStart; r <= SkipEnd; r++ {
				s := g.State(m.State(r))
				assert.Equal(t, r, s.Role)
				assert.Equal(t, float64(StateWeight), s.Weight)
			}
		}
	}
}

func TestInternalEdges(t *testing.T) {
	g, err := BuildTraining(testRef("ACGTACGTAC"), testTable(t))
	require.NoError(t, err)

	m := g.Module(2)
	out := func(r Role) map[Role]float64 {
		probs := make(map[Role]float64)
		for _, e := range g.Out(m.State(r)) {
			if e.Kind == Internal {
				probs[g.State(e.To).Role] = e.Prob
				assert.Equal(t, "internal_"+r.String()+"-to-"+
					g.State(e.To).Role.String(), e.Group)
			}
		}
		return probs
	}
	assert.Equal(t, map[Role]float64{Match1: 0.97, Match2: 0.03}, out(SkipStart))
	assert.Equal(t, map[Role]float64{Insert: 0.01}, out(Delete))
	assert.Equal(t, map[Role]float64{Insert: 0.50, SkipStart: 0.49}, out(Insert))
	assert.Equal(t, map[Role]float64{Match1: 0.51, SkipEnd: 0.49}, out(Match1))
	assert.Equal(t, map[Role]float64{Match2: 0.97, SkipEnd: 0.03}, out(Match2))
	assert.Equal(t, map[Role]float64{Insert: 0.01}, out(SkipEnd))
}

func TestMainEdges(t *testing.T) {
	g, err := BuildTraining(testRef("ACGTACGTACGT"), testTable(t))
	require.NoError(t, err)

	type hop struct{ from, to Role }
	wantHops := []hop{
		{Delete, Delete}, {Delete, SkipStart}, {Insert, SkipStart},
		{SkipEnd, Delete}, {SkipEnd, SkipStart},
	}
	wantProbs := []float64{0.85, 0.14, 0.01, 0.12, 0.87}

	modules := g.Modules()
	for i := 0; i < len(modules)-1; i++ {
		var hops []hop
		var probs []float64
		for _, e := range g.Edges() {
			if e.Kind != Main || g.State(e.From).Pos != i {
				continue
			}
			require.Equal(t, i+1, g.State(e.To).Pos)
			require.False(t, g.State(e.To).Branch())
			hops = append(hops, hop{g.State(e.From).Role, g.State(e.To).Role})
			probs = append(probs, e.Prob)
			assert.Equal(t, 1.0, e.Scale)
		}
		assert.Equal(t, wantHops, hops, "module %d", i)
		assert.Equal(t, wantProbs, probs, "module %d", i)
	}
	last := modules[len(modules)-1]
	assert.Empty(t, outOfModule(g, last, Main))
}

func TestStartAndEnd(t *testing.T) {
	g, err := BuildTraining(testRef("ACGTACGTACGT"), testTable(t))
	require.NoError(t, err)

	start := g.Out(g.Start())
	require.Len(t, start, 2)
	first := g.Module(0)
	assert.Equal(t, first.State(SkipStart), start[0].To)
	assert.Equal(t, first.State(Delete), start[1].To)
	assert.Equal(t, 0.5, start[0].Prob)
	assert.Equal(t, 0.5, start[1].Prob)
	assert.Equal(t, 1.0, start[0].Prob+start[1].Prob)

	last := g.Module(len(g.Modules()) - 1)
	exits := outOfModule(g, last, Exit)
	require.Len(t, exits, 3)
	want := map[Role]float64{Delete: 0.99, Insert: 0.01, SkipEnd: 0.99}
	for _, e := range exits {
		assert.Equal(t, g.End(), e.To)
		assert.InDelta(t, want[g.State(e.From).Role], e.Prob, 1e-12)
	}
	assert.Empty(t, g.Out(g.End()))
}

func TestOutgoingMass(t *testing.T) {
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, 0.3))
	require.NoError(t, err)
	require.NotEmpty(t, g.Forks())

	for id := StateID(0); int(id) < g.Len(); id++ {
		if id == g.End() {
			continue
		}
		sum := 0.0
		for _, e := range g.Out(id) {
			sum += e.Prob
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "state %s", g.State(id).Name)
	}
}

func TestMatchTied(t *testing.T) {
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, 0.3))
	require.NoError(t, err)

	modules := append([]Module{}, g.Modules()...)
	for _, pos := range g.Forks() {
		b, _ := g.Branch(pos)
		modules = append(modules, b[0], b[1])
	}
	for _, m := range modules {
		m1, m2 := g.State(m.State(Match1)), g.State(m.State(Match2))
		require.True(t, g.Tied(m.State(Match1), m.State(Match2)))
		assert.False(t, m1.Silent())

		d := distuv.Normal{Mu: 101, Sigma: 3}
		m1.Param.Set(d)
		assert.Equal(t, d, m2.Param.Dist(), "module %s", m1.Name)
	}
	// Modules must not share match parameters with each other.
	assert.False(t, g.Tied(g.Module(0).State(Match2), g.Module(1).State(Match2)))
}

func TestInsertShared(t *testing.T) {
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, 0.3))
	require.NoError(t, err)

	var inserts []StateID
	for id := StateID(0); int(id) < g.Len(); id++ {
		if g.State(id).Role == Insert {
			inserts = append(inserts, id)
		}
	}
	require.Len(t, inserts, len(g.Modules())+2*len(g.Forks()))
	for _, id := range inserts[1:] {
		assert.True(t, g.Tied(inserts[0], id), g.State(id).Name)
	}
	assert.Equal(t, distuv.Uniform{Min: SignalMin, Max: SignalMax},
		g.State(inserts[len(inserts)-1]).Param.Dist())

	// One group for all inserts plus one per module's match pair.
	assert.Len(t, g.TieGroups(), 1+len(inserts))
}

func TestTrainingEqualsDetection(t *testing.T) {
	table := testTable(t)
	ref := testRef("ACGTTAGCAT")

	training, err := BuildTraining(ref, table)
	require.NoError(t, err)
	detection, err := BuildDetection(ref, table, nil)
	require.NoError(t, err)
	requireSameGraph(t, training, detection)
}

func TestNoQualifyingBase(t *testing.T) {
	table := testTable(t)
	ref := testRef("ACGACGGACCAGGACAGCAGACCA")

	training, err := BuildTraining(ref, table)
	require.NoError(t, err)
	detection, err := BuildDetection(ref, table, testAnalogue(t, 0.5))
	require.NoError(t, err)
	assert.Empty(t, detection.Forks())
	requireSameGraph(t, training, detection)
}

func TestNoRoomToFork(t *testing.T) {
	table := testTable(t)

	// Ten bases give four modules; a fork needs four more after it.
	ref := testRef("TTTTTTTTTT")
	training, err := BuildTraining(ref, table)
	require.NoError(t, err)
	detection, err := BuildDetection(ref, table, testAnalogue(t, 0.5))
	require.NoError(t, err)
	assert.Empty(t, detection.Forks())
	requireSameGraph(t, training, detection)

	// With eleven bases only the first position has room.
	detection, err = BuildDetection(testRef("TTTTTTTTTTT"), table,
		testAnalogue(t, 0.5))
	require.NoError(t, err)
	assert.Equal(t, []int{0}, detection.Forks())
}

func TestFork(t *testing.T) {
	const c = 0.3
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, c))
	require.NoError(t, err)
	require.Equal(t, []int{0}, g.Forks())

	branch, ok := g.Branch(0)
	require.True(t, ok)
	assert.Equal(t, 1, branch[0].Pos)
	assert.Equal(t, 2, branch[1].Pos)
	assert.Equal(t, 0, branch[0].Source)
	assert.Equal(t, 0, branch[1].Source)
	assert.Equal(t, "M2_1_from_0", g.State(branch[0].State(Match2)).Name)
	_, ok = g.Branch(1)
	assert.False(t, ok)

	fork := outOfModule(g, g.Module(0), ForkIn)
	straight := outOfModule(g, g.Module(0), Main)
	require.Len(t, fork, 5)
	require.Len(t, straight, 5)
	for i := range fork {
		assert.Equal(t, branch[0].Pos, g.State(fork[i].To).Pos)
		assert.True(t, g.State(fork[i].To).Branch())
		assert.Equal(t, c, fork[i].Scale)
		assert.InDelta(t, 1-c, straight[i].Scale, 1e-15)
		assert.Equal(t, fork[i].Base, straight[i].Base)
		assert.Equal(t, g.State(fork[i].To).Role, g.State(straight[i].To).Role)
		assert.InDelta(t, fork[i].Base, fork[i].Prob+straight[i].Prob, 1e-12)
	}

	step := outOfModule(g, branch[0], BranchStep)
	require.Len(t, step, 5)
	for _, e := range step {
		assert.Equal(t, 1.0, e.Scale)
		assert.Equal(t, e.Base, e.Prob)
		assert.Equal(t, branch[1].Pos, g.State(e.To).Pos)
		assert.True(t, g.State(e.To).Branch())
	}

	merge := outOfModule(g, branch[1], Merge)
	require.Len(t, merge, 5)
	for _, e := range merge {
		assert.Equal(t, e.Base, e.Prob)
		assert.Equal(t, 3, g.State(e.To).Pos)
		assert.False(t, g.State(e.To).Branch())
	}

	// Canonical modules inside the fork still chain normally.
	for _, pos := range []int{1, 2} {
		for _, e := range outOfModule(g, g.Module(pos), Main) {
			assert.Equal(t, 1.0, e.Scale)
		}
	}
}

func TestBranchEmissions(t *testing.T) {
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, 0.3))
	require.NoError(t, err)

	branch, _ := g.Branch(0)
	assert.Equal(t, distuv.Normal{Mu: 90, Sigma: 4},
		g.State(branch[0].State(Match2)).Param.Dist())
	assert.Equal(t, distuv.Uniform{Min: SignalMin, Max: SignalMax},
		g.State(branch[1].State(Match2)).Param.Dist())

	mean, stdv, _ := testTable(t).Lookup("AAAATA")
	assert.Equal(t, distuv.Normal{Mu: mean, Sigma: stdv},
		g.State(g.Module(0).State(Match2)).Param.Dist())
}

func TestAnalogueInMainTable(t *testing.T) {
	table := testTable(t)
	require.NoError(t, table.Set("AABAAA", poremodel.Entry{Mean: 70, StdDev: 1}))
	g, err := BuildDetection(testRef(forkRef), table, NewAnalogue("EdU", 0.1, nil))
	require.NoError(t, err)

	branch, _ := g.Branch(0)
	assert.Equal(t, distuv.Normal{Mu: 70, Sigma: 2},
		g.State(branch[1].State(Match2)).Param.Dist())
}

func TestConcentrationBounds(t *testing.T) {
	table := testTable(t)
	for _, c := range []float64{0, 1} {
		g, err := BuildDetection(testRef(forkRef), table, testAnalogue(t, c))
		require.NoError(t, err)
		assert.Equal(t, []int{0}, g.Forks())
	}
	for _, c := range []float64{-0.1, 1.5} {
		_, err := BuildDetection(testRef(forkRef), table, testAnalogue(t, c))
		assert.True(t, errors.Is(err, ErrConcentration), "concentration %f", c)
	}
}

func TestShortReference(t *testing.T) {
	_, err := BuildTraining(testRef("ACGTAC"), testTable(t))
	assert.True(t, errors.Is(err, ErrShortReference))

	g, err := BuildTraining(testRef("ACGTACG"), testTable(t))
	require.NoError(t, err)
	assert.Len(t, g.Modules(), 1)
}

func TestMissingKmer(t *testing.T) {
	// A reference carrying the analogue has no canonical entry.
	_, err := BuildTraining(testRef("ACGTACBTACG"), testTable(t))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingKmer))
	assert.Contains(t, err.Error(), "CGTACB")
}

func TestAnalogueInReference(t *testing.T) {
	ref := testRef("AAAAABAAAAAA")
	em := poremodel.NewTable(K)
	for i := 0; i < K; i++ {
		kmer := []byte("AAAAAA")
		kmer[i] = 'B'
		require.NoError(t, em.Set(string(kmer),
			poremodel.Entry{Mean: 95 + float64(i), StdDev: 2}))
	}

	_, err := BuildTraining(ref, testTable(t))
	assert.True(t, errors.Is(err, ErrMissingKmer))

	g, err := BuildDetection(ref, testTable(t), NewAnalogue("BrdU", 0.3, em))
	require.NoError(t, err)
	assert.Empty(t, g.Forks())
	require.Len(t, g.Modules(), 6)
	assert.Equal(t, distuv.Normal{Mu: 100, Sigma: 2},
		g.State(g.Module(0).State(Match2)).Param.Dist())
	assert.Equal(t, distuv.Normal{Mu: 95, Sigma: 2},
		g.State(g.Module(5).State(Match2)).Param.Dist())
}

func TestProgress(t *testing.T) {
	b := NewBuilder(nil)
	var seen []int
	b.Progress = func(pos int) { seen = append(seen, pos) }
	_, err := b.Build(testRef("ACGTACGTACGT"), testTable(t))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, seen)
}

func TestStateNamesUnique(t *testing.T) {
	g, err := BuildDetection(testRef("ACGTTAGCATTGACTTAGCAAGT"), testTable(t),
		testAnalogue(t, 0.2))
	require.NoError(t, err)
	require.NotEmpty(t, g.Forks())

	names, _ := describe(g)
	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate state %s", name)
		seen[name] = true
	}
}

func TestEdgeGroups(t *testing.T) {
	g, err := BuildDetection(testRef(forkRef), testTable(t), testAnalogue(t, 0.3))
	require.NoError(t, err)

	groups := g.EdgeGroups()
	n := len(g.Modules()) + 2*len(g.Forks())
	assert.Len(t, groups["internal_SS-to-M1"], n)
	assert.Len(t, groups["fork_D-to-D"], 1)
	assert.Len(t, groups["branch_SE-to-SS"], 1)
	assert.Len(t, groups["merge_I-to-SS"], 1)
	assert.Len(t, groups["main_D-to-D"], len(g.Modules())-1)
	edges := g.Edges()
	for _, es := range groups {
		for _, i := range es {
			assert.NotEqual(t, Entry, edges[i].Kind)
			assert.NotEqual(t, Exit, edges[i].Kind)
		}
	}
}

func TestGraphViewsAreCopies(t *testing.T) {
	g, err := BuildTraining(testRef("ACGTACGTAC"), testTable(t))
	require.NoError(t, err)
	_, before := describe(g)

	edges := g.Edges()
	edges[0].Prob = 0.25
	edges[0].To = g.End()
	modules := g.Modules()
	modules[0].Pos = 7

	_, after := describe(g)
	assert.Equal(t, before, after)
	assert.Equal(t, 0, g.Modules()[0].Pos)
}
