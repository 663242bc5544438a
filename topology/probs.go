package topology

// K is the length of the window of reference held in the pore at once.
const K = 6

// MinReference is the shortest reference a topology can be built over.
const MinReference = K + 1

// StateWeight is the structural weight every state carries. It only breaks
// ties when the runtime merges states during compilation.
const StateWeight = 5

// StartProb is the probability of entering the first module at each of its
// two entry points.
const StartProb = 0.5

// The signal range, in pA, of the uniform distribution used for insertions
// and for analogue k-mers with no pore model entry.
const (
	SignalMin = 30.0
	SignalMax = 130.0
)

// InternalProbs are the transition probabilities inside a module.
type InternalProbs struct {
	SSToM1, SSToM2 float64
	DToI           float64
	IToI, IToSS    float64
	M1ToM1, M1ToSE float64
	M2ToM2, M2ToSE float64
	SEToI          float64
}

// ExternalProbs are the transition probabilities from a module into the
// entry points of the module that follows it.
type ExternalProbs struct {
	DToD, DToSS   float64
	IToSS         float64
	SEToD, SEToSS float64
}

var DefaultInternal = InternalProbs{
	SSToM1: 0.97, SSToM2: 0.03,
	DToI:   0.01,
	IToI:   0.50, IToSS: 0.49,
	M1ToM1: 0.51, M1ToSE: 0.49,
	M2ToM2: 0.97, M2ToSE: 0.03,
	SEToI:  0.01,
}

var DefaultExternal = ExternalProbs{
	DToD: 0.85, DToSS: 0.14,
	IToSS: 0.01,
	SEToD: 0.12, SEToSS: 0.87,
}

// edges lists the internal transitions in the order they are added.
func (p InternalProbs) edges() []roleEdge {
	return []roleEdge{
		{SkipStart, Match1, p.SSToM1},
		{SkipStart, Match2, p.SSToM2},
		{Delete, Insert, p.DToI},
		{Insert, Insert, p.IToI},
		{Insert, SkipStart, p.IToSS},
		{Match1, Match1, p.M1ToM1},
		{Match1, SkipEnd, p.M1ToSE},
		{Match2, Match2, p.M2ToM2},
		{Match2, SkipEnd, p.M2ToSE},
		{SkipEnd, Insert, p.SEToI},
	}
}

// edges lists the external transitions in the order they are added.
func (p ExternalProbs) edges() []roleEdge {
	return []roleEdge{
		{Delete, Delete, p.DToD},
		{Delete, SkipStart, p.DToSS},
		{Insert, SkipStart, p.IToSS},
		{SkipEnd, Delete, p.SEToD},
		{SkipEnd, SkipStart, p.SEToSS},
	}
}

// exits lists the transitions out of the last module into the end state.
// With nothing to route into, each state leaves with the mass it would have
// sent to the next module.
func (p ExternalProbs) exits() []roleEdge {
	return []roleEdge{
		{Delete, End, p.DToD + p.DToSS},
		{Insert, End, p.IToSS},
		{SkipEnd, End, p.SEToSS + p.SEToD},
	}
}

type roleEdge struct {
	from, to Role
	prob     float64
}
