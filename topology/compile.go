package topology

import (
	"fmt"
	"time"

	"github.com/golang/glog"
)

// A Runtime compiles an assembled graph into a model it can score reads
// with or train. Bake must not modify g.
type Runtime[M any] interface {
	Bake(g *Graph) (M, error)
}

// Compile hands g to rt and logs how long compilation took. Any failure is
// wrapped with ErrCompile; no attempt is made to repair the graph.
func Compile[M any](g *Graph, rt Runtime[M]) (M, error) {
	t0 := time.Now()
	m, err := rt.Bake(g)
	if err != nil {
		var zero M
		return zero, fmt.Errorf("%w: %w", ErrCompile, err)
	}
	glog.Infof("Model optimised in %s.", time.Since(t0))
	return m, nil
}
