package diagnostics

import (
	"math"

	"github.com/montanaflynn/stats"

	"go.viam.com/dynamicgap/scoring"
)

// Summary describes the truncated scores of one tick's candidates.
type Summary struct {
	Candidates int
	// Feasible counts the candidates with a finite score; the statistics cover only those.
	Feasible int
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
}

// Summarize scores each cost array over its first k poses and summarizes the finite scores.
func Summarize(costs [][]float64, k int) (Summary, error) {
	s := Summary{Candidates: len(costs)}
	finite := make(stats.Float64Data, 0, len(costs))
	for _, c := range costs {
		if v := scoring.Truncated(c, k); !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	s.Feasible = len(finite)
	if s.Feasible == 0 {
		return s, nil
	}

	var err error
	if s.Mean, err = finite.Mean(); err != nil {
		return s, err
	}
	if s.Median, err = finite.Median(); err != nil {
		return s, err
	}
	if s.Min, err = finite.Min(); err != nil {
		return s, err
	}
	if s.Max, err = finite.Max(); err != nil {
		return s, err
	}
	return s, nil
}
