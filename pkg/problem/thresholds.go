package problem

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/ekaya-inc/ekaya-trane/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/labeler"
	"github.com/ekaya-inc/ekaya-trane/pkg/models"
	"github.com/ekaya-inc/ekaya-trane/pkg/ops"
	"github.com/ekaya-inc/ekaya-trane/pkg/stats"
)

// ThresholdConfig tunes threshold recommendation.
type ThresholdConfig struct {
	// NumQuantiles is the number of quantile bins of a numeric filter column.
	NumQuantiles int
	// TopK is the number of most frequent values proposed for a categorical filter.
	TopK int
	// SampleCap bounds the number of numeric candidates scored; larger sets are sampled.
	SampleCap int
	// Seed makes the sample reproducible.
	Seed uint64
}

// DefaultThresholdConfig returns 10 quantiles, top 3 and a sample cap of 10.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{NumQuantiles: 10, TopK: 3, SampleCap: 10}
}

// Candidate is a proposed threshold with its score. Numeric candidates are scored by the
// uncertainty of the resulting targets, categorical ones by frequency.
type Candidate struct {
	Threshold any
	Score     float64
}

// RecommendThresholds proposes values for the filter's single parameter, best first.
// It returns no candidates for filters without parameters or for columns with fewer than
// two distinct values.
func (p *Problem) RecommendThresholds(f *frame.Frame, cfg ThresholdConfig) ([]Candidate, error) {
	params := p.Filter.RequiredParameters()
	switch {
	case len(params) == 0:
		return nil, nil
	case len(params) > 1:
		return nil, fmt.Errorf("%w: threshold inference for %d parameters of %s", apperrors.ErrNotImplemented, len(params), p.Filter.Name())
	}
	s, ok := f.Column(p.Filter.ColumnName())
	if !ok {
		return nil, fmt.Errorf("%w: filter column %q", apperrors.ErrUnknownColumn, p.Filter.ColumnName())
	}
	if params[0].Kind == ops.ParamColumnValue {
		return topK(s, cfg.TopK), nil
	}
	return p.uncertaintyCandidates(f, s, params[0].Name, cfg)
}

// InferThresholds sets the best recommended threshold. It reports false when no candidate
// exists, leaving the parameters unset.
func (p *Problem) InferThresholds(f *frame.Frame, cfg ThresholdConfig) (bool, error) {
	params := p.Filter.RequiredParameters()
	if len(params) == 0 {
		return true, nil
	}
	candidates, err := p.RecommendThresholds(f, cfg)
	if err != nil || len(candidates) == 0 {
		return false, err
	}
	if err := p.SetParameters(map[string]any{params[0].Name: candidates[0].Threshold}); err != nil {
		return false, err
	}
	return true, nil
}

func topK(s *frame.Series, k int) []Candidate {
	counts := s.ValueCounts()
	if len(counts) < 2 {
		return nil
	}
	if k > 0 && len(counts) > k {
		counts = counts[:k]
	}
	out := make([]Candidate, len(counts))
	for i, c := range counts {
		out[i] = Candidate{Threshold: c.Value, Score: float64(c.Count)}
	}
	return out
}

// quantileEdges returns the distinct interior quantile edges of x, ascending.
func quantileEdges(x []float64, n int) []float64 {
	if n < 2 {
		n = 2
	}
	var edges []float64
	for i := 1; i < n; i++ {
		q, ok := stats.Quantile(x, float64(i)/float64(n))
		if ok && !slices.Contains(edges, q) {
			edges = append(edges, q)
		}
	}
	slices.Sort(edges)
	return edges
}

func (p *Problem) uncertaintyCandidates(f *frame.Frame, s *frame.Series, param string, cfg ThresholdConfig) ([]Candidate, error) {
	if len(s.Unique()) < 2 {
		return nil, nil
	}
	edges := quantileEdges(s.Floats(), cfg.NumQuantiles)
	if cfg.SampleCap > 0 && len(edges) > cfg.SampleCap {
		r := rand.New(rand.NewPCG(cfg.Seed, 0))
		r.Shuffle(len(edges), func(i, j int) { edges[i], edges[j] = edges[j], edges[i] })
		edges = edges[:cfg.SampleCap]
		slices.Sort(edges)
	}

	classification := p.ProblemType() == models.ProblemTypeClassification
	out := make([]Candidate, 0, len(edges))
	for _, edge := range edges {
		trial := p.Clone()
		if err := trial.ResetParameters(map[string]any{param: edge}); err != nil {
			return nil, err
		}
		labels, err := trial.CreateTargetValues(f)
		if err != nil {
			return nil, err
		}
		targets, _ := labels.Column(labeler.TargetColumn)
		out = append(out, Candidate{Threshold: edge, Score: uncertainty(targets, classification)})
	}
	// edges are ascending, so a stable sort keeps the smaller threshold first on ties
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out, nil
}

// uncertainty is the entropy of a boolean target or the variance of a numeric one.
// Targets with no present values score -Inf.
func uncertainty(targets *frame.Series, classification bool) float64 {
	if classification {
		counts := map[bool]int{}
		for _, v := range targets.Values() {
			if b, ok := v.(bool); ok {
				counts[b]++
			}
		}
		if counts[true]+counts[false] == 0 {
			return math.Inf(-1)
		}
		return stats.EntropyFromCounts([]int{counts[true], counts[false]})
	}
	x := targets.Floats()
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return stats.Variance(x)
}
