package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-trane/pkg/frame"
	"github.com/ekaya-inc/ekaya-trane/pkg/labeler"
	"github.com/ekaya-inc/ekaya-trane/pkg/problem"
	"github.com/ekaya-inc/ekaya-trane/pkg/workerpool"
)

// LabelResult is the label table of one problem, or the error that prevented it.
type LabelResult struct {
	ProblemID uuid.UUID
	Problem   *problem.Problem
	Labels    *frame.Frame
	Err       error
}

// LabelingService materializes label tables for many problems over one frame.
type LabelingService interface {
	// LabelAll labels f once per problem. Results are in the order of problems; a failing
	// problem does not stop the others.
	LabelAll(ctx context.Context, problems []*problem.Problem, f *frame.Frame) []LabelResult
}

type labelingService struct {
	pool   *workerpool.Pool
	opts   labeler.Options
	logger *zap.Logger
}

var _ LabelingService = (*labelingService)(nil)

// NewLabelingService creates a labeling service. Empty fields of opts default per problem to
// its entity column, time index and window size.
func NewLabelingService(pool *workerpool.Pool, opts labeler.Options, logger *zap.Logger) LabelingService {
	return &labelingService{
		pool:   pool,
		opts:   opts,
		logger: logger.Named("labeling"),
	}
}

func (s *labelingService) LabelAll(ctx context.Context, problems []*problem.Problem, f *frame.Frame) []LabelResult {
	start := time.Now()
	jobs := make([]workerpool.Job[*frame.Frame], len(problems))
	for i, p := range problems {
		jobs[i] = workerpool.Job[*frame.Frame]{
			ID: p.ID().String(),
			Execute: func(ctx context.Context) (*frame.Frame, error) {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return p.Label(f, s.opts)
			},
		}
	}

	results := workerpool.Process(ctx, s.pool, jobs, func(completed, total int) {
		s.logger.Debug("Labeling progress", zap.Int("completed", completed), zap.Int("total", total))
	})

	out := make([]LabelResult, len(problems))
	failed := 0
	for i, r := range results {
		out[i] = LabelResult{
			ProblemID: problems[i].ID(),
			Problem:   problems[i],
			Labels:    r.Value,
			Err:       r.Err,
		}
		if r.Err != nil {
			failed++
			s.logger.Warn("Labeling failed",
				zap.String("problem_id", r.ID),
				zap.String("problem", problems[i].String()),
				zap.Error(r.Err))
		}
	}

	s.logger.Info("Labeled problems",
		zap.Int("problems", len(problems)),
		zap.Int("failed", failed),
		zap.Int("workers", s.pool.MaxConcurrent()),
		zap.Duration("elapsed", time.Since(start)))
	return out
}
