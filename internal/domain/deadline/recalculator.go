package deadline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jurisflow/prazo/internal/infrastructure/monitoring/logging"
	"github.com/jurisflow/prazo/pkg/errors"
)

// Outcome reports one deadline's batch-recompute result.  Err is the
// per-record failure; a failed record never aborts the batch.
type Outcome struct {
	Previous ComputedDeadline
	Next     ComputedDeadline
	Changed  bool
	Err      error
}

// Recalculator recomputes existing deadlines against a newly published rule
// version.  The sweep is re-entrant: it only reads pinned rule-set snapshots,
// so it is safe to run while new computations arrive.
type Recalculator struct {
	calc        *Calculator
	log         logging.Logger
	concurrency int
}

// NewRecalculator wraps calc.  concurrency bounds the parallel recomputes;
// values below 1 mean sequential.
func NewRecalculator(calc *Calculator, concurrency int, log logging.Logger) *Recalculator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Recalculator{calc: calc, log: log.Named("recalculator"), concurrency: concurrency}
}

// RecomputeAll recomputes every deadline in the slice against the given rule
// version (zero selects the active one).  Outcomes keep the input order.
func (r *Recalculator) RecomputeAll(ctx context.Context, deadlines []ComputedDeadline, version int) ([]Outcome, error) {
	outcomes := make([]Outcome, len(deadlines))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, prev := range deadlines {
		i, prev := i, prev
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next, err := r.calc.Recompute(prev, version)
			outcomes[i] = Outcome{
				Previous: prev,
				Next:     next,
				Changed:  err == nil && !next.DueDate.Equal(prev.DueDate),
				Err:      err,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return outcomes, errors.Wrap(err, errors.ErrCodeInternal, "batch recompute interrupted")
	}

	changed, failed := 0, 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		} else if o.Changed {
			changed++
		}
	}
	r.log.Info("batch recompute finished",
		logging.Int("total", len(outcomes)),
		logging.Int("changed", changed),
		logging.Int("failed", failed),
		logging.Int("rule_version", version),
	)
	return outcomes, nil
}
