package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"portfolio-backtest/internal/model"
	"portfolio-backtest/internal/strategy"

	"golang.org/x/sync/errgroup"
)

// CompareStrategies runs every policy over the same data and options and
// returns the results keyed by label. Runs execute on at most workers
// goroutines; workers <= 0 means one per policy.
func (e *Engine) CompareStrategies(ctx context.Context, data *model.PriceData, policies map[string]strategy.Policy, opts Options, workers int) (map[string]*Result, error) {
	labels := make([]string, 0, len(policies))
	for label := range policies {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	results := make([]*Result, len(labels))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers, len(labels)))
	for i, label := range labels {
		i, label := i, label
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Name = label
			res, err := e.Run(data, policies[label], o)
			if err != nil {
				return fmt.Errorf("%s: %w", label, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]*Result, len(labels))
	for i, label := range labels {
		out[label] = results[i]
	}
	return out, nil
}

// RunBatch runs policy once per window, for Monte Carlo style studies.
// Results keep the order of windows. A window without any price date is
// logged and left nil rather than failing the batch.
func (e *Engine) RunBatch(ctx context.Context, data *model.PriceData, policy strategy.Policy, windows []model.Window, opts Options, workers int) ([]*Result, error) {
	results := make([]*Result, len(windows))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(workers, len(windows)))
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			o := opts
			o.Start, o.End = w.Start, w.End
			o.Metadata = map[string]string{"window": w.String()}
			for k, v := range opts.Metadata {
				o.Metadata[k] = v
			}
			res, err := e.Run(data, policy, o)
			if errors.Is(err, ErrEmptyDateRange) {
				log.Printf("[Backtest] window %s skipped: %v", w, err)
				return nil
			}
			if err != nil {
				return fmt.Errorf("window %s: %w", w, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func limit(workers, n int) int {
	if workers <= 0 || workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}
