package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// BatchResult summarises a recompute run. Excluded startups were vetoed by an exclude keyword; their
// matches are stored with a zero score and also appear in Upserted.
type BatchResult struct {
	InvestorID string        `json:"investorId"`
	Processed  int           `json:"processed"`
	Upserted   []string      `json:"upserted"`
	Failed     []string      `json:"failed"`
	Excluded   []string      `json:"excluded"`
	Duration   time.Duration `json:"duration"`
}

// RecomputeForInvestor rescores the whole startup corpus against the investor's active thesis, so
// every stored match reflects the current thesis. Each startup is independent: a failure is logged
// and counted and the batch carries on.
func (e *Engine) RecomputeForInvestor(ctx context.Context, investorID string) (res *BatchResult, err error) {
	ctx, end := e.obs.StartSpan(ctx, "match.recompute", attribute.String("investor.id", investorID))
	defer func() { end(err) }()

	start := time.Now()
	t, err := e.theses.GetActiveThesis(ctx, investorID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.NewNotFoundError("thesis", "no active thesis to score against")
	}

	res = &BatchResult{InvestorID: investorID, Upserted: []string{}, Failed: []string{}, Excluded: []string{}}
	var mu sync.Mutex

	filter := models.CandidateFilter{Limit: e.batch.PageSize}
	for {
		if err := ctx.Err(); err != nil {
			e.finishBatch(res, start)
			return res, err
		}

		page, err := e.startups.Candidates(ctx, filter)
		if err != nil {
			e.finishBatch(res, start)
			return res, err
		}
		if len(page) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.batch.Concurrency)
		for _, s := range page {
			g.Go(func() error {
				r := e.score(t, s)

				_, err := e.matches.CreateOrUpdateMatch(gctx, investorID, r)

				mu.Lock()
				defer mu.Unlock()
				res.Processed++
				if err != nil {
					res.Failed = append(res.Failed, s.ID)
					metrics.BatchFailures.Inc()
					e.logger.Warn("recompute failed for startup", map[string]interface{}{
						"investorId": investorID,
						"startupId":  s.ID,
						"error":      err.Error(),
					})
					return nil
				}
				res.Upserted = append(res.Upserted, s.ID)
				if r.Breakdown.Excluded {
					res.Excluded = append(res.Excluded, s.ID)
				}
				return nil
			})
		}
		_ = g.Wait()

		filter.Offset += filter.Limit
	}

	e.finishBatch(res, start)
	e.logger.Info("recompute finished", map[string]interface{}{
		"investorId": investorID,
		"processed":  res.Processed,
		"upserted":   len(res.Upserted),
		"failed":     len(res.Failed),
		"excluded":   len(res.Excluded),
		"durationMs": res.Duration.Milliseconds(),
	})
	return res, nil
}

func (e *Engine) finishBatch(res *BatchResult, start time.Time) {
	sort.Strings(res.Upserted)
	sort.Strings(res.Failed)
	sort.Strings(res.Excluded)
	res.Duration = since(start)
	metrics.BatchDuration.Observe(res.Duration.Seconds())
}
