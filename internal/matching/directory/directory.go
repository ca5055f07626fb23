// Package directory is the read-only view of startup profiles used for scoring, candidate selection
// and founder ownership checks.
package directory

import (
	"context"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/models"
)

// Store is the profile source of record.
type Store interface {
	Get(ctx context.Context, id string) (*models.Startup, error)
	GetMany(ctx context.Context, ids []string) ([]*models.Startup, error)
	List(ctx context.Context, f models.CandidateFilter) ([]*models.Startup, error)
	FounderOwns(ctx context.Context, founderID, startupID string) (bool, error)
}

// Option configures optional collaborators of a Directory.
type Option func(*Directory)

// WithCache serves profiles from redis before the store.
func WithCache(c *ProfileCache) Option {
	return func(d *Directory) { d.cache = c }
}

// WithSearch selects batch candidates through elasticsearch.
func WithSearch(s *Searcher) Option {
	return func(d *Directory) { d.search = s }
}

type Directory struct {
	store  Store
	cache  *ProfileCache
	search *Searcher
	retry  retry.Policy
	logger logger.Logger
}

func New(store Store, policy retry.Policy, log logger.Logger, opts ...Option) *Directory {
	d := &Directory{
		store:  store,
		retry:  policy,
		logger: log.WithFields(map[string]interface{}{"component": "directory"}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetStartup returns a NotFoundError for unknown startups.
func (d *Directory) GetStartup(ctx context.Context, id string) (*models.Startup, error) {
	if d.cache != nil {
		if s, ok := d.cache.Get(ctx, id); ok {
			return s, nil
		}
	}
	s, err := retry.Do(ctx, d.retry, func(ctx context.Context) (*models.Startup, error) {
		return d.store.Get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.NewNotFoundError("startup", id)
	}
	if d.cache != nil {
		d.cache.Set(ctx, s)
	}
	return s, nil
}

func (d *Directory) FounderOwns(ctx context.Context, founderID, startupID string) (bool, error) {
	return retry.Do(ctx, d.retry, func(ctx context.Context) (bool, error) {
		return d.store.FounderOwns(ctx, founderID, startupID)
	})
}

// Candidates returns one page of the corpus for a batch recompute. When search is configured the
// page is selected in elasticsearch and hydrated from the store; a search outage falls back to
// the store.
func (d *Directory) Candidates(ctx context.Context, f models.CandidateFilter) ([]*models.Startup, error) {
	if d.search != nil {
		ids, err := d.search.CandidateIDs(ctx, f)
		if err == nil {
			return retry.Do(ctx, d.retry, func(ctx context.Context) ([]*models.Startup, error) {
				return d.store.GetMany(ctx, ids)
			})
		}
		d.logger.Warn("candidate search failed, falling back to the database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return retry.Do(ctx, d.retry, func(ctx context.Context) ([]*models.Startup, error) {
		return d.store.List(ctx, f)
	})
}
