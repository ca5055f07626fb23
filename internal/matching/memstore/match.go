package memstore

import (
	"context"
	"sort"
	"time"

	"investor-matching/internal/models"
)

type matchRow = models.StartupMatch

type MatchRepository struct {
	db *DB
}

func (r *MatchRepository) Upsert(ctx context.Context, m *models.StartupMatch) (*models.StartupMatch, error) {
	var out models.StartupMatch
	r.db.write(ctx, func() {
		for id, existing := range r.db.matches {
			if existing.InvestorID == m.InvestorID && existing.StartupID == m.StartupID {
				existing.OverallScore = m.OverallScore
				existing.Breakdown = m.Breakdown
				existing.UpdatedAt = m.UpdatedAt
				r.db.matches[id] = existing
				out = existing
				return
			}
		}
		stored := *m
		stored.Status = models.MatchStatusPending
		stored.ViewedAt = nil
		r.db.matches[m.ID] = stored
		out = stored
	})
	return &out, nil
}

func (r *MatchRepository) Get(_ context.Context, id string) (*models.StartupMatch, error) {
	var out *models.StartupMatch
	r.db.read(func() {
		if m, ok := r.db.matches[id]; ok {
			out = &m
		}
	})
	return out, nil
}

func (r *MatchRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.MatchStatus, at time.Time) (bool, error) {
	ok := false
	r.db.write(ctx, func() {
		m, found := r.db.matches[id]
		if !found || m.Status != from {
			return
		}
		m.Status = to
		m.UpdatedAt = at
		if to == models.MatchStatusViewed && m.ViewedAt == nil {
			viewed := at
			m.ViewedAt = &viewed
		}
		r.db.matches[id] = m
		ok = true
	})
	return ok, nil
}

func (r *MatchRepository) List(_ context.Context, f models.MatchFilter, limit, offset int) ([]*models.StartupMatch, error) {
	var all []*models.StartupMatch
	r.db.read(func() {
		for _, m := range r.db.matches {
			if f.InvestorID != "" && m.InvestorID != f.InvestorID {
				continue
			}
			if f.StartupID != "" && m.StartupID != f.StartupID {
				continue
			}
			m := m
			all = append(all, &m)
		}
	})
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	return window(all, limit, offset), nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
