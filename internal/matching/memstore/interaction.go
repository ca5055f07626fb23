package memstore

import (
	"context"
	"sort"

	"investor-matching/internal/models"
)

type interactionRow = models.MatchInteraction

type InteractionRepository struct {
	db *DB
}

func (r *InteractionRepository) Append(ctx context.Context, ia *models.MatchInteraction) error {
	r.db.write(ctx, func() {
		r.db.interactions = append(r.db.interactions, *ia)
	})
	return nil
}

func (r *InteractionRepository) List(_ context.Context, f models.InteractionFilter, limit, offset int) ([]*models.MatchInteraction, error) {
	var out []*models.MatchInteraction
	r.db.read(func() {
		for _, ia := range r.db.interactions {
			if f.MatchID != "" && ia.MatchID != f.MatchID {
				continue
			}
			if f.InvestorID != "" && ia.InvestorID != f.InvestorID {
				continue
			}
			if f.StartupID != "" && ia.StartupID != f.StartupID {
				continue
			}
			ia := ia
			out = append(out, &ia)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return window(out, limit, offset), nil
}
