package memstore

import (
	"context"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/models"
)

type thesisRow = models.InvestorThesis

type ThesisRepository struct {
	db *DB
}

func (r *ThesisRepository) GetActive(_ context.Context, investorID string) (*models.InvestorThesis, error) {
	var out *models.InvestorThesis
	r.db.read(func() {
		for _, t := range r.db.theses {
			if t.InvestorID == investorID && t.IsActive {
				c := cloneThesis(t)
				out = &c
				return
			}
		}
	})
	return out, nil
}

func (r *ThesisRepository) Deactivate(ctx context.Context, investorID string) (int, error) {
	n := 0
	r.db.write(ctx, func() {
		for id, t := range r.db.theses {
			if t.InvestorID == investorID && t.IsActive {
				t.IsActive = false
				r.db.theses[id] = t
				n++
			}
		}
	})
	return n, nil
}

func (r *ThesisRepository) Insert(ctx context.Context, t *models.InvestorThesis) error {
	var err error
	r.db.write(ctx, func() {
		if t.IsActive {
			for _, existing := range r.db.theses {
				if existing.InvestorID == t.InvestorID && existing.IsActive {
					err = errors.NewConflictError("thesis", "uq_investor_theses_active")
					return
				}
			}
		}
		r.db.theses[t.ID] = cloneThesis(*t)
	})
	return err
}

func (r *ThesisRepository) Update(ctx context.Context, t *models.InvestorThesis) error {
	var err error
	r.db.write(ctx, func() {
		existing, ok := r.db.theses[t.ID]
		if !ok || !existing.IsActive {
			err = errors.NewNotFoundError("thesis", "no active thesis")
			return
		}
		r.db.theses[t.ID] = cloneThesis(*t)
	})
	return err
}

func cloneThesis(t models.InvestorThesis) models.InvestorThesis {
	t.PreferredIndustries = append([]string(nil), t.PreferredIndustries...)
	t.PreferredStages = append([]string(nil), t.PreferredStages...)
	t.Countries = append([]string(nil), t.Countries...)
	t.Keywords = append([]string(nil), t.Keywords...)
	t.ExcludeKeywords = append([]string(nil), t.ExcludeKeywords...)
	return t
}
