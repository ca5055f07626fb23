// Package thesis keeps exactly one active weighted-preference thesis per investor.
package thesis

import (
	"context"
	"time"

	"investor-matching/internal/common/database"
	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/models"

	"github.com/google/uuid"
)

// UpsertResult reports the stored thesis and how many previously active theses were retired.
type UpsertResult struct {
	Thesis      *models.InvestorThesis `json:"thesis"`
	Deactivated int                    `json:"deactivated"`
}

type Store struct {
	repo   Repository
	tx     database.Transactor
	retry  retry.Policy
	logger logger.Logger
	now    func() time.Time
}

func NewStore(repo Repository, tx database.Transactor, policy retry.Policy, log logger.Logger) *Store {
	return &Store{
		repo:   repo,
		tx:     tx,
		retry:  policy,
		logger: log.WithFields(map[string]interface{}{"component": "thesis"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// UpsertThesis replaces the investor's active thesis. The deactivate and the insert happen in one
// transaction; losing a race against a concurrent upsert yields a ConflictError.
func (s *Store) UpsertThesis(ctx context.Context, investorID string, in models.ThesisInput) (*UpsertResult, error) {
	if investorID == "" {
		return nil, errors.NewValidationError(errors.FieldError{Field: "investorId", Message: "required", Code: "required"})
	}
	norm, err := Normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	t := &models.InvestorThesis{
		ID:                  uuid.NewString(),
		InvestorID:          investorID,
		MinFundingAsk:       norm.MinFundingAsk,
		MaxFundingAsk:       norm.MaxFundingAsk,
		PreferredIndustries: norm.PreferredIndustries,
		PreferredStages:     norm.PreferredStages,
		Countries:           norm.Countries,
		NoLocationPref:      norm.NoLocationPref,
		RemoteOK:            norm.RemoteOK,
		Weights:             *norm.Weights,
		Keywords:            norm.Keywords,
		ExcludeKeywords:     norm.ExcludeKeywords,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	var deactivated int
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.Deactivate(ctx, investorID)
		if err != nil {
			return err
		}
		deactivated = n
		return s.repo.Insert(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("thesis upserted", map[string]interface{}{
		"investorId":  investorID,
		"thesisId":    t.ID,
		"deactivated": deactivated,
	})
	return &UpsertResult{Thesis: t, Deactivated: deactivated}, nil
}

// PatchThesis applies a partial update to the active thesis and re-validates the result as a whole.
func (s *Store) PatchThesis(ctx context.Context, investorID string, patch models.ThesisPatch) (*models.InvestorThesis, error) {
	var updated *models.InvestorThesis
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetActive(ctx, investorID)
		if err != nil {
			return err
		}
		if current == nil {
			return errors.NewNotFoundError("thesis", "no active thesis")
		}

		norm, err := Normalize(patch.Apply(current.ToInput()))
		if err != nil {
			return err
		}

		next := *current
		next.MinFundingAsk = norm.MinFundingAsk
		next.MaxFundingAsk = norm.MaxFundingAsk
		next.PreferredIndustries = norm.PreferredIndustries
		next.PreferredStages = norm.PreferredStages
		next.Countries = norm.Countries
		next.NoLocationPref = norm.NoLocationPref
		next.RemoteOK = norm.RemoteOK
		next.Weights = *norm.Weights
		next.Keywords = norm.Keywords
		next.ExcludeKeywords = norm.ExcludeKeywords
		next.UpdatedAt = s.now()

		if err := s.repo.Update(ctx, &next); err != nil {
			return err
		}
		updated = &next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("thesis patched", map[string]interface{}{"investorId": investorID, "thesisId": updated.ID})
	return updated, nil
}

// GetActiveThesis returns nil, nil for investors without a thesis. Transient failures are retried.
func (s *Store) GetActiveThesis(ctx context.Context, investorID string) (*models.InvestorThesis, error) {
	return retry.Do(ctx, s.retry, func(ctx context.Context) (*models.InvestorThesis, error) {
		return s.repo.GetActive(ctx, investorID)
	})
}

// DeactivateThesis soft-deactivates the active thesis. Calling it again is a no-op returning 0.
func (s *Store) DeactivateThesis(ctx context.Context, investorID string) (int, error) {
	n, err := retry.Do(ctx, s.retry, func(ctx context.Context) (int, error) {
		return s.repo.Deactivate(ctx, investorID)
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("thesis deactivated", map[string]interface{}{"investorId": investorID})
	}
	return n, nil
}
