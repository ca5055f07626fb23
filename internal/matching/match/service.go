// Package match stores investor/startup matches and moves them through the status lifecycle.
package match

import (
	"context"
	"time"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/scoring"
	"investor-matching/internal/models"

	"github.com/google/uuid"
)

// casAttempts bounds how often a status change is re-decided after losing a compare-and-set.
const casAttempts = 3

// StatusChange is the outcome of a status request.
type StatusChange struct {
	Match    *models.StartupMatch `json:"match"`
	Previous models.MatchStatus   `json:"previousStatus"`
	Changed  bool                 `json:"changed"`
}

type Service struct {
	repo   Repository
	owners OwnershipChecker
	pages  Pagination
	retry  retry.Policy
	logger logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, owners OwnershipChecker, pages Pagination, policy retry.Policy, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		owners: owners,
		pages:  pages,
		retry:  policy,
		logger: log.WithFields(map[string]interface{}{"component": "match"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrUpdateMatch stores the score of a pair. Re-scoring an existing pair refreshes score and
// breakdown only, so the call is idempotent and retried on transient failures.
func (s *Service) CreateOrUpdateMatch(ctx context.Context, investorID string, res scoring.Result) (*models.StartupMatch, error) {
	if investorID == "" || res.StartupID == "" {
		return nil, errors.NewValidationError(errors.FieldError{
			Field:   "startupId",
			Message: "investor and startup are required",
			Code:    "required",
		})
	}
	now := s.now()
	m := &models.StartupMatch{
		ID:           uuid.NewString(),
		InvestorID:   investorID,
		StartupID:    res.StartupID,
		OverallScore: res.Overall,
		Breakdown:    res.Breakdown,
		Status:       models.MatchStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return retry.Do(ctx, s.retry, func(ctx context.Context) (*models.StartupMatch, error) {
		return s.repo.Upsert(ctx, m)
	})
}

// GetOwned loads a match the investor owns. A missing match and someone else's match look the same
// to the caller.
func (s *Service) GetOwned(ctx context.Context, id models.Identity, matchID string) (*models.StartupMatch, error) {
	if !id.IsInvestor() {
		return nil, errors.NewAuthorizationError("only investors act on matches")
	}
	m, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*models.StartupMatch, error) {
		return s.repo.Get(ctx, matchID)
	})
	if err != nil {
		return nil, err
	}
	if m == nil || m.InvestorID != id.UserID {
		return nil, errors.NewAuthorizationError("match not accessible")
	}
	return m, nil
}

// UpdateStatus moves an owned match to status. Asking for the current status is a no-op; a move the
// lifecycle forbids is a ValidationError.
func (s *Service) UpdateStatus(ctx context.Context, id models.Identity, matchID string, status models.MatchStatus) (*StatusChange, error) {
	if !status.Valid() || status == models.MatchStatusPending {
		return nil, errors.NewValidationError(errors.FieldError{
			Field:   "status",
			Message: "must be one of viewed, interested, not_interested, contacted",
			Code:    "invalid_enum",
		})
	}
	m, err := s.GetOwned(ctx, id, matchID)
	if err != nil {
		return nil, err
	}
	return s.ApplyStatus(ctx, m, status)
}

// ApplyStatus runs the lifecycle against m and persists the result with a compare-and-set on the
// previous status. Losing the race re-reads the match and decides again.
func (s *Service) ApplyStatus(ctx context.Context, m *models.StartupMatch, target models.MatchStatus) (*StatusChange, error) {
	current := m
	for attempt := 0; attempt < casAttempts; attempt++ {
		next, changed, err := Transition(current.Status, target)
		if err != nil {
			return nil, err
		}
		if !changed {
			return &StatusChange{Match: current, Previous: current.Status, Changed: false}, nil
		}

		at := s.now()
		ok, err := s.repo.CompareAndSetStatus(ctx, current.ID, current.Status, next, at)
		if err != nil {
			return nil, err
		}
		if ok {
			updated := *current
			updated.Status = next
			updated.UpdatedAt = at
			if next == models.MatchStatusViewed && updated.ViewedAt == nil {
				updated.ViewedAt = &at
			}
			metrics.StatusTransitions.WithLabelValues(string(current.Status), string(next)).Inc()
			s.logger.Info("match status changed", map[string]interface{}{
				"matchId": current.ID,
				"from":    current.Status,
				"to":      next,
			})
			return &StatusChange{Match: &updated, Previous: current.Status, Changed: true}, nil
		}

		fresh, err := s.repo.Get(ctx, current.ID)
		if err != nil {
			return nil, err
		}
		if fresh == nil {
			return nil, errors.NewNotFoundError("match", "match disappeared during status update")
		}
		current = fresh
	}
	return nil, errors.NewConflictError("match", "status changed concurrently, please retry")
}

// ListMatches lists an investor's own matches, or the matches of a startup the founder owns.
func (s *Service) ListMatches(ctx context.Context, id models.Identity, f models.MatchFilter) (models.Page[*models.StartupMatch], error) {
	switch {
	case id.IsInvestor():
		if f.InvestorID != "" && f.InvestorID != id.UserID {
			return models.Page[*models.StartupMatch]{}, errors.NewAuthorizationError("investors list only their own matches")
		}
		f.InvestorID = id.UserID
	case id.IsFounder():
		if f.StartupID == "" {
			return models.Page[*models.StartupMatch]{}, errors.NewValidationError(errors.FieldError{
				Field:   "startup",
				Message: "founders must name one of their startups",
				Code:    "required",
			})
		}
		if err := s.CheckFounder(ctx, id, f.StartupID); err != nil {
			return models.Page[*models.StartupMatch]{}, err
		}
	default:
		return models.Page[*models.StartupMatch]{}, errors.NewAuthorizationError("unknown role")
	}

	page, limit := s.pages.Clamp(f.Page, f.Limit)
	fetch, offset := Window(page, limit)
	items, err := retry.Do(ctx, s.retry, func(ctx context.Context) ([]*models.StartupMatch, error) {
		return s.repo.List(ctx, f, fetch, offset)
	})
	if err != nil {
		return models.Page[*models.StartupMatch]{}, err
	}
	return Build(items, page, limit), nil
}

// CheckFounder returns an AuthorizationError unless the founder owns the startup.
func (s *Service) CheckFounder(ctx context.Context, id models.Identity, startupID string) error {
	if !id.IsFounder() {
		return errors.NewAuthorizationError("not a founder")
	}
	owns, err := s.owners.FounderOwns(ctx, id.UserID, startupID)
	if err != nil {
		return err
	}
	if !owns {
		return errors.NewAuthorizationError("startup not accessible")
	}
	return nil
}

// Pages exposes the pagination bounds shared by listings.
func (s *Service) Pages() Pagination {
	return s.pages
}

// GetForFounder loads a match on a startup the founder owns. Missing matches are reported as not
// accessible.
func (s *Service) GetForFounder(ctx context.Context, id models.Identity, matchID string) (*models.StartupMatch, error) {
	if !id.IsFounder() {
		return nil, errors.NewAuthorizationError("not a founder")
	}
	m, err := retry.Do(ctx, s.retry, func(ctx context.Context) (*models.StartupMatch, error) {
		return s.repo.Get(ctx, matchID)
	})
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.NewAuthorizationError("match not accessible")
	}
	if err := s.CheckFounder(ctx, id, m.StartupID); err != nil {
		return nil, err
	}
	return m, nil
}
