// Package interaction records what investors do with their matches and drives the match status
// from those actions.
package interaction

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"investor-matching/internal/common/database"
	"investor-matching/internal/common/errors"
	"investor-matching/internal/common/logger"
	"investor-matching/internal/common/metrics"
	"investor-matching/internal/common/retry"
	"investor-matching/internal/matching/match"
	"investor-matching/internal/models"

	"github.com/google/uuid"
)

const maxNotesLength = 2000

// RecordResult is the appended interaction and the match as it stands afterwards.
type RecordResult struct {
	Interaction    *models.MatchInteraction `json:"interaction"`
	Match          *models.StartupMatch     `json:"match"`
	PreviousStatus models.MatchStatus       `json:"previousStatus"`
	StatusChanged  bool                     `json:"statusChanged"`
}

type Service struct {
	repo    Repository
	matches *match.Service
	tx      database.Transactor
	retry   retry.Policy
	logger  logger.Logger
	now     func() time.Time
}

func NewService(repo Repository, matches *match.Service, tx database.Transactor, policy retry.Policy, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		matches: matches,
		tx:      tx,
		retry:   policy,
		logger:  log.WithFields(map[string]interface{}{"component": "interaction"}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RecordInteraction appends an interaction on an owned match and applies the status it implies, in
// one transaction. A status the lifecycle refuses (like after pass) is not an error: the interaction
// is kept and the status stays.
func (s *Service) RecordInteraction(ctx context.Context, id models.Identity, matchID string, typ models.InteractionType, notes *string) (*RecordResult, error) {
	if err := validateInput(typ, notes); err != nil {
		return nil, err
	}
	if !id.IsInvestor() {
		return nil, errors.NewAuthorizationError("only investors record interactions")
	}

	var res RecordResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		m, err := s.matches.GetOwned(ctx, id, matchID)
		if err != nil {
			return err
		}

		ia := &models.MatchInteraction{
			ID:         uuid.NewString(),
			MatchID:    m.ID,
			InvestorID: m.InvestorID,
			StartupID:  m.StartupID,
			Type:       typ,
			Notes:      trimNotes(notes),
			CreatedAt:  s.now(),
		}
		if err := s.repo.Append(ctx, ia); err != nil {
			return err
		}

		res = RecordResult{Interaction: ia, Match: m, PreviousStatus: m.Status}

		target, ok := match.ForInteraction(typ)
		if !ok {
			return nil
		}
		ch, err := s.matches.ApplyStatus(ctx, m, target)
		if errors.IsValidation(err) {
			s.logger.Debug("interaction kept without status change", map[string]interface{}{
				"matchId": m.ID,
				"type":    typ,
				"status":  m.Status,
			})
			return nil
		}
		if err != nil {
			return err
		}
		res.Match = ch.Match
		res.PreviousStatus = ch.Previous
		res.StatusChanged = ch.Changed
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InteractionsRecorded.WithLabelValues(string(typ)).Inc()
	s.logger.Info("interaction recorded", map[string]interface{}{
		"interactionId": res.Interaction.ID,
		"matchId":       matchID,
		"type":          typ,
		"statusChanged": res.StatusChanged,
	})
	return &res, nil
}

// ListInteractions shows investors their own log and founders the log of a startup they own.
func (s *Service) ListInteractions(ctx context.Context, id models.Identity, f models.InteractionFilter) (models.Page[*models.MatchInteraction], error) {
	var empty models.Page[*models.MatchInteraction]

	switch {
	case id.IsInvestor():
		if f.InvestorID != "" && f.InvestorID != id.UserID {
			return empty, errors.NewAuthorizationError("investors list only their own interactions")
		}
		f.InvestorID = id.UserID
		if f.MatchID != "" {
			if _, err := s.matches.GetOwned(ctx, id, f.MatchID); err != nil {
				return empty, err
			}
		}
	case id.IsFounder():
		switch {
		case f.MatchID != "":
			m, err := s.matches.GetForFounder(ctx, id, f.MatchID)
			if err != nil {
				return empty, err
			}
			if f.StartupID != "" && f.StartupID != m.StartupID {
				return empty, errors.NewAuthorizationError("match does not belong to the startup")
			}
			f.StartupID = m.StartupID
		case f.StartupID != "":
			if err := s.matches.CheckFounder(ctx, id, f.StartupID); err != nil {
				return empty, err
			}
		default:
			return empty, errors.NewValidationError(errors.FieldError{
				Field:   "startup",
				Message: "founders must name one of their startups or a match on it",
				Code:    "required",
			})
		}
	default:
		return empty, errors.NewAuthorizationError("unknown role")
	}

	page, limit := s.matches.Pages().Clamp(f.Page, f.Limit)
	fetch, offset := match.Window(page, limit)
	items, err := retry.Do(ctx, s.retry, func(ctx context.Context) ([]*models.MatchInteraction, error) {
		return s.repo.List(ctx, f, fetch, offset)
	})
	if err != nil {
		return empty, err
	}
	return match.Build(items, page, limit), nil
}

func validateInput(typ models.InteractionType, notes *string) error {
	var fields []errors.FieldError
	if !typ.Valid() {
		fields = append(fields, errors.FieldError{
			Field:   "type",
			Message: "must be one of view, like, pass, save, contact, note",
			Code:    "invalid_enum",
		})
	}
	if notes != nil && utf8.RuneCountInString(*notes) > maxNotesLength {
		fields = append(fields, errors.FieldError{Field: "notes", Message: "too long", Code: "max_length"})
	}
	if typ == models.InteractionNote && trimNotes(notes) == nil {
		fields = append(fields, errors.FieldError{Field: "notes", Message: "a note needs text", Code: "required"})
	}
	if len(fields) > 0 {
		return errors.NewValidationError(fields...)
	}
	return nil
}

func trimNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	n := strings.TrimSpace(*notes)
	if n == "" {
		return nil
	}
	return &n
}
