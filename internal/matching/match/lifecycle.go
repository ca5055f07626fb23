package match

import (
	"fmt"

	"investor-matching/internal/common/errors"
	"investor-matching/internal/models"
)

// allowed lists the forward moves out of each non-terminal status.
var allowed = map[models.MatchStatus][]models.MatchStatus{
	models.MatchStatusPending: {
		models.MatchStatusViewed,
		models.MatchStatusInterested,
		models.MatchStatusNotInterested,
		models.MatchStatusContacted,
	},
	models.MatchStatusViewed: {
		models.MatchStatusInterested,
		models.MatchStatusNotInterested,
		models.MatchStatusContacted,
	},
	models.MatchStatusInterested: {
		models.MatchStatusContacted,
	},
}

// Transition decides the status that results from asking for target while the match is in current.
// Asking for the current status is a no-op. Terminal statuses are sticky and pending is never a
// target; both surface as a ValidationError.
func Transition(current, target models.MatchStatus) (models.MatchStatus, bool, error) {
	if !target.Valid() {
		return current, false, errors.NewValidationError(errors.FieldError{
			Field:   "status",
			Message: fmt.Sprintf("unknown status %q", target),
			Code:    "invalid_enum",
		})
	}
	if target == current {
		return current, false, nil
	}
	for _, next := range allowed[current] {
		if next == target {
			return target, true, nil
		}
	}
	return current, false, errors.NewValidationError(errors.FieldError{
		Field:   "status",
		Message: fmt.Sprintf("cannot move a %s match to %s", current, target),
		Code:    "invalid_transition",
	})
}

// ForInteraction returns the status an interaction implies. save and note imply none.
func ForInteraction(t models.InteractionType) (models.MatchStatus, bool) {
	switch t {
	case models.InteractionView:
		return models.MatchStatusViewed, true
	case models.InteractionLike:
		return models.MatchStatusInterested, true
	case models.InteractionPass:
		return models.MatchStatusNotInterested, true
	case models.InteractionContact:
		return models.MatchStatusContacted, true
	default:
		return "", false
	}
}
