package interaction

import (
	"context"

	"investor-matching/internal/models"
)

// Repository is the append-only interaction log.
type Repository interface {
	Append(ctx context.Context, ia *models.MatchInteraction) error
	// List returns up to limit entries from offset, newest first.
	List(ctx context.Context, f models.InteractionFilter, limit, offset int) ([]*models.MatchInteraction, error)
}
