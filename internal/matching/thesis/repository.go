package thesis

import (
	"context"

	"investor-matching/internal/models"
)

// Repository persists theses. Implementations honour the transaction carried on ctx.
type Repository interface {
	// GetActive returns nil, nil when the investor has no active thesis.
	GetActive(ctx context.Context, investorID string) (*models.InvestorThesis, error)
	// Deactivate marks the investor's active thesis inactive and reports how many rows changed.
	Deactivate(ctx context.Context, investorID string) (int, error)
	// Insert stores a new thesis. A second active thesis for the same investor is a ConflictError.
	Insert(ctx context.Context, t *models.InvestorThesis) error
	// Update rewrites the content of an active thesis in place.
	Update(ctx context.Context, t *models.InvestorThesis) error
}
