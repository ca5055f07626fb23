package match

import (
	"context"
	"time"

	"investor-matching/internal/models"
)

// Repository persists matches. Implementations honour the transaction carried on ctx.
type Repository interface {
	// Upsert inserts the (investor, startup) pair or refreshes its score and breakdown. Status and
	// viewed_at of an existing row are left alone.
	Upsert(ctx context.Context, m *models.StartupMatch) (*models.StartupMatch, error)
	// Get returns nil, nil when no match has the id.
	Get(ctx context.Context, id string) (*models.StartupMatch, error)
	// CompareAndSetStatus moves the match from `from` to `to` and reports whether the row was still
	// in `from`. viewed_at is stamped the first time the match becomes viewed.
	CompareAndSetStatus(ctx context.Context, id string, from, to models.MatchStatus, at time.Time) (bool, error)
	// List returns up to limit matches starting at offset, ordered by overall score desc, updated_at
	// desc, id asc.
	List(ctx context.Context, f models.MatchFilter, limit, offset int) ([]*models.StartupMatch, error)
}

// OwnershipChecker answers whether a founder owns a startup.
type OwnershipChecker interface {
	FounderOwns(ctx context.Context, founderID, startupID string) (bool, error)
}
