package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"investor-matching/internal/common/database"
	"investor-matching/internal/models"

	"github.com/lib/pq"
)

const startupColumns = `id, founder_id, founder_email, name, tagline, description, industry, stage, funding_ask,
	country, remote_friendly, tags, monthly_revenue, active_users, growth_rate_pct, team_size, founder_experience_years`

// PostgresRepository reads the startups table, which the profile subsystem owns.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns nil, nil for an unknown startup.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Startup, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+startupColumns+` FROM startups WHERE id = $1`, id)
	s, err := scanStartup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("get startup: %w", err))
	}
	return s, nil
}

// GetMany loads the given startups in id order. Unknown ids are skipped.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) ([]*models.Startup, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+startupColumns+` FROM startups WHERE id = ANY($1) ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("get startups: %w", err))
	}
	return collect(rows)
}

// List pages through the whole corpus in id order.
func (r *PostgresRepository) List(ctx context.Context, f models.CandidateFilter) ([]*models.Startup, error) {
	rows, err := database.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+startupColumns+` FROM startups ORDER BY id LIMIT $1 OFFSET $2`, f.Limit, f.Offset)
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("list startups: %w", err))
	}
	return collect(rows)
}

// FounderOwns reports whether founderID owns startupID. Unknown startups are not owned.
func (r *PostgresRepository) FounderOwns(ctx context.Context, founderID, startupID string) (bool, error) {
	var owns bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM startups WHERE id = $1 AND founder_id = $2)`, startupID, founderID).
		Scan(&owns)
	if err != nil {
		return false, database.Classify("postgres", fmt.Errorf("check startup owner: %w", err))
	}
	return owns, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func collect(rows *sql.Rows) ([]*models.Startup, error) {
	defer rows.Close()
	var out []*models.Startup
	for rows.Next() {
		s, err := scanStartup(rows)
		if err != nil {
			return nil, database.Classify("postgres", fmt.Errorf("scan startup: %w", err))
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify("postgres", err)
	}
	return out, nil
}

func scanStartup(sc scanner) (*models.Startup, error) {
	var s models.Startup
	err := sc.Scan(
		&s.ID, &s.FounderID, &s.FounderEmail, &s.Name, &s.Tagline, &s.Description, &s.Industry, &s.Stage,
		&s.FundingAsk, &s.Country, &s.RemoteFriendly, pq.Array(&s.Tags),
		&s.Traction.MonthlyRevenue, &s.Traction.ActiveUsers, &s.Traction.GrowthRatePct,
		&s.Team.Size, &s.Team.FounderExperienceYears,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
