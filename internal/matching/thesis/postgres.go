package thesis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"investor-matching/internal/common/database"
	apperrors "investor-matching/internal/common/errors"
	"investor-matching/internal/models"

	"github.com/lib/pq"
)

const thesisColumns = `id, investor_id, min_funding_ask, max_funding_ask, preferred_industries, preferred_stages,
	countries, no_location_pref, remote_ok, weights, keywords, exclude_keywords, is_active, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetActive(ctx context.Context, investorID string) (*models.InvestorThesis, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+thesisColumns+` FROM investor_theses WHERE investor_id = $1 AND is_active`, investorID)

	t, err := scanThesis(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("get active thesis: %w", err))
	}
	return t, nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, investorID string) (int, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`UPDATE investor_theses SET is_active = FALSE, updated_at = NOW() WHERE investor_id = $1 AND is_active`,
		investorID)
	if err != nil {
		return 0, database.Classify("postgres", fmt.Errorf("deactivate thesis: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.Classify("postgres", err)
	}
	return int(n), nil
}

func (r *PostgresRepository) Insert(ctx context.Context, t *models.InvestorThesis) error {
	weights, err := json.Marshal(t.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	_, err = database.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO investor_theses (`+thesisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		t.ID, t.InvestorID, t.MinFundingAsk, t.MaxFundingAsk,
		pq.Array(t.PreferredIndustries), pq.Array(t.PreferredStages), pq.Array(t.Countries),
		t.NoLocationPref, t.RemoteOK, weights,
		pq.Array(t.Keywords), pq.Array(t.ExcludeKeywords),
		t.IsActive, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.NewConflictError("thesis", "another active thesis was stored concurrently")
		}
		return database.Classify("postgres", fmt.Errorf("insert thesis: %w", err))
	}
	return nil
}

func (r *PostgresRepository) Update(ctx context.Context, t *models.InvestorThesis) error {
	weights, err := json.Marshal(t.Weights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE investor_theses
		SET min_funding_ask = $2, max_funding_ask = $3, preferred_industries = $4, preferred_stages = $5,
		    countries = $6, no_location_pref = $7, remote_ok = $8, weights = $9, keywords = $10,
		    exclude_keywords = $11, updated_at = $12
		WHERE id = $1 AND is_active`,
		t.ID, t.MinFundingAsk, t.MaxFundingAsk,
		pq.Array(t.PreferredIndustries), pq.Array(t.PreferredStages), pq.Array(t.Countries),
		t.NoLocationPref, t.RemoteOK, weights,
		pq.Array(t.Keywords), pq.Array(t.ExcludeKeywords), t.UpdatedAt,
	)
	if err != nil {
		return database.Classify("postgres", fmt.Errorf("update thesis: %w", err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFoundError("thesis", "no active thesis")
	}
	return nil
}

func scanThesis(row *sql.Row) (*models.InvestorThesis, error) {
	var (
		t       models.InvestorThesis
		weights []byte
	)
	err := row.Scan(
		&t.ID, &t.InvestorID, &t.MinFundingAsk, &t.MaxFundingAsk,
		pq.Array(&t.PreferredIndustries), pq.Array(&t.PreferredStages), pq.Array(&t.Countries),
		&t.NoLocationPref, &t.RemoteOK, &weights,
		pq.Array(&t.Keywords), pq.Array(&t.ExcludeKeywords),
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(weights, &t.Weights); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return &t, nil
}
