package match

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"investor-matching/internal/common/database"
	"investor-matching/internal/models"
)

const matchColumns = `id, investor_id, startup_id, overall_score, breakdown, status, viewed_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, m *models.StartupMatch) (*models.StartupMatch, error) {
	breakdown, err := json.Marshal(m.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("marshal breakdown: %w", err)
	}
	row := database.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO startup_matches (id, investor_id, startup_id, overall_score, breakdown, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (investor_id, startup_id) DO UPDATE
		SET overall_score = EXCLUDED.overall_score, breakdown = EXCLUDED.breakdown, updated_at = EXCLUDED.updated_at
		RETURNING `+matchColumns,
		m.ID, m.InvestorID, m.StartupID, m.OverallScore, breakdown, models.MatchStatusPending, m.UpdatedAt,
	)
	stored, err := scanMatch(row)
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("upsert match: %w", err))
	}
	return stored, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.StartupMatch, error) {
	row := database.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+matchColumns+` FROM startup_matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("get match: %w", err))
	}
	return m, nil
}

func (r *PostgresRepository) CompareAndSetStatus(ctx context.Context, id string, from, to models.MatchStatus, at time.Time) (bool, error) {
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE startup_matches
		SET status = $3,
		    viewed_at = CASE WHEN $3 = 'viewed' THEN COALESCE(viewed_at, $4) ELSE viewed_at END,
		    updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		return false, database.Classify("postgres", fmt.Errorf("set match status: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, database.Classify("postgres", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.MatchFilter, limit, offset int) ([]*models.StartupMatch, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.InvestorID != "" {
		args = append(args, f.InvestorID)
		where = append(where, fmt.Sprintf("investor_id = $%d", len(args)))
	}
	if f.StartupID != "" {
		args = append(args, f.StartupID)
		where = append(where, fmt.Sprintf("startup_id = $%d", len(args)))
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("list matches: filter needs an investor or a startup")
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s FROM startup_matches WHERE %s
		ORDER BY overall_score DESC, updated_at DESC, id ASC
		LIMIT $%d OFFSET $%d`,
		matchColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("list matches: %w", err))
	}
	defer rows.Close()

	var out []*models.StartupMatch
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, database.Classify("postgres", fmt.Errorf("scan match: %w", err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify("postgres", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(s scanner) (*models.StartupMatch, error) {
	var (
		m         models.StartupMatch
		breakdown []byte
		status    string
		viewedAt  sql.NullTime
	)
	if err := s.Scan(&m.ID, &m.InvestorID, &m.StartupID, &m.OverallScore, &breakdown, &status, &viewedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(status)
	if viewedAt.Valid {
		t := viewedAt.Time
		m.ViewedAt = &t
	}
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &m.Breakdown); err != nil {
			return nil, fmt.Errorf("decode breakdown: %w", err)
		}
	}
	return &m, nil
}
