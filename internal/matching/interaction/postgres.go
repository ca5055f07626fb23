package interaction

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"investor-matching/internal/common/database"
	"investor-matching/internal/models"
)

const interactionColumns = `id, match_id, investor_id, startup_id, type, notes, created_at`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, ia *models.MatchInteraction) error {
	_, err := database.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO match_interactions (`+interactionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ia.ID, ia.MatchID, ia.InvestorID, ia.StartupID, ia.Type, ia.Notes, ia.CreatedAt,
	)
	if err != nil {
		return database.Classify("postgres", fmt.Errorf("append interaction: %w", err))
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, f models.InteractionFilter, limit, offset int) ([]*models.MatchInteraction, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("match_id", f.MatchID)
	add("investor_id", f.InvestorID)
	add("startup_id", f.StartupID)
	if len(where) == 0 {
		return nil, fmt.Errorf("list interactions: empty filter")
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`SELECT %s FROM match_interactions WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		interactionColumns, strings.Join(where, " AND "), len(args)-1, len(args))

	rows, err := database.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, database.Classify("postgres", fmt.Errorf("list interactions: %w", err))
	}
	defer rows.Close()

	var out []*models.MatchInteraction
	for rows.Next() {
		var (
			ia    models.MatchInteraction
			typ   string
			notes sql.NullString
		)
		if err := rows.Scan(&ia.ID, &ia.MatchID, &ia.InvestorID, &ia.StartupID, &typ, &notes, &ia.CreatedAt); err != nil {
			return nil, database.Classify("postgres", fmt.Errorf("scan interaction: %w", err))
		}
		ia.Type = models.InteractionType(typ)
		if notes.Valid {
			n := notes.String
			ia.Notes = &n
		}
		out = append(out, &ia)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Classify("postgres", err)
	}
	return out, nil
}
