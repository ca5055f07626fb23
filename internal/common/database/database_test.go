package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	apperrors "investor-matching/internal/common/errors"
	"investor-matching/internal/common/retry"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("postgres", nil))
	assert.ErrorIs(t, Classify("postgres", sql.ErrNoRows), sql.ErrNoRows)

	conflict := Classify("postgres", &pq.Error{Code: "23505", Table: "investor_theses", Constraint: "uq_investor_theses_active"})
	assert.True(t, apperrors.IsConflict(conflict))
	assert.Contains(t, conflict.Error(), "thesis")

	check := Classify("postgres", &pq.Error{Code: "23514", Constraint: "investor_theses_check"})
	assert.True(t, apperrors.IsValidation(check))

	dep := Classify("postgres", errors.New("connection reset by peer"))
	assert.True(t, apperrors.IsDependency(dep))

	already := apperrors.NewNotFoundError("thesis", "")
	assert.Same(t, already, Classify("postgres", already))
}

func TestTransactor_CommitAndRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	tr := NewTransactor(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE investor_theses").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = tr.WithinTx(context.Background(), func(ctx context.Context) error {
		_, err := Conn(ctx, db).ExecContext(ctx, "UPDATE investor_theses SET is_active = FALSE")
		return err
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()
	boom := errors.New("boom")
	err = tr.WithinTx(context.Background(), func(ctx context.Context) error {
		// nested calls join the outer transaction instead of beginning another
		return tr.WithinTx(ctx, func(context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_NoRetryInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM startup_matches").WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	calls := 0
	policy := retry.Policy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	err = NewTransactor(db).WithinTx(context.Background(), func(ctx context.Context) error {
		return retry.Run(ctx, policy, func(ctx context.Context) error {
			calls++
			var id string
			err := Conn(ctx, db).QueryRowContext(ctx, "SELECT id FROM startup_matches WHERE id = $1", "m-1").Scan(&id)
			return Classify("postgres", err)
		})
	})
	assert.True(t, apperrors.IsDependency(err))
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConn_WithoutTransaction(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DBTX(db), Conn(context.Background(), db))
}

func TestApplyMigrations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fsys := fstest.MapFS{
		"m/0001_init.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;")},
		"m/0002_index.sql": {Data: []byte("CREATE INDEX idx_a ON a (id);")},
		"m/README.md":      {Data: []byte("ignored")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT 1 FROM schema_migrations").WithArgs("0001_init.sql").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM schema_migrations").WithArgs("0002_index.sql").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX idx_a").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("0002_index.sql").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	applied, err := applyMigrations(context.Background(), db, fsys, "m")
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_index.sql"}, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpSection(t *testing.T) {
	assert.Equal(t, "\nCREATE TABLE a;\n", upSection("-- +migrate Up\nCREATE TABLE a;\n-- +migrate Down\nDROP TABLE a;"))
	assert.Equal(t, "SELECT 1;", upSection("SELECT 1;"))
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	body, err := migrationFS.ReadFile("migrations/" + entries[0].Name())
	require.NoError(t, err)
	assert.Contains(t, string(body), "uq_investor_theses_active")
}
