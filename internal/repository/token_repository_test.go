package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenCols = []string{"user_id", "expires_at", "revoked_at"}

func TestTokenRepo_ValidateRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)
	ctx := context.Background()
	q := `SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=\?`

	mock.ExpectQuery(q).WithArgs("live").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(7, time.Now().Add(time.Hour), nil))
	mock.ExpectQuery(q).WithArgs("revoked").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(7, time.Now().Add(time.Hour), time.Now()))
	mock.ExpectQuery(q).WithArgs("expired").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(7, time.Now().Add(-time.Hour), nil))
	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	uid, err := repo.ValidateRefresh(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), uid)

	for _, h := range []string{"revoked", "expired", "missing"} {
		_, err := repo.ValidateRefresh(ctx, h)
		assert.True(t, errors.Is(err, ErrRefreshInvalid), h)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Rotate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)
	exp := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP\(\) WHERE token_hash=\? AND user_id=\?`).
		WithArgs("old", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(uint64(7), "new", exp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Rotate(context.Background(), 7, "old", "new", exp))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_RotateReplayedToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens`).
		WithArgs("old", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = repo.Rotate(context.Background(), 7, "old", "new", time.Now())
	assert.True(t, errors.Is(err, ErrRefreshInvalid))
	assert.NoError(t, mock.ExpectationsWereMet())
}
