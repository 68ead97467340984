package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func TestUserRepo_CreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("ops@example.com", sqlmock.AnyArg(), "OPERATOR").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err = repo.Create(context.Background(), " Ops@Example.com ", "secret-pass", "OPERATOR", 4)
	assert.True(t, errors.Is(err, ErrEmailExists))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_EnsureUserCreatesMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	mock.ExpectQuery(`SELECT id,email,password_hash,role,is_active,created_at,updated_at FROM users WHERE email=\?`).
		WithArgs("ops@example.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("ops@example.com", sqlmock.AnyArg(), "OPERATOR").
		WillReturnResult(sqlmock.NewResult(7, 1))

	created, err := repo.EnsureUser(context.Background(), "ops@example.com", "secret-pass", "OPERATOR", 4)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepo_EnsureUserExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepo(db)

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT .* FROM users WHERE email=\?`).
		WithArgs("ops@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(7, "ops@example.com", "hash", "OPERATOR", true, now, now))

	created, err := repo.EnsureUser(context.Background(), "ops@example.com", "secret-pass", "OPERATOR", 4)
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}
