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

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

var lockCols = []string{"room_id", "enabled", "unlock_at", "reason", "updated_at"}

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *RoomLockRepo) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewRoomLockRepo(db)
}

func TestRoomLockRepo_EnsureRooms(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`INSERT IGNORE INTO room_locks \(room_id, enabled, updated_at\) VALUES \(\?, 1, \?\),\(\?, 1, \?\)`).
		WithArgs(11, now, 14, now).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.EnsureRooms(context.Background(), []int{11, 14}, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_EnsureRoomsEmpty(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	require.NoError(t, repo.EnsureRooms(context.Background(), nil, time.Now()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_GetTimedLock(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	unlock := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT room_id, enabled, unlock_at, reason, updated_at FROM room_locks WHERE room_id = \?`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows(lockCols).AddRow(11, false, unlock, "exam", updated))

	l, err := repo.Get(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 11, l.RoomID)
	assert.False(t, l.Enabled)
	require.NotNil(t, l.UnlockAt)
	assert.True(t, unlock.Equal(*l.UnlockAt))
	require.NotNil(t, l.Reason)
	assert.Equal(t, "exam", *l.Reason)
	assert.Equal(t, model.StateDisabledTimed, l.State())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_GetNotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM room_locks WHERE room_id = \?`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(lockCols))

	_, err := repo.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrLockNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_List(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM room_locks ORDER BY room_id`).
		WillReturnRows(sqlmock.NewRows(lockCols).
			AddRow(11, true, nil, nil, updated).
			AddRow(14, false, nil, "maintenance", updated))

	locks, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, locks, 2)
	assert.Equal(t, model.StateEnabled, locks[0].State())
	assert.Equal(t, model.StateDisabledIndefinite, locks[1].State())
	assert.Nil(t, locks[1].UnlockAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_ListExpired(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT room_id FROM room_locks WHERE enabled = 0 AND unlock_at IS NOT NULL AND unlock_at <= \?`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}).AddRow(11).AddRow(23))

	ids, err := repo.ListExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 23}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_ListExpiredNone(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT room_id FROM room_locks`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"room_id"}))

	ids, err := repo.ListExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestRoomLockRepo_SaveDisabled(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	unlock := time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	reason := "exam"
	mock.ExpectExec(`UPDATE room_locks SET enabled = \?, unlock_at = \?, reason = \?, updated_at = \? WHERE room_id = \?`).
		WithArgs(false, unlock, reason, updated, 11).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), model.RoomLock{
		RoomID: 11, Enabled: false, UnlockAt: &unlock, Reason: &reason, UpdatedAt: updated,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_SaveEnabledClearsColumns(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	updated := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(`UPDATE room_locks SET`).
		WithArgs(true, nil, nil, updated, 14).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), model.RoomLock{RoomID: 14, Enabled: true, UpdatedAt: updated}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomLockRepo_SaveError(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE room_locks SET`).WillReturnError(errors.New("connection reset"))

	err := repo.Save(context.Background(), model.RoomLock{RoomID: 14, Enabled: true, UpdatedAt: time.Now()})
	assert.Error(t, err)
}
