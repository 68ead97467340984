package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/auditorium-netlock/internal/model"
)

// RoomLockRepo provides data access to the room_locks table.  It is the
// MySQL implementation of the authoritative lock store.  All timestamps
// are written and compared in UTC; the DSN is opened with loc=UTC so
// scanned values come back in UTC as well.
type RoomLockRepo struct {
	db *sql.DB
}

// NewRoomLockRepo returns a new RoomLockRepo bound to the provided database.
func NewRoomLockRepo(db *sql.DB) *RoomLockRepo { return &RoomLockRepo{db: db} }

const roomLockColumns = `room_id, enabled, unlock_at, reason, updated_at`

// EnsureRooms inserts a default enabled row for every id that does not have
// one yet.  Existing rows are left as they are so a restart keeps the locks
// that were active before it.
func (r *RoomLockRepo) EnsureRooms(ctx context.Context, ids []int, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString(`INSERT IGNORE INTO room_locks (room_id, enabled, updated_at) VALUES `)
	args := make([]interface{}, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, 1, ?)")
		args = append(args, id, now.UTC())
	}
	_, err := r.db.ExecContext(ctx, b.String(), args...)
	return err
}

// Get returns the lock row of a single room, or ErrLockNotFound.
func (r *RoomLockRepo) Get(ctx context.Context, roomID int) (model.RoomLock, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roomLockColumns+` FROM room_locks WHERE room_id = ? LIMIT 1`, roomID)
	l, err := scanRoomLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoomLock{}, ErrLockNotFound
	}
	return l, err
}

// List returns every lock row ordered by room id.  Callers that need the
// registry order re-sort by registry position.
func (r *RoomLockRepo) List(ctx context.Context) ([]model.RoomLock, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomLockColumns+` FROM room_locks ORDER BY room_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RoomLock
	for rows.Next() {
		l, err := scanRoomLock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpired returns the ids of rooms whose timed lock is due at now.  A
// lock is due when unlock_at is less than or equal to now.
func (r *RoomLockRepo) ListExpired(ctx context.Context, now time.Time) ([]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT room_id FROM room_locks WHERE enabled = 0 AND unlock_at IS NOT NULL AND unlock_at <= ? ORDER BY room_id`,
		now.UTC(),
	)
	if err != nil {
		return nil, err
	}
	var ids []int
	for rows.Next() {
		var id int
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []int{}, nil
	}
	return ids, nil
}

// Save overwrites the row of l.RoomID with the given state.  The row must
// already exist (see EnsureRooms); rows are never created or deleted here.
func (r *RoomLockRepo) Save(ctx context.Context, l model.RoomLock) error {
	var unlockAt sql.NullTime
	if l.UnlockAt != nil {
		unlockAt = sql.NullTime{Time: l.UnlockAt.UTC(), Valid: true}
	}
	var reason sql.NullString
	if l.Reason != nil {
		reason = sql.NullString{String: *l.Reason, Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE room_locks SET enabled = ?, unlock_at = ?, reason = ?, updated_at = ? WHERE room_id = ?`,
		l.Enabled, unlockAt, reason, l.UpdatedAt.UTC(), l.RoomID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRoomLock(s rowScanner) (model.RoomLock, error) {
	var (
		l        model.RoomLock
		unlockAt sql.NullTime
		reason   sql.NullString
	)
	if err := s.Scan(&l.RoomID, &l.Enabled, &unlockAt, &reason, &l.UpdatedAt); err != nil {
		return model.RoomLock{}, err
	}
	if unlockAt.Valid {
		t := unlockAt.Time.UTC()
		l.UnlockAt = &t
	}
	if reason.Valid {
		s := reason.String
		l.Reason = &s
	}
	l.UpdatedAt = l.UpdatedAt.UTC()
	return l, nil
}
