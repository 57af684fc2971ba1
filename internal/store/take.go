package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Take is one recording session of rotation frames.
type Take struct {
	ID         string
	SkeletonID string
	Name       string
	FrameCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TakeFrame is one recorded frame of a take. Data is the JSON frame as
// published to clients.
type TakeFrame struct {
	TakeID string          `json:"take_id"`
	Seq    int64           `json:"seq"`
	Data   json.RawMessage `json:"data"`
}

// TakeRepository provides CRUD operations for takes.
type TakeRepository struct {
	db *sql.DB
}

// Takes returns the take repository for this store.
func (s *Store) Takes() *TakeRepository {
	return &TakeRepository{db: s.db}
}

// Create inserts a new, empty take. An empty ID is filled with a new UUID.
func (r *TakeRepository) Create(t *Take) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.FrameCount = 0

	_, err := r.db.Exec(
		`INSERT INTO takes (id, skeleton_id, name, frame_count, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		t.ID, t.SkeletonID, t.Name, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

const takeColumns = `id, skeleton_id, name, frame_count, created_at, updated_at`

func scanTake(row interface{ Scan(...any) error }) (*Take, error) {
	t := &Take{}
	if err := row.Scan(&t.ID, &t.SkeletonID, &t.Name, &t.FrameCount, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

// GetByID retrieves a take by its ID.
func (r *TakeRepository) GetByID(id string) (*Take, error) {
	t, err := scanTake(r.db.QueryRow(`SELECT `+takeColumns+` FROM takes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// List retrieves all takes, newest first.
func (r *TakeRepository) List() ([]*Take, error) {
	return r.query(`SELECT ` + takeColumns + ` FROM takes ORDER BY created_at DESC`)
}

// ListBySkeleton retrieves the takes recorded against one skeleton.
func (r *TakeRepository) ListBySkeleton(skeletonID string) ([]*Take, error) {
	return r.query(`SELECT `+takeColumns+` FROM takes WHERE skeleton_id = ? ORDER BY created_at DESC`, skeletonID)
}

func (r *TakeRepository) query(q string, args ...any) ([]*Take, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var takes []*Take
	for rows.Next() {
		t, err := scanTake(rows)
		if err != nil {
			return nil, err
		}
		takes = append(takes, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return takes, nil
}

// AppendFrames adds frames to a take in a single transaction and bumps
// its frame count.
func (r *TakeRepository) AppendFrames(takeID string, frames []TakeFrame) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO take_frames (take_id, seq, data) VALUES (?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, f := range frames {
			if _, err := stmt.Exec(takeID, f.Seq, string(f.Data)); err != nil {
				return err
			}
		}

		result, err := tx.Exec(
			`UPDATE takes SET frame_count = frame_count + ?, updated_at = ? WHERE id = ?`,
			len(frames), time.Now(), takeID,
		)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// Frames retrieves the frames of a take in sequence order.
func (r *TakeRepository) Frames(takeID string) ([]TakeFrame, error) {
	rows, err := r.db.Query(
		`SELECT take_id, seq, data FROM take_frames WHERE take_id = ? ORDER BY seq`,
		takeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []TakeFrame
	for rows.Next() {
		var f TakeFrame
		var data string
		if err := rows.Scan(&f.TakeID, &f.Seq, &data); err != nil {
			return nil, err
		}
		f.Data = json.RawMessage(data)
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Delete removes a take and its frames.
func (r *TakeRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM takes WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
