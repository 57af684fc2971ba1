package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Skeleton is a stored bone hierarchy. Hierarchy holds the JSON tree as
// accepted by skeleton.ParseHierarchy.
type Skeleton struct {
	ID        string
	Name      string
	Hierarchy json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SkeletonRepository provides CRUD operations for skeletons.
type SkeletonRepository struct {
	db *sql.DB
}

// Skeletons returns the skeleton repository for this store.
func (s *Store) Skeletons() *SkeletonRepository {
	return &SkeletonRepository{db: s.db}
}

// Create inserts a new skeleton. An empty ID is filled with a new UUID.
func (r *SkeletonRepository) Create(sk *Skeleton) error {
	if sk.ID == "" {
		sk.ID = uuid.NewString()
	}
	now := time.Now()
	sk.CreatedAt = now
	sk.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO skeletons (id, name, hierarchy, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		sk.ID, sk.Name, string(sk.Hierarchy), sk.CreatedAt, sk.UpdatedAt,
	)
	return err
}

func scanSkeleton(row interface{ Scan(...any) error }) (*Skeleton, error) {
	sk := &Skeleton{}
	var hierarchy string
	if err := row.Scan(&sk.ID, &sk.Name, &hierarchy, &sk.CreatedAt, &sk.UpdatedAt); err != nil {
		return nil, err
	}
	sk.Hierarchy = json.RawMessage(hierarchy)
	return sk, nil
}

// GetByID retrieves a skeleton by its ID.
func (r *SkeletonRepository) GetByID(id string) (*Skeleton, error) {
	sk, err := scanSkeleton(r.db.QueryRow(
		`SELECT id, name, hierarchy, created_at, updated_at
		 FROM skeletons WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sk, nil
}

// GetByName retrieves a skeleton by its name.
func (r *SkeletonRepository) GetByName(name string) (*Skeleton, error) {
	sk, err := scanSkeleton(r.db.QueryRow(
		`SELECT id, name, hierarchy, created_at, updated_at
		 FROM skeletons WHERE name = ?`,
		name,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sk, nil
}

// List retrieves all skeletons, newest first.
func (r *SkeletonRepository) List() ([]*Skeleton, error) {
	rows, err := r.db.Query(
		`SELECT id, name, hierarchy, created_at, updated_at
		 FROM skeletons ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var skeletons []*Skeleton
	for rows.Next() {
		sk, err := scanSkeleton(rows)
		if err != nil {
			return nil, err
		}
		skeletons = append(skeletons, sk)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return skeletons, nil
}

// Delete removes a skeleton and, through the foreign keys, its takes.
func (r *SkeletonRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM skeletons WHERE id = ?`, id)
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
