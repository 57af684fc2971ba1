package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const testHierarchy = `{"name":"root","children":[{"name":"hips"}]}`

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	// Verify the database file doesn't exist yet
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"skeletons", "takes", "take_frames", "settings"}
	for _, table := range tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	var idx string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
		"idx_takes_skeleton_id",
	).Scan(&idx)
	if err != nil {
		t.Errorf("index should exist after migrations: %v", err)
	}
}

func TestNewStore_ReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().Set("skeleton", "vrm"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	v, err := s.Settings().Get("skeleton")
	if err != nil || v != "vrm" {
		t.Errorf("Get after reopen = %q, %v; want vrm", v, err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	// After closing, DB operations should fail
	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}

	err := s.Takes().Create(&Take{SkeletonID: "missing", Name: "orphan"})
	if err == nil {
		t.Error("take referencing an unknown skeleton should be rejected")
	}
}

func TestSkeletonRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Skeletons()

	sk := &Skeleton{Name: "vrm", Hierarchy: json.RawMessage(testHierarchy)}
	if err := repo.Create(sk); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sk.ID == "" {
		t.Fatal("Create should assign an ID")
	}

	t.Run("get by id", func(t *testing.T) {
		got, err := repo.GetByID(sk.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if got.Name != "vrm" || string(got.Hierarchy) != testHierarchy {
			t.Errorf("GetByID = %+v", got)
		}
	})

	t.Run("get by name", func(t *testing.T) {
		got, err := repo.GetByName("vrm")
		if err != nil {
			t.Fatalf("GetByName: %v", err)
		}
		if got.ID != sk.ID {
			t.Errorf("GetByName ID = %q, want %q", got.ID, sk.ID)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		dup := &Skeleton{Name: "vrm", Hierarchy: json.RawMessage(testHierarchy)}
		if err := repo.Create(dup); err == nil {
			t.Error("duplicate name should be rejected")
		}
	})

	t.Run("list", func(t *testing.T) {
		other := &Skeleton{Name: "mixamo", Hierarchy: json.RawMessage(testHierarchy)}
		if err := repo.Create(other); err != nil {
			t.Fatalf("Create: %v", err)
		}
		list, err := repo.List()
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(list) != 2 {
			t.Errorf("List returned %d skeletons, want 2", len(list))
		}
	})

	t.Run("not found", func(t *testing.T) {
		if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID err = %v, want ErrNotFound", err)
		}
		if _, err := repo.GetByName("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByName err = %v, want ErrNotFound", err)
		}
		if err := repo.Delete("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Delete err = %v, want ErrNotFound", err)
		}
	})
}

func TestTakeRepository(t *testing.T) {
	s := newTestStore(t)

	sk := &Skeleton{Name: "vrm", Hierarchy: json.RawMessage(testHierarchy)}
	if err := s.Skeletons().Create(sk); err != nil {
		t.Fatalf("Create skeleton: %v", err)
	}

	repo := s.Takes()
	take := &Take{SkeletonID: sk.ID, Name: "warmup"}
	if err := repo.Create(take); err != nil {
		t.Fatalf("Create: %v", err)
	}

	frames := []TakeFrame{
		{Seq: 1, Data: json.RawMessage(`{"seq":1}`)},
		{Seq: 2, Data: json.RawMessage(`{"seq":2}`)},
	}
	if err := repo.AppendFrames(take.ID, frames); err != nil {
		t.Fatalf("AppendFrames: %v", err)
	}
	if err := repo.AppendFrames(take.ID, []TakeFrame{{Seq: 3, Data: json.RawMessage(`{"seq":3}`)}}); err != nil {
		t.Fatalf("AppendFrames: %v", err)
	}

	got, err := repo.GetByID(take.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", got.FrameCount)
	}

	stored, err := repo.Frames(take.ID)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(stored) != 3 {
		t.Fatalf("Frames returned %d, want 3", len(stored))
	}
	for i, f := range stored {
		if f.Seq != int64(i+1) || f.TakeID != take.ID {
			t.Errorf("frame %d = %+v", i, f)
		}
	}

	t.Run("duplicate seq rolls back", func(t *testing.T) {
		err := repo.AppendFrames(take.ID, []TakeFrame{
			{Seq: 4, Data: json.RawMessage(`{}`)},
			{Seq: 1, Data: json.RawMessage(`{}`)},
		})
		if err == nil {
			t.Fatal("duplicate seq should fail")
		}
		got, _ := repo.GetByID(take.ID)
		if got.FrameCount != 3 {
			t.Errorf("FrameCount after failed append = %d, want 3", got.FrameCount)
		}
	})

	t.Run("unknown take", func(t *testing.T) {
		err := repo.AppendFrames("nope", nil)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("AppendFrames err = %v, want ErrNotFound", err)
		}
	})

	t.Run("list by skeleton", func(t *testing.T) {
		list, err := repo.ListBySkeleton(sk.ID)
		if err != nil {
			t.Fatalf("ListBySkeleton: %v", err)
		}
		if len(list) != 1 || list[0].ID != take.ID {
			t.Errorf("ListBySkeleton = %+v", list)
		}
		all, err := repo.List()
		if err != nil || len(all) != 1 {
			t.Errorf("List = %d takes, %v", len(all), err)
		}
	})

	t.Run("deleting the skeleton cascades", func(t *testing.T) {
		if err := s.Skeletons().Delete(sk.ID); err != nil {
			t.Fatalf("Delete skeleton: %v", err)
		}
		if _, err := repo.GetByID(take.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("take should be gone, got %v", err)
		}
		frames, err := repo.Frames(take.ID)
		if err != nil || len(frames) != 0 {
			t.Errorf("frames should be gone, got %d, %v", len(frames), err)
		}
	})
}

func TestSettingRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get("fps"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get on empty store err = %v, want ErrNotFound", err)
	}
	if err := repo.Set("fps", "30"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set("fps", "24"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, err := repo.Get("fps")
	if err != nil || v != "24" {
		t.Errorf("Get = %q, %v; want 24", v, err)
	}
}
