package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/ayusman/mimic/internal/store"
)

const testHierarchy = `{"name":"root","children":[{"name":"hips","children":[{"name":"spine"}]}]}`

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func createSkeleton(t *testing.T, s *store.Store, name string) *store.Skeleton {
	t.Helper()
	sk := &store.Skeleton{Name: name, Hierarchy: json.RawMessage(testHierarchy)}
	if err := s.Skeletons().Create(sk); err != nil {
		t.Fatalf("failed to create skeleton: %v", err)
	}
	return sk
}

func serve(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSkeletonHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewSkeletonHandler(s)
	createSkeleton(t, s, "vrm")

	rec := serve(handler, http.MethodGet, "/api/skeletons", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if contentType := rec.Header().Get("Content-Type"); contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listSkeletonsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Skeletons) != 1 {
		t.Fatalf("expected 1 skeleton, got %d", len(response.Skeletons))
	}
	got := response.Skeletons[0]
	if got.Name != "vrm" || got.Bones != 3 {
		t.Errorf("unexpected skeleton %+v", got)
	}
	if got.Hierarchy != nil {
		t.Error("list should not include the hierarchy")
	}
}

func TestSkeletonHandler_Create(t *testing.T) {
	s := newTestStore(t)
	handler := NewSkeletonHandler(s)

	body, _ := json.Marshal(createSkeletonRequest{Name: "vrm", Hierarchy: json.RawMessage(testHierarchy)})
	rec := serve(handler, http.MethodPost, "/api/skeletons", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var response skeletonResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.ID == "" {
		t.Error("expected non-empty ID in response")
	}

	created, err := s.Skeletons().GetByID(response.ID)
	if err != nil {
		t.Fatalf("failed to get created skeleton: %v", err)
	}
	if created.Name != "vrm" {
		t.Errorf("stored skeleton name mismatch: got %q, want 'vrm'", created.Name)
	}

	t.Run("duplicate name", func(t *testing.T) {
		rec := serve(handler, http.MethodPost, "/api/skeletons", body)
		if rec.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, rec.Code)
		}
	})
}

func TestSkeletonHandler_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	handler := NewSkeletonHandler(s)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "invalid json"},
		{"missing name", `{"hierarchy":` + testHierarchy + `}`},
		{"missing hierarchy", `{"name":"vrm"}`},
		{"duplicate bone", `{"name":"vrm","hierarchy":{"name":"a","children":[{"name":"a"}]}}`},
		{"unnamed bone", `{"name":"vrm","hierarchy":{"name":""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(handler, http.MethodPost, "/api/skeletons", []byte(tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestSkeletonHandler_GetDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewSkeletonHandler(s)
	sk := createSkeleton(t, s, "vrm")

	rec := serve(handler, http.MethodGet, "/api/skeletons/"+sk.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var response skeletonResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if string(response.Hierarchy) != testHierarchy {
		t.Errorf("hierarchy = %s", response.Hierarchy)
	}

	if rec := serve(handler, http.MethodDelete, "/api/skeletons/"+sk.ID, nil); rec.Code != http.StatusNoContent {
		t.Errorf("expected status %d, got %d", http.StatusNoContent, rec.Code)
	}
	if rec := serve(handler, http.MethodGet, "/api/skeletons/"+sk.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if rec := serve(handler, http.MethodDelete, "/api/skeletons/"+sk.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
	if rec := serve(handler, http.MethodPut, "/api/skeletons/"+sk.ID, nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}
