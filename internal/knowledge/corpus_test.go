package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solvencia-backend/internal/models"
)

type stubStore struct {
	mu    sync.Mutex
	docs  []models.Document
	err   error
	calls int
}

func (s *stubStore) List(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.docs, s.err
}

func TestMerge_OverrideAndAppend(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []models.Document{
		{ID: "doc-1", Name: "Uno", Content: "seed uno", BuiltIn: true},
		{ID: "doc-2", Name: "Dos", Content: "seed dos", BuiltIn: true},
	}
	stored := []models.Document{
		{ID: "custom-b", Name: "B", Content: "nuevo b", UpdatedAt: t0.Add(time.Hour)},
		{ID: "doc-2", Name: "Dos", Content: "editado", UpdatedAt: t0},
		{ID: "custom-a", Name: "A", Content: "nuevo a", UpdatedAt: t0},
	}

	got := Merge(seed, stored)
	wantIDs := []string{"doc-1", "doc-2", "custom-a", "custom-b"}
	if len(got) != len(wantIDs) {
		t.Fatalf("expected %d documents, got %d", len(wantIDs), len(got))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if got[1].Content != "editado" || !got[1].BuiltIn {
		t.Errorf("expected overridden built-in doc-2, got %+v", got[1])
	}
	if got[2].BuiltIn {
		t.Error("custom document should not be built-in")
	}
}

func TestCorpus_CachesUntilInvalidated(t *testing.T) {
	store := &stubStore{docs: []models.Document{{ID: "custom-1", Content: "hola mundo"}}}
	seed := []models.Document{{ID: "doc-1", Content: "seed", BuiltIn: true}}

	var loaded int
	c := NewCorpus(store, seed, time.Minute)
	c.OnLoad = func(n int) { loaded = n }

	for i := 0; i < 3; i++ {
		docs, err := c.Documents(context.Background())
		if err != nil {
			t.Fatalf("Documents: %v", err)
		}
		if len(docs) != 2 {
			t.Fatalf("expected 2 documents, got %d", len(docs))
		}
	}
	if store.calls != 1 {
		t.Errorf("expected 1 store call, got %d", store.calls)
	}
	if loaded != 2 {
		t.Errorf("expected OnLoad with 2, got %d", loaded)
	}

	c.Invalidate()
	if _, err := c.Documents(context.Background()); err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected reload after Invalidate, got %d calls", store.calls)
	}
}

func TestCorpus_TTLExpiry(t *testing.T) {
	store := &stubStore{}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	c := NewCorpus(store, nil, 30*time.Second)
	c.now = func() time.Time { return now }

	c.Documents(context.Background())
	now = now.Add(10 * time.Second)
	c.Documents(context.Background())
	if store.calls != 1 {
		t.Fatalf("expected cached read, got %d calls", store.calls)
	}

	now = now.Add(time.Minute)
	c.Documents(context.Background())
	if store.calls != 2 {
		t.Fatalf("expected reload after TTL, got %d calls", store.calls)
	}
}

func TestCorpus_StoreError(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	c := NewCorpus(store, nil, time.Minute)

	if _, err := c.Documents(context.Background()); err == nil {
		t.Fatal("expected error from store")
	}
}

func TestCorpus_IsBuiltIn(t *testing.T) {
	c := NewCorpus(&stubStore{}, []models.Document{{ID: "doc-7"}}, time.Minute)
	if !c.IsBuiltIn("doc-7") {
		t.Error("expected doc-7 to be built-in")
	}
	if c.IsBuiltIn("custom-1") {
		t.Error("custom-1 should not be built-in")
	}
}

// blockingStore holds List until release is closed, returning the documents
// that were stored when the call started.
type blockingStore struct {
	mu      sync.Mutex
	docs    []models.Document
	started chan struct{}
	release chan struct{}
	blocked bool
}

func (s *blockingStore) List(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	snapshot := append([]models.Document(nil), s.docs...)
	block := !s.blocked
	s.blocked = true
	s.mu.Unlock()

	if block {
		close(s.started)
		<-s.release
	}
	return snapshot, nil
}

func (s *blockingStore) add(d models.Document) {
	s.mu.Lock()
	s.docs = append(s.docs, d)
	s.mu.Unlock()
}

func TestCorpus_InvalidateDuringLoad(t *testing.T) {
	store := &blockingStore{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCorpus(store, nil, time.Hour)

	done := make(chan []models.Document)
	go func() {
		docs, _ := c.Documents(context.Background())
		done <- docs
	}()

	<-store.started
	store.add(models.Document{ID: "custom-1", Name: "Nuevo", Content: "contenido nuevo"})
	c.Invalidate()

	docs, err := c.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "custom-1" {
		t.Fatalf("expected the new document after Invalidate, got %+v", docs)
	}

	close(store.release)
	if stale := <-done; len(stale) != 0 {
		t.Errorf("in-flight load should answer with its own snapshot, got %d docs", len(stale))
	}

	docs, _ = c.Documents(context.Background())
	if len(docs) != 1 {
		t.Errorf("stale load overwrote the cache: got %d docs", len(docs))
	}
}
