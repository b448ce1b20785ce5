package knowledge

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"solvencia-backend/internal/models"
)

// DocumentStore is the persisted side of the corpus.
type DocumentStore interface {
	List(ctx context.Context) ([]models.Document, error)
}

// Corpus merges the built-in syllabus with stored documents and caches the
// result for a short TTL.
type Corpus struct {
	store DocumentStore
	seed  []models.Document
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	cached   []models.Document
	loadedAt time.Time
	// generation is bumped by Invalidate; a load started under an older
	// generation must not fill the cache.
	generation uint64

	// OnLoad is called with the document count after each reload.
	OnLoad func(n int)
}

func NewCorpus(store DocumentStore, seed []models.Document, ttl time.Duration) *Corpus {
	return &Corpus{
		store: store,
		seed:  seed,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Documents returns the merged corpus, reloading from the store when the cache
// has expired. Concurrent reloads share one store query.
func (c *Corpus) Documents(ctx context.Context) ([]models.Document, error) {
	c.mu.RLock()
	if c.cached != nil && c.now().Sub(c.loadedAt) < c.ttl {
		docs := c.cached
		c.mu.RUnlock()
		return docs, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do("corpus", func() (interface{}, error) {
		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()

		stored, err := c.store.List(ctx)
		if err != nil {
			return nil, err
		}
		docs := Merge(c.seed, stored)

		c.mu.Lock()
		fresh := c.generation == gen
		if fresh {
			c.cached = docs
			c.loadedAt = c.now()
		}
		c.mu.Unlock()

		if fresh && c.OnLoad != nil {
			c.OnLoad(len(docs))
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.Document), nil
}

// Invalidate drops the cached corpus so the next read hits the store. Loads
// already in flight still answer their callers but are not cached, and later
// readers do not join them.
func (c *Corpus) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.generation++
	c.mu.Unlock()
	c.group.Forget("corpus")
}

// IsBuiltIn reports whether id belongs to the embedded syllabus.
func (c *Corpus) IsBuiltIn(id string) bool {
	for _, d := range c.seed {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Merge overlays stored documents on the seed. A stored document replaces the
// seed entry with the same ID in place; the rest are appended oldest first.
func Merge(seed, stored []models.Document) []models.Document {
	byID := make(map[string]models.Document, len(stored))
	for _, d := range stored {
		byID[d.ID] = d
	}

	out := make([]models.Document, 0, len(seed)+len(stored))
	used := make(map[string]struct{}, len(stored))
	for _, d := range seed {
		if override, ok := byID[d.ID]; ok {
			override.BuiltIn = true
			out = append(out, override)
			used[d.ID] = struct{}{}
			continue
		}
		out = append(out, d)
	}

	extra := make([]models.Document, 0, len(stored))
	for _, d := range stored {
		if _, ok := used[d.ID]; ok {
			continue
		}
		extra = append(extra, d)
	}
	sort.SliceStable(extra, func(i, j int) bool {
		return extra[i].UpdatedAt.Before(extra[j].UpdatedAt)
	})
	return append(out, extra...)
}
