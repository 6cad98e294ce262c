// Package memory implements the embedding store, per-agent memory
// facade, and memory manager.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
)

// Match is one scored hit from Search. Distance is monotonic (lower is
// closer); converting it to a 0..1 similarity score is the caller's job
// (memory manager applies 1/(1+distance)), so the store stays distance-native.
type Match struct {
	ID       string
	Metadata map[string]string
	Text     string
	Distance float32
}

// noEmbed is handed to chromem-go's GetOrCreateCollection so every
// collection is constructible without a live embedding provider at
// startup. Every document this store writes carries a precomputed vector
// (see Upsert), and every query supplies its own query vector (see
// Search), so chromem-go never needs to call this itself; it only exists
// to satisfy the non-nil EmbeddingFunc chromem-go's persistence layer
// expects when a collection is reopened from disk.
func noEmbed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding store: no embedding provider wired for implicit embedding of %q; callers must supply vectors", text)
}

// VectorStore is a process-wide singleton chromem-go handle, lazily
// opening one collection per (knowledge_agent_{id},
// messages_{agent}_{memory_key_hash}) family member on first use.
type VectorStore struct {
	db   *chromem.DB
	path string

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewVectorStore opens (or creates) the persistent database rooted at dataDir.
func NewVectorStore(dataDir string) (*VectorStore, error) {
	path := filepath.Join(dataDir, "vectors")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("embedding store: create data dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("embedding store: open db: %w", err)
	}
	return &VectorStore{
		db:          db,
		path:        path,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// KnowledgeCollection names the document-RAG collection for one agent.
func KnowledgeCollection(agentID string) string {
	return fmt.Sprintf("knowledge_agent_%s", agentID)
}

// MessagesCollection names the episodic-memory collection for one
// (agent, memory_key) pair. memoryKeyHash is expected to already be hashed
// by the caller (the memory manager hashes derived memory keys before they
// ever reach the store, since raw keys can contain characters chromem-go's
// on-disk collection names don't allow).
func MessagesCollection(agentID, memoryKeyHash string) string {
	return fmt.Sprintf("messages_%s_%s", agentID, memoryKeyHash)
}

func (vs *VectorStore) collection(name string) (*chromem.Collection, error) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	if c, ok := vs.collections[name]; ok {
		return c, nil
	}
	c, err := vs.db.GetOrCreateCollection(name, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("embedding store: open collection %q: %w", name, err)
	}
	vs.collections[name] = c
	return c, nil
}

// Upsert stores (or replaces) the vector for (collection, id). A given
// (collection, id) has at most one vector; chromem-go's AddDocument already
// replaces same-ID documents in place, which gives us that invariant for free.
func (vs *VectorStore) Upsert(ctx context.Context, collection, id string, vector []float32, metadata map[string]string, text string) error {
	c, err := vs.collection(collection)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        id,
		Content:   text,
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := c.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("embedding store: upsert %s/%s: %w", collection, id, err)
	}
	return nil
}

// BatchUpsert inserts many vectors into one collection, chunking at 50 and
// yielding the scheduler between chunks so a large document upload can
// never monopolize memory.
func (vs *VectorStore) BatchUpsert(ctx context.Context, collection string, docs []UpsertDoc) error {
	const chunkSize = 50
	c, err := vs.collection(collection)
	if err != nil {
		return err
	}
	for start := 0; start < len(docs); start += chunkSize {
		end := start + chunkSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := make([]chromem.Document, 0, end-start)
		for _, d := range docs[start:end] {
			batch = append(batch, chromem.Document{
				ID:        d.ID,
				Content:   d.Text,
				Metadata:  d.Metadata,
				Embedding: d.Vector,
			})
		}
		if err := c.AddDocuments(ctx, batch, 1); err != nil {
			return fmt.Errorf("embedding store: batch upsert %s: %w", collection, err)
		}
		if end < len(docs) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(0):
			}
		}
	}
	return nil
}

// UpsertDoc is one document in a BatchUpsert call.
type UpsertDoc struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
	Text     string
}

// Search returns the k nearest neighbors of queryVector in collection,
// optionally filtered by exact-match metadata. Results come back sorted by
// ascending distance (chromem-go returns descending similarity; we invert
// it here so the store's contract stays distance-native).
func (vs *VectorStore) Search(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]Match, error) {
	c, err := vs.collection(collection)
	if err != nil {
		return nil, err
	}
	if c.Count() == 0 {
		return nil, nil
	}
	if k > c.Count() {
		k = c.Count()
	}
	results, err := c.QueryEmbedding(ctx, queryVector, k, filter, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding store: search %s: %w", collection, err)
	}
	out := make([]Match, 0, len(results))
	for _, r := range results {
		out = append(out, Match{
			ID:       r.ID,
			Metadata: r.Metadata,
			Text:     r.Content,
			Distance: 1 - r.Similarity,
		})
	}
	return out, nil
}

// Delete removes documents matching filter from collection. ids, when
// non-empty, restricts the delete to those specific documents in addition
// to the metadata filter.
func (vs *VectorStore) Delete(ctx context.Context, collection string, filter map[string]string, ids ...string) error {
	c, err := vs.collection(collection)
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, filter, nil, ids...); err != nil {
		return fmt.Errorf("embedding store: delete from %s: %w", collection, err)
	}
	return nil
}

// Count returns the number of vectors currently stored in collection.
func (vs *VectorStore) Count(collection string) (int, error) {
	c, err := vs.collection(collection)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}

// Path reports the on-disk root the store was opened at (used by backup/
// diagnostic tooling).
func (vs *VectorStore) Path() string {
	return vs.path
}
