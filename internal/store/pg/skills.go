package pg

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/nextlevelbuilder/agentbridge/internal/memory"
	"github.com/nextlevelbuilder/agentbridge/internal/store"
)

// PGSkillStore persists skill bundle metadata in Postgres for managed mode,
// where SKILL.md-equivalent content lives in the database rather than a
// single filesystem the gateway process owns. skillsDir is kept only as the
// on-disk staging area custom-tool-style uploads land in before a Create
// call; the database is the source of truth once a record exists.
type PGSkillStore struct {
	db        *sql.DB
	skillsDir string
	embedder  memory.Embedder
}

func NewPGSkillStore(db *sql.DB, skillsDir string) *PGSkillStore {
	return &PGSkillStore{db: db, skillsDir: skillsDir}
}

// SetEmbeddingProvider enables semantic Search/BackfillSkillEmbeddings;
// without one, skill_search falls back to substring matching.
func (s *PGSkillStore) SetEmbeddingProvider(e memory.Embedder) {
	s.embedder = e
}

func (s *PGSkillStore) List(ctx context.Context) ([]store.SkillRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description, content, path, embedding, updated_at FROM skills ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.SkillRecord
	for rows.Next() {
		rec, err := scanSkillRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGSkillStore) Get(ctx context.Context, name string) (*store.SkillRecord, error) {
	var rec store.SkillRecord
	var emb []float64
	err := s.db.QueryRowContext(ctx,
		`SELECT name, description, content, path, embedding, updated_at FROM skills WHERE name = $1`, name,
	).Scan(&rec.Name, &rec.Description, &rec.Content, &rec.Path, pq.Array(&emb), &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Embedding = toFloat32Slice(emb)
	return &rec, nil
}

func (s *PGSkillStore) Create(ctx context.Context, rec store.SkillRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skills (name, description, content, path, embedding, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			content     = EXCLUDED.content,
			path        = EXCLUDED.path,
			updated_at  = EXCLUDED.updated_at`,
		rec.Name, rec.Description, rec.Content, rec.Path, pq.Array(toFloat64Slice(rec.Embedding)), rec.UpdatedAt,
	)
	return err
}

func (s *PGSkillStore) Update(ctx context.Context, rec store.SkillRecord) error {
	return s.Create(ctx, rec)
}

func (s *PGSkillStore) Delete(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM skills WHERE name = $1`, name)
	return err
}

// BackfillSkillEmbeddings embeds every stored skill that has no embedding
// yet, using its name + description as the embedding input.
func (s *PGSkillStore) BackfillSkillEmbeddings(ctx context.Context) (int, error) {
	if s.embedder == nil {
		return 0, fmt.Errorf("skill store: no embedding provider configured")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, description FROM skills WHERE embedding IS NULL OR array_length(embedding, 1) IS NULL`)
	if err != nil {
		return 0, err
	}
	type pending struct{ name, text string }
	var work []pending
	for rows.Next() {
		var name, desc string
		if err := rows.Scan(&name, &desc); err != nil {
			rows.Close()
			return 0, err
		}
		work = append(work, pending{name, name + ": " + desc})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, w := range work {
		vecs, err := s.embedder.Embed(ctx, []string{w.text})
		if err != nil || len(vecs) == 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE skills SET embedding = $1 WHERE name = $2`,
			pq.Array(toFloat64Slice(vecs[0])), w.name); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

type scoredSkill struct {
	rec   store.SkillRecord
	score float64
}

// Search returns skills ranked by cosine similarity between queryText's
// embedding and each stored skill's embedding, limited to the top k.
func (s *PGSkillStore) Search(ctx context.Context, queryText string, k int) ([]store.SkillRecord, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("skill store: no embedding provider configured")
	}
	vecs, err := s.embedder.Embed(ctx, []string{queryText})
	if err != nil {
		return nil, fmt.Errorf("skill store: embed query: %w", err)
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("skill store: embedder returned no vector")
	}
	query := vecs[0]

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var scored []scoredSkill
	for _, r := range all {
		if len(r.Embedding) == 0 {
			continue
		}
		scored = append(scored, scoredSkill{r, cosineSimilarity(query, r.Embedding)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	out := make([]store.SkillRecord, len(scored))
	for i, c := range scored {
		out[i] = c.rec
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func scanSkillRow(rows *sql.Rows) (store.SkillRecord, error) {
	var rec store.SkillRecord
	var emb []float64
	if err := rows.Scan(&rec.Name, &rec.Description, &rec.Content, &rec.Path, pq.Array(&emb), &rec.UpdatedAt); err != nil {
		return store.SkillRecord{}, err
	}
	rec.Embedding = toFloat32Slice(emb)
	return rec, nil
}

func toFloat32Slice(in []float64) []float32 {
	if in == nil {
		return nil
	}
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

func toFloat64Slice(in []float32) []float64 {
	if in == nil {
		return nil
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
