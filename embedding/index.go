package embedding

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

const rrfK = 60 // reciprocal-rank-fusion constant, standard value from the literature

// Entry is one vector to upsert into the index, identified by chunk id.
type Entry struct {
	ChunkID int64
	Vector  []float32
}

// Filter narrows a Query to chunks belonging to documents matching these
// (optional) predicates.
type Filter struct {
	DocumentID  int64  // 0 = no filter
	Topic       string // "" = no filter
	GradeLevels []int  // empty = no filter; matches documents whose grade_levels JSON array intersects
}

// Result is one scored hit from Query.
type Result struct {
	ChunkID    int64
	Score      float64
	Content    string
	DocumentID int64
}

// Index stores chunk embeddings in a sqlite-vec vec0 virtual table and
// optionally blends a lexical (FTS5) signal in on Query, via Reciprocal
// Rank Fusion over the two signals.
type Index struct {
	db  *sql.DB
	dim int
}

// NewIndex wraps an already-opened database handle whose schema has
// created the vec_chunks and chunks_fts virtual tables (see package
// store's schema).
func NewIndex(db *sql.DB, dim int) *Index {
	return &Index{db: db, dim: dim}
}

// Upsert stores or replaces the vector for each entry's chunk id.
func (idx *Index) Upsert(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != idx.dim {
			return fmt.Errorf("embedding: vector dim %d does not match index dim %d", len(e.Vector), idx.dim)
		}
		_, err := idx.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO vec_chunks (chunk_id, embedding) VALUES (?, ?)",
			e.ChunkID, serializeFloat32(e.Vector))
		if err != nil {
			return fmt.Errorf("embedding: upsert chunk %d: %w", e.ChunkID, err)
		}
	}
	return nil
}

// Delete removes every vector belonging to chunks of documentID.
func (idx *Index) Delete(ctx context.Context, documentID int64) error {
	_, err := idx.db.ExecContext(ctx, `
		DELETE FROM vec_chunks WHERE chunk_id IN (
			SELECT id FROM chunks WHERE document_id = ?
		)`, documentID)
	if err != nil {
		return fmt.Errorf("embedding: delete document %d: %w", documentID, err)
	}
	return nil
}

// Count returns the number of vectors currently stored in the index, for
// a healthz/metrics size gauge.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vec_chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("embedding: count index: %w", err)
	}
	return n, nil
}

// Query is total: an empty index, or a filter that excludes every chunk,
// returns an empty slice rather than an error. queryText, when non-empty,
// also drives a lexical FTS search that is fused with the vector results
// via RRF so identifier-like queries (unit abbreviations, numeric values)
// are not lost to pure cosine similarity.
func (idx *Index) Query(ctx context.Context, queryVector []float32, queryText string, k int, filter Filter) ([]Result, error) {
	if k <= 0 {
		k = 5
	}

	vecResults, err := idx.vectorSearch(ctx, queryVector, k*3, filter)
	if err != nil {
		return nil, fmt.Errorf("embedding: vector search: %w", err)
	}

	var ftsResults []Result
	if strings.TrimSpace(queryText) != "" {
		ftsResults, err = idx.ftsSearch(ctx, queryText, k*3, filter)
		if err != nil {
			// Lexical search is a boost, not a requirement; degrade to
			// vector-only rather than failing the whole query.
			ftsResults = nil
		}
	}

	fused := fuseRRF(vecResults, ftsResults, k)
	return fused, nil
}

func (idx *Index) vectorSearch(ctx context.Context, queryVector []float32, k int, filter Filter) ([]Result, error) {
	if len(queryVector) == 0 {
		return nil, nil
	}

	where, args := filter.whereClause()
	query := `
		SELECT v.chunk_id, v.distance, c.content, c.document_id
		FROM vec_chunks v
		JOIN chunks c ON c.id = v.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE v.embedding MATCH ? AND k = ?` + where + `
		ORDER BY v.distance
	`
	queryArgs := append([]any{serializeFloat32(queryVector), k}, args...)

	rows, err := idx.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var distance float64
		if err := rows.Scan(&r.ChunkID, &distance, &r.Content, &r.DocumentID); err != nil {
			return nil, err
		}
		r.Score = 1.0 - distance
		results = append(results, r)
	}
	return results, rows.Err()
}

func (idx *Index) ftsSearch(ctx context.Context, queryText string, limit int, filter Filter) ([]Result, error) {
	where, args := filter.whereClause()
	query := `
		SELECT f.rowid, f.rank, c.content, c.document_id
		FROM chunks_fts f
		JOIN chunks c ON c.id = f.rowid
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ?` + where + `
		ORDER BY f.rank
		LIMIT ?
	`
	queryArgs := append([]any{queryText}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := idx.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var rank float64
		if err := rows.Scan(&r.ChunkID, &rank, &r.Content, &r.DocumentID); err != nil {
			return nil, err
		}
		r.Score = -rank
		results = append(results, r)
	}
	return results, rows.Err()
}

// whereClause builds an additional SQL predicate (with leading " AND") and
// its bind args from the filter's non-zero fields, joined against the
// already-present documents table alias "d".
func (f Filter) whereClause() (string, []any) {
	var clauses []string
	var args []any

	if f.DocumentID != 0 {
		clauses = append(clauses, "d.id = ?")
		args = append(args, f.DocumentID)
	}
	if f.Topic != "" {
		clauses = append(clauses, "d.topic = ?")
		args = append(args, f.Topic)
	}
	if len(f.GradeLevels) > 0 {
		grades := make([]string, len(f.GradeLevels))
		for i, g := range f.GradeLevels {
			grades[i] = "d.grade_levels LIKE ?"
			args = append(args, fmt.Sprintf("%%%d%%", g))
		}
		clauses = append(clauses, "("+strings.Join(grades, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

// fuseRRF combines vector and lexical result sets with Reciprocal Rank
// Fusion: score = sum(1 / (rrfK + rank)) across signals the chunk appears
// in, weighted equally between the two signals used here.
func fuseRRF(vecResults, ftsResults []Result, limit int) []Result {
	type entry struct {
		result Result
		score  float64
	}
	fused := make(map[int64]*entry)

	for rank, r := range vecResults {
		e, ok := fused[r.ChunkID]
		if !ok {
			e = &entry{result: r}
			fused[r.ChunkID] = e
		}
		e.score += 1.0 / float64(rrfK+rank+1)
	}
	for rank, r := range ftsResults {
		e, ok := fused[r.ChunkID]
		if !ok {
			e = &entry{result: r}
			fused[r.ChunkID] = e
		}
		e.score += 1.0 / float64(rrfK+rank+1)
	}

	entries := make([]*entry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].score > entries[j].score })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]Result, len(entries))
	for i, e := range entries {
		out[i] = e.result
		out[i].Score = e.score
	}
	return out
}

// serializeFloat32 converts a float32 slice to little-endian bytes for
// storage in a sqlite-vec vec0 column.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
