package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertDocument creates a new document row and returns its id.
func (s *Store) InsertDocument(ctx context.Context, doc *Document) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (title, topic, grade_levels, uploader, status, chunk_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`, doc.Title, doc.Topic, marshalInts(doc.GradeLevels), doc.Uploader, doc.Status, doc.ChunkCount)
	if err != nil {
		return 0, fmt.Errorf("store: insert document: %w", err)
	}
	return res.LastInsertId()
}

// UpdateDocumentStatus sets a document's status (and, when chunkCount >= 0,
// its chunk_count) and bumps updated_at.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string, chunkCount int) error {
	if chunkCount >= 0 {
		_, err := s.db.ExecContext(ctx,
			`UPDATE documents SET status = ?, chunk_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, chunkCount, id)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	return err
}

// GetDocument retrieves a document by id.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	d := &Document{}
	var gradeLevels string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, topic, grade_levels, uploader, status, chunk_count, created_at, updated_at
		FROM documents WHERE id = ?
	`, id).Scan(&d.ID, &d.Title, &d.Topic, &gradeLevels, &d.Uploader, &d.Status, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get document %d: %w", id, err)
	}
	d.GradeLevels = unmarshalInts(gradeLevels)
	return d, nil
}

// ListDocuments returns all documents ordered by most recently created.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, topic, grade_levels, uploader, status, chunk_count, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var gradeLevels string
		if err := rows.Scan(&d.ID, &d.Title, &d.Topic, &gradeLevels, &d.Uploader, &d.Status, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.GradeLevels = unmarshalInts(gradeLevels)
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; its chunks go with it via the foreign
// key cascade. When cascade is true, its questions are soft-deleted
// (deleted_at set, the rows kept) so existing student_answers referencing
// them remain resolvable. When cascade is false, its questions stay live as
// orphans. In both cases the foreign key sets the questions' document_id
// to NULL.
func (s *Store) DeleteDocument(ctx context.Context, id int64, cascade bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin delete document: %w", err)
	}
	defer tx.Rollback()

	if cascade {
		if _, err := tx.ExecContext(ctx, `UPDATE questions SET deleted_at = CURRENT_TIMESTAMP WHERE document_id = ?`, id); err != nil {
			return fmt.Errorf("store: soft-delete questions for document %d: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete document %d: %w", id, err)
	}

	return tx.Commit()
}

// InsertChunks stores a document's chunks in a single transaction.
func (s *Store) InsertChunks(ctx context.Context, documentID int64, chunks []Chunk) ([]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin insert chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (document_id, sequence_index, content, char_start, char_end)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]int64, len(chunks))
	for i, c := range chunks {
		res, err := stmt.ExecContext(ctx, documentID, c.SequenceIndex, c.Content, c.CharStart, c.CharEnd)
		if err != nil {
			return nil, fmt.Errorf("store: insert chunk %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetChunks returns every chunk belonging to a document, ordered by
// sequence index.
func (s *Store) GetChunks(ctx context.Context, documentID int64) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, sequence_index, content, char_start, char_end
		FROM chunks WHERE document_id = ? ORDER BY sequence_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Content, &c.CharStart, &c.CharEnd); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// GetChunksByIDs fetches a set of chunks by id, used to resolve a
// question's source chunk_ids back into their text.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []int64) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document_id, sequence_index, content, char_start, char_end
		FROM chunks WHERE id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks by id: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.SequenceIndex, &c.Content, &c.CharStart, &c.CharEnd); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
