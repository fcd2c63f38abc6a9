package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- Uploaded curriculum documents
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    topic TEXT NOT NULL,
    grade_levels TEXT NOT NULL, -- JSON array of ints
    uploader TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    chunk_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Flat, character-addressed chunks of a document
CREATE TABLE IF NOT EXISTS chunks (
    id INTEGER PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    sequence_index INTEGER NOT NULL,
    content TEXT NOT NULL,
    char_start INTEGER NOT NULL,
    char_end INTEGER NOT NULL
);

-- Vector embeddings via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(
    chunk_id INTEGER PRIMARY KEY,
    embedding float[%d] distance_metric=cosine
);

-- Full-text search via FTS5, kept in sync with chunks by trigger
CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5(
    content,
    content='chunks',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS chunks_ai AFTER INSERT ON chunks BEGIN
    INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_ad AFTER DELETE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
CREATE TRIGGER IF NOT EXISTS chunks_au AFTER UPDATE ON chunks BEGIN
    INSERT INTO chunks_fts(chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
    INSERT INTO chunks_fts(rowid, content) VALUES (new.id, new.content);
END;

-- Generated questions. Soft-deleted (deleted_at set) so id references from
-- student_answers remain resolvable after a document cascade delete.
CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    document_id INTEGER REFERENCES documents(id) ON DELETE SET NULL,
    chunk_ids TEXT NOT NULL,        -- JSON array of chunk ids
    topic TEXT NOT NULL,
    grade_level INTEGER NOT NULL,
    difficulty INTEGER NOT NULL,
    question_type TEXT NOT NULL,
    body TEXT NOT NULL,
    options TEXT,                   -- JSON array, null for non-multiple-choice
    correct_answer TEXT NOT NULL,
    correct_answer_alternates TEXT, -- JSON array
    concepts TEXT,                  -- JSON array
    hints TEXT,                     -- JSON array
    explanation TEXT,
    metadata TEXT,                  -- JSON object
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    deleted_at DATETIME
);

-- Per-(learner, unit) adaptive ability state. version is a monotonic
-- counter used for optimistic concurrency control instead of updated_at:
-- two writes landing in the same CURRENT_TIMESTAMP second must still be
-- distinguishable, which a 1-second-resolution timestamp cannot guarantee.
CREATE TABLE IF NOT EXISTS student_ability (
    learner_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    ability REAL NOT NULL DEFAULT 0,
    current_difficulty INTEGER NOT NULL DEFAULT 3,
    total_answered INTEGER NOT NULL DEFAULT 0,
    total_correct INTEGER NOT NULL DEFAULT 0,
    version INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (learner_id, unit_id)
);

-- Per-(learner, unit, concept) mastery, a genuine keyed table rather than
-- a nested JSON map
CREATE TABLE IF NOT EXISTS concept_mastery (
    learner_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    concept TEXT NOT NULL,
    attempted INTEGER NOT NULL DEFAULT 0,
    correct INTEGER NOT NULL DEFAULT 0,
    mastery REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (learner_id, unit_id, concept)
);

-- Append-only answer submission log
CREATE TABLE IF NOT EXISTS student_answers (
    id INTEGER PRIMARY KEY,
    learner_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    answer_given TEXT NOT NULL,
    is_correct INTEGER NOT NULL,
    time_taken_ms INTEGER NOT NULL DEFAULT 0,
    difficulty_at_attempt INTEGER NOT NULL,
    ability_before REAL NOT NULL,
    ability_after REAL NOT NULL,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Long-running question-generation requests, tracked as their own entity
-- instead of being coupled to the requesting goroutine's lifetime
CREATE TABLE IF NOT EXISTS generation_jobs (
    id TEXT PRIMARY KEY,
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    grade_levels TEXT NOT NULL, -- JSON array of ints
    n_per_grade INTEGER NOT NULL,
    types TEXT NOT NULL,        -- JSON array of question types
    status TEXT NOT NULL DEFAULT 'queued',
    question_ids TEXT,          -- JSON array, populated once ready
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_questions_grade_difficulty ON questions(grade_level, difficulty);
CREATE INDEX IF NOT EXISTS idx_questions_document ON questions(document_id);
CREATE INDEX IF NOT EXISTS idx_questions_topic ON questions(topic);
CREATE UNIQUE INDEX IF NOT EXISTS idx_student_ability_learner_unit ON student_ability(learner_id, unit_id);
CREATE INDEX IF NOT EXISTS idx_student_answers_learner_unit_time ON student_answers(learner_id, unit_id, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_generation_jobs_document ON generation_jobs(document_id);
`, embeddingDim)
}
