package adaptiveq

import (
	"os"
	"path/filepath"

	"github.com/adaptiveq/engine/llm"
)

// Config holds all configuration for the adaptiveq engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.adaptiveq/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath is
	// not explicitly set. "home" (default) uses ~/.adaptiveq/, "local"
	// uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers. Chat drives question generation (C4); Embedding is
	// optional — when its Provider is empty the engine uses the built-in
	// deterministic local embedder instead (see package embedding).
	Chat      llm.Config `json:"chat" yaml:"chat"`
	Embedding llm.Config `json:"embedding" yaml:"embedding"`

	// Ingestion / chunking (C1).
	ChunkSize    int `json:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" yaml:"chunk_overlap"`
	MaxFileBytes int `json:"max_file_bytes" yaml:"max_file_bytes"`
	MinTextChars int `json:"min_text_chars" yaml:"min_text_chars"`

	// Retrieval (C2/C3).
	RetrievalK            int `json:"retrieval_k" yaml:"retrieval_k"`
	RetrievalContextChars int `json:"retrieval_context_chars" yaml:"retrieval_context_chars"`

	// Timeouts (§5/§7).
	LLMTimeoutS       int `json:"llm_timeout_s" yaml:"llm_timeout_s"`
	EmbeddingTimeoutS int `json:"embedding_timeout_s" yaml:"embedding_timeout_s"`
	StoreTimeoutS     int `json:"store_timeout_s" yaml:"store_timeout_s"`

	// Adaptive difficulty engine (C7).
	LearningRate  float64 `json:"learning_rate" yaml:"learning_rate"`
	MinDifficulty int     `json:"min_difficulty" yaml:"min_difficulty"`
	MaxDifficulty int     `json:"max_difficulty" yaml:"max_difficulty"`
	AbilityClamp  float64 `json:"ability_clamp" yaml:"ability_clamp"`
	AvoidRecentK  int     `json:"avoid_recent_k" yaml:"avoid_recent_k"`
	TargetSuccess float64 `json:"target_success_rate" yaml:"target_success_rate"` // reported only

	// EmbeddingDim sizes the sqlite-vec virtual table; must match whatever
	// embedder is configured (local embedder defaults to 256).
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// DefaultConfig returns a Config with sensible defaults. The embedding
// provider is left empty so the engine falls back to the deterministic
// local embedder and runs with zero external dependencies out of the box.
func DefaultConfig() Config {
	return Config{
		DBName:     "adaptiveq",
		StorageDir: "home",
		Chat: llm.Config{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		ChunkSize:             1000,
		ChunkOverlap:          200,
		MaxFileBytes:          10 << 20,
		MinTextChars:          100,
		RetrievalK:            5,
		RetrievalContextChars: 1500,
		LLMTimeoutS:           30,
		EmbeddingTimeoutS:     10,
		StoreTimeoutS:         5,
		LearningRate:          0.3,
		MinDifficulty:         1,
		MaxDifficulty:         5,
		AbilityClamp:          3.0,
		AvoidRecentK:          10,
		TargetSuccess:         0.7,
		EmbeddingDim:          256,
	}
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "adaptiveq"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db"
		}
		return filepath.Join(home, ".adaptiveq", name+".db")
	}
}
