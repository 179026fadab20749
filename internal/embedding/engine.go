// Package embedding turns comments into vectors and uses them to group
// similar comments and drop near-duplicates.
package embedding

import (
	"context"
	"fmt"
	"math"

	"synthfeed/internal/logging"
)

// =============================================================================
// EMBEDDING ENGINE INTERFACE
// =============================================================================

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates embeddings for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// =============================================================================
// EMBEDDING CONFIGURATION
// =============================================================================

// Config holds embedding engine configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string // Default: "gemini-embedding-001"

	// TaskType: "CLUSTERING", "SEMANTIC_SIMILARITY", ...
	TaskType string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Model:    "gemini-embedding-001",
		TaskType: TaskClustering,
	}
}

// =============================================================================
// FACTORY
// =============================================================================

// NewEngine creates the GenAI embedding engine.
func NewEngine(ctx context.Context, cfg Config) (Engine, error) {
	timer := logging.StartTimer(logging.CategoryEmbedding, "NewEngine")
	defer timer.Stop()

	logging.EmbeddingDebug("Engine config: model=%s, task_type=%s", cfg.Model, cfg.TaskType)

	engine, err := NewGenAIEngine(ctx, cfg)
	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine created: name=%s, task_type=%s", engine.Name(), engine.taskType)
	return engine, nil
}

// =============================================================================
// COSINE SIMILARITY UTILITY
// =============================================================================

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical, 0 means orthogonal.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i]) * float64(b[i])
		aMagnitude += float64(a[i]) * float64(a[i])
		bMagnitude += float64(b[i]) * float64(b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}
