package embedding

import "context"

// EmbeddingProvider turns text into a dense vector for similarity search
// against the document collections.
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
