package contract

import (
	"context"

	"accident-advisor-be/internal/entity"
	"accident-advisor-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocument wraps Document with its similarity score
type ScoredDocument struct {
	Document   *entity.Document
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	CreateBulk(ctx context.Context, documents []*entity.Document) error
	Update(ctx context.Context, document *entity.Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByCollection(ctx context.Context, collection string) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// FindByIdentifiers performs the exact-match lookup on case numbers
	// and statute articles, scoped to one collection.
	FindByIdentifiers(ctx context.Context, collection string, caseNumbers, articles []string) ([]*entity.Document, error)
	// SearchSimilarWithScore returns documents with their similarity
	// scores, scoped to one collection and filtered by threshold.
	SearchSimilarWithScore(ctx context.Context, collection string, embedding []float32, limit int, threshold float64) ([]*ScoredDocument, error)
}
