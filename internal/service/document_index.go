package service

import (
	"context"

	"accident-advisor-be/internal/entity"
	"accident-advisor-be/internal/repository/unitofwork"
	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/advisor/retrieval"
)

// DocumentIndex adapts the pgvector document repository to the retrieval
// engine's search contract.
type DocumentIndex struct {
	uowFactory unitofwork.RepositoryFactory
	threshold  float64
}

func NewDocumentIndex(uowFactory unitofwork.RepositoryFactory, threshold float64) *DocumentIndex {
	return &DocumentIndex{
		uowFactory: uowFactory,
		threshold:  threshold,
	}
}

var _ retrieval.Index = &DocumentIndex{}

func (idx *DocumentIndex) SearchSimilar(ctx context.Context, collection string, vector []float32, topK int) ([]retrieval.Document, error) {
	uow := idx.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.DocumentRepository().SearchSimilarWithScore(ctx, collection, vector, topK, idx.threshold)
	if err != nil {
		return nil, err
	}

	documents := make([]retrieval.Document, 0, len(scored))
	for _, s := range scored {
		doc := toRetrievalDocument(s.Document)
		doc.Score = s.Similarity
		documents = append(documents, doc)
	}
	return documents, nil
}

func (idx *DocumentIndex) SearchExact(ctx context.Context, collection string, filter retrieval.Filter) ([]retrieval.Document, error) {
	uow := idx.uowFactory.NewUnitOfWork(ctx)
	found, err := uow.DocumentRepository().FindByIdentifiers(ctx, collection, filter.CaseNumbers, filter.Articles)
	if err != nil {
		return nil, err
	}

	documents := make([]retrieval.Document, 0, len(found))
	for _, d := range found {
		doc := toRetrievalDocument(d)
		doc.Score = 1.0 // exact hits rank ahead of any similarity hit
		documents = append(documents, doc)
	}
	return documents, nil
}

func toRetrievalDocument(d *entity.Document) retrieval.Document {
	return retrieval.Document{
		ID:       d.Id.String(),
		Category: collectionCategory(d.Collection),
		Content:  d.Content,
		Metadata: retrieval.Metadata{
			CaseNumber: d.CaseNumber,
			Court:      d.Court,
			Article:    d.Article,
			Page:       d.Page,
		},
	}
}

func collectionCategory(collection string) category.Category {
	for _, cat := range category.All() {
		if cat.Collection() == collection {
			return cat
		}
	}
	return category.General
}
