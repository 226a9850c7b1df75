package retrieval

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/embedding"
)

// Strategy tags which retrieval path produced a document.
type Strategy string

const (
	StrategyExact      Strategy = "exact-match"
	StrategySimilarity Strategy = "similarity"
)

// Metadata is the structured part of a stored document.
type Metadata struct {
	CaseNumber string
	Court      string
	Article    string
	Page       int
}

// Document is one retrieved reference document.
type Document struct {
	ID       string
	Category category.Category
	Content  string
	Metadata Metadata
	Score    float64
	Strategy Strategy
}

// Result is the merged outcome of both retrieval strategies. Degraded is
// set when the search service was unreachable and the caller must answer
// without document grounding.
type Result struct {
	Documents []Document
	Degraded  bool
}

// Filter selects documents by exact metadata equality.
type Filter struct {
	CaseNumbers []string
	Articles    []string
}

// Index is the similarity search collaborator, scoped per collection.
type Index interface {
	SearchSimilar(ctx context.Context, collection string, vector []float32, topK int) ([]Document, error)
	SearchExact(ctx context.Context, collection string, filter Filter) ([]Document, error)
}

// Config encapsulates retrieval parameters.
type Config struct {
	// TopK is the number of similarity hits requested per collection.
	TopK int
	// MaxResults caps the merged list.
	MaxResults int
	// MinSimilarity drops similarity hits below this score.
	MinSimilarity float64
	// CacheTTL bounds how long a merged result is served from cache.
	CacheTTL time.Duration
}

// DefaultConfig returns default retrieval parameters.
func DefaultConfig() Config {
	return Config{
		TopK:          5,
		MaxResults:    8,
		MinSimilarity: 0.35,
		CacheTTL:      5 * time.Minute,
	}
}

// Engine merges exact-match and similarity retrieval over the
// category-scoped collections.
type Engine struct {
	index    Index
	embedder embedding.EmbeddingProvider
	config   Config
	cache    *gocache.Cache
	logger   *log.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(index Index, embedder embedding.EmbeddingProvider, config Config, logger *log.Logger) *Engine {
	return &Engine{
		index:    index,
		embedder: embedder,
		config:   config,
		cache:    gocache.New(config.CacheTTL, 10*time.Minute),
		logger:   logger,
	}
}

// Retrieve fetches reference documents for a classified query.
// sessionEntities carry identifiers from earlier turns so follow-up
// queries without explicit identifiers still hit exact-match retrieval.
func (e *Engine) Retrieve(ctx context.Context, query string, cat category.Category, sessionEntities []string) Result {
	entities := ExtractEntities(query).Merge(ParseEntities(sessionEntities))

	cacheKey := e.cacheKey(query, cat, entities)
	if cached, found := e.cache.Get(cacheKey); found {
		return cached.(Result)
	}

	collections := e.collectionsFor(cat)

	var exact, similar []Document
	var searchErr error

	if !entities.Empty() {
		exact = e.searchExact(ctx, collections, entities)
	}

	similar, searchErr = e.searchSimilar(ctx, collections, query)

	merged := merge(exact, similar, e.config.MaxResults)

	result := Result{Documents: merged}
	if len(merged) == 0 && searchErr != nil {
		result.Degraded = true
		return result
	}

	e.cache.Set(cacheKey, result, gocache.DefaultExpiration)
	return result
}

func (e *Engine) collectionsFor(cat category.Category) []string {
	if cat == category.General {
		return category.FallbackCollections()
	}
	return []string{cat.Collection()}
}

func (e *Engine) searchExact(ctx context.Context, collections []string, entities Entities) []Document {
	filter := Filter{CaseNumbers: entities.CaseNumbers, Articles: entities.Articles}
	var hits []Document
	for _, collection := range collections {
		docs, err := e.index.SearchExact(ctx, collection, filter)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("[WARN] Exact-match lookup failed on %s: %v", collection, err)
			}
			continue
		}
		for i := range docs {
			docs[i].Strategy = StrategyExact
		}
		hits = append(hits, docs...)
	}
	return hits
}

func (e *Engine) searchSimilar(ctx context.Context, collections []string, query string) ([]Document, error) {
	vector, err := e.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	var hits []Document
	var lastErr error
	for _, collection := range collections {
		docs, err := e.index.SearchSimilar(ctx, collection, vector, e.config.TopK)
		if err != nil {
			if e.logger != nil {
				e.logger.Printf("[WARN] Similarity search failed on %s: %v", collection, err)
			}
			lastErr = err
			continue
		}
		for _, doc := range docs {
			if doc.Score < e.config.MinSimilarity {
				continue
			}
			doc.Strategy = StrategySimilarity
			hits = append(hits, doc)
		}
	}
	if len(hits) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return hits, nil
}

// merge places exact-match hits first, appends similarity hits skipping
// ids already present, and caps the combined list.
func merge(exact, similar []Document, limit int) []Document {
	merged := make([]Document, 0, len(exact)+len(similar))
	seen := make(map[string]bool)
	for _, doc := range exact {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		merged = append(merged, doc)
	}
	for _, doc := range similar {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		merged = append(merged, doc)
	}
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (e *Engine) cacheKey(query string, cat category.Category, entities Entities) string {
	h := sha1.New()
	h.Write([]byte(string(cat)))
	h.Write([]byte{0})
	h.Write([]byte(query))
	for _, id := range entities.All() {
		h.Write([]byte{0})
		h.Write([]byte(id))
	}
	return hex.EncodeToString(h.Sum(nil))
}
