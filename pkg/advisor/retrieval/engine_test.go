package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-advisor-be/pkg/advisor/category"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

type stubIndex struct {
	similar     map[string][]Document
	exact       map[string][]Document
	err         error
	exactCalls  []Filter
	searchCalls int
}

func (s *stubIndex) SearchSimilar(ctx context.Context, collection string, vector []float32, topK int) ([]Document, error) {
	s.searchCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.similar[collection], nil
}

func (s *stubIndex) SearchExact(ctx context.Context, collection string, filter Filter) ([]Document, error) {
	s.exactCalls = append(s.exactCalls, filter)
	if s.err != nil {
		return nil, s.err
	}
	return s.exact[collection], nil
}

func doc(id string, score float64) Document {
	return Document{ID: id, Content: "content " + id, Score: score}
}

func TestRetrieve_SimilarityOnly(t *testing.T) {
	index := &stubIndex{
		similar: map[string][]Document{
			"car_case": {doc("a", 0.9), doc("b", 0.7), doc("c", 0.2)},
		},
	}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	result := engine.Retrieve(context.Background(), "교차로 좌회전 사고", category.AccidentAnalysis, nil)

	require.False(t, result.Degraded)
	require.Len(t, result.Documents, 2, "hits below the similarity floor are dropped")
	assert.Equal(t, "a", result.Documents[0].ID)
	assert.Equal(t, StrategySimilarity, result.Documents[0].Strategy)
	assert.Empty(t, index.exactCalls, "no identifiers means no exact-match lookup")
}

func TestRetrieve_ExactMatchFirst(t *testing.T) {
	index := &stubIndex{
		exact: map[string][]Document{
			"precedent": {doc("case-92do2077", 1.0)},
		},
		similar: map[string][]Document{
			"precedent": {doc("sim-1", 0.8), doc("case-92do2077", 0.75)},
		},
	}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	result := engine.Retrieve(context.Background(), "92도2077 판례 알려줘", category.Precedent, nil)

	require.False(t, result.Degraded)
	require.Len(t, result.Documents, 2, "duplicate ids across strategies collapse to one")
	assert.Equal(t, "case-92do2077", result.Documents[0].ID)
	assert.Equal(t, StrategyExact, result.Documents[0].Strategy)
	assert.Equal(t, "sim-1", result.Documents[1].ID)
	assert.Equal(t, StrategySimilarity, result.Documents[1].Strategy)

	require.NotEmpty(t, index.exactCalls)
	assert.Equal(t, []string{"92도2077"}, index.exactCalls[0].CaseNumbers)
}

func TestRetrieve_SessionEntitiesDriveExactMatch(t *testing.T) {
	index := &stubIndex{
		exact: map[string][]Document{
			"precedent": {doc("case-prior", 1.0)},
		},
	}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	// The follow-up query carries no identifier of its own.
	result := engine.Retrieve(context.Background(), "관련 판례는?", category.Precedent, []string{"2019다12345"})

	require.NotEmpty(t, index.exactCalls)
	assert.Equal(t, []string{"2019다12345"}, index.exactCalls[0].CaseNumbers)
	require.NotEmpty(t, result.Documents)
	assert.Equal(t, "case-prior", result.Documents[0].ID)
}

func TestRetrieve_Degraded(t *testing.T) {
	index := &stubIndex{err: errors.New("connection refused")}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	result := engine.Retrieve(context.Background(), "교차로 사고", category.AccidentAnalysis, nil)

	assert.True(t, result.Degraded)
	assert.Empty(t, result.Documents)
}

func TestRetrieve_EmbeddingFailureDegrades(t *testing.T) {
	engine := NewEngine(&stubIndex{}, &stubEmbedder{err: errors.New("unreachable")}, DefaultConfig(), nil)

	result := engine.Retrieve(context.Background(), "교차로 사고", category.AccidentAnalysis, nil)

	assert.True(t, result.Degraded)
	assert.Empty(t, result.Documents)
}

func TestRetrieve_GeneralFallsBackAcrossCollections(t *testing.T) {
	index := &stubIndex{
		similar: map[string][]Document{
			"traffic_law_rag": {doc("law-1", 0.8)},
			"precedent":       {doc("case-1", 0.7)},
		},
	}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	result := engine.Retrieve(context.Background(), "그냥 일반적인 질문입니다", category.General, nil)

	assert.Equal(t, len(category.FallbackCollections()), index.searchCalls)
	require.Len(t, result.Documents, 2)
}

func TestRetrieve_CapAndUniqueness(t *testing.T) {
	var docs []Document
	for i := 0; i < 12; i++ {
		docs = append(docs, doc(fmt.Sprintf("d%d", i), 0.9))
	}
	index := &stubIndex{similar: map[string][]Document{"term": docs}}

	config := DefaultConfig()
	config.MaxResults = 4
	engine := NewEngine(index, &stubEmbedder{}, config, nil)

	result := engine.Retrieve(context.Background(), "용어 뜻", category.Terminology, nil)

	require.Len(t, result.Documents, 4)
	seen := make(map[string]bool)
	for _, d := range result.Documents {
		assert.False(t, seen[d.ID])
		seen[d.ID] = true
	}
}

func TestRetrieve_CachedResult(t *testing.T) {
	index := &stubIndex{
		similar: map[string][]Document{"term": {doc("t1", 0.9)}},
	}
	engine := NewEngine(index, &stubEmbedder{}, DefaultConfig(), nil)

	first := engine.Retrieve(context.Background(), "과실 뜻", category.Terminology, nil)
	second := engine.Retrieve(context.Background(), "과실 뜻", category.Terminology, nil)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, index.searchCalls, "second call is served from cache")
}

func TestExtractEntities(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		cases    []string
		articles []string
	}{
		{
			name:  "korean case number",
			text:  "대법원 92도2077 판결을 찾아줘",
			cases: []string{"92도2077"},
		},
		{
			name:  "romanized case number normalized",
			text:  "case 92do2077 please",
			cases: []string{"92도2077"},
		},
		{
			name:     "statute with clause",
			text:     "도로교통법 제5조 제1항 위반인가요",
			articles: []string{"제5조제1항"},
		},
		{
			name:     "mixed and deduplicated",
			text:     "92도2077과 92도2077, 그리고 제148조의2",
			cases:    []string{"92도2077"},
			articles: []string{"제148조의2"},
		},
		{
			name: "nothing",
			text: "어제 사고가 났어요",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ExtractEntities(tt.text)
			assert.Equal(t, tt.cases, e.CaseNumbers)
			assert.Equal(t, tt.articles, e.Articles)
		})
	}
}

func TestNormalizeCourt(t *testing.T) {
	assert.Equal(t, "대법원", NormalizeCourt("대법"))
	assert.Equal(t, "대법원", NormalizeCourt(" Supreme "))
	assert.Equal(t, "서울중앙지방법원", NormalizeCourt("서울중앙지방법원"))
}
