package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/llm"
)

type stubLLM struct {
	response string
	err      error
	calls    int
}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestClassify_KeywordPath(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected category.Category
	}{
		{
			name:     "intersection accident",
			text:     "교차로에서 좌회전 중 사고가 났어요",
			expected: category.AccidentAnalysis,
		},
		{
			name:     "precedent follow-up",
			text:     "관련 판례는?",
			expected: category.Precedent,
		},
		{
			name:     "statute question",
			text:     "도로교통법 제5조 조항 내용이 뭔가요",
			expected: category.Law,
		},
	}

	fallback := &stubLLM{response: "general"}
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), fallback, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifier.Classify(context.Background(), tt.text)
			assert.Equal(t, tt.expected, result.Category)
			assert.Equal(t, category.MethodKeyword, result.Method)
			assert.GreaterOrEqual(t, result.Confidence, 0.65)
		})
	}
	assert.Zero(t, fallback.calls, "keyword path must not invoke the model")
}

func TestClassify_EmptyText(t *testing.T) {
	fallback := &stubLLM{response: "law"}
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), fallback, nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		result := classifier.Classify(context.Background(), text)
		assert.Equal(t, category.General, result.Category)
		assert.Equal(t, category.MethodKeyword, result.Method)
		assert.InDelta(t, 0.05, result.Confidence, 1e-9)
	}
	assert.Zero(t, fallback.calls, "empty text must not invoke the model")
}

func TestClassify_Deterministic(t *testing.T) {
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), nil, nil)

	first := classifier.Classify(context.Background(), "횡단보도 보행자 사고 과실비율이 궁금합니다")
	for i := 0; i < 10; i++ {
		again := classifier.Classify(context.Background(), "횡단보도 보행자 사고 과실비율이 궁금합니다")
		require.Equal(t, first, again)
	}
}

func TestClassify_ModelFallback(t *testing.T) {
	fallback := &stubLLM{response: "terminology"}
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), fallback, nil)

	// No keyword in the table matches this text.
	result := classifier.Classify(context.Background(), "블랙박스 영상은 어디에 제출하나요")

	assert.Equal(t, category.Terminology, result.Category)
	assert.Equal(t, category.MethodModel, result.Method)
	assert.InDelta(t, 0.75, result.Confidence, 1e-9)
	assert.Equal(t, 1, fallback.calls)
}

func TestClassify_TieBreakByPriority(t *testing.T) {
	// 판결 (precedent, medium) and 규정 (law, medium) score equally; with
	// no model available the more specific category wins.
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), nil, nil)

	result := classifier.Classify(context.Background(), "판결 규정")

	assert.Equal(t, category.Precedent, result.Category)
	assert.Equal(t, category.MethodKeyword, result.Method)
}

func TestClassify_FallbackExhausted(t *testing.T) {
	fallback := &stubLLM{err: errors.New("model unreachable")}
	classifier := NewClassifier(DefaultTable(), DefaultConfig(), fallback, nil)

	result := classifier.Classify(context.Background(), "블랙박스 영상은 어디에 제출하나요")

	assert.Equal(t, category.General, result.Category)
	assert.Equal(t, category.MethodKeyword, result.Method)
	assert.InDelta(t, 0.05, result.Confidence, 1e-9)
}

func TestScores_PureFunction(t *testing.T) {
	table := DefaultTable()
	text := "교차로 추돌 사고 판례"

	first := Scores(table, text)
	second := Scores(table, text)
	assert.Equal(t, first, second)

	assert.Positive(t, first[category.AccidentAnalysis])
	assert.Positive(t, first[category.Precedent])
}

func TestClassify_PerCategoryThreshold(t *testing.T) {
	config := DefaultConfig()
	config.Thresholds = map[category.Category]float64{
		category.Precedent: 2.0, // unreachable, forces the fallback
	}
	fallback := &stubLLM{response: "precedent"}
	classifier := NewClassifier(DefaultTable(), config, fallback, nil)

	result := classifier.Classify(context.Background(), "관련 판례는?")

	assert.Equal(t, category.Precedent, result.Category)
	assert.Equal(t, category.MethodModel, result.Method)
	assert.Equal(t, 1, fallback.calls)
}
