package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/advisor/classify"
	"accident-advisor-be/pkg/advisor/retrieval"
	"accident-advisor-be/pkg/advisor/session"
	"accident-advisor-be/pkg/llm"
)

type mockGenerator struct {
	mu        sync.Mutex
	calls     int32
	failTimes int
	failWith  error
	delay     time.Duration
	response  string
	prompts   []string
}

func (g *mockGenerator) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return g.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (g *mockGenerator) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	call := atomic.AddInt32(&g.calls, 1)
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.delay > 0 {
		time.Sleep(g.delay)
	}
	if int(call) <= g.failTimes {
		return "", g.failWith
	}
	if g.response != "" {
		return g.response, nil
	}
	return "상담 답변입니다.", nil
}

type mockIndex struct {
	similar map[string][]retrieval.Document
	exact   map[string][]retrieval.Document
	err     error
}

func (m *mockIndex) SearchSimilar(ctx context.Context, collection string, vector []float32, topK int) ([]retrieval.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.similar[collection], nil
}

func (m *mockIndex) SearchExact(ctx context.Context, collection string, filter retrieval.Filter) ([]retrieval.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.exact[collection], nil
}

type mockEmbedder struct{}

func (mockEmbedder) Generate(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.5, 0.5}, nil
}

func (mockEmbedder) Dimensions() int { return 2 }

func newTestOrchestrator(t *testing.T, index retrieval.Index, generator llm.LLMProvider, config Config) (*Orchestrator, *session.Memory) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	classifier := classify.NewClassifier(classify.DefaultTable(), classify.DefaultConfig(), nil, logger)
	retrievalConfig := retrieval.DefaultConfig()
	retrievalConfig.CacheTTL = time.Nanosecond
	engine := retrieval.NewEngine(index, mockEmbedder{}, retrievalConfig, logger)
	memory := session.NewMemory(session.NewMemoryStore(), session.DefaultConfig(), logger)
	return NewOrchestrator(classifier, engine, memory, generator, config, logger), memory
}

func TestHandle_SuccessSingleGenerationCall(t *testing.T) {
	index := &mockIndex{
		similar: map[string][]retrieval.Document{
			"car_case": {{ID: "doc-1", Content: "교차로 좌회전 사고 기본 과실비율 자료", Score: 0.9}},
		},
	}
	generator := &mockGenerator{response: "좌회전 차량의 기본 과실은..."}
	orch, memory := newTestOrchestrator(t, index, generator, DefaultConfig())

	answer, err := orch.Handle(context.Background(), "교차로에서 좌회전 중 사고가 났어요", "s1")
	require.NoError(t, err)

	assert.Equal(t, category.AccidentAnalysis, answer.Category)
	assert.Equal(t, category.MethodKeyword, answer.Method)
	assert.False(t, answer.Degraded)
	assert.Equal(t, 1, answer.GenerationCalls)
	assert.EqualValues(t, 1, generator.calls)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "doc-1", answer.Sources[0].ID)
	assert.Equal(t, retrieval.StrategySimilarity, answer.Sources[0].Strategy)
	assert.GreaterOrEqual(t, answer.Latency.TotalMs, int64(0))
	assert.Equal(t, 1, answer.CategoryUsage[category.AccidentAnalysis])

	turns, _, err := memory.GetContext(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "좌회전 차량의 기본 과실은...", turns[0].BotText)
}

func TestHandle_FollowUpUsesSessionEntities(t *testing.T) {
	index := &mockIndex{
		exact: map[string][]retrieval.Document{
			"precedent": {{ID: "case-92do2077", Content: "대법원 92도2077 판결", Metadata: retrieval.Metadata{CaseNumber: "92도2077"}, Score: 1.0}},
		},
	}
	generator := &mockGenerator{response: "92도2077 판결에 따르면..."}
	orch, _ := newTestOrchestrator(t, index, generator, DefaultConfig())
	ctx := context.Background()

	// First turn mentions the case number explicitly.
	first, err := orch.Handle(ctx, "92도2077 판례 내용 알려줘", "s1")
	require.NoError(t, err)
	assert.Contains(t, first.Entities, "92도2077")

	// The follow-up carries no identifier; it must come from the session.
	second, err := orch.Handle(ctx, "관련 판례는?", "s1")
	require.NoError(t, err)

	assert.Equal(t, category.Precedent, second.Category)
	require.NotEmpty(t, second.Sources)
	assert.Equal(t, "case-92do2077", second.Sources[0].ID)
	assert.Equal(t, retrieval.StrategyExact, second.Sources[0].Strategy)
}

func TestHandle_RetrievalUnavailable(t *testing.T) {
	index := &mockIndex{err: errors.New("connection refused")}
	generator := &mockGenerator{response: "일반적인 기준으로 설명드리면..."}
	orch, _ := newTestOrchestrator(t, index, generator, DefaultConfig())

	answer, err := orch.Handle(context.Background(), "교차로에서 좌회전 중 사고가 났어요", "s1")
	require.NoError(t, err)

	assert.True(t, answer.Degraded)
	assert.Equal(t, category.AccidentAnalysis, answer.Category, "classification survives retrieval failure")
	assert.NotEmpty(t, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.Equal(t, 1, answer.GenerationCalls)

	require.NotEmpty(t, generator.prompts)
	assert.Contains(t, generator.prompts[0], "참고 문서를 찾지 못했습니다")
}

func TestHandle_TransientFailureRetriesOnce(t *testing.T) {
	config := DefaultConfig()
	config.RetryBackoff = time.Millisecond
	generator := &mockGenerator{failTimes: 1, failWith: llm.ErrRateLimited, response: "재시도 후 성공"}
	orch, memory := newTestOrchestrator(t, &mockIndex{}, generator, config)

	answer, err := orch.Handle(context.Background(), "교차로 추돌 사고 과실비율", "s1")
	require.NoError(t, err)

	assert.False(t, answer.Degraded)
	assert.Equal(t, 2, answer.GenerationCalls)
	assert.Equal(t, "재시도 후 성공", answer.Text)

	turns, _, err := memory.GetContext(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 1, "successful retry still records exactly one turn")
}

func TestHandle_RetryExhaustedReturnsTemplatedAnswer(t *testing.T) {
	config := DefaultConfig()
	config.RetryBackoff = time.Millisecond
	generator := &mockGenerator{failTimes: 2, failWith: llm.ErrTimeout}
	orch, memory := newTestOrchestrator(t, &mockIndex{}, generator, config)

	answer, err := orch.Handle(context.Background(), "관련 판례는?", "s1")
	require.NoError(t, err, "generation failure is absorbed into a degraded answer")

	assert.True(t, answer.Degraded)
	assert.Equal(t, 2, answer.GenerationCalls)
	assert.Equal(t, category.Precedent, answer.Category, "original classification is preserved")
	assert.Contains(t, answer.Text, "죄송합니다")

	turns, _, err := memory.GetContext(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns, "memory must not be mutated on failure")
}

func TestHandle_NonTransientFailureDoesNotRetry(t *testing.T) {
	generator := &mockGenerator{failTimes: 2, failWith: llm.ErrServer}
	orch, _ := newTestOrchestrator(t, &mockIndex{}, generator, DefaultConfig())

	answer, err := orch.Handle(context.Background(), "관련 판례는?", "s1")
	require.NoError(t, err)

	assert.True(t, answer.Degraded)
	assert.Equal(t, 1, answer.GenerationCalls)
	assert.EqualValues(t, 1, generator.calls)
}

func TestHandle_AbandonedRequestSkipsMemory(t *testing.T) {
	generator := &mockGenerator{delay: 50 * time.Millisecond, response: "늦은 답변"}
	orch, memory := newTestOrchestrator(t, &mockIndex{}, generator, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	answer, err := orch.Handle(ctx, "교차로 사고 과실비율", "s1")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, answer)
	assert.EqualValues(t, 1, generator.calls, "the in-flight call still completed")

	turns, _, err := memory.GetContext(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns, "abandoned requests never mutate memory")
}

func TestHandle_ConcurrentSameSession(t *testing.T) {
	generator := &mockGenerator{response: "동시 응답"}
	orch, memory := newTestOrchestrator(t, &mockIndex{}, generator, DefaultConfig())

	var wg sync.WaitGroup
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := orch.Handle(context.Background(), fmt.Sprintf("교차로 사고 질문 %d", i), "shared")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	turns, _, err := memory.GetContext(context.Background(), "shared")
	require.NoError(t, err)
	assert.Len(t, turns, 2, "both turns recorded, none lost or duplicated")
}

func TestHandle_GenerationConcurrencyBounded(t *testing.T) {
	config := DefaultConfig()
	config.MaxConcurrentGenerations = 2

	var inFlight, peak int32
	generator := &boundedGenerator{inFlight: &inFlight, peak: &peak}
	orch, _ := newTestOrchestrator(t, &mockIndex{}, generator, config)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orch.Handle(context.Background(), "교차로 사고", fmt.Sprintf("s%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

type boundedGenerator struct {
	inFlight *int32
	peak     *int32
}

func (g *boundedGenerator) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return g.Generate(ctx, "", opts...)
}

func (g *boundedGenerator) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	current := atomic.AddInt32(g.inFlight, 1)
	for {
		observed := atomic.LoadInt32(g.peak)
		if current <= observed || atomic.CompareAndSwapInt32(g.peak, observed, current) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(g.inFlight, -1)
	return "응답", nil
}

func TestHandle_PromptCarriesHistoryAndDocuments(t *testing.T) {
	index := &mockIndex{
		similar: map[string][]retrieval.Document{
			"car_case": {{ID: "doc-1", Content: "차로변경 사고 과실 기준", Score: 0.8}},
		},
	}
	generator := &mockGenerator{response: "기준에 따르면..."}
	orch, _ := newTestOrchestrator(t, index, generator, DefaultConfig())
	ctx := context.Background()

	_, err := orch.Handle(ctx, "차로변경 사고 과실비율은?", "s1")
	require.NoError(t, err)
	_, err = orch.Handle(ctx, "끼어들기 차량 추돌 사고였어요", "s1")
	require.NoError(t, err)

	require.Len(t, generator.prompts, 2)
	secondPrompt := generator.prompts[1]
	assert.True(t, strings.Contains(secondPrompt, "차로변경 사고 과실비율은?"), "prior turn appears in the prompt")
	assert.Contains(t, secondPrompt, "차로변경 사고 과실 기준")
}
