package advisor

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/semaphore"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/advisor/classify"
	"accident-advisor-be/pkg/advisor/prompt"
	"accident-advisor-be/pkg/advisor/response"
	"accident-advisor-be/pkg/advisor/retrieval"
	"accident-advisor-be/pkg/advisor/session"
	"accident-advisor-be/pkg/llm"
)

// Config encapsulates orchestrator parameters.
type Config struct {
	// MaxHistory is the number of recent turns included in the prompt.
	MaxHistory int
	// MaxConcurrentGenerations bounds outbound generation calls across
	// all sessions.
	MaxConcurrentGenerations int64
	// GenerationTimeout caps a single generation call.
	GenerationTimeout time.Duration
	// RetryBackoff is the pause before the single retry of a transient
	// generation failure.
	RetryBackoff time.Duration
}

// DefaultConfig returns default orchestrator parameters.
func DefaultConfig() Config {
	return Config{
		MaxHistory:               4,
		MaxConcurrentGenerations: 8,
		GenerationTimeout:        60 * time.Second,
		RetryBackoff:             2 * time.Second,
	}
}

// Source is one cited document in an answer.
type Source struct {
	ID       string             `json:"id"`
	Excerpt  string             `json:"excerpt"`
	Score    float64            `json:"score"`
	Strategy retrieval.Strategy `json:"strategy"`
}

// Latency is the per-stage timing breakdown in milliseconds.
type Latency struct {
	ClassificationMs int64 `json:"classification_ms"`
	RetrievalMs      int64 `json:"retrieval_ms"`
	GenerationMs     int64 `json:"generation_ms"`
	TotalMs          int64 `json:"total_ms"`
}

// Answer is the structured result of handling one query. It carries
// everything a caller needs to render the reply and persist the turn.
type Answer struct {
	Text            string                    `json:"text"`
	Category        category.Category         `json:"category"`
	Confidence      float64                   `json:"confidence"`
	Method          category.Method           `json:"method"`
	Sources         []Source                  `json:"sources"`
	Entities        []string                  `json:"entities,omitempty"`
	CategoryUsage   map[category.Category]int `json:"category_usage,omitempty"`
	Latency         Latency                   `json:"latency"`
	GenerationCalls int                       `json:"generation_calls"`
	Degraded        bool                      `json:"degraded"`
}

// Orchestrator composes classification, retrieval and session memory into
// a single generation call per query.
type Orchestrator struct {
	classifier *classify.Classifier
	engine     *retrieval.Engine
	memory     *session.Memory
	generator  llm.LLMProvider
	limiter    *semaphore.Weighted
	config     Config
	logger     *log.Logger
}

// NewOrchestrator creates the advisory pipeline.
func NewOrchestrator(
	classifier *classify.Classifier,
	engine *retrieval.Engine,
	memory *session.Memory,
	generator llm.LLMProvider,
	config Config,
	logger *log.Logger,
) *Orchestrator {
	if config.MaxConcurrentGenerations <= 0 {
		config.MaxConcurrentGenerations = DefaultConfig().MaxConcurrentGenerations
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = DefaultConfig().MaxHistory
	}
	if config.GenerationTimeout <= 0 {
		config.GenerationTimeout = DefaultConfig().GenerationTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		classifier: classifier,
		engine:     engine,
		memory:     memory,
		generator:  generator,
		limiter:    semaphore.NewWeighted(config.MaxConcurrentGenerations),
		config:     config,
		logger:     logger,
	}
}

// Handle answers one query. Internal failures are absorbed into a
// degraded Answer; an error is returned only when the caller abandoned
// the request or every dependency is unreachable.
func (o *Orchestrator) Handle(ctx context.Context, query string, sessionID string) (*Answer, error) {
	started := time.Now()

	classification := o.classifier.Classify(ctx, query)
	classifiedAt := time.Now()

	turns, entities, err := o.memory.GetContext(ctx, sessionID)
	if err != nil {
		o.logger.Printf("[WARN] Session context unavailable for %s, continuing without history: %v", sessionID, err)
		turns, entities = nil, nil
	}

	result := o.engine.Retrieve(ctx, query, classification.Category, entities)
	retrievedAt := time.Now()

	history := turns
	if len(history) > o.config.MaxHistory {
		history = history[len(history)-o.config.MaxHistory:]
	}

	generationPrompt := prompt.NewBuilder(query, classification.Category, result.Documents, history, result.Degraded).Build()

	text, calls, genErr := o.generate(ctx, generationPrompt)
	finished := time.Now()

	answer := &Answer{
		Category:        classification.Category,
		Confidence:      classification.Confidence,
		Method:          classification.Method,
		Sources:         sources(result.Documents),
		Degraded:        result.Degraded,
		GenerationCalls: calls,
		Latency: Latency{
			ClassificationMs: classifiedAt.Sub(started).Milliseconds(),
			RetrievalMs:      retrievedAt.Sub(classifiedAt).Milliseconds(),
			GenerationMs:     finished.Sub(retrievedAt).Milliseconds(),
			TotalMs:          finished.Sub(started).Milliseconds(),
		},
	}

	if genErr != nil {
		if ctx.Err() != nil {
			// Caller abandoned the request. The external call already
			// completed or was skipped; its result is discarded and
			// memory stays untouched.
			return nil, ctx.Err()
		}
		o.logger.Printf("[ERROR] Generation failed after %d call(s) for session %s: %v", calls, sessionID, genErr)
		answer.Text = response.DegradedAnswer(classification.Category)
		answer.Degraded = true
		return answer, nil
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	answer.Text = text
	answer.Entities = retrieval.ExtractEntities(query).Merge(retrieval.ExtractEntities(text)).All()

	turn := session.Turn{
		UserText:  query,
		BotText:   text,
		Category:  classification.Category,
		Entities:  answer.Entities,
		Timestamp: finished,
	}
	if err := o.memory.AppendTurn(ctx, sessionID, turn); err != nil {
		o.logger.Printf("[WARN] Failed to record turn for session %s: %v", sessionID, err)
	} else if usage, usageErr := o.memory.CategoryUsage(ctx, sessionID); usageErr == nil {
		answer.CategoryUsage = usage
	}

	return answer, nil
}

// generate issues at most two generation calls: the initial one plus a
// single retry after a transient failure. The call itself runs detached
// from the caller's cancellation so an abandoned request never leaves a
// half-finished outbound call behind.
func (o *Orchestrator) generate(ctx context.Context, generationPrompt string) (string, int, error) {
	if err := o.limiter.Acquire(ctx, 1); err != nil {
		return "", 0, err
	}
	defer o.limiter.Release(1)

	calls := 0
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			if ctx.Err() != nil {
				// No point retrying a request nobody is waiting for.
				return "", calls, lastErr
			}
			time.Sleep(o.config.RetryBackoff)
		}

		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.config.GenerationTimeout)
		calls++
		text, err := o.generator.Generate(genCtx, generationPrompt, llm.WithTemperature(0.3))
		cancel()
		if err == nil {
			return text, calls, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			break
		}
	}
	return "", calls, lastErr
}

func sources(documents []retrieval.Document) []Source {
	out := make([]Source, 0, len(documents))
	for _, doc := range documents {
		out = append(out, Source{
			ID:       doc.ID,
			Excerpt:  excerpt(doc.Content, 200),
			Score:    doc.Score,
			Strategy: doc.Strategy,
		})
	}
	return out
}

func excerpt(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "…"
}
