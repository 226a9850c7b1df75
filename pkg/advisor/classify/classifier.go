package classify

import (
	"context"
	"log"
	"strings"

	"accident-advisor-be/pkg/advisor/category"
	"accident-advisor-be/pkg/llm"
)

// Result is the outcome of classifying one query.
type Result struct {
	Category   category.Category
	Confidence float64
	Method     category.Method
}

// Keyword match weights by tier.
const (
	weightHigh   = 3.0
	weightMedium = 2.0
	weightLow    = 1.0
)

// WeightedKeywords holds one category's keyword tiers.
type WeightedKeywords struct {
	High   []string
	Medium []string
	Low    []string
}

// Table maps each category to its weighted keyword set. It is built once
// and never mutated after construction.
type Table map[category.Category]WeightedKeywords

// Config encapsulates classification parameters.
type Config struct {
	// Threshold is the normalized score a category must clear for the
	// keyword path to be conclusive.
	Threshold float64
	// Thresholds overrides Threshold per category.
	Thresholds map[category.Category]float64
	// Margin is the minimum lead the top score needs over the runner-up.
	Margin float64
	// MinScore is the minimum raw (unnormalized) score; guards against
	// a single weak match on a very short query looking confident.
	MinScore float64
	// Priority breaks ties between equal scores, most specific first.
	Priority []category.Category
	// ModelConfidence is assigned to results produced by the fallback model.
	ModelConfidence float64
}

// DefaultConfig returns default classification parameters.
func DefaultConfig() Config {
	return Config{
		Threshold:       0.65,
		Margin:          0.1,
		MinScore:        3,
		Priority:        category.DefaultPriority(),
		ModelConfidence: 0.75,
	}
}

func (c Config) threshold(cat category.Category) float64 {
	if t, ok := c.Thresholds[cat]; ok {
		return t
	}
	return c.Threshold
}

// Classifier maps raw query text onto the fixed category set. The keyword
// path is tried first; the model fallback is only consulted when the
// keyword scores are inconclusive.
type Classifier struct {
	table    Table
	config   Config
	fallback llm.LLMProvider
	logger   *log.Logger
}

// NewClassifier creates a classifier over an immutable keyword table.
// fallback may be nil, in which case inconclusive queries resolve by
// priority order alone.
func NewClassifier(table Table, config Config, fallback llm.LLMProvider, logger *log.Logger) *Classifier {
	if len(config.Priority) == 0 {
		config.Priority = category.DefaultPriority()
	}
	return &Classifier{
		table:    table,
		config:   config,
		fallback: fallback,
		logger:   logger,
	}
}

// Scores computes the raw keyword score per category. It is a pure
// function of the table and the input text.
func Scores(table Table, text string) map[category.Category]float64 {
	scores := make(map[category.Category]float64, len(table))
	lowered := strings.ToLower(text)
	for cat, kw := range table {
		var score float64
		for _, k := range kw.High {
			if strings.Contains(lowered, strings.ToLower(k)) {
				score += weightHigh
			}
		}
		for _, k := range kw.Medium {
			if strings.Contains(lowered, strings.ToLower(k)) {
				score += weightMedium
			}
		}
		for _, k := range kw.Low {
			if strings.Contains(lowered, strings.ToLower(k)) {
				score += weightLow
			}
		}
		scores[cat] = score
	}
	return scores
}

// Normalize converts a raw score into a confidence in [0, 1], dampened by
// query length so long rambling text needs more matches to look confident.
func Normalize(score float64, text string) float64 {
	tokens := len(strings.Fields(text))
	conf := score / float64(tokens+1)
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// Classify resolves the category for text. It never returns an error to
// the caller; fallback failures degrade to the best keyword guess or
// general with minimum confidence.
func (c *Classifier) Classify(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Category: category.General, Confidence: 0.05, Method: category.MethodKeyword}
	}

	scores := Scores(c.table, text)
	top, runnerUp := c.rank(scores)

	topConf := Normalize(scores[top], text)
	runnerConf := Normalize(scores[runnerUp], text)

	if scores[top] >= c.config.MinScore &&
		topConf >= c.config.threshold(top) &&
		topConf-runnerConf >= c.config.Margin {
		return Result{Category: top, Confidence: topConf, Method: category.MethodKeyword}
	}

	if c.fallback != nil {
		if res, err := c.classifyWithModel(ctx, text); err == nil {
			return res
		} else if c.logger != nil {
			c.logger.Printf("[WARN] Model classification failed, using keyword tie-break: %v", err)
		}
	}

	// Both paths inconclusive. Resolve deterministically by priority.
	if scores[top] > 0 {
		return Result{Category: top, Confidence: topConf, Method: category.MethodKeyword}
	}
	return Result{Category: category.General, Confidence: 0.05, Method: category.MethodKeyword}
}

// rank returns the top and runner-up categories by score, breaking exact
// ties by the configured priority order.
func (c *Classifier) rank(scores map[category.Category]float64) (category.Category, category.Category) {
	top := c.config.Priority[0]
	runnerUp := category.General
	for _, cat := range c.config.Priority {
		if scores[cat] > scores[top] {
			runnerUp = top
			top = cat
		} else if cat != top && scores[cat] > scores[runnerUp] {
			runnerUp = cat
		}
	}
	return top, runnerUp
}

const fallbackPrompt = `다음 질문을 아래 다섯 가지 범주 중 하나로 분류하세요.
범주: accident-analysis, precedent, law, terminology, general
범주 이름만 정확히 답하세요.

질문: %s`

func (c *Classifier) classifyWithModel(ctx context.Context, text string) (Result, error) {
	answer, err := c.fallback.Generate(ctx, strings.Replace(fallbackPrompt, "%s", text, 1),
		llm.WithTemperature(0.0),
		llm.WithMaxTokens(16),
	)
	if err != nil {
		return Result{}, err
	}
	cat := category.Parse(strings.TrimSpace(strings.ToLower(answer)))
	return Result{Category: cat, Confidence: c.config.ModelConfidence, Method: category.MethodModel}, nil
}
