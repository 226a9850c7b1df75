package category

// Category is one of the five fixed query intents the advisor understands.
type Category string

const (
	AccidentAnalysis Category = "accident-analysis"
	Precedent        Category = "precedent"
	Law              Category = "law"
	Terminology      Category = "terminology"
	General          Category = "general"
)

// Method records which classification path produced a category.
type Method string

const (
	MethodKeyword Method = "keyword"
	MethodModel   Method = "model"
)

// All lists every category. Order matches DefaultPriority.
func All() []Category {
	return []Category{Precedent, Law, Terminology, AccidentAnalysis, General}
}

// DefaultPriority is the specificity order used to break classification ties.
// More specific intents win over broader ones.
func DefaultPriority() []Category {
	return []Category{Precedent, Law, Terminology, AccidentAnalysis, General}
}

// Collection returns the document collection name a category scopes
// retrieval to. General has no dedicated collection and falls back to
// cross-collection search.
func (c Category) Collection() string {
	switch c {
	case AccidentAnalysis:
		return "car_case"
	case Precedent:
		return "precedent"
	case Law:
		return "traffic_law_rag"
	case Terminology:
		return "term"
	default:
		return ""
	}
}

// FallbackCollections is the search order used for general queries that
// have no dedicated collection of their own.
func FallbackCollections() []string {
	return []string{"traffic_law_rag", "precedent", "term"}
}

func (c Category) Valid() bool {
	switch c {
	case AccidentAnalysis, Precedent, Law, Terminology, General:
		return true
	}
	return false
}

// Parse maps free-form model output to a known category, defaulting to
// General for anything unrecognized.
func Parse(s string) Category {
	switch Category(s) {
	case AccidentAnalysis:
		return AccidentAnalysis
	case Precedent:
		return Precedent
	case Law:
		return Law
	case Terminology:
		return Terminology
	case General:
		return General
	}
	// Tolerate the short names the classification prompt uses.
	switch s {
	case "accident", "사고분석":
		return AccidentAnalysis
	case "case", "판례":
		return Precedent
	case "statute", "법률":
		return Law
	case "term", "용어":
		return Terminology
	}
	return General
}
