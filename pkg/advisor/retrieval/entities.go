package retrieval

import (
	"regexp"
	"strings"
)

// Entities are the structured identifiers extracted from query or answer
// text. They drive exact-match retrieval and conversational reference
// resolution ("관련 판례는?" after a case number was mentioned).
type Entities struct {
	CaseNumbers []string
	Articles    []string
}

var (
	// Korean case numbers like 92도2077 or 2019다12345.
	caseNumberPattern = regexp.MustCompile(`\d{2,4}[가나다라마바사아자차카타파하도드누허]\d+`)
	// Romanized forms like 92do2077 that users paste from translated sources.
	romanizedCasePattern = regexp.MustCompile(`(?i)\d{2,4}(?:do|da|na|ga|heo|nu)\d+`)
	// Statute references like 제5조 or 제148조의2, optionally with a clause.
	articlePattern = regexp.MustCompile(`제\s?\d+조(?:의\d+)?(?:\s?제\s?\d+항)?`)
)

var romanizedHangul = strings.NewReplacer(
	"do", "도", "da", "다", "na", "나", "ga", "가", "heo", "허", "nu", "누",
)

// ExtractEntities pulls case numbers and statute articles out of text.
// Romanized case numbers are normalized to their Hangul form so both
// spellings resolve to the same document.
func ExtractEntities(text string) Entities {
	var e Entities
	seen := make(map[string]bool)

	for _, m := range caseNumberPattern.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			e.CaseNumbers = append(e.CaseNumbers, m)
		}
	}
	for _, m := range romanizedCasePattern.FindAllString(text, -1) {
		normalized := romanizedHangul.Replace(strings.ToLower(m))
		if !seen[normalized] {
			seen[normalized] = true
			e.CaseNumbers = append(e.CaseNumbers, normalized)
		}
	}
	for _, m := range articlePattern.FindAllString(text, -1) {
		normalized := strings.ReplaceAll(m, " ", "")
		if !seen[normalized] {
			seen[normalized] = true
			e.Articles = append(e.Articles, normalized)
		}
	}
	return e
}

// ParseEntities rebuilds an Entities value from previously extracted
// identifier strings, e.g. the ones a session carried over from earlier
// turns.
func ParseEntities(identifiers []string) Entities {
	return ExtractEntities(strings.Join(identifiers, " "))
}

// All returns every identifier as a flat list, case numbers first.
func (e Entities) All() []string {
	out := make([]string, 0, len(e.CaseNumbers)+len(e.Articles))
	out = append(out, e.CaseNumbers...)
	out = append(out, e.Articles...)
	return out
}

// Empty reports whether no identifier was extracted.
func (e Entities) Empty() bool {
	return len(e.CaseNumbers) == 0 && len(e.Articles) == 0
}

// Merge combines two entity sets, preserving order and dropping
// duplicates. The receiver's entries come first.
func (e Entities) Merge(other Entities) Entities {
	merged := Entities{}
	seen := make(map[string]bool)
	appendUnique := func(dst []string, src []string) []string {
		for _, s := range src {
			if !seen[s] {
				seen[s] = true
				dst = append(dst, s)
			}
		}
		return dst
	}
	merged.CaseNumbers = appendUnique(merged.CaseNumbers, e.CaseNumbers)
	merged.CaseNumbers = appendUnique(merged.CaseNumbers, other.CaseNumbers)
	merged.Articles = appendUnique(merged.Articles, e.Articles)
	merged.Articles = appendUnique(merged.Articles, other.Articles)
	return merged
}

// courtNormalization maps the court-name variants found in scraped
// precedent metadata onto one canonical form.
var courtNormalization = map[string]string{
	"대법원":    "대법원",
	"대법":     "대법원",
	"supreme": "대법원",
	"고등법원":   "고등법원",
	"고법":     "고등법원",
	"지방법원":   "지방법원",
	"지법":     "지방법원",
	"헌법재판소":  "헌법재판소",
	"헌재":     "헌법재판소",
}

// NormalizeCourt returns the canonical court name, or the input trimmed
// when no mapping applies.
func NormalizeCourt(name string) string {
	trimmed := strings.TrimSpace(strings.ToLower(name))
	if canonical, ok := courtNormalization[trimmed]; ok {
		return canonical
	}
	return strings.TrimSpace(name)
}
