package specification

import "gorm.io/gorm"

type ByCollection struct {
	Collection string
}

func (s ByCollection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("collection = ?", s.Collection)
}

// ByIdentifiers matches documents whose case number or statute article
// equals any of the given identifiers.
type ByIdentifiers struct {
	CaseNumbers []string
	Articles    []string
}

func (s ByIdentifiers) Apply(db *gorm.DB) *gorm.DB {
	switch {
	case len(s.CaseNumbers) > 0 && len(s.Articles) > 0:
		return db.Where("case_number IN ? OR article IN ?", s.CaseNumbers, s.Articles)
	case len(s.CaseNumbers) > 0:
		return db.Where("case_number IN ?", s.CaseNumbers)
	case len(s.Articles) > 0:
		return db.Where("article IN ?", s.Articles)
	default:
		// No identifiers must match nothing, not everything.
		return db.Where("1 = 0")
	}
}
