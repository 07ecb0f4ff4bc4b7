package specification

import "gorm.io/gorm"

// ByCategory is an exact, case-sensitive match on the stored category.
// An empty category matches everything.
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	if s.Category == "" {
		return db
	}
	return db.Where("category = ?", s.Category)
}
