package scope

import "gorm.io/gorm"

// OrderByPosition keeps rows in ingestion order.
func OrderByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}
