package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate applies SELECT ... FOR UPDATE so read-modify-write sequences
// on a single row serialize under concurrent delivery callbacks. Engines
// without row locks (sqlite) ignore the clause and rely on their
// single-writer model instead.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
