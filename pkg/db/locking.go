package db

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockForUpdate adds a row lock on dialects that support it. SQLite rejects
// FOR UPDATE and serializes writers at the file level, so the clause is
// skipped there.
func LockForUpdate(q *gorm.DB) *gorm.DB {
	if q.Dialector != nil && q.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
