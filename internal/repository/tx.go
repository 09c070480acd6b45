package repository

import "gorm.io/gorm"

// InTransaction reports whether db is already running inside a transaction.
// Validation refuses to start under an ambient transaction: its durability
// barrier (commit before the network call) would silently become a no-op and
// a late rollback could discard numbers AFIP already approved.
func InTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil {
		return false
	}
	committer, ok := db.Statement.ConnPool.(gorm.TxCommitter)
	return ok && committer != nil
}
