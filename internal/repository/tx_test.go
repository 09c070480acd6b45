package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// txConnPool mimics the connection gorm hands to transaction participants:
// a plain ConnPool that additionally commits and rolls back.
type txConnPool struct{}

func (txConnPool) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, nil }
func (txConnPool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (txConnPool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (txConnPool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }
func (txConnPool) Commit() error                                                    { return nil }
func (txConnPool) Rollback() error                                                  { return nil }

var _ gorm.ConnPool = txConnPool{}
var _ gorm.TxCommitter = txConnPool{}

// plainConnPool is a non-transactional connection.
type plainConnPool struct{}

func (plainConnPool) PrepareContext(context.Context, string) (*sql.Stmt, error) { return nil, nil }
func (plainConnPool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (plainConnPool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (plainConnPool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row { return nil }

var _ gorm.ConnPool = plainConnPool{}

func TestInTransaction(t *testing.T) {
	assert.False(t, InTransaction(nil), "nil handle")
	assert.False(t, InTransaction(&gorm.DB{}), "handle without statement")

	plain := &gorm.DB{Statement: &gorm.Statement{ConnPool: plainConnPool{}}}
	assert.False(t, InTransaction(plain), "plain connection")

	tx := &gorm.DB{Statement: &gorm.Statement{ConnPool: txConnPool{}}}
	assert.True(t, InTransaction(tx), "transaction-bound connection")
}
