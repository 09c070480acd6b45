package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// dryRunDB builds a gorm handle that renders SQL without a live server, plus
// a capture slot filled with the last generated query.
func dryRunDB(t *testing.T) (*gorm.DB, *string) {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	var captured string
	err = db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		captured = tx.Statement.SQL.String()
	})
	require.NoError(t, err)
	return db, &captured
}

// The clamp floor for date approximation is the newest approved issue date,
// not the highest receipt number; historical imports can order the two
// differently.
func TestMostRecentApprovedDateOrdersByIssuedDate(t *testing.T) {
	db, captured := dryRunDB(t)
	repo := NewReceiptRepository(db)

	_, err := repo.MostRecentApprovedDate(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)

	assert.Contains(t, *captured, "receipts.issued_date DESC")
	assert.NotContains(t, *captured, "receipt_number DESC")
}
