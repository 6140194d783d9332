package rowstream

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := ConnectSQLite(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newUserRepository(t *testing.T, db *sqlx.DB, seed bool) Repository[string, User] {
	t.Helper()
	repo, err := CreateSQLRepository[string, User](db)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTable(context.Background()))

	if seed {
		_, err := repo.InsertAll(context.Background(), SampleUsers())
		require.NoError(t, err)
	}

	return repo
}
