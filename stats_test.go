package rowstream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryUserStats(t *testing.T) {
	db := newTestDB(t)
	repo := newUserRepository(t, db, false)
	ctx := context.Background()

	stats, err := QueryUserStats(ctx, db, repo.GetTableDef().FullTableName())
	require.NoError(t, err)
	require.Equal(t, UserStats{}, stats)

	_, err = repo.InsertAll(ctx, SampleUsers())
	require.NoError(t, err)

	stats, err = QueryUserStats(ctx, db, repo.GetTableDef().FullTableName())
	require.NoError(t, err)
	require.Equal(t, int64(15), stats.TotalUsers)
	require.Equal(t, int64(19), stats.MinAge)
	require.Equal(t, int64(73), stats.MaxAge)
	require.InDelta(t, 613.0/15, stats.AvgAge, 0.001)
}
