package rowstream

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type UserStats struct {
	TotalUsers int64   `db:"total_users"`
	AvgAge     float64 `db:"avg_age"`
	MinAge     int64   `db:"min_age"`
	MaxAge     int64   `db:"max_age"`
}

// QueryUserStats summarizes the age column of table. An empty table yields
// zero values.
func QueryUserStats(ctx context.Context, db *sqlx.DB, table string) (UserStats, error) {
	qry := fmt.Sprintf(`SELECT COUNT(*) AS total_users,
		COALESCE(AVG(age), 0) AS avg_age,
		COALESCE(MIN(age), 0) AS min_age,
		COALESCE(MAX(age), 0) AS max_age
		FROM %s`, table)

	var stats UserStats
	if err := db.GetContext(ctx, &stats, qry); err != nil {
		return stats, storeUnavailable(err)
	}

	return stats, nil
}
