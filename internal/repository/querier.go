package repository

import (
	"context"
	"time"

	"github.com/teqwa/teqwa-core/internal/persistence"
)

// conn returns the transaction bound to ctx, falling back to db.
func conn(ctx context.Context, db persistence.Querier) persistence.Querier {
	return persistence.QuerierFrom(ctx, db)
}

// dateKey renders the calendar date of t in its own location.
// DATE parameters are passed as text so the server never shifts them by timezone.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
