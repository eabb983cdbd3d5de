// Package intro tracks how many never-seen items a user had introduced during
// the current UTC day, which is what bounds daily new-item admission.
package intro

import (
	"context"
	"time"
)

// Counter is the daily-introduction ledger used by the admission controller.
// Add is called once per session with the number of items just admitted, so
// items count against the cap from the moment they are handed to the user,
// not only once they are graded.
type Counter interface {
	CountToday(ctx context.Context, userID string, now time.Time) (int, error)
	Add(ctx context.Context, userID string, n int, now time.Time) error
}

// MidnightUTC returns the start of the UTC day containing t.
func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
