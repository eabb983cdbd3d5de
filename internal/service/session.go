package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/gamma-omg/lexi-review/internal/pkg/serr"
	"github.com/google/uuid"
)

type StartSessionRequest struct {
	UserID     string
	ItemType   string
	CategoryID int64
	// SessionCap overrides the configured default when positive.
	SessionCap int
}

// StartSession assembles one review session: due items first (in due order),
// then new items from the requested category up to the session cap and the
// daily new-item budget. The session itself is never persisted; once the
// queue is handed out, only the per-grade record updates matter. Abandoning a
// session loses nothing: the next session re-queries what is still due.
func (s *ReviewService) StartSession(ctx context.Context, r StartSessionRequest) (model.ReviewSession, error) {
	if r.UserID == "" {
		return model.ReviewSession{}, serr.NewServiceError(nil, http.StatusBadRequest, "user id is required")
	}

	sessionCap := r.SessionCap
	if sessionCap == 0 {
		sessionCap = s.cfg.SessionCap
	}
	if sessionCap <= 0 {
		se := serr.NewServiceError(nil, http.StatusBadRequest, "session cap must be positive")
		se.Env["session_cap"] = fmt.Sprintf("%d", sessionCap)
		return model.ReviewSession{}, se
	}

	itemType, err := model.ParseItemType(r.ItemType)
	if err != nil {
		se := serr.NewServiceError(err, http.StatusBadRequest, "invalid item type")
		se.Env["item_type"] = r.ItemType
		return model.ReviewSession{}, se
	}

	due, err := s.DueSet(ctx, DueSetRequest{UserID: r.UserID, SessionCap: sessionCap})
	if err != nil {
		return model.ReviewSession{}, fmt.Errorf("select due set: %w", err)
	}

	queue := due
	introduced := 0

	if room := sessionCap - len(due); room > 0 {
		pool, err := s.catalog.ItemsByCategory(ctx, itemType, r.CategoryID)
		if err != nil {
			return model.ReviewSession{}, fmt.Errorf("load candidate pool: %w", err)
		}

		admitted, err := s.AdmitNew(ctx, AdmitNewRequest{
			UserID:      r.UserID,
			Pool:        pool,
			Limit:       room,
			DailyNewCap: s.cfg.DailyNewCap,
		})
		if err != nil {
			return model.ReviewSession{}, fmt.Errorf("admit new items: %w", err)
		}

		queue = append(queue, admitted...)
		introduced = len(admitted)
	}

	return model.ReviewSession{
		ID:                 uuid.NewString(),
		UserID:             r.UserID,
		Queue:              queue,
		NewItemsIntroduced: introduced,
		StartedAt:          s.now(),
	}, nil
}
