package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gamma-omg/lexi-review/internal/model"
	"github.com/gamma-omg/lexi-review/internal/pkg/fn"
	"github.com/gamma-omg/lexi-review/internal/pkg/httpx"
	"github.com/gamma-omg/lexi-review/internal/pkg/middleware"
	"github.com/gamma-omg/lexi-review/internal/pkg/serr"
	"github.com/gamma-omg/lexi-review/internal/service"
)

const defaultDueLimit = 20

type reviewService interface {
	DueSet(ctx context.Context, r service.DueSetRequest) ([]model.ReviewRecord, error)
	Grade(ctx context.Context, r service.GradeRequest) (model.ReviewRecord, error)
	StartSession(ctx context.Context, r service.StartSessionRequest) (model.ReviewSession, error)
	Stats(ctx context.Context, userID string) (service.UserStatsResponse, error)
	CategorySummary(ctx context.Context, r service.CategorySummaryRequest) (service.CategorySummaryResponse, error)
}

type API struct {
	srv reviewService
	mux http.ServeMux
}

func NewAPI(srv reviewService) *API {
	api := &API{
		srv: srv,
		mux: *http.NewServeMux(),
	}

	api.mount()
	return api
}

func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.mux.ServeHTTP(w, r)
}

func (api *API) mount() {
	api.mux.HandleFunc("GET /due", api.handleGetDue)
	api.mux.HandleFunc("POST /grade", api.handleGrade)
	api.mux.HandleFunc("POST /session", api.handleStartSession)
	api.mux.HandleFunc("GET /stats", api.handleGetStats)
	api.mux.HandleFunc("GET /categories/{category_id}/summary", api.handleCategorySummary)
}

type dueItemResponse struct {
	ItemID   int64     `json:"item_id"`
	ItemType string    `json:"item_type"`
	DueAt    time.Time `json:"due_at"`
	State    string    `json:"state"`
}

type getDueResponse struct {
	Items []dueItemResponse `json:"items"`
}

func (api *API) handleGetDue(w http.ResponseWriter, r *http.Request) {
	limit := defaultDueLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid limit parameter"))
			return
		}
		limit = parsed
	}

	records, err := api.srv.DueSet(r.Context(), service.DueSetRequest{
		UserID:     middleware.UserIDFromContext(r.Context()),
		SessionCap: limit,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, getDueResponse{
		Items: fn.Map(records, recordToDueItem),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
}

type gradeRequest struct {
	ItemID   int64  `json:"item_id"`
	ItemType string `json:"item_type"`
	Grade    string `json:"grade"`
}

type gradeResponse struct {
	IntervalDays float64   `json:"interval_days"`
	DueAt        time.Time `json:"due_at"`
	State        string    `json:"state"`
	EaseFactor   float64   `json:"ease_factor"`
}

func (api *API) handleGrade(w http.ResponseWriter, r *http.Request) {
	var req gradeRequest
	err := httpx.ReadJSON(r, &req)
	if err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	rec, err := api.srv.Grade(r.Context(), service.GradeRequest{
		UserID:   middleware.UserIDFromContext(r.Context()),
		ItemID:   req.ItemID,
		ItemType: req.ItemType,
		Grade:    req.Grade,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, gradeResponse{
		IntervalDays: rec.IntervalDays,
		DueAt:        rec.DueAt,
		State:        string(rec.State),
		EaseFactor:   rec.EaseFactor,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
}

type startSessionRequest struct {
	ItemType   string `json:"item_type"`
	CategoryID int64  `json:"category_id"`
	SessionCap int    `json:"session_cap"`
}

type startSessionResponse struct {
	SessionID          string            `json:"session_id"`
	NewItemsIntroduced int               `json:"new_items_introduced"`
	Items              []dueItemResponse `json:"items"`
}

func (api *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	err := httpx.ReadJSON(r, &req)
	if err != nil {
		httpx.HandleErr(w, r, serr.NewServiceError(err, http.StatusBadRequest, "invalid request body"))
		return
	}

	session, err := api.srv.StartSession(r.Context(), service.StartSessionRequest{
		UserID:     middleware.UserIDFromContext(r.Context()),
		ItemType:   req.ItemType,
		CategoryID: req.CategoryID,
		SessionCap: req.SessionCap,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:          session.ID,
		NewItemsIntroduced: session.NewItemsIntroduced,
		Items:              fn.Map(session.Queue, recordToDueItem),
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
}

type statsResponse struct {
	TotalTracked  int     `json:"total_tracked"`
	DueNow        int     `json:"due_now"`
	Learned       int     `json:"learned"`
	Lapses        int     `json:"lapses"`
	AvgEaseFactor float64 `json:"avg_ease_factor"`
}

func (api *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := api.srv.Stats(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, statsResponse{
		TotalTracked:  stats.TotalTracked,
		DueNow:        stats.DueNow,
		Learned:       stats.Learned,
		Lapses:        stats.Lapses,
		AvgEaseFactor: stats.AvgEaseFactor,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
}

type categorySummaryResponse struct {
	CategoryID int64 `json:"category_id"`
	TotalItems int   `json:"total_items"`
	Tracked    int   `json:"tracked"`
	DueNow     int   `json:"due_now"`
}

func (api *API) handleCategorySummary(w http.ResponseWriter, r *http.Request) {
	categoryID, err := idFromRequest(r, "category_id")
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	itemType := r.URL.Query().Get("type")
	if itemType == "" {
		itemType = string(model.Vocabulary)
	}

	summary, err := api.srv.CategorySummary(r.Context(), service.CategorySummaryRequest{
		UserID:     middleware.UserIDFromContext(r.Context()),
		ItemType:   itemType,
		CategoryID: categoryID,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}

	err = httpx.WriteJSON(w, http.StatusOK, categorySummaryResponse{
		CategoryID: summary.CategoryID,
		TotalItems: summary.TotalItems,
		Tracked:    summary.Tracked,
		DueNow:     summary.DueNow,
	})
	if err != nil {
		httpx.HandleErr(w, r, err)
		return
	}
}

func recordToDueItem(rec model.ReviewRecord) dueItemResponse {
	return dueItemResponse{
		ItemID:   rec.ItemID,
		ItemType: string(rec.ItemType),
		DueAt:    rec.DueAt,
		State:    string(rec.State),
	}
}

func idFromRequest(r *http.Request, param string) (int64, error) {
	idStr := r.PathValue(param)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, serr.NewServiceError(err, http.StatusBadRequest, "invalid id parameter")
	}

	return id, nil
}
