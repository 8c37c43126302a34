package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/altscope/internal/model"
)

// HistoryServiceInterface は履歴ハンドラーが必要とするサービスインターフェース。
type HistoryServiceInterface interface {
	// RecentLookups は直近のルックアップ履歴を返す。
	RecentLookups(ctx context.Context, limit int) ([]model.LookupRecord, error)
}

// HistoryHandler はルックアップ履歴のHTTPハンドラー。
type HistoryHandler struct {
	service HistoryServiceInterface
}

// NewHistoryHandler はHistoryHandlerを生成する。
func NewHistoryHandler(service HistoryServiceInterface) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// defaultHistoryLimit は履歴取得のデフォルト件数。
const defaultHistoryLimit = 20

// maxHistoryLimit は履歴取得の最大件数。
const maxHistoryLimit = 100

// lookupRecordResponse はルックアップ履歴1件のAPIレスポンス。
type lookupRecordResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Username    string `json:"username"`
	UserID      int64  `json:"user_id"`
	UniverseID  int64  `json:"universe_id,omitempty"`
	Outcome     string `json:"outcome"`
	AltReported int    `json:"alt_reported"`
	CreatedAt   string `json:"created_at"`
}

// Recent は直近のルックアップ履歴の取得を処理する。
// GET /api/lookups/recent?limit={n}
func (h *HistoryHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "limitは正の整数で指定してください。",
				Category: "validation",
				Action:   "limitパラメータを確認してください。",
			})
			return
		}
		limit = parsed
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}
	}

	records, err := h.service.RecentLookups(r.Context(), limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]lookupRecordResponse, len(records))
	for i, record := range records {
		results[i] = lookupRecordResponse{
			ID:          record.ID,
			Kind:        string(record.Kind),
			Username:    record.Username,
			UserID:      record.UserID,
			UniverseID:  record.UniverseID,
			Outcome:     record.Outcome,
			AltReported: record.AltReported,
			CreatedAt:   record.CreatedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lookups": results,
	})
}
