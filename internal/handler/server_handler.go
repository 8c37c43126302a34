package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/altscope/internal/model"
)

// ServerSearchServiceInterface はサーバー検索ハンドラーが必要とするサービスインターフェース。
type ServerSearchServiceInterface interface {
	// SearchServers は対象ユーザーの参加サーバーを特定する。
	SearchServers(ctx context.Context, userID, universeID int64) (*model.MatchResult, error)
}

// ServerSearchMetrics はサーバー検索結果のメトリクス記録インターフェース。
type ServerSearchMetrics interface {
	RecordServerSearch(result string)
}

// ServerHandler はサーバー検索のHTTPハンドラー。
type ServerHandler struct {
	service ServerSearchServiceInterface
	metrics ServerSearchMetrics // nil許容
}

// NewServerHandler はServerHandlerを生成する。
func NewServerHandler(service ServerSearchServiceInterface, metrics ServerSearchMetrics) *ServerHandler {
	return &ServerHandler{
		service: service,
		metrics: metrics,
	}
}

// serverResponse はサーバー1件のAPIレスポンス。
type serverResponse struct {
	ID         string  `json:"id"`
	Playing    int     `json:"playing"`
	MaxPlayers int     `json:"max_players"`
	FPS        float64 `json:"fps"`
	Ping       int     `json:"ping"`
}

// serverSearchResponse はサーバー検索結果のAPIレスポンス。
// resultはfound / confirmed_no_server_match / not_presentのいずれか。
type serverSearchResponse struct {
	Result       string            `json:"result"`
	Servers      []serverResponse  `json:"servers"`
	Presence     *presenceResponse `json:"presence,omitempty"`
	TotalServers int               `json:"total_servers"`
	UserID       int64             `json:"user_id"`
	UniverseID   int64             `json:"universe_id"`
}

// Search はサーバー検索を処理する。
// GET /api/users/{id}/servers/{universeID}
func (h *ServerHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	rawUniverse := chi.URLParam(r, "universeID")
	universeID, err := strconv.ParseInt(rawUniverse, 10, 64)
	if err != nil || universeID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUniverseIDError(rawUniverse))
		return
	}

	result, err := h.service.SearchServers(r.Context(), userID, universeID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordServerSearch(result.Kind.String())
	}

	resp := serverSearchResponse{
		Result:       result.Kind.String(),
		Servers:      make([]serverResponse, len(result.Servers)),
		TotalServers: result.TotalServers,
		UserID:       userID,
		UniverseID:   universeID,
	}
	for i, server := range result.Servers {
		resp.Servers[i] = serverResponse{
			ID:         server.ID,
			Playing:    server.Playing,
			MaxPlayers: server.MaxPlayers,
			FPS:        server.FPS,
			Ping:       server.Ping,
		}
	}
	if result.Presence != nil {
		resp.Presence = toPresenceResponse(result.Presence)
	}

	writeJSON(w, http.StatusOK, resp)
}
