package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/altscope/internal/model"
)

// mockServerSearchService はServerSearchServiceInterfaceのモック実装。
type mockServerSearchService struct {
	searchServersFn func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error)
}

func (m *mockServerSearchService) SearchServers(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
	if m.searchServersFn != nil {
		return m.searchServersFn(ctx, userID, universeID)
	}
	return &model.MatchResult{Kind: model.MatchNotPresent}, nil
}

// mockServerMetrics はServerSearchMetricsのモック実装。
type mockServerMetrics struct {
	results []string
}

func (m *mockServerMetrics) RecordServerSearch(result string) {
	m.results = append(m.results, result)
}

func newServerRouter(service ServerSearchServiceInterface, metrics ServerSearchMetrics) *chi.Mux {
	h := NewServerHandler(service, metrics)
	r := chi.NewRouter()
	r.Get("/api/users/{id}/servers/{universeID}", h.Search)
	return r
}

// TestServerHandler_Search はサーバー検索のレスポンスとメトリクス記録を検証する。
func TestServerHandler_Search(t *testing.T) {
	service := &mockServerSearchService{
		searchServersFn: func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
			if userID != 42 || universeID != 99 {
				t.Errorf("args = %d/%d, want 42/99", userID, universeID)
			}
			return &model.MatchResult{
				Kind: model.MatchFound,
				Servers: []model.GameServer{
					{ID: "srv-1", Playing: 8, MaxPlayers: 10, FPS: 59.9, Ping: 80},
				},
				Presence: &model.PresenceRecord{
					Type:       model.PresenceInGame,
					UniverseID: 99,
				},
				TotalServers: 25,
			}, nil
		},
	}
	metrics := &mockServerMetrics{}
	router := newServerRouter(service, metrics)

	req := httptest.NewRequest(http.MethodGet, "/api/users/42/servers/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Result  string `json:"result"`
		Servers []struct {
			ID      string `json:"id"`
			Playing int    `json:"playing"`
		} `json:"servers"`
		Presence *struct {
			Type string `json:"type"`
		} `json:"presence"`
		TotalServers int   `json:"total_servers"`
		UserID       int64 `json:"user_id"`
		UniverseID   int64 `json:"universe_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Result != "found" {
		t.Errorf("result = %s, want found", resp.Result)
	}
	if len(resp.Servers) != 1 || resp.Servers[0].ID != "srv-1" {
		t.Errorf("servers = %+v, want srv-1", resp.Servers)
	}
	if resp.Presence == nil || resp.Presence.Type != "InGame" {
		t.Errorf("presence = %+v, want InGame", resp.Presence)
	}
	if resp.TotalServers != 25 {
		t.Errorf("total_servers = %d, want 25", resp.TotalServers)
	}
	if resp.UserID != 42 || resp.UniverseID != 99 {
		t.Errorf("ids = %d/%d, want 42/99", resp.UserID, resp.UniverseID)
	}

	if len(metrics.results) != 1 || metrics.results[0] != "found" {
		t.Errorf("recorded metrics = %v, want [found]", metrics.results)
	}
}

// TestServerHandler_Search_InvalidUniverseID は不正なユニバースIDの拒否を検証する。
func TestServerHandler_Search_InvalidUniverseID(t *testing.T) {
	tests := []struct {
		name     string
		universe string
	}{
		{name: "非数値", universe: "abc"},
		{name: "ゼロ", universe: "0"},
		{name: "負数", universe: "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newServerRouter(&mockServerSearchService{}, nil)

			req := httptest.NewRequest(http.MethodGet, "/api/users/42/servers/"+tt.universe, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status code = %d, want %d", rec.Code, http.StatusBadRequest)
			}

			var resp apiErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Code != model.ErrCodeInvalidUniverseID {
				t.Errorf("error code = %s, want %s", resp.Code, model.ErrCodeInvalidUniverseID)
			}
		})
	}
}

// TestServerHandler_Search_NilMetrics はメトリクス未構成でも動作することを検証する。
func TestServerHandler_Search_NilMetrics(t *testing.T) {
	router := newServerRouter(&mockServerSearchService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/users/42/servers/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}
}
