package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/altscope/internal/model"
)

// mockHistoryService はHistoryServiceInterfaceのモック実装。
type mockHistoryService struct {
	recentLookupsFn func(ctx context.Context, limit int) ([]model.LookupRecord, error)
}

func (m *mockHistoryService) RecentLookups(ctx context.Context, limit int) ([]model.LookupRecord, error) {
	if m.recentLookupsFn != nil {
		return m.recentLookupsFn(ctx, limit)
	}
	return nil, nil
}

// TestHistoryHandler_Recent は履歴取得のレスポンスを検証する。
func TestHistoryHandler_Recent(t *testing.T) {
	service := &mockHistoryService{
		recentLookupsFn: func(ctx context.Context, limit int) ([]model.LookupRecord, error) {
			if limit != 20 {
				t.Errorf("limit = %d, want default 20", limit)
			}
			return []model.LookupRecord{
				{
					ID:          "rec-1",
					Kind:        model.LookupKindProfile,
					Username:    "CoolDude42",
					UserID:      42,
					Outcome:     "found",
					AltReported: 2,
					CreatedAt:   time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}
	handler := NewHistoryHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/lookups/recent", nil)
	rec := httptest.NewRecorder()
	handler.Recent(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp struct {
		Lookups []struct {
			ID          string `json:"id"`
			Kind        string `json:"kind"`
			Username    string `json:"username"`
			Outcome     string `json:"outcome"`
			AltReported int    `json:"alt_reported"`
			CreatedAt   string `json:"created_at"`
		} `json:"lookups"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lookups) != 1 {
		t.Fatalf("lookups count = %d, want 1", len(resp.Lookups))
	}
	if resp.Lookups[0].Kind != "profile" || resp.Lookups[0].AltReported != 2 {
		t.Errorf("lookups[0] = %+v, want profile with 2 alts", resp.Lookups[0])
	}
}

// TestHistoryHandler_Recent_LimitHandling はlimitパラメータの扱いを検証する。
func TestHistoryHandler_Recent_LimitHandling(t *testing.T) {
	t.Run("明示指定は伝播される", func(t *testing.T) {
		var gotLimit int
		service := &mockHistoryService{
			recentLookupsFn: func(ctx context.Context, limit int) ([]model.LookupRecord, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		handler := NewHistoryHandler(service)

		req := httptest.NewRequest(http.MethodGet, "/api/lookups/recent?limit=5", nil)
		rec := httptest.NewRecorder()
		handler.Recent(rec, req)

		if gotLimit != 5 {
			t.Errorf("limit = %d, want 5", gotLimit)
		}
	})

	t.Run("上限超過は最大値に丸められる", func(t *testing.T) {
		var gotLimit int
		service := &mockHistoryService{
			recentLookupsFn: func(ctx context.Context, limit int) ([]model.LookupRecord, error) {
				gotLimit = limit
				return nil, nil
			},
		}
		handler := NewHistoryHandler(service)

		req := httptest.NewRequest(http.MethodGet, "/api/lookups/recent?limit=500", nil)
		rec := httptest.NewRecorder()
		handler.Recent(rec, req)

		if gotLimit != 100 {
			t.Errorf("limit = %d, want 100", gotLimit)
		}
	})

	t.Run("不正な値は400", func(t *testing.T) {
		tests := []string{"abc", "0", "-1"}
		for _, raw := range tests {
			handler := NewHistoryHandler(&mockHistoryService{})

			req := httptest.NewRequest(http.MethodGet, "/api/lookups/recent?limit="+raw, nil)
			rec := httptest.NewRecorder()
			handler.Recent(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("limit=%s: status code = %d, want %d", raw, rec.Code, http.StatusBadRequest)
			}
		}
	})
}

// TestHistoryHandler_Recent_HistoryDisabled は履歴無効時の501を検証する。
func TestHistoryHandler_Recent_HistoryDisabled(t *testing.T) {
	service := &mockHistoryService{
		recentLookupsFn: func(ctx context.Context, limit int) ([]model.LookupRecord, error) {
			return nil, model.NewHistoryUnavailableError()
		},
	}
	handler := NewHistoryHandler(service)

	req := httptest.NewRequest(http.MethodGet, "/api/lookups/recent", nil)
	rec := httptest.NewRecorder()
	handler.Recent(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status code = %d, want %d", rec.Code, http.StatusNotImplemented)
	}
}
