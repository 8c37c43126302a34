package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/altscope/internal/model"
	"github.com/hitoshi/altscope/internal/worker/scan"
)

// ScanRunnerInterface はスキャンハンドラーが必要とするランナーインターフェース。
type ScanRunnerInterface interface {
	// Enqueue はスキャンジョブを登録しバックグラウンド実行を開始する。
	Enqueue(req scan.Request) (*scan.Job, error)
	// Get は指定IDのジョブのスナップショットを返す。存在しない場合はnil。
	Get(scanID string) *scan.Job
}

// ScanHandler は非同期スキャンジョブのHTTPハンドラー。
type ScanHandler struct {
	runner ScanRunnerInterface
}

// NewScanHandler はScanHandlerを生成する。
func NewScanHandler(runner ScanRunnerInterface) *ScanHandler {
	return &ScanHandler{runner: runner}
}

// createScanRequest はスキャン登録リクエストのボディ。
type createScanRequest struct {
	Username   string `json:"username"`
	UniverseID int64  `json:"universe_id,omitempty"`
}

// scanResponse はスキャンジョブのAPIレスポンス。
type scanResponse struct {
	ID          string                 `json:"id"`
	Status      string                 `json:"status"`
	Username    string                 `json:"username"`
	UniverseID  int64                  `json:"universe_id,omitempty"`
	Report      *profileReportResponse `json:"report,omitempty"`
	ServerMatch *serverSearchResponse  `json:"server_match,omitempty"`
	Error       *apiErrorResponse      `json:"error,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	FinishedAt  string                 `json:"finished_at,omitempty"`
}

// Create はスキャンジョブの登録を処理する。
// POST /api/scans
func (h *ScanHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if !usernamePattern.MatchString(req.Username) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidUsernameError("3〜20文字の英数字とアンダースコアのみ使用できます"))
		return
	}
	if req.UniverseID < 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidUniverseIDError("負の値は指定できません"))
		return
	}

	job, err := h.runner.Enqueue(scan.Request{
		Username:   req.Username,
		UniverseID: req.UniverseID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, toScanResponse(job))
}

// Get はスキャンジョブの状態取得を処理する。
// GET /api/scans/{id}
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	scanID := chi.URLParam(r, "id")

	job := h.runner.Get(scanID)
	if job == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewScanNotFoundError(scanID))
		return
	}

	writeJSON(w, http.StatusOK, toScanResponse(job))
}

// toScanResponse はスキャンジョブをAPIレスポンス型に変換する。
func toScanResponse(job *scan.Job) scanResponse {
	resp := scanResponse{
		ID:         job.ID,
		Status:     string(job.Status),
		Username:   job.Request.Username,
		UniverseID: job.Request.UniverseID,
		CreatedAt:  job.CreatedAt.Format(time.RFC3339),
	}

	if !job.FinishedAt.IsZero() {
		resp.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	if job.Report != nil {
		report := toProfileReportResponse(job.Report)
		resp.Report = &report
	}
	if job.Match != nil {
		match := serverSearchResponse{
			Result:       job.Match.Kind.String(),
			Servers:      make([]serverResponse, len(job.Match.Servers)),
			TotalServers: job.Match.TotalServers,
			UniverseID:   job.Request.UniverseID,
		}
		if job.Report != nil {
			match.UserID = job.Report.Profile.ID
		}
		for i, server := range job.Match.Servers {
			match.Servers[i] = serverResponse{
				ID:         server.ID,
				Playing:    server.Playing,
				MaxPlayers: server.MaxPlayers,
				FPS:        server.FPS,
				Ping:       server.Ping,
			}
		}
		if job.Match.Presence != nil {
			match.Presence = toPresenceResponse(job.Match.Presence)
		}
		resp.ServerMatch = &match
	}
	if job.Error != nil {
		resp.Error = &apiErrorResponse{
			Code:     job.Error.Code,
			Message:  job.Error.Message,
			Category: job.Error.Category,
			Action:   job.Error.Action,
		}
	}

	return resp
}
