// Package handler はHTTP APIのハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/altscope/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// LookupProfile はユーザー名からプロフィールレポートを生成する。
	LookupProfile(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error)
	// LookupProfileByID はユーザーIDからプロフィールレポートを生成する。
	LookupProfileByID(ctx context.Context, userID int64) (*model.ProfileReport, error)
	// DetectAlts は対象ユーザーのalt疑惑ランキングを返す。
	DetectAlts(ctx context.Context, userID int64) ([]model.AltScore, error)
}

// ProfileHandler はプロフィールルックアップのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// usernamePattern はプラットフォームのユーザー名制約（3〜20文字の
// 英数字とアンダースコア）。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// profileResponse はプロフィール本体のAPIレスポンス。
type profileResponse struct {
	ID               int64  `json:"id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	Description      string `json:"description"`
	CreatedAt        string `json:"created_at"`
	IsBanned         bool   `json:"is_banned"`
	HasVerifiedBadge bool   `json:"has_verified_badge"`
}

// ownedGroupResponse はオーナーグループのAPIレスポンス。
type ownedGroupResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// ownedGameResponse は保有ゲームのAPIレスポンス。
type ownedGameResponse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Playing int    `json:"playing"`
	Visits  int64  `json:"visits"`
}

// presenceResponse はプレゼンスのAPIレスポンス。
type presenceResponse struct {
	Type         string `json:"type"`
	UniverseID   int64  `json:"universe_id,omitempty"`
	PlaceID      int64  `json:"place_id,omitempty"`
	LastLocation string `json:"last_location,omitempty"`
}

// altScoreResponse はalt判定1件のAPIレスポンス。
type altScoreResponse struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Score    int      `json:"score"`
	Reasons  []string `json:"reasons"`
}

// profileReportResponse はプロフィールレポート全体のAPIレスポンス。
type profileReportResponse struct {
	Profile         profileResponse      `json:"profile"`
	FriendsCount    int                  `json:"friends_count"`
	FollowersCount  int                  `json:"followers_count"`
	FollowingsCount int                  `json:"followings_count"`
	BadgesCount     int                  `json:"badges_count"`
	GroupsCount     int                  `json:"groups_count"`
	OwnedGroups     []ownedGroupResponse `json:"owned_groups"`
	OwnedGames      []ownedGameResponse  `json:"owned_games"`
	Presence        *presenceResponse    `json:"presence,omitempty"`
	CurrentGame     string               `json:"current_game,omitempty"`
	AvatarURL       string               `json:"avatar_url,omitempty"`
	ProfileURL      string               `json:"profile_url"`
	AltScores       []altScoreResponse   `json:"alt_scores,omitempty"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Lookup はユーザー名によるプロフィールルックアップを処理する。
// GET /api/users/lookup?username={name}&alts={true|false}
func (h *ProfileHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if !usernamePattern.MatchString(username) {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidUsernameError("3〜20文字の英数字とアンダースコアのみ使用できます"))
		return
	}

	includeAlts := r.URL.Query().Get("alts") == "true"

	report, err := h.service.LookupProfile(r.Context(), username, includeAlts)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileReportResponse(report))
}

// GetProfile はユーザーIDによるプロフィールルックアップを処理する。
// GET /api/users/{id}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	report, err := h.service.LookupProfileByID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileReportResponse(report))
}

// GetAlts はalt疑惑ランキングの取得を処理する。
// GET /api/users/{id}/alts
func (h *ProfileHandler) GetAlts(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	scores, err := h.service.DetectAlts(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":    userID,
		"alt_scores": toAltScoreResponses(scores),
	})
}

// parseUserID はURLパラメータのユーザーIDを検証して返す。
// 不正な場合はエラーレスポンスを書き込みfalseを返す。
func parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidUserIDError(raw))
		return 0, false
	}
	return userID, true
}

// toProfileReportResponse はドメインのProfileReportをAPIレスポンス型に変換する。
func toProfileReportResponse(report *model.ProfileReport) profileReportResponse {
	resp := profileReportResponse{
		Profile: profileResponse{
			ID:               report.Profile.ID,
			Username:         report.Profile.Username,
			DisplayName:      report.Profile.DisplayName,
			Description:      report.Profile.Description,
			IsBanned:         report.Profile.IsBanned,
			HasVerifiedBadge: report.Profile.HasVerifiedBadge,
		},
		FriendsCount:    report.FriendsCount,
		FollowersCount:  report.FollowersCount,
		FollowingsCount: report.FollowingsCount,
		BadgesCount:     report.BadgesCount,
		GroupsCount:     report.GroupsCount,
		CurrentGame:     report.CurrentGame,
		AvatarURL:       report.AvatarURL,
		ProfileURL:      report.ProfileURL,
		AltScores:       toAltScoreResponses(report.AltScores),
	}

	if !report.Profile.CreatedAt.IsZero() {
		resp.Profile.CreatedAt = report.Profile.CreatedAt.Format(time.RFC3339)
	}

	resp.OwnedGroups = make([]ownedGroupResponse, len(report.OwnedGroups))
	for i, group := range report.OwnedGroups {
		resp.OwnedGroups[i] = ownedGroupResponse{
			ID:          group.ID,
			Name:        group.Name,
			MemberCount: group.MemberCount,
		}
	}

	resp.OwnedGames = make([]ownedGameResponse, len(report.OwnedGames))
	for i, game := range report.OwnedGames {
		resp.OwnedGames[i] = ownedGameResponse{
			ID:      game.ID,
			Name:    game.Name,
			Playing: game.Playing,
			Visits:  game.Visits,
		}
	}

	if report.Presence != nil {
		resp.Presence = toPresenceResponse(report.Presence)
	}

	return resp
}

// toPresenceResponse はドメインのPresenceRecordをAPIレスポンス型に変換する。
func toPresenceResponse(record *model.PresenceRecord) *presenceResponse {
	return &presenceResponse{
		Type:         record.Type.String(),
		UniverseID:   record.UniverseID,
		PlaceID:      record.PlaceID,
		LastLocation: record.LastLocation,
	}
}

// toAltScoreResponses はドメインのAltScoreリストをAPIレスポンス型に変換する。
func toAltScoreResponses(scores []model.AltScore) []altScoreResponse {
	if len(scores) == 0 {
		return nil
	}
	results := make([]altScoreResponse, len(scores))
	for i, score := range scores {
		results[i] = altScoreResponse{
			UserID:   score.Candidate.ID,
			Username: score.Candidate.Username,
			Score:    score.Score,
			Reasons:  score.Reasons,
		}
	}
	return results
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUserNotFound, model.ErrCodeScanNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidUsername, model.ErrCodeInvalidUserID, model.ErrCodeInvalidUniverseID:
		return http.StatusBadRequest
	case model.ErrCodeUpstreamUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeScanQueueFull:
		return http.StatusTooManyRequests
	case model.ErrCodeHistoryUnavailable:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
