// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, lookup, upstream, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeInvalidUsername     = "INVALID_USERNAME"
	ErrCodeInvalidUserID       = "INVALID_USER_ID"
	ErrCodeInvalidUniverseID   = "INVALID_UNIVERSE_ID"
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	ErrCodeScanNotFound        = "SCAN_NOT_FOUND"
	ErrCodeScanQueueFull       = "SCAN_QUEUE_FULL"
	ErrCodeHistoryUnavailable  = "HISTORY_UNAVAILABLE"
)

// NewUserNotFoundError はユーザー名が解決できなかった場合のエラーを生成する。
// 対象ユーザー本人に対するこのエラーのみがルックアップ全体を中断する。
func NewUserNotFoundError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("指定されたユーザーが見つかりません: %s", username),
		Category: "lookup",
		Action:   "ユーザー名の綴りを確認してください。",
	}
}

// NewInvalidUsernameError は無効なユーザー名エラーを生成する。
func NewInvalidUsernameError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  fmt.Sprintf("無効なユーザー名です: %s", reason),
		Category: "validation",
		Action:   "3〜20文字の英数字とアンダースコアで指定してください。",
	}
}

// NewInvalidUserIDError は無効なユーザーIDエラーを生成する。
func NewInvalidUserIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUserID,
		Message:  fmt.Sprintf("無効なユーザーIDです: %s", raw),
		Category: "validation",
		Action:   "ユーザーIDは正の整数で指定してください。",
	}
}

// NewInvalidUniverseIDError は無効なユニバースIDエラーを生成する。
func NewInvalidUniverseIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUniverseID,
		Message:  fmt.Sprintf("無効なユニバースIDです: %s", raw),
		Category: "validation",
		Action:   "ゲームのユニバースIDは正の整数で指定してください。",
	}
}

// NewUpstreamUnavailableError はプラットフォームAPIからプロフィール本体を
// 取得できなかった場合のエラーを生成する。
// 補助フェッチ（各種カウント・ロースター等）の失敗はこのエラーにせず、
// デフォルト値またはスキップで局所的に回復する。
func NewUpstreamUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamUnavailable,
		Message:  "プラットフォームAPIからユーザー情報を取得できませんでした。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewScanNotFoundError はスキャンジョブ未検出エラーを生成する。
func NewScanNotFoundError(scanID string) *APIError {
	return &APIError{
		Code:     ErrCodeScanNotFound,
		Message:  fmt.Sprintf("指定されたスキャンが見つかりません: %s", scanID),
		Category: "lookup",
		Action:   "スキャンIDを確認してください。完了済みスキャンは一定時間後に破棄されます。",
	}
}

// NewScanQueueFullError はスキャンジョブの同時実行上限エラーを生成する。
func NewScanQueueFullError() *APIError {
	return &APIError{
		Code:     ErrCodeScanQueueFull,
		Message:  "実行中のスキャンが上限に達しています。",
		Category: "system",
		Action:   "実行中のスキャンの完了を待ってから再度お試しください。",
	}
}

// NewHistoryUnavailableError はルックアップ履歴が利用できない場合のエラーを生成する。
// DATABASE_URL未設定の構成では履歴機能は無効になる。
func NewHistoryUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeHistoryUnavailable,
		Message:  "ルックアップ履歴はこのサーバーでは有効になっていません。",
		Category: "system",
		Action:   "DATABASE_URLを設定したうえでサーバーを起動してください。",
	}
}
