// Package model はドメインモデルを定義する。
package model

// PresenceType はユーザーの現在のオンライン状態を表す。
type PresenceType int

const (
	// PresenceOffline はオフライン状態。
	PresenceOffline PresenceType = 0
	// PresenceOnline はオンライン（ゲーム外）状態。
	PresenceOnline PresenceType = 1
	// PresenceInGame はゲームプレイ中の状態。
	PresenceInGame PresenceType = 2
	// PresenceInStudio はStudio（開発環境）利用中の状態。
	PresenceInStudio PresenceType = 3
)

// String はプレゼンス種別の表示名を返す。
func (p PresenceType) String() string {
	switch p {
	case PresenceOffline:
		return "Offline"
	case PresenceOnline:
		return "Online"
	case PresenceInGame:
		return "InGame"
	case PresenceInStudio:
		return "InStudio"
	default:
		return "Unknown"
	}
}

// PresenceRecord はプラットフォームのプレゼンスAPIから取得した
// ユーザーの現在状態のスナップショットを表す。
// 要求のたびに新規取得され、キャッシュされない。
// UniverseID / PlaceID は0のとき「未設定」を意味する。
type PresenceRecord struct {
	Type         PresenceType
	UniverseID   int64
	PlaceID      int64
	LastLocation string
}
