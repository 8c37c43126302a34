// Package model はドメインモデルを定義する。
package model

import "time"

// UserProfile はプラットフォーム上のユーザープロフィールを表す。
// 1回のルックアップにつき1度だけ取得されるイミュータブルなスナップショット。
type UserProfile struct {
	ID               int64
	Username         string
	DisplayName      string
	Description      string
	CreatedAt        time.Time
	IsBanned         bool
	HasVerifiedBadge bool
}

// FriendCandidate は対象ユーザーのフレンドリストの1エントリを表す。
// alt判定のコスト制御のため、取得はサンプル上限（50件）までに制限される。
type FriendCandidate struct {
	ID       int64
	Username string
}

// OwnedGroup はユーザーがオーナー（ランク255）であるグループを表す。
type OwnedGroup struct {
	ID          int64
	Name        string
	MemberCount int
}

// OwnedGame はユーザーが作成したゲーム（エクスペリエンス）を表す。
type OwnedGame struct {
	ID      int64
	Name    string
	Playing int
	Visits  int64
	Created string
}

// Game はユニバースIDで識別されるゲーム全体の情報を表す。
type Game struct {
	UniverseID  int64
	Name        string
	RootPlaceID int64
}

// ProfileReport は1回のプロフィールルックアップの結果をまとめたレポート。
// コアはルックアップ呼び出しごとにこれを生成して返し、状態を持たない。
type ProfileReport struct {
	Profile UserProfile

	FriendsCount    int
	FollowersCount  int
	FollowingsCount int
	BadgesCount     int
	GroupsCount     int

	OwnedGroups []OwnedGroup
	OwnedGames  []OwnedGame

	Presence    *PresenceRecord
	CurrentGame string

	AvatarURL  string
	ProfileURL string

	// AltScores はalt判定が要求された場合のみ設定される。
	AltScores []AltScore
}
