// Package model はドメインモデルを定義する。
package model

// AltScore はフレンド候補1件に対するalt（サブアカウント）疑惑スコアを表す。
// Scoreは個別に判定されたヒューリスティック加点の合計値。
// Reasonsには発火したヒューリスティックの理由文字列が判定順に並ぶ。
type AltScore struct {
	Candidate FriendCandidate
	Score     int
	Reasons   []string
}
