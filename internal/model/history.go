// Package model はドメインモデルを定義する。
package model

import "time"

// LookupKind はルックアップ履歴のレコード種別を表す。
type LookupKind string

const (
	// LookupKindProfile はプロフィールルックアップを表す。
	LookupKindProfile LookupKind = "profile"
	// LookupKindAltScan はalt判定スキャンを表す。
	LookupKindAltScan LookupKind = "alt_scan"
	// LookupKindServerSearch はサーバー検索を表す。
	LookupKindServerSearch LookupKind = "server_search"
)

// LookupRecord はルックアップ履歴の1レコードを表す。
// 履歴の記録はベストエフォートであり、保存失敗がルックアップ本体を
// 中断することはない。
type LookupRecord struct {
	ID          string
	Kind        LookupKind
	Username    string
	UserID      int64
	UniverseID  int64 // サーバー検索以外は0
	Outcome     string
	AltReported int // alt判定以外は0
	CreatedAt   time.Time
}
