// Package model はドメインモデルを定義する。
package model

// GameServer はあるユニバースの公開サーバーリストの1エントリを表す。
// 1回のサーバー検索の間はイミュータブルとして扱う。
// PlayerTokens は不透明な識別子列で、ユーザーIDである保証はない。
type GameServer struct {
	ID           string
	PlayerTokens []string
	// Players はサーバーペイロードに明示的なプレイヤーリストが
	// 含まれていた場合のみ設定される（通常は空）。
	Players    []ServerPlayer
	Playing    int
	MaxPlayers int
	FPS        float64
	Ping       int
}

// ServerPlayer はサーバーペイロード内のプレイヤーエントリを表す。
// 識別子の別名キー（id / userId / user_id / Id）はプロバイダ境界で
// 正規化済みであり、コアはこの固定スキーマのみを扱う。
type ServerPlayer struct {
	ID       int64
	Username string
}

// MatchKind はサーバー検索結果の種別を表す。
type MatchKind int

const (
	// MatchNotPresent はプレゼンスが確認できなかったことを示す。
	MatchNotPresent MatchKind = iota
	// MatchFound はプレイヤー識別子の一致するサーバーが見つかったことを示す。
	MatchFound
	// MatchConfirmedNoServer はゲーム内プレゼンスは確認できたが、
	// どのサーバーにも識別子レベルの一致が得られなかったことを示す。
	// Serversには候補サーバーの短縮リストが入る。
	MatchConfirmedNoServer
)

// String は検索結果種別の表示名を返す。
func (k MatchKind) String() string {
	switch k {
	case MatchNotPresent:
		return "not_present"
	case MatchFound:
		return "found"
	case MatchConfirmedNoServer:
		return "confirmed_no_server_match"
	default:
		return "unknown"
	}
}

// MatchResult はサーバー検索1回の結果を表す。
// KindがMatchFoundのときServersは一致したサーバー（1件以上）。
// KindがMatchConfirmedNoServerのときServersは候補サーバーの短縮リスト
// （入力順のまま、最大10件）。MatchNotPresentのときServersは空。
type MatchResult struct {
	Kind         MatchKind
	Servers      []GameServer
	Presence     *PresenceRecord
	TotalServers int
}
