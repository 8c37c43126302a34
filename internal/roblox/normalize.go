package roblox

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hitoshi/altscope/internal/model"
)

// このファイルは動的な形を持つペイロードの正規化アダプタを提供する。
// プラットフォームAPIは同じ値を数値・数値文字列・別名キーで返すことが
// あるため、この境界で固定スキーマ（internal/model）に正規化し、
// コアエンジンには正規化済みの型のみを渡す。

// flexID は数値または数値文字列として表現されるIDを受け付けるJSON型。
// 解釈できない表現は0（未設定）に正規化される。
type flexID int64

// UnmarshalJSON はJSON数値・数値文字列の両方をint64として解釈する。
func (f *flexID) UnmarshalJSON(data []byte) error {
	*f = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	s := string(data)
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil
		}
		s = strings.TrimSpace(str)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	*f = flexID(n)
	return nil
}

// flexToken は数値・文字列のどちらで表現されたトークンも文字列に正規化する。
// トークンは不透明な識別子であり、ここでは解釈しない。
type flexToken string

// UnmarshalJSON はJSON文字列・数値をそのままの字面で文字列に変換する。
func (f *flexToken) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*f = ""
			return nil
		}
		*f = flexToken(s)
		return nil
	}
	*f = flexToken(string(data))
	return nil
}

// flexPresenceType は数値またはenum名の文字列で表現されるプレゼンス種別を
// 受け付けるJSON型。未知の値はOfflineに正規化される。
type flexPresenceType model.PresenceType

// UnmarshalJSON は数値（0-3）とenum名（"InGame"等）の両方を解釈する。
func (f *flexPresenceType) UnmarshalJSON(data []byte) error {
	*f = flexPresenceType(model.PresenceOffline)
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		switch s {
		case "Online":
			*f = flexPresenceType(model.PresenceOnline)
		case "InGame":
			*f = flexPresenceType(model.PresenceInGame)
		case "InStudio":
			*f = flexPresenceType(model.PresenceInStudio)
		}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return nil
	}
	if n >= int(model.PresenceOffline) && n <= int(model.PresenceInStudio) {
		*f = flexPresenceType(n)
	}
	return nil
}

// playerIDKeys はプレイヤー識別子の別名キー。優先順に照合する。
var playerIDKeys = []string{"id", "userId", "user_id", "Id"}

// normalizePlayer はプレイヤーエントリの生JSONオブジェクトを
// model.ServerPlayerに正規化する。識別子がどの別名キーにも見つからない
// 場合はfalseを返す。
func normalizePlayer(raw map[string]json.RawMessage) (model.ServerPlayer, bool) {
	var player model.ServerPlayer
	for _, key := range playerIDKeys {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var id flexID
		if err := id.UnmarshalJSON(data); err != nil || id == 0 {
			continue
		}
		player.ID = int64(id)
		break
	}
	if player.ID == 0 {
		return model.ServerPlayer{}, false
	}

	for _, key := range []string{"name", "username", "displayName"} {
		data, ok := raw[key]
		if !ok {
			continue
		}
		var name string
		if err := json.Unmarshal(data, &name); err == nil && name != "" {
			player.Username = name
			break
		}
	}

	return player, true
}

// normalizeTokens はflexTokenのスライスを文字列スライスに変換する。
// 空トークンは除外する。
func normalizeTokens(tokens []flexToken) []string {
	if len(tokens) == 0 {
		return nil
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		out = append(out, string(t))
	}
	return out
}
