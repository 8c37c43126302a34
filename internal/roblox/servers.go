package roblox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/altscope/internal/model"
)

// GetPublicServers はユニバースの公開サーバーリストを取得する。
// プロバイダの返す昇順ソートのまま返し、この層でも呼び出し側でも
// 並べ替えは行わない。limitは最大100。
func (c *Client) GetPublicServers(ctx context.Context, universeID int64, limit int) ([]model.GameServer, error) {
	var result struct {
		Data []serverPayload `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/games/%d/servers/Public?sortOrder=Asc&limit=%d", c.endpoints.Games, universeID, limit)
	if err := c.getJSON(ctx, c.timeouts.List, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	servers := make([]model.GameServer, 0, len(result.Data))
	for _, payload := range result.Data {
		servers = append(servers, payload.normalize())
	}
	return servers, nil
}

// GetServerRoster はサーバー単位のプレイヤーロースターを取得する。
// プラットフォームはプライバシー上の理由でこのエンドポイントを公開して
// いないことが多く、その場合は(nil, nil)を返す（absent）。
// 返される識別子は不透明であり、ユーザーIDである保証はない。
func (c *Client) GetServerRoster(ctx context.Context, serverID string, universeID int64) ([]string, error) {
	var raw json.RawMessage

	url := fmt.Sprintf("%s/v1/games/%d/servers/%s", c.endpoints.Games, universeID, serverID)
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &raw); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	roster := extractRoster(raw)
	if len(roster) == 0 {
		return nil, nil
	}
	return roster, nil
}

// serverPayload は公開サーバーAPIの1サーバー分の生ペイロード。
// IDはidまたはtokenキーで返されることがある。
type serverPayload struct {
	ID           string            `json:"id"`
	Token        string            `json:"token"`
	PlayerTokens []flexToken       `json:"playerTokens"`
	Players      []json.RawMessage `json:"players"`
	Playing      int               `json:"playing"`
	PlayerCount  int               `json:"playerCount"`
	MaxPlayers   int               `json:"maxPlayers"`
	FPS          float64           `json:"fps"`
	Ping         int               `json:"ping"`
}

// normalize は生ペイロードをmodel.GameServerに変換する。
// プレイヤーエントリの別名キーはここで解決され、コアには固定スキーマ
// のみが渡る。
func (p serverPayload) normalize() model.GameServer {
	server := model.GameServer{
		ID:           p.ID,
		PlayerTokens: normalizeTokens(p.PlayerTokens),
		Playing:      p.Playing,
		MaxPlayers:   p.MaxPlayers,
		FPS:          p.FPS,
		Ping:         p.Ping,
	}
	if server.ID == "" {
		server.ID = p.Token
	}
	if server.Playing == 0 && p.PlayerCount > 0 {
		server.Playing = p.PlayerCount
	}

	for _, rawPlayer := range p.Players {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(rawPlayer, &obj); err != nil {
			continue
		}
		if player, ok := normalizePlayer(obj); ok {
			server.Players = append(server.Players, player)
		}
	}

	return server
}

// extractRoster はロースターレスポンスからプレイヤー識別子列を抽出する。
// players / playerTokens キーが、トップレベルまたはdata配下のどちらに
// あっても解釈する。
func extractRoster(raw json.RawMessage) []string {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil
	}

	for _, key := range []string{"players", "playerTokens"} {
		if ids := rosterEntries(top[key]); len(ids) > 0 {
			return ids
		}
	}

	if data, ok := top["data"]; ok {
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(data, &nested); err == nil {
			for _, key := range []string{"players", "playerTokens"} {
				if ids := rosterEntries(nested[key]); len(ids) > 0 {
					return ids
				}
			}
		}
	}

	return nil
}

// rosterEntries はロースター配列の各要素を識別子文字列に変換する。
// 要素は不透明トークン・数値ID・{id: ...}形式のオブジェクトのいずれも
// あり得る。
func rosterEntries(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(entry, &obj); err == nil {
			if player, ok := normalizePlayer(obj); ok {
				ids = append(ids, fmt.Sprintf("%d", player.ID))
			}
			continue
		}

		var token flexToken
		if err := token.UnmarshalJSON(entry); err == nil && token != "" {
			ids = append(ids, string(token))
		}
	}

	if len(ids) == 0 {
		return nil
	}
	return ids
}
