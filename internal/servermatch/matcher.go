// Package servermatch は公開サーバーリストから対象ユーザーの
// 参加サーバーを特定するマッチャーを提供する。
package servermatch

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/hitoshi/altscope/internal/model"
)

// RosterSource はサーバーの参加者名簿のフェッチインターフェース。
// 返される識別子は不透明であり、数値として解釈できるもののみ
// ユーザーIDとして照合される。
type RosterSource interface {
	GetServerRoster(ctx context.Context, serverID string, universeID int64) ([]string, error)
}

// PresenceChecker は対象ユニバースへの在席判定インターフェース。
type PresenceChecker interface {
	InUniverse(ctx context.Context, userID, universeID int64) (*model.PresenceRecord, bool)
}

// DefaultShortlistLimit は不一致確定時に返す候補サーバーの上限。
const DefaultShortlistLimit = 10

// Matcher は公開サーバーリストを走査し対象ユーザーの参加サーバーを
// 特定する。判定は3つの戦略を順に適用し、最初に成立した戦略で
// そのサーバーの結果を確定する。
type Matcher struct {
	presence       PresenceChecker
	rosters        RosterSource
	logger         *slog.Logger
	shortlistLimit int
}

// NewMatcher はMatcherの新しいインスタンスを生成する。
// shortlistLimitが0以下の場合はDefaultShortlistLimitを使用する。
func NewMatcher(presence PresenceChecker, rosters RosterSource, logger *slog.Logger, shortlistLimit int) *Matcher {
	if shortlistLimit <= 0 {
		shortlistLimit = DefaultShortlistLimit
	}
	return &Matcher{
		presence:       presence,
		rosters:        rosters,
		logger:         logger,
		shortlistLimit: shortlistLimit,
	}
}

// Locate は対象ユーザーの参加サーバーを特定する。
//
// まずプレゼンスを確認し、対象ユニバースに在席していなければ
// MatchNotPresentを返してサーバー走査を省略する。在席している場合は
// すべてのサーバーを走査し、一致したサーバーをMatchFoundで返す。
// 1件も一致しなかった場合はMatchConfirmedNoServerとして、入力順の
// 先頭から最大shortlistLimit件の候補サーバーを返す。
//
// サーバーごとの判定戦略（適用順）:
//  1. playerTokensに対象ユーザーIDの数値表現が含まれる
//  2. 埋め込みの参加者リストに対象ユーザーIDが含まれる
//  3. 個別サーバーの名簿を取得して対象ユーザーIDを照合する
//
// 戦略3の名簿取得失敗はそのサーバーの不一致として扱い、走査を続行する。
func (m *Matcher) Locate(ctx context.Context, userID, universeID int64, servers []model.GameServer) model.MatchResult {
	record, ok := m.presence.InUniverse(ctx, userID, universeID)
	if !ok {
		return model.MatchResult{
			Kind:         model.MatchNotPresent,
			TotalServers: len(servers),
		}
	}

	var found []model.GameServer
	for _, server := range servers {
		if ctx.Err() != nil {
			break
		}
		if m.matchServer(ctx, userID, universeID, server) {
			found = append(found, server)
		}
	}

	if len(found) > 0 {
		return model.MatchResult{
			Kind:         model.MatchFound,
			Servers:      found,
			Presence:     record,
			TotalServers: len(servers),
		}
	}

	// 不一致確定。候補サーバーは入力順を保持して先頭から切り詰める。
	shortlist := servers
	if len(shortlist) > m.shortlistLimit {
		shortlist = shortlist[:m.shortlistLimit]
	}
	m.logger.Info("一致するサーバーが見つかりませんでした",
		slog.Int64("user_id", userID),
		slog.Int64("universe_id", universeID),
		slog.Int("total_servers", len(servers)),
	)
	return model.MatchResult{
		Kind:         model.MatchConfirmedNoServer,
		Servers:      shortlist,
		Presence:     record,
		TotalServers: len(servers),
	}
}

// matchServer は1サーバーに対して戦略を順に適用し、最初に成立した
// 戦略の結果を返す。
func (m *Matcher) matchServer(ctx context.Context, userID, universeID int64, server model.GameServer) bool {
	// 戦略1: プレイヤートークンの照合。トークンは通常不透明だが、
	// 数値として解釈できるものはユーザーIDとして比較する。
	for _, token := range server.PlayerTokens {
		if id, ok := resolveToken(token); ok && id == userID {
			return true
		}
	}

	// 戦略2: 埋め込み参加者リストの照合。
	if len(server.Players) > 0 {
		for _, player := range server.Players {
			if player.ID == userID {
				return true
			}
		}
		// リストが埋め込まれている場合、名簿取得は同じ情報の再取得に
		// なるため戦略3は適用しない。
		return false
	}

	// 戦略3: 個別名簿の取得。失敗はこのサーバーの不一致として扱う。
	roster, err := m.rosters.GetServerRoster(ctx, server.ID, universeID)
	if err != nil {
		m.logger.Warn("サーバー名簿の取得に失敗しました",
			slog.String("server_id", server.ID),
			slog.Int64("universe_id", universeID),
		)
		return false
	}
	for _, entry := range roster {
		if id, ok := resolveToken(entry); ok && id == userID {
			return true
		}
	}
	return false
}

// resolveToken はプレイヤートークンをユーザーIDとして解釈する。
// 数値として解釈できないトークンは照合不能として扱う。
func resolveToken(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
