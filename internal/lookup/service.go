// Package lookup はプロフィールルックアップのドメインロジックを提供する。
package lookup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hitoshi/altscope/internal/model"
	"github.com/hitoshi/altscope/internal/repository"
	"github.com/hitoshi/altscope/internal/roblox"
	"github.com/hitoshi/altscope/internal/security"
)

// PlatformSource はルックアップに必要なプラットフォームAPI群の
// フェッチインターフェース。absentは各メソッドのゼロ値とnilエラーで
// 表現される。
type PlatformSource interface {
	ResolveUserID(ctx context.Context, username string) (int64, error)
	GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	GetFriends(ctx context.Context, userID int64, limit int) ([]model.FriendCandidate, error)
	GetFriendsCount(ctx context.Context, userID int64) (int, error)
	GetFollowersCount(ctx context.Context, userID int64) (int, error)
	GetFollowingsCount(ctx context.Context, userID int64) (int, error)
	GetBadgesCount(ctx context.Context, userID int64) (int, error)
	GetGroupRoles(ctx context.Context, userID int64) ([]roblox.GroupRole, error)
	GetOwnedGames(ctx context.Context, userID int64) ([]model.OwnedGame, error)
	GetGameByUniverseID(ctx context.Context, universeID int64) (*model.Game, error)
	GetAvatarURL(ctx context.Context, userID int64) (string, error)
	GetPresence(ctx context.Context, userID int64) (*model.PresenceRecord, error)
	GetPublicServers(ctx context.Context, universeID int64, limit int) ([]model.GameServer, error)
}

// AltEngine はalt判定エンジンのインターフェース。
type AltEngine interface {
	Correlate(ctx context.Context, target *model.UserProfile, friends []model.FriendCandidate) []model.AltScore
}

// ServerMatcher はサーバー特定マッチャーのインターフェース。
type ServerMatcher interface {
	Locate(ctx context.Context, userID, universeID int64, servers []model.GameServer) model.MatchResult
}

// Config はサービスの動作パラメータを保持する。
type Config struct {
	// FriendsLimit はalt判定用に取得するフレンド数の上限。
	FriendsLimit int
	// ServerPageLimit は1回のサーバー検索で取得するサーバー数の上限。
	ServerPageLimit int
}

// DefaultConfig はサービスの既定パラメータを返す。
func DefaultConfig() Config {
	return Config{
		FriendsLimit:    50,
		ServerPageLimit: 100,
	}
}

// Service はプロフィールルックアップ、alt判定、サーバー検索を
// 統括するサービス層。レポートは呼び出しごとに生成され、呼び出し間で
// 状態を共有しない。
type Service struct {
	source    PlatformSource
	alts      AltEngine
	matcher   ServerMatcher
	sanitizer security.TextSanitizerService
	guard     security.SSRFGuardService
	history   repository.LookupHistoryRepository // nil許容（履歴無効）
	logger    *slog.Logger
	cfg       Config
}

// NewService はServiceの新しいインスタンスを生成する。
// historyはnilを許容し、その場合は履歴の記録と参照が無効になる。
func NewService(
	source PlatformSource,
	alts AltEngine,
	matcher ServerMatcher,
	sanitizer security.TextSanitizerService,
	guard security.SSRFGuardService,
	history repository.LookupHistoryRepository,
	logger *slog.Logger,
	cfg Config,
) *Service {
	def := DefaultConfig()
	if cfg.FriendsLimit <= 0 {
		cfg.FriendsLimit = def.FriendsLimit
	}
	if cfg.ServerPageLimit <= 0 {
		cfg.ServerPageLimit = def.ServerPageLimit
	}
	return &Service{
		source:    source,
		alts:      alts,
		matcher:   matcher,
		sanitizer: sanitizer,
		guard:     guard,
		history:   history,
		logger:    logger,
		cfg:       cfg,
	}
}

// LookupProfile はユーザー名からプロフィールレポートを生成する。
// 対象ユーザーの解決とプロフィール取得のみが必須であり、その他の
// フィールド（カウント、グループ、ゲーム、プレゼンス、アバター）は
// ベストエフォートで埋められる。取得できなかったフィールドはゼロ値の
// まま残り、レポート全体は失敗しない。
func (s *Service) LookupProfile(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
	userID, err := s.source.ResolveUserID(ctx, username)
	if err != nil {
		s.logger.Error("ユーザー名の解決に失敗しました",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError()
	}
	if userID == 0 {
		return nil, model.NewUserNotFoundError(username)
	}

	report, err := s.buildReport(ctx, userID)
	if err != nil {
		return nil, err
	}

	if includeAlts {
		report.AltScores = s.correlateAlts(ctx, &report.Profile)
	}

	s.recordHistory(ctx, model.LookupRecord{
		Kind:        model.LookupKindProfile,
		Username:    report.Profile.Username,
		UserID:      userID,
		Outcome:     "found",
		AltReported: len(report.AltScores),
	})

	return report, nil
}

// LookupProfileByID はユーザーIDからプロフィールレポートを生成する。
func (s *Service) LookupProfileByID(ctx context.Context, userID int64) (*model.ProfileReport, error) {
	report, err := s.buildReport(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, model.LookupRecord{
		Kind:     model.LookupKindProfile,
		Username: report.Profile.Username,
		UserID:   userID,
		Outcome:  "found",
	})

	return report, nil
}

// DetectAlts は対象ユーザーのalt疑惑ランキングを返す。
// 対象ユーザー自身のプロフィール取得のみが必須であり、個々の候補の
// 失敗は結果に影響しない。
func (s *Service) DetectAlts(ctx context.Context, userID int64) ([]model.AltScore, error) {
	profile, err := s.fetchTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	scores := s.correlateAlts(ctx, profile)

	s.recordHistory(ctx, model.LookupRecord{
		Kind:        model.LookupKindAltScan,
		Username:    profile.Username,
		UserID:      userID,
		Outcome:     "completed",
		AltReported: len(scores),
	})

	return scores, nil
}

// SearchServers は対象ユーザーの参加サーバーを特定する。
// 公開サーバーリストの取得失敗のみが致命的であり、個々のサーバーの
// 判定失敗は不一致として扱われる。
func (s *Service) SearchServers(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
	profile, err := s.fetchTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	servers, err := s.source.GetPublicServers(ctx, universeID, s.cfg.ServerPageLimit)
	if err != nil {
		s.logger.Error("公開サーバーリストの取得に失敗しました",
			slog.Int64("universe_id", universeID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError()
	}

	result := s.matcher.Locate(ctx, userID, universeID, servers)

	s.recordHistory(ctx, model.LookupRecord{
		Kind:       model.LookupKindServerSearch,
		Username:   profile.Username,
		UserID:     userID,
		UniverseID: universeID,
		Outcome:    result.Kind.String(),
	})

	return &result, nil
}

// RecentLookups は直近のルックアップ履歴を返す。
// 履歴リポジトリが構成されていない場合はHISTORY_UNAVAILABLEを返す。
func (s *Service) RecentLookups(ctx context.Context, limit int) ([]model.LookupRecord, error) {
	if s.history == nil {
		return nil, model.NewHistoryUnavailableError()
	}
	records, err := s.history.RecentLookups(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("履歴の取得に失敗しました: %w", err)
	}
	return records, nil
}

// fetchTarget は対象ユーザーのプロフィールを取得する。
// 対象ユーザーが存在しない場合のみUSER_NOT_FOUNDを返す。
func (s *Service) fetchTarget(ctx context.Context, userID int64) (*model.UserProfile, error) {
	profile, err := s.source.GetUserProfile(ctx, userID)
	if err != nil {
		s.logger.Error("対象プロフィールの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamUnavailableError()
	}
	if profile == nil {
		return nil, model.NewUserNotFoundError(strconv.FormatInt(userID, 10))
	}
	profile.Description = s.sanitizer.Sanitize(profile.Description)
	profile.DisplayName = s.sanitizer.Sanitize(profile.DisplayName)
	return profile, nil
}

// buildReport は対象ユーザーのレポートを組み立てる。
func (s *Service) buildReport(ctx context.Context, userID int64) (*model.ProfileReport, error) {
	profile, err := s.fetchTarget(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &model.ProfileReport{
		Profile:    *profile,
		ProfileURL: fmt.Sprintf("https://www.roblox.com/users/%d/profile", userID),
	}

	// 以降のフィールドはすべてベストエフォート。失敗したフィールドは
	// ゼロ値のまま残す。
	report.FriendsCount = s.bestEffortCount(ctx, userID, "friends", s.source.GetFriendsCount)
	report.FollowersCount = s.bestEffortCount(ctx, userID, "followers", s.source.GetFollowersCount)
	report.FollowingsCount = s.bestEffortCount(ctx, userID, "followings", s.source.GetFollowingsCount)
	report.BadgesCount = s.bestEffortCount(ctx, userID, "badges", s.source.GetBadgesCount)

	if roles, err := s.source.GetGroupRoles(ctx, userID); err != nil {
		s.logger.Warn("グループ情報の取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		report.GroupsCount = len(roles)
		report.OwnedGroups = roblox.OwnedGroups(roles)
	}

	if games, err := s.source.GetOwnedGames(ctx, userID); err != nil {
		s.logger.Warn("保有ゲーム情報の取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else {
		report.OwnedGames = games
	}

	if avatarURL, err := s.source.GetAvatarURL(ctx, userID); err != nil {
		s.logger.Warn("アバターURLの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if avatarURL != "" {
		// ペイロード由来のURLは信頼できない。検証に失敗したURLは
		// レポートに含めない。
		if err := s.guard.ValidateURL(avatarURL); err != nil {
			s.logger.Warn("アバターURLの検証に失敗したため除外します",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		} else {
			report.AvatarURL = avatarURL
		}
	}

	if presence, err := s.source.GetPresence(ctx, userID); err != nil {
		s.logger.Warn("プレゼンスの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	} else if presence != nil {
		report.Presence = presence
		report.CurrentGame = s.resolveGameName(ctx, presence)
	}

	return report, nil
}

// bestEffortCount はカウント系フィールドを取得する。失敗は0として扱う。
func (s *Service) bestEffortCount(ctx context.Context, userID int64, field string, fetch func(context.Context, int64) (int, error)) int {
	count, err := fetch(ctx, userID)
	if err != nil {
		s.logger.Warn("カウントの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("field", field),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return count
}

// correlateAlts はフレンドリストを取得しalt判定を実行する。
// フレンドリストの取得失敗は空の結果として扱う。
func (s *Service) correlateAlts(ctx context.Context, target *model.UserProfile) []model.AltScore {
	friends, err := s.source.GetFriends(ctx, target.ID, s.cfg.FriendsLimit)
	if err != nil {
		s.logger.Warn("フレンドリストの取得に失敗したためalt判定をスキップします",
			slog.Int64("user_id", target.ID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return s.alts.Correlate(ctx, target, friends)
}

// resolveGameName はプレゼンスから現在プレイ中のゲーム名を解決する。
// LastLocationがあればそれを優先し、なければユニバースIDから取得する。
func (s *Service) resolveGameName(ctx context.Context, presence *model.PresenceRecord) string {
	if presence.Type != model.PresenceInGame && presence.Type != model.PresenceInStudio {
		return ""
	}
	if presence.LastLocation != "" {
		return s.sanitizer.Sanitize(presence.LastLocation)
	}
	if presence.UniverseID == 0 {
		return ""
	}
	game, err := s.source.GetGameByUniverseID(ctx, presence.UniverseID)
	if err != nil || game == nil {
		return ""
	}
	return game.Name
}

// recordHistory はルックアップ履歴をベストエフォートで保存する。
// 保存失敗はログに記録するのみで呼び出し元には伝播しない。
func (s *Service) recordHistory(ctx context.Context, record model.LookupRecord) {
	if s.history == nil {
		return
	}
	record.CreatedAt = time.Now()
	if err := s.history.RecordLookup(ctx, record); err != nil {
		s.logger.Warn("ルックアップ履歴の保存に失敗しました",
			slog.String("kind", string(record.Kind)),
			slog.String("error", err.Error()),
		)
	}
}
