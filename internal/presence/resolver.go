// Package presence はユーザーのオンライン状態から特定ゲームへの
// 在席を判定するリゾルバを提供する。
package presence

import (
	"context"
	"log/slog"

	"github.com/hitoshi/altscope/internal/model"
)

// PresenceSource はプレゼンス情報のフェッチインターフェース。
type PresenceSource interface {
	GetPresence(ctx context.Context, userID int64) (*model.PresenceRecord, error)
}

// Resolver はプレゼンス情報を取得し特定ユニバースへの在席を判定する。
type Resolver struct {
	source PresenceSource
	logger *slog.Logger
}

// NewResolver はResolverの新しいインスタンスを生成する。
func NewResolver(source PresenceSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve はユーザーの現在のプレゼンスを返す。
// プレゼンスが取得できない場合は(nil, nil)を返す。
func (r *Resolver) Resolve(ctx context.Context, userID int64) (*model.PresenceRecord, error) {
	record, err := r.source.GetPresence(ctx, userID)
	if err != nil {
		r.logger.Warn("プレゼンスの取得に失敗しました",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return record, nil
}

// InUniverse はユーザーが指定ユニバースでゲーム中かどうかを判定する。
// プレゼンス取得の失敗、オフライン、別ユニバース在席のいずれも
// (nil, false)として扱う。trueのときのみレコードを返す。
func (r *Resolver) InUniverse(ctx context.Context, userID, universeID int64) (*model.PresenceRecord, bool) {
	record, err := r.Resolve(ctx, userID)
	if err != nil || record == nil {
		return nil, false
	}
	if record.Type != model.PresenceInGame {
		return nil, false
	}
	// UniverseIDが0のレコードは参加先非公開とみなし在席不明として扱う。
	if record.UniverseID == 0 || record.UniverseID != universeID {
		return nil, false
	}
	return record, true
}
