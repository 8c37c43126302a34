// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/altscope/internal/model"
)

// LookupHistoryRepository はルックアップ履歴の永続化インターフェース。
type LookupHistoryRepository interface {
	// RecordLookup はルックアップ履歴を1件保存する。
	// IDが空の場合は実装側で採番する。
	RecordLookup(ctx context.Context, record model.LookupRecord) error

	// RecentLookups は直近のルックアップ履歴を新しい順に最大limit件返す。
	RecentLookups(ctx context.Context, limit int) ([]model.LookupRecord, error)
}
