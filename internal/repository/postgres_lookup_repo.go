package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hitoshi/altscope/internal/model"
)

// PostgresLookupRepo はPostgreSQLを使用したルックアップ履歴リポジトリ。
type PostgresLookupRepo struct {
	db *sql.DB
}

// NewPostgresLookupRepo はPostgresLookupRepoを生成する。
func NewPostgresLookupRepo(db *sql.DB) *PostgresLookupRepo {
	return &PostgresLookupRepo{db: db}
}

// RecordLookup はルックアップ履歴を1件保存する。
// IDが空の場合はUUIDを採番する。
func (r *PostgresLookupRepo) RecordLookup(ctx context.Context, record model.LookupRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lookups (id, kind, username, user_id, universe_id, outcome, alt_reported, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, string(record.Kind), record.Username, record.UserID,
		record.UniverseID, record.Outcome, record.AltReported, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert lookup record: %w", err)
	}

	return nil
}

// RecentLookups は直近のルックアップ履歴を新しい順に最大limit件返す。
func (r *PostgresLookupRepo) RecentLookups(ctx context.Context, limit int) ([]model.LookupRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, username, user_id, universe_id, outcome, alt_reported, created_at
		 FROM lookups
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup records: %w", err)
	}
	defer rows.Close()

	var records []model.LookupRecord
	for rows.Next() {
		var record model.LookupRecord
		var kind string
		if err := rows.Scan(
			&record.ID, &kind, &record.Username, &record.UserID,
			&record.UniverseID, &record.Outcome, &record.AltReported, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lookup record: %w", err)
		}
		record.Kind = model.LookupKind(kind)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lookup records: %w", err)
	}

	return records, nil
}
