// Package scan は非同期のフルスキャンジョブを提供する。
// プロフィールルックアップ、alt判定、サーバー検索を1ジョブとして
// バックグラウンドで実行し、結果を一定期間メモリに保持する。
package scan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/altscope/internal/model"
)

// Status はスキャンジョブの状態を表す。
type Status string

const (
	// StatusPending は実行待ちのジョブを表す。
	StatusPending Status = "pending"
	// StatusRunning は実行中のジョブを表す。
	StatusRunning Status = "running"
	// StatusCompleted は正常完了したジョブを表す。
	StatusCompleted Status = "completed"
	// StatusFailed は失敗したジョブを表す。
	StatusFailed Status = "failed"
)

// Request はスキャンジョブの実行要求を表す。
type Request struct {
	Username   string
	UniverseID int64 // 0の場合はサーバー検索を省略する
}

// Job はスキャンジョブの状態と結果のスナップショット。
type Job struct {
	ID         string
	Status     Status
	Request    Request
	Report     *model.ProfileReport
	Match      *model.MatchResult
	Error      *model.APIError
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time
}

// LookupService はスキャンジョブが使用するルックアップ機能の
// インターフェース。
type LookupService interface {
	LookupProfile(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error)
	SearchServers(ctx context.Context, userID, universeID int64) (*model.MatchResult, error)
}

// Runner はスキャンジョブのキューイングと並列制御を行う。
// semaphoreパターンで最大並列数を制御し、完了ジョブはTTL経過後に
// 削除される。ジョブストアはインメモリであり、プロセス再起動で失われる。
type Runner struct {
	service        LookupService
	logger         *slog.Logger
	maxConcurrency int
	queueLimit     int
	ttl            time.Duration

	mu      sync.Mutex
	jobs    map[string]*Job
	sem     chan struct{}
	baseCtx context.Context
}

// NewRunner はRunnerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合は2、queueLimitが0以下の場合は8、
// ttlが0以下の場合は30分を使用する。
func NewRunner(service LookupService, logger *slog.Logger, maxConcurrency, queueLimit int, ttl time.Duration) *Runner {
	if maxConcurrency <= 0 {
		maxConcurrency = 2
	}
	if queueLimit <= 0 {
		queueLimit = 8
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Runner{
		service:        service,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		queueLimit:     queueLimit,
		ttl:            ttl,
		jobs:           make(map[string]*Job),
		sem:            make(chan struct{}, maxConcurrency),
		baseCtx:        context.Background(),
	}
}

// Start はTTL経過ジョブの削除ループを起動する。
// ジョブの実行コンテキストもここで受け取り、コンテキストが
// キャンセルされると以降のジョブ実行は中断される。
func (r *Runner) Start(ctx context.Context, cleanupInterval time.Duration) {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	r.logger.Info("スキャンランナーを開始しました",
		slog.Int("max_concurrency", r.maxConcurrency),
		slog.Int("queue_limit", r.queueLimit),
		slog.Duration("ttl", r.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("スキャンランナーを停止しました")
			return
		case <-ticker.C:
			r.removeExpired(time.Now())
		}
	}
}

// Enqueue はスキャンジョブを登録しバックグラウンド実行を開始する。
// 未完了（pending/running）のジョブ数がキュー上限に達している場合は
// SCAN_QUEUE_FULLを返す。
func (r *Runner) Enqueue(req Request) (*Job, error) {
	r.mu.Lock()

	inflight := 0
	for _, job := range r.jobs {
		if job.Status == StatusPending || job.Status == StatusRunning {
			inflight++
		}
	}
	if inflight >= r.queueLimit {
		r.mu.Unlock()
		return nil, model.NewScanQueueFullError()
	}

	job := &Job{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Request:   req,
		CreatedAt: time.Now(),
	}
	r.jobs[job.ID] = job
	ctx := r.baseCtx
	snapshot := *job
	r.mu.Unlock()

	r.logger.Info("スキャンジョブを登録しました",
		slog.String("scan_id", job.ID),
		slog.String("username", req.Username),
		slog.Int64("universe_id", req.UniverseID),
	)

	go r.run(ctx, job.ID)

	return &snapshot, nil
}

// Get は指定IDのジョブのスナップショットを返す。
// ジョブが存在しない（またはTTLで削除済みの）場合はnilを返す。
func (r *Runner) Get(scanID string) *Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[scanID]
	if !ok {
		return nil
	}
	snapshot := *job
	return &snapshot
}

// run は1ジョブを実行する。semaphore取得後にrunningへ遷移し、
// 完了時に結果またはエラーを記録する。
func (r *Runner) run(ctx context.Context, scanID string) {
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	if ctx.Err() != nil {
		r.finish(scanID, nil, nil, model.NewUpstreamUnavailableError())
		return
	}

	r.mu.Lock()
	job, ok := r.jobs[scanID]
	if !ok {
		r.mu.Unlock()
		return
	}
	job.Status = StatusRunning
	job.StartedAt = time.Now()
	req := job.Request
	r.mu.Unlock()

	report, err := r.service.LookupProfile(ctx, req.Username, true)
	if err != nil {
		apiErr, ok := err.(*model.APIError)
		if !ok {
			apiErr = model.NewUpstreamUnavailableError()
		}
		r.finish(scanID, nil, nil, apiErr)
		return
	}

	var match *model.MatchResult
	if req.UniverseID != 0 {
		match, err = r.service.SearchServers(ctx, report.Profile.ID, req.UniverseID)
		if err != nil {
			// サーバー検索の失敗はジョブ全体を失敗させず、
			// レポートのみの完了として扱う。
			r.logger.Warn("スキャンジョブのサーバー検索に失敗しました",
				slog.String("scan_id", scanID),
				slog.String("error", err.Error()),
			)
			match = nil
		}
	}

	r.finish(scanID, report, match, nil)
}

// finish はジョブの終了状態を記録する。
func (r *Runner) finish(scanID string, report *model.ProfileReport, match *model.MatchResult, apiErr *model.APIError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[scanID]
	if !ok {
		return
	}
	job.FinishedAt = time.Now()
	if apiErr != nil {
		job.Status = StatusFailed
		job.Error = apiErr
		r.logger.Warn("スキャンジョブが失敗しました",
			slog.String("scan_id", scanID),
			slog.String("code", apiErr.Code),
		)
		return
	}
	job.Status = StatusCompleted
	job.Report = report
	job.Match = match
	r.logger.Info("スキャンジョブが完了しました",
		slog.String("scan_id", scanID),
	)
}

// removeExpired は終了からTTLを経過したジョブを削除する。
func (r *Runner) removeExpired(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, job := range r.jobs {
		if job.Status != StatusCompleted && job.Status != StatusFailed {
			continue
		}
		if now.Sub(job.FinishedAt) > r.ttl {
			delete(r.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("期限切れのスキャンジョブを削除しました",
			slog.Int("removed", removed),
		)
	}
}
