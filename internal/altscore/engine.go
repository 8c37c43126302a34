package altscore

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/altscope/internal/model"
)

// CandidateSource はスコアリングに必要な候補ごとのフェッチインターフェース。
// カウント系の取得失敗はデフォルト0として扱われる。
type CandidateSource interface {
	GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error)
	GetFriendsCount(ctx context.Context, userID int64) (int, error)
	GetBadgesCount(ctx context.Context, userID int64) (int, error)
}

// MetricsRecorder はスコアリングのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordAltScan()
	RecordCandidateScored()
	RecordCandidateSkipped()
}

// Config はエンジンの動作パラメータを保持する。
type Config struct {
	// SampleLimit は分析対象とするフレンドの上限（リスト先頭から）。
	SampleLimit int
	// ScoreThreshold は結果に含める最小スコア。
	ScoreThreshold int
	// MaxResults は結果リストの最大件数。
	MaxResults int
	// Concurrency は候補ごとのフェッチ並列数。
	Concurrency int
}

// DefaultConfig はエンジンの既定パラメータを返す。
func DefaultConfig() Config {
	return Config{
		SampleLimit:    50,
		ScoreThreshold: 4,
		MaxResults:     10,
		Concurrency:    4,
	}
}

// Engine はalt判定のスコアリングエンジン。
// 呼び出しごとに結果を生成して返し、呼び出し間で状態を持たない。
type Engine struct {
	source  CandidateSource
	logger  *slog.Logger
	metrics MetricsRecorder // nil許容
	cfg     Config
}

// NewEngine はEngineの新しいインスタンスを生成する。
// cfgのゼロ値フィールドはDefaultConfigの値で補完される。
func NewEngine(source CandidateSource, logger *slog.Logger, metrics MetricsRecorder, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = def.SampleLimit
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = def.ScoreThreshold
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = def.MaxResults
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	return &Engine{
		source:  source,
		logger:  logger,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Correlate は対象ユーザーとフレンド候補リストからalt疑惑ランキングを生成する。
// 返り値はスコア降順（同点はフレンドリスト順を保持）で最大MaxResults件。
// alt判定は補助的な機能であり、この関数はエラーを返さない。
// 個々の候補のフェッチ失敗はその候補のスキップとして扱われ、
// 他の候補の判定を妨げない。
//
// 候補ごとのフェッチはsemaphoreパターンで並列化されるが、
// ソートと件数の切り詰めはすべてのフェッチ結果が確定してから行う。
// コンテキストのキャンセルは候補の境界（次のフェッチ開始前）で確認される。
func (e *Engine) Correlate(ctx context.Context, target *model.UserProfile, friends []model.FriendCandidate) []model.AltScore {
	if target == nil || len(friends) == 0 {
		return nil
	}

	if e.metrics != nil {
		e.metrics.RecordAltScan()
	}

	sample := friends
	if len(sample) > e.cfg.SampleLimit {
		sample = sample[:e.cfg.SampleLimit]
	}

	// resultsは候補のインデックスで固定し、並列実行でも元の順序を保つ。
	results := make([]*model.AltScore, len(sample))
	sem := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup

	for i, candidate := range sample {
		// キャンセルは次の候補のフェッチを開始する前に確認する。
		if ctx.Err() != nil {
			e.logger.Info("alt判定がキャンセルされました",
				slog.Int64("target_id", target.ID),
				slog.Int("dispatched", i),
			)
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, candidate model.FriendCandidate) {
			defer wg.Done()
			defer func() { <-sem }()

			if score, ok := e.scoreCandidate(ctx, target, candidate); ok {
				results[idx] = &score
			}
		}(i, candidate)
	}

	wg.Wait()

	// 集約はすべての候補の成否が確定した後に1回だけ行う。
	scored := make([]model.AltScore, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.Score < e.cfg.ScoreThreshold {
			continue
		}
		scored = append(scored, *r)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > e.cfg.MaxResults {
		scored = scored[:e.cfg.MaxResults]
	}

	e.logger.Info("alt判定が完了しました",
		slog.Int64("target_id", target.ID),
		slog.Int("candidates", len(sample)),
		slog.Int("reported", len(scored)),
	)

	return scored
}

// scoreCandidate は候補1件のデータを取得しヒューリスティックを判定順に
// 評価する。プロフィール取得に失敗した候補はスキップされ(false)、
// カウント系の取得失敗は0として評価を継続する。
func (e *Engine) scoreCandidate(ctx context.Context, target *model.UserProfile, candidate model.FriendCandidate) (model.AltScore, bool) {
	// 自己参照の除外。プロバイダ境界でも除外されるが、コアの不変条件
	// としてここでも保証する。
	if candidate.ID == target.ID {
		return model.AltScore{}, false
	}

	profile, err := e.source.GetUserProfile(ctx, candidate.ID)
	if err != nil || profile == nil {
		if e.metrics != nil {
			e.metrics.RecordCandidateSkipped()
		}
		e.logger.Warn("候補プロフィールの取得に失敗したためスキップします",
			slog.Int64("candidate_id", candidate.ID),
		)
		return model.AltScore{}, false
	}
	if profile.Username == "" {
		profile.Username = candidate.Username
	}

	friendsCount, err := e.source.GetFriendsCount(ctx, candidate.ID)
	if err != nil {
		friendsCount = 0
	}
	badgesCount, err := e.source.GetBadgesCount(ctx, candidate.ID)
	if err != nil {
		badgesCount = 0
	}

	facts := candidateFacts{
		profile:      profile,
		friendsCount: friendsCount,
		badgesCount:  badgesCount,
	}

	score := model.AltScore{
		Candidate: model.FriendCandidate{ID: candidate.ID, Username: profile.Username},
	}
	for _, h := range heuristics {
		triggered, reason := h.evaluate(target, facts)
		if !triggered {
			continue
		}
		score.Score += h.weight
		score.Reasons = append(score.Reasons, reason)
	}

	if e.metrics != nil {
		e.metrics.RecordCandidateScored()
	}

	return score, true
}
