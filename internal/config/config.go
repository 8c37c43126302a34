// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string

	// Database（未設定の場合、ルックアップ履歴は無効になる）
	DatabaseURL string

	// Upstream（プラットフォームAPIへのアウトバウンド呼び出し）
	UpstreamTimeout     time.Duration // プロフィール等の主要フェッチ
	UpstreamAuxTimeout  time.Duration // カウント・ロースター等の補助フェッチ
	UpstreamListTimeout time.Duration // フレンドリスト・サーバーリスト
	UpstreamRate        float64       // 秒あたりのリクエスト数
	UpstreamBurst       int

	// Alt判定
	AltSampleLimit      int // 分析対象フレンドの上限
	AltScoreThreshold   int // 報告対象となる最小スコア
	AltMaxResults       int // 結果リストの最大件数
	AltFetchConcurrency int // 候補ごとのフェッチ並列数

	// サーバー検索
	ServerPageLimit      int // 公開サーバーの取得上限
	ServerShortlistLimit int // 確定不能時に提示する候補サーバー数

	// スキャンジョブ
	ScanQueueLimit int
	ScanTTL        time.Duration

	// Rate Limit（自APIへのインバウンド、req/min単位）
	RateLimitGeneral int
	RateLimitScan    int

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// すべての項目にデフォルト値があり、不正な値のみエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:  getEnvString("SERVER_PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		UpstreamTimeout:     getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		UpstreamAuxTimeout:  getEnvDuration("UPSTREAM_AUX_TIMEOUT", 5*time.Second),
		UpstreamListTimeout: getEnvDuration("UPSTREAM_LIST_TIMEOUT", 15*time.Second),
		UpstreamRate:        getEnvFloat("UPSTREAM_RATE", 8.0),
		UpstreamBurst:       getEnvInt("UPSTREAM_BURST", 16),

		AltSampleLimit:      getEnvInt("ALT_SAMPLE_LIMIT", 50),
		AltScoreThreshold:   getEnvInt("ALT_SCORE_THRESHOLD", 4),
		AltMaxResults:       getEnvInt("ALT_MAX_RESULTS", 10),
		AltFetchConcurrency: getEnvInt("ALT_FETCH_CONCURRENCY", 4),

		ServerPageLimit:      getEnvInt("SERVER_PAGE_LIMIT", 100),
		ServerShortlistLimit: getEnvInt("SERVER_SHORTLIST_LIMIT", 10),

		ScanQueueLimit: getEnvInt("SCAN_QUEUE_LIMIT", 8),
		ScanTTL:        getEnvDuration("SCAN_TTL", 30*time.Minute),

		RateLimitGeneral: getEnvInt("RATE_LIMIT_GENERAL", 120),
		RateLimitScan:    getEnvInt("RATE_LIMIT_SCAN", 10),

		CORSAllowedOrigin: getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は設定値の整合性を検証する。
func (c *Config) validate() error {
	if c.AltSampleLimit <= 0 {
		return fmt.Errorf("ALT_SAMPLE_LIMIT must be positive: %d", c.AltSampleLimit)
	}
	if c.AltScoreThreshold <= 0 {
		return fmt.Errorf("ALT_SCORE_THRESHOLD must be positive: %d", c.AltScoreThreshold)
	}
	if c.AltMaxResults <= 0 {
		return fmt.Errorf("ALT_MAX_RESULTS must be positive: %d", c.AltMaxResults)
	}
	if c.AltFetchConcurrency <= 0 {
		return fmt.Errorf("ALT_FETCH_CONCURRENCY must be positive: %d", c.AltFetchConcurrency)
	}
	if c.ServerPageLimit <= 0 || c.ServerPageLimit > 100 {
		return fmt.Errorf("SERVER_PAGE_LIMIT must be in range 1-100: %d", c.ServerPageLimit)
	}
	if c.ServerShortlistLimit <= 0 {
		return fmt.Errorf("SERVER_SHORTLIST_LIMIT must be positive: %d", c.ServerShortlistLimit)
	}
	if c.UpstreamRate <= 0 {
		return fmt.Errorf("UPSTREAM_RATE must be positive: %f", c.UpstreamRate)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
