// Package roblox はプラットフォームAPIへの読み取り専用データプロバイダを提供する。
// ユーザー・フレンド・バッジ・グループ・ゲーム・プレゼンス・サムネイルの
// 各ホストへの型付きアクセサと、ペイロードの正規化アダプタを含む。
//
// すべてのアクセサは「型付きペイロード」または「明示的なabsent」
// （ゼロ値とnilエラー）を返し、通常のnot-found条件でエラーを返さない。
// 単発のフェッチ失敗はリトライせず、そのフェッチ限りで確定する。
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Endpoints はプラットフォームAPIの各ホストのベースURLを保持する。
// テスト用にhttptestサーバーのURLへ差し替え可能。
type Endpoints struct {
	Users      string
	Friends    string
	Badges     string
	Groups     string
	Games      string
	Presence   string
	Thumbnails string
}

// DefaultEndpoints は本番のプラットフォームAPIホストを返す。
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Users:      "https://users.roblox.com",
		Friends:    "https://friends.roblox.com",
		Badges:     "https://badges.roblox.com",
		Groups:     "https://groups.roblox.com",
		Games:      "https://games.roblox.com",
		Presence:   "https://presence.roblox.com",
		Thumbnails: "https://thumbnails.roblox.com",
	}
}

// Timeouts はフェッチ種別ごとのタイムアウトを保持する。
// 呼び出しの重要度に応じて使い分ける（プロフィール本体 > リスト > 補助）。
type Timeouts struct {
	Primary time.Duration // プロフィール本体等の主要フェッチ
	Aux     time.Duration // カウント・ロースター等の補助フェッチ
	List    time.Duration // フレンドリスト・サーバーリスト
}

// DefaultTimeouts は既定のタイムアウトを返す。
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Primary: 10 * time.Second,
		Aux:     5 * time.Second,
		List:    15 * time.Second,
	}
}

// MetricsRecorder はアップストリーム呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordUpstreamRequest(host string, outcome string)
	RecordUpstreamLatency(duration time.Duration)
}

// ClientConfig はClientの構成を保持する。ゼロ値はデフォルトで補完される。
type ClientConfig struct {
	Endpoints Endpoints
	Timeouts  Timeouts
	// Metrics はnil許容。nilの場合メトリクスは記録されない。
	Metrics MetricsRecorder
}

// Client はプラットフォームAPIのクライアント。
// アウトバウンド呼び出しはレートリミッタで平滑化される。
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	endpoints  Endpoints
	timeouts   Timeouts
	metrics    MetricsRecorder
}

// NewClient はClientの新しいインスタンスを生成する。
// limiterがnilの場合、レート制限なしで動作する。
func NewClient(httpClient *http.Client, limiter *rate.Limiter, logger *slog.Logger, cfg ClientConfig) *Client {
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	return &Client{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
		endpoints:  cfg.Endpoints,
		timeouts:   cfg.Timeouts,
		metrics:    cfg.Metrics,
	}
}

// errNotFound はアップストリームが404を返したことを表す内部センチネル。
// 呼び出し側でabsent（ゼロ値とnilエラー）に変換される。
var errNotFound = fmt.Errorf("upstream returned 404")

// getJSON はGETリクエストを実行してレスポンスJSONをoutにデコードする。
func (c *Client) getJSON(ctx context.Context, timeout time.Duration, rawURL string, out any) error {
	return c.doJSON(ctx, timeout, http.MethodGet, rawURL, nil, out)
}

// postJSON はJSONボディ付きPOSTリクエストを実行してレスポンスをoutにデコードする。
func (c *Client) postJSON(ctx context.Context, timeout time.Duration, rawURL string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}
	return c.doJSON(ctx, timeout, http.MethodPost, rawURL, body, out)
}

// doJSON はレート制限・タイムアウト・メトリクス記録を含むHTTP呼び出しの共通処理。
func (c *Client) doJSON(ctx context.Context, timeout time.Duration, method, rawURL string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("レートリミッタの待機に失敗しました: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "Altscope/1.0 Profile Lookup")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	host := hostOf(rawURL)
	if err != nil {
		c.recordRequest(host, "error", duration)
		c.logger.Warn("プラットフォームAPIの呼び出しに失敗しました",
			slog.String("host", host),
			slog.String("method", method),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.recordRequest(host, "not_found", duration)
		return errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.recordRequest(host, fmt.Sprintf("status_%d", resp.StatusCode), duration)
		c.logger.Warn("プラットフォームAPIがエラーステータスを返しました",
			slog.String("host", host),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("プラットフォームAPIがステータス %d を返しました", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordRequest(host, "read_error", duration)
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		c.recordRequest(host, "parse_error", duration)
		c.logger.Warn("プラットフォームAPIのレスポンスのパースに失敗しました",
			slog.String("host", host),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	c.recordRequest(host, "ok", duration)
	return nil
}

// recordRequest はメトリクスコレクタが設定されている場合のみ記録する。
func (c *Client) recordRequest(host, outcome string, duration time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordUpstreamRequest(host, outcome)
	c.metrics.RecordUpstreamLatency(duration)
}

// hostOf はURLからホスト名を抽出する。パース失敗時は空文字列を返す。
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
