package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/altscope/internal/model"
)

// mockLookupService はLookupServiceのモック実装。
type mockLookupService struct {
	lookupProfileFn func(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error)
	searchServersFn func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error)
}

func (m *mockLookupService) LookupProfile(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
	if m.lookupProfileFn != nil {
		return m.lookupProfileFn(ctx, username, includeAlts)
	}
	return &model.ProfileReport{Profile: model.UserProfile{ID: 42, Username: username}}, nil
}

func (m *mockLookupService) SearchServers(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
	if m.searchServersFn != nil {
		return m.searchServersFn(ctx, userID, universeID)
	}
	return &model.MatchResult{Kind: model.MatchNotPresent}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitForTerminal はジョブが終了状態になるまでポーリングする。
func waitForTerminal(t *testing.T, runner *Runner, scanID string) *Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job := runner.Get(scanID)
		if job != nil && (job.Status == StatusCompleted || job.Status == StatusFailed) {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach terminal state", scanID)
	return nil
}

// TestRunner_EnqueueAndComplete はジョブの登録から完了までの流れを検証する。
func TestRunner_EnqueueAndComplete(t *testing.T) {
	service := &mockLookupService{
		lookupProfileFn: func(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
			if !includeAlts {
				t.Error("includeAlts = false, want true")
			}
			return &model.ProfileReport{Profile: model.UserProfile{ID: 42, Username: username}}, nil
		},
		searchServersFn: func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
			if userID != 42 {
				t.Errorf("user ID = %d, want 42", userID)
			}
			if universeID != 99 {
				t.Errorf("universe ID = %d, want 99", universeID)
			}
			return &model.MatchResult{Kind: model.MatchFound}, nil
		},
	}
	runner := NewRunner(service, testLogger(), 2, 8, time.Minute)

	job, err := runner.Enqueue(Request{Username: "CoolDude42", UniverseID: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == "" {
		t.Error("job ID is empty, want UUID")
	}
	if job.Status != StatusPending {
		t.Errorf("initial status = %s, want %s", job.Status, StatusPending)
	}

	done := waitForTerminal(t, runner, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", done.Status, StatusCompleted)
	}
	if done.Report == nil || done.Report.Profile.Username != "CoolDude42" {
		t.Errorf("report = %+v, want profile for CoolDude42", done.Report)
	}
	if done.Match == nil || done.Match.Kind != model.MatchFound {
		t.Errorf("match = %+v, want MatchFound", done.Match)
	}
	if done.FinishedAt.IsZero() {
		t.Error("FinishedAt is zero, want set")
	}
}

// TestRunner_SkipsServerSearchWithoutUniverse はUniverseID未指定時に
// サーバー検索を省略することを検証する。
func TestRunner_SkipsServerSearchWithoutUniverse(t *testing.T) {
	service := &mockLookupService{
		searchServersFn: func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
			t.Error("SearchServers called, want skipped")
			return nil, nil
		},
	}
	runner := NewRunner(service, testLogger(), 2, 8, time.Minute)

	job, err := runner.Enqueue(Request{Username: "CoolDude42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := waitForTerminal(t, runner, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", done.Status, StatusCompleted)
	}
	if done.Match != nil {
		t.Errorf("match = %+v, want nil", done.Match)
	}
}

// TestRunner_LookupFailure はルックアップ失敗時のエラー記録を検証する。
func TestRunner_LookupFailure(t *testing.T) {
	t.Run("APIエラーはそのまま記録される", func(t *testing.T) {
		service := &mockLookupService{
			lookupProfileFn: func(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
				return nil, model.NewUserNotFoundError(username)
			},
		}
		runner := NewRunner(service, testLogger(), 2, 8, time.Minute)

		job, err := runner.Enqueue(Request{Username: "UnknownUser"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := waitForTerminal(t, runner, job.ID)
		if done.Status != StatusFailed {
			t.Fatalf("status = %s, want %s", done.Status, StatusFailed)
		}
		if done.Error == nil || done.Error.Code != model.ErrCodeUserNotFound {
			t.Errorf("error = %+v, want %s", done.Error, model.ErrCodeUserNotFound)
		}
	})

	t.Run("未知のエラーはUPSTREAM_UNAVAILABLEに変換される", func(t *testing.T) {
		service := &mockLookupService{
			lookupProfileFn: func(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
				return nil, fmt.Errorf("unexpected failure")
			},
		}
		runner := NewRunner(service, testLogger(), 2, 8, time.Minute)

		job, err := runner.Enqueue(Request{Username: "CoolDude42"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := waitForTerminal(t, runner, job.ID)
		if done.Status != StatusFailed {
			t.Fatalf("status = %s, want %s", done.Status, StatusFailed)
		}
		if done.Error == nil || done.Error.Code != model.ErrCodeUpstreamUnavailable {
			t.Errorf("error = %+v, want %s", done.Error, model.ErrCodeUpstreamUnavailable)
		}
	})
}

// TestRunner_ServerSearchFailureIsNonFatal はサーバー検索の失敗が
// ジョブ全体を失敗させず、レポートのみの完了になることを検証する。
func TestRunner_ServerSearchFailureIsNonFatal(t *testing.T) {
	service := &mockLookupService{
		searchServersFn: func(ctx context.Context, userID, universeID int64) (*model.MatchResult, error) {
			return nil, model.NewUpstreamUnavailableError()
		},
	}
	runner := NewRunner(service, testLogger(), 2, 8, time.Minute)

	job, err := runner.Enqueue(Request{Username: "CoolDude42", UniverseID: 99})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done := waitForTerminal(t, runner, job.ID)
	if done.Status != StatusCompleted {
		t.Fatalf("status = %s, want %s", done.Status, StatusCompleted)
	}
	if done.Report == nil {
		t.Error("report is nil, want set")
	}
	if done.Match != nil {
		t.Errorf("match = %+v, want nil", done.Match)
	}
}

// TestRunner_QueueLimit は未完了ジョブ数の上限でSCAN_QUEUE_FULLを
// 返すことを検証する。
func TestRunner_QueueLimit(t *testing.T) {
	release := make(chan struct{})
	service := &mockLookupService{
		lookupProfileFn: func(ctx context.Context, username string, includeAlts bool) (*model.ProfileReport, error) {
			<-release
			return &model.ProfileReport{Profile: model.UserProfile{ID: 42, Username: username}}, nil
		},
	}
	runner := NewRunner(service, testLogger(), 1, 1, time.Minute)

	first, err := runner.Enqueue(Request{Username: "CoolDude42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = runner.Enqueue(Request{Username: "CoolDude43"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeScanQueueFull {
		t.Errorf("error code = %s, want %s", apiErr.Code, model.ErrCodeScanQueueFull)
	}

	close(release)
	waitForTerminal(t, runner, first.ID)

	// 先行ジョブの完了後は再び受け付けられる。
	if _, err := runner.Enqueue(Request{Username: "CoolDude44"}); err != nil {
		t.Errorf("unexpected error after completion: %v", err)
	}
}

// TestRunner_GetUnknownJob は存在しないジョブIDでnilを返すことを検証する。
func TestRunner_GetUnknownJob(t *testing.T) {
	runner := NewRunner(&mockLookupService{}, testLogger(), 2, 8, time.Minute)

	if got := runner.Get("no-such-id"); got != nil {
		t.Errorf("job = %+v, want nil", got)
	}
}

// TestRunner_GetReturnsSnapshot はGetが内部状態のコピーを返すことを検証する。
func TestRunner_GetReturnsSnapshot(t *testing.T) {
	runner := NewRunner(&mockLookupService{}, testLogger(), 2, 8, time.Minute)

	job, err := runner.Enqueue(Request{Username: "CoolDude42"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitForTerminal(t, runner, job.ID)

	snapshot := runner.Get(job.ID)
	snapshot.Status = StatusFailed

	if got := runner.Get(job.ID); got.Status != StatusCompleted {
		t.Errorf("status after snapshot mutation = %s, want %s", got.Status, StatusCompleted)
	}
}

// TestRunner_RemoveExpired はTTL経過ジョブの削除を検証する。
func TestRunner_RemoveExpired(t *testing.T) {
	runner := NewRunner(&mockLookupService{}, testLogger(), 2, 8, 10*time.Minute)
	now := time.Now()

	runner.jobs["old-completed"] = &Job{ID: "old-completed", Status: StatusCompleted, FinishedAt: now.Add(-20 * time.Minute)}
	runner.jobs["old-failed"] = &Job{ID: "old-failed", Status: StatusFailed, FinishedAt: now.Add(-15 * time.Minute)}
	runner.jobs["fresh"] = &Job{ID: "fresh", Status: StatusCompleted, FinishedAt: now.Add(-5 * time.Minute)}
	runner.jobs["running"] = &Job{ID: "running", Status: StatusRunning}

	runner.removeExpired(now)

	if got := runner.Get("old-completed"); got != nil {
		t.Errorf("old-completed = %+v, want removed", got)
	}
	if got := runner.Get("old-failed"); got != nil {
		t.Errorf("old-failed = %+v, want removed", got)
	}
	if got := runner.Get("fresh"); got == nil {
		t.Error("fresh job removed, want kept")
	}
	if got := runner.Get("running"); got == nil {
		t.Error("running job removed, want kept")
	}
}
