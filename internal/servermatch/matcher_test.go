package servermatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/altscope/internal/model"
)

// --- モック ---

type mockRosterSource struct {
	getServerRosterFn func(ctx context.Context, serverID string, universeID int64) ([]string, error)
}

func (m *mockRosterSource) GetServerRoster(ctx context.Context, serverID string, universeID int64) ([]string, error) {
	if m.getServerRosterFn != nil {
		return m.getServerRosterFn(ctx, serverID, universeID)
	}
	return nil, nil
}

type mockPresenceChecker struct {
	inUniverseFn func(ctx context.Context, userID, universeID int64) (*model.PresenceRecord, bool)
}

func (m *mockPresenceChecker) InUniverse(ctx context.Context, userID, universeID int64) (*model.PresenceRecord, bool) {
	return m.inUniverseFn(ctx, userID, universeID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func presentChecker(universeID int64) *mockPresenceChecker {
	return &mockPresenceChecker{
		inUniverseFn: func(ctx context.Context, userID, uid int64) (*model.PresenceRecord, bool) {
			return &model.PresenceRecord{Type: model.PresenceInGame, UniverseID: universeID}, true
		},
	}
}

func absentChecker() *mockPresenceChecker {
	return &mockPresenceChecker{
		inUniverseFn: func(ctx context.Context, userID, universeID int64) (*model.PresenceRecord, bool) {
			return nil, false
		},
	}
}

// --- テスト ---

// TestMatcher_Locate_NotPresent はプレゼンス不一致時にサーバー走査を
// 省略してnot_presentを返すことを検証する。
func TestMatcher_Locate_NotPresent(t *testing.T) {
	rosterCalled := false
	rosters := &mockRosterSource{
		getServerRosterFn: func(ctx context.Context, serverID string, universeID int64) ([]string, error) {
			rosterCalled = true
			return nil, nil
		},
	}
	matcher := NewMatcher(absentChecker(), rosters, testLogger(), 0)

	servers := []model.GameServer{{ID: "s1", PlayerTokens: []string{"1"}}}
	result := matcher.Locate(context.Background(), 1, 100, servers)

	if result.Kind != model.MatchNotPresent {
		t.Errorf("Kind = %v, want MatchNotPresent", result.Kind)
	}
	if len(result.Servers) != 0 {
		t.Errorf("Servers has %d entries, want 0", len(result.Servers))
	}
	if rosterCalled {
		t.Error("roster was fetched for a not-present user")
	}
}

// TestMatcher_Locate_TokenMatch は数値トークンによる一致（戦略1）を検証する。
func TestMatcher_Locate_TokenMatch(t *testing.T) {
	matcher := NewMatcher(presentChecker(100), &mockRosterSource{}, testLogger(), 0)

	servers := []model.GameServer{
		{ID: "s1", PlayerTokens: []string{"opaque-token", "999"}},
		{ID: "s2", PlayerTokens: []string{"42"}},
	}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchFound {
		t.Fatalf("Kind = %v, want MatchFound", result.Kind)
	}
	if len(result.Servers) != 1 || result.Servers[0].ID != "s2" {
		t.Errorf("Servers = %+v, want [s2]", result.Servers)
	}
	if result.Presence == nil {
		t.Error("Presence is nil, want the in-game record")
	}
}

// TestMatcher_Locate_EmbeddedPlayerMatch は埋め込み参加者リストによる
// 一致（戦略2）を検証する。名簿取得は行わない。
func TestMatcher_Locate_EmbeddedPlayerMatch(t *testing.T) {
	rosterCalled := false
	rosters := &mockRosterSource{
		getServerRosterFn: func(ctx context.Context, serverID string, universeID int64) ([]string, error) {
			rosterCalled = true
			return nil, nil
		},
	}
	matcher := NewMatcher(presentChecker(100), rosters, testLogger(), 0)

	servers := []model.GameServer{
		{ID: "s1", Players: []model.ServerPlayer{{ID: 7, Username: "other"}}},
		{ID: "s2", Players: []model.ServerPlayer{{ID: 42, Username: "target"}}},
	}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchFound {
		t.Fatalf("Kind = %v, want MatchFound", result.Kind)
	}
	if len(result.Servers) != 1 || result.Servers[0].ID != "s2" {
		t.Errorf("Servers = %+v, want [s2]", result.Servers)
	}
	if rosterCalled {
		t.Error("roster was fetched although the player list was embedded")
	}
}

// TestMatcher_Locate_RosterMatch は個別名簿の取得による一致（戦略3）を検証する。
func TestMatcher_Locate_RosterMatch(t *testing.T) {
	rosters := &mockRosterSource{
		getServerRosterFn: func(ctx context.Context, serverID string, universeID int64) ([]string, error) {
			if serverID == "s2" {
				return []string{"opaque", "42"}, nil
			}
			return []string{"7"}, nil
		},
	}
	matcher := NewMatcher(presentChecker(100), rosters, testLogger(), 0)

	servers := []model.GameServer{{ID: "s1"}, {ID: "s2"}}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchFound {
		t.Fatalf("Kind = %v, want MatchFound", result.Kind)
	}
	if len(result.Servers) != 1 || result.Servers[0].ID != "s2" {
		t.Errorf("Servers = %+v, want [s2]", result.Servers)
	}
}

// TestMatcher_Locate_RosterFailureIsNoMatch は名簿取得の失敗がその
// サーバーの不一致として扱われ、走査が継続することを検証する。
func TestMatcher_Locate_RosterFailureIsNoMatch(t *testing.T) {
	rosters := &mockRosterSource{
		getServerRosterFn: func(ctx context.Context, serverID string, universeID int64) ([]string, error) {
			if serverID == "s1" {
				return nil, fmt.Errorf("roster unavailable")
			}
			return []string{"42"}, nil
		},
	}
	matcher := NewMatcher(presentChecker(100), rosters, testLogger(), 0)

	servers := []model.GameServer{{ID: "s1"}, {ID: "s2"}}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchFound {
		t.Fatalf("Kind = %v, want MatchFound", result.Kind)
	}
	if len(result.Servers) != 1 || result.Servers[0].ID != "s2" {
		t.Errorf("Servers = %+v, want [s2]", result.Servers)
	}
}

// TestMatcher_Locate_ConfirmedNoServerMatch は在席しているが一致サーバーが
// ない場合に、入力順の候補サーバーを上限件数まで返すことを検証する。
func TestMatcher_Locate_ConfirmedNoServerMatch(t *testing.T) {
	matcher := NewMatcher(presentChecker(100), &mockRosterSource{}, testLogger(), 3)

	var servers []model.GameServer
	for i := 0; i < 5; i++ {
		servers = append(servers, model.GameServer{
			ID:           fmt.Sprintf("s%d", i),
			PlayerTokens: []string{"999"},
		})
	}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchConfirmedNoServer {
		t.Fatalf("Kind = %v, want MatchConfirmedNoServer", result.Kind)
	}
	if result.TotalServers != 5 {
		t.Errorf("TotalServers = %d, want 5", result.TotalServers)
	}
	if len(result.Servers) != 3 {
		t.Fatalf("shortlist has %d entries, want 3", len(result.Servers))
	}
	for i, server := range result.Servers {
		if want := fmt.Sprintf("s%d", i); server.ID != want {
			t.Errorf("shortlist[%d].ID = %q, want %q (input order)", i, server.ID, want)
		}
	}
}

// TestMatcher_Locate_MultipleMatches は複数サーバーの一致がすべて
// 返されることを検証する。
func TestMatcher_Locate_MultipleMatches(t *testing.T) {
	matcher := NewMatcher(presentChecker(100), &mockRosterSource{}, testLogger(), 0)

	servers := []model.GameServer{
		{ID: "s1", PlayerTokens: []string{"42"}},
		{ID: "s2", PlayerTokens: []string{"999"}},
		{ID: "s3", PlayerTokens: []string{"42"}},
	}
	result := matcher.Locate(context.Background(), 42, 100, servers)

	if result.Kind != model.MatchFound {
		t.Fatalf("Kind = %v, want MatchFound", result.Kind)
	}
	if len(result.Servers) != 2 {
		t.Fatalf("Servers has %d entries, want 2", len(result.Servers))
	}
	if result.Servers[0].ID != "s1" || result.Servers[1].ID != "s3" {
		t.Errorf("Servers = [%s, %s], want [s1, s3]", result.Servers[0].ID, result.Servers[1].ID)
	}
}

// TestResolveToken はトークンのユーザーID解釈を検証する。
func TestResolveToken(t *testing.T) {
	tests := []struct {
		token  string
		wantID int64
		wantOK bool
	}{
		{token: "42", wantID: 42, wantOK: true},
		{token: "opaque-token", wantOK: false},
		{token: "", wantOK: false},
		{token: "0", wantOK: false},
		{token: "-5", wantOK: false},
	}

	for _, tt := range tests {
		id, ok := resolveToken(tt.token)
		if ok != tt.wantOK || id != tt.wantID {
			t.Errorf("resolveToken(%q) = (%d, %v), want (%d, %v)", tt.token, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
