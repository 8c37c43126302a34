package roblox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/hitoshi/altscope/internal/model"
)

// TestGetPublicServers はサーバーリストのペイロード正規化を検証する。
func TestGetPublicServers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/games/99/servers/Public" {
			t.Errorf("request path = %s, want /v1/games/99/servers/Public", r.URL.Path)
		}
		w.Write([]byte(`{"data":[
			{"id": "srv-1", "playerTokens": [111, "222", ""], "playing": 3, "maxPlayers": 10},
			{"token": "srv-2", "playerCount": 5, "players": [
				{"userId": 7, "name": "PlayerA"},
				{"id": "8", "displayName": "PlayerB"},
				{"name": "NoID"}
			]}
		]}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	got, err := client.GetPublicServers(context.Background(), 99, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("servers count = %d, want 2", len(got))
	}

	first := got[0]
	if first.ID != "srv-1" {
		t.Errorf("servers[0].ID = %s, want srv-1", first.ID)
	}
	wantTokens := []string{"111", "222"}
	if !reflect.DeepEqual(first.PlayerTokens, wantTokens) {
		t.Errorf("servers[0].PlayerTokens = %v, want %v", first.PlayerTokens, wantTokens)
	}
	if first.Playing != 3 {
		t.Errorf("servers[0].Playing = %d, want 3", first.Playing)
	}

	second := got[1]
	if second.ID != "srv-2" {
		t.Errorf("servers[1].ID = %s, want srv-2 (token alias)", second.ID)
	}
	if second.Playing != 5 {
		t.Errorf("servers[1].Playing = %d, want 5 (playerCount fallback)", second.Playing)
	}
	wantPlayers := []model.ServerPlayer{
		{ID: 7, Username: "PlayerA"},
		{ID: 8, Username: "PlayerB"},
	}
	if !reflect.DeepEqual(second.Players, wantPlayers) {
		t.Errorf("servers[1].Players = %v, want %v", second.Players, wantPlayers)
	}
}

// TestGetPublicServers_NotFound は404がabsent扱いになることを検証する。
func TestGetPublicServers_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server)
	got, err := client.GetPublicServers(context.Background(), 99, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("servers = %v, want nil", got)
	}
}

// TestGetServerRoster はロースター取得とabsentの扱いを検証する。
func TestGetServerRoster(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		want       []string
	}{
		{
			name:       "トップレベルのplayers",
			statusCode: http.StatusOK,
			body:       `{"players": [{"id": 42}, {"userId": "43"}]}`,
			want:       []string{"42", "43"},
		},
		{
			name:       "data配下のplayerTokens",
			statusCode: http.StatusOK,
			body:       `{"data": {"playerTokens": ["tok-a", "tok-b"]}}`,
			want:       []string{"tok-a", "tok-b"},
		},
		{
			name:       "空レスポンスはabsent",
			statusCode: http.StatusOK,
			body:       `{}`,
			want:       nil,
		},
		{
			name:       "404はabsent",
			statusCode: http.StatusNotFound,
			body:       `{}`,
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server)
			got, err := client.GetServerRoster(context.Background(), "srv-1", 99)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("roster = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetPresence はプレゼンス取得と種別の正規化を検証する。
func TestGetPresence(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *model.PresenceRecord
	}{
		{
			name: "数値の種別",
			body: `{"userPresences":[{"userPresenceType": 2, "lastLocation": "Jailbreak", "universeId": 99, "placeId": 5}]}`,
			want: &model.PresenceRecord{
				Type:         model.PresenceInGame,
				UniverseID:   99,
				PlaceID:      5,
				LastLocation: "Jailbreak",
			},
		},
		{
			name: "enum名の種別と数値文字列のID",
			body: `{"userPresences":[{"userPresenceType": "InGame", "universeId": "99"}]}`,
			want: &model.PresenceRecord{
				Type:       model.PresenceInGame,
				UniverseID: 99,
			},
		},
		{
			name: "未知の種別はOffline",
			body: `{"userPresences":[{"userPresenceType": "Sleeping"}]}`,
			want: &model.PresenceRecord{Type: model.PresenceOffline},
		},
		{
			name: "レコードなしはabsent",
			body: `{"userPresences":[]}`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/presence/users" {
					t.Errorf("request path = %s, want /v1/presence/users", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server)
			got, err := client.GetPresence(context.Background(), 1)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("presence = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// TestFlexID はID表現のゆらぎの正規化を検証する。
func TestFlexID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "数値", input: `42`, want: 42},
		{name: "数値文字列", input: `"42"`, want: 42},
		{name: "空白付き数値文字列", input: `" 42 "`, want: 42},
		{name: "null", input: `null`, want: 0},
		{name: "非数値文字列", input: `"abc"`, want: 0},
		{name: "空文字列", input: `""`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f flexID
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if int64(f) != tt.want {
				t.Errorf("flexID = %d, want %d", int64(f), tt.want)
			}
		})
	}
}
