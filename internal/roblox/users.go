package roblox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/altscope/internal/model"
)

// ResolveUserID はユーザー名からユーザーIDを解決する。
// ユーザーが存在しない場合は(0, nil)を返す（absent）。
func (c *Client) ResolveUserID(ctx context.Context, username string) (int64, error) {
	payload := map[string]any{
		"usernames":          []string{username},
		"excludeBannedUsers": false,
	}

	var result struct {
		Data []struct {
			ID flexID `json:"id"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/usernames/users", c.endpoints.Users)
	if err := c.postJSON(ctx, c.timeouts.Primary, url, payload, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, nil
		}
		return 0, err
	}

	if len(result.Data) == 0 || result.Data[0].ID == 0 {
		return 0, nil
	}
	return int64(result.Data[0].ID), nil
}

// GetUserProfile はユーザーIDからプロフィールスナップショットを取得する。
// ユーザーが存在しない場合は(nil, nil)を返す（absent）。
func (c *Client) GetUserProfile(ctx context.Context, userID int64) (*model.UserProfile, error) {
	var result struct {
		ID               flexID `json:"id"`
		Name             string `json:"name"`
		DisplayName      string `json:"displayName"`
		Description      string `json:"description"`
		Created          string `json:"created"`
		IsBanned         bool   `json:"isBanned"`
		HasVerifiedBadge bool   `json:"hasVerifiedBadge"`
	}

	url := fmt.Sprintf("%s/v1/users/%d", c.endpoints.Users, userID)
	if err := c.getJSON(ctx, c.timeouts.Primary, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	profile := &model.UserProfile{
		ID:               int64(result.ID),
		Username:         result.Name,
		DisplayName:      result.DisplayName,
		Description:      result.Description,
		IsBanned:         result.IsBanned,
		HasVerifiedBadge: result.HasVerifiedBadge,
	}

	// 作成日時はISO 8601。パース不能でもプロフィール自体は有効として扱う
	// （作成日ヒューリスティックが発火しなくなるだけ）。
	if result.Created != "" {
		created, err := time.Parse(time.RFC3339, result.Created)
		if err != nil {
			c.logger.Warn("作成日時のパースに失敗しました",
				slog.Int64("user_id", userID),
				slog.String("created", result.Created),
			)
		} else {
			profile.CreatedAt = created
		}
	}

	return profile, nil
}

// GetFriends はユーザーのフレンドリストを取得する。
// limitは取得件数の上限。リスト取得自体が失敗した場合はエラーを返すが、
// 呼び出し側（alt判定）はこれを空リストとして扱い処理を継続する。
func (c *Client) GetFriends(ctx context.Context, userID int64, limit int) ([]model.FriendCandidate, error) {
	var result struct {
		Data []struct {
			ID   flexID `json:"id"`
			Name string `json:"name"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/users/%d/friends?userSort=0&limit=%d", c.endpoints.Friends, userID, limit)
	if err := c.getJSON(ctx, c.timeouts.List, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	friends := make([]model.FriendCandidate, 0, len(result.Data))
	for _, entry := range result.Data {
		if entry.ID == 0 {
			continue
		}
		// 自己参照の除外（対象ユーザー自身はフレンド候補にならない）
		if int64(entry.ID) == userID {
			continue
		}
		friends = append(friends, model.FriendCandidate{
			ID:       int64(entry.ID),
			Username: entry.Name,
		})
	}
	return friends, nil
}

// GetFriendsCount はユーザーのフレンド数を取得する。失敗時は(0, err)を返し、
// 呼び出し側はデフォルト0として扱う。
func (c *Client) GetFriendsCount(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/v1/users/%d/friends/count", c.endpoints.Friends, userID)
	return c.getCount(ctx, url)
}

// GetFollowersCount はユーザーのフォロワー数を取得する。
func (c *Client) GetFollowersCount(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/v1/users/%d/followers/count", c.endpoints.Friends, userID)
	return c.getCount(ctx, url)
}

// GetFollowingsCount はユーザーのフォロー数を取得する。
func (c *Client) GetFollowingsCount(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/v1/users/%d/followings/count", c.endpoints.Friends, userID)
	return c.getCount(ctx, url)
}

// GetBadgesCount はユーザーのバッジ数を取得する。
func (c *Client) GetBadgesCount(ctx context.Context, userID int64) (int, error) {
	url := fmt.Sprintf("%s/v1/users/%d/badges/count", c.endpoints.Badges, userID)
	return c.getCount(ctx, url)
}

// getCount は{"count": N}形式のエンドポイントの共通処理。
func (c *Client) getCount(ctx context.Context, url string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return result.Count, nil
}
