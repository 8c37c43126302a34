package roblox

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/altscope/internal/model"
)

// GetOwnedGames はユーザーが作成したゲーム（エクスペリエンス）を取得する。
// ユーザーが存在しない場合は(nil, nil)を返す（absent）。
func (c *Client) GetOwnedGames(ctx context.Context, userID int64) ([]model.OwnedGame, error) {
	var result struct {
		Data []struct {
			ID      flexID `json:"id"`
			Name    string `json:"name"`
			Playing int    `json:"playing"`
			Visits  int64  `json:"visits"`
			Created string `json:"created"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v2/users/%d/games?accessFilter=2&limit=50&sortOrder=Asc", c.endpoints.Games, userID)
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	games := make([]model.OwnedGame, 0, len(result.Data))
	for _, entry := range result.Data {
		games = append(games, model.OwnedGame{
			ID:      int64(entry.ID),
			Name:    entry.Name,
			Playing: entry.Playing,
			Visits:  entry.Visits,
			Created: entry.Created,
		})
	}
	return games, nil
}

// GetGameByUniverseID はユニバースIDからゲーム情報を取得する。
// ゲームが存在しない場合は(nil, nil)を返す（absent）。
func (c *Client) GetGameByUniverseID(ctx context.Context, universeID int64) (*model.Game, error) {
	var result struct {
		Data []struct {
			ID          flexID `json:"id"`
			Name        string `json:"name"`
			RootPlaceID flexID `json:"rootPlaceId"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/games?universeIds=%d", c.endpoints.Games, universeID)
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, nil
	}
	return &model.Game{
		UniverseID:  int64(result.Data[0].ID),
		Name:        result.Data[0].Name,
		RootPlaceID: int64(result.Data[0].RootPlaceID),
	}, nil
}

// GetAvatarURL はユーザーのアバター画像URLを取得する。
// 取得できない場合は("", nil)を返す（absent）。
// 返されるURLはAPIペイロード由来であり、フェッチする場合は
// SSRFガード付きクライアントを使用すること。
func (c *Client) GetAvatarURL(ctx context.Context, userID int64) (string, error) {
	var result struct {
		Data []struct {
			ImageURL string `json:"imageUrl"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/users/avatar?userIds=%d&size=150x150&format=Png&isCircular=false", c.endpoints.Thumbnails, userID)
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return "", nil
		}
		return "", err
	}

	if len(result.Data) == 0 {
		return "", nil
	}
	return result.Data[0].ImageURL, nil
}
