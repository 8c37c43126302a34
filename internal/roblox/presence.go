package roblox

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/altscope/internal/model"
)

// GetPresence はユーザーの最新プレゼンスレコードを1件取得する。
// レコードが得られない場合は(nil, nil)を返す（absent）。
// プレゼンスはキャッシュされず、呼び出しのたびに新規取得される。
func (c *Client) GetPresence(ctx context.Context, userID int64) (*model.PresenceRecord, error) {
	payload := map[string]any{
		"userIds": []int64{userID},
	}

	var result struct {
		UserPresences []struct {
			UserPresenceType flexPresenceType `json:"userPresenceType"`
			LastLocation     string           `json:"lastLocation"`
			UniverseID       flexID           `json:"universeId"`
			PlaceID          flexID           `json:"placeId"`
		} `json:"userPresences"`
	}

	url := fmt.Sprintf("%s/v1/presence/users", c.endpoints.Presence)
	if err := c.postJSON(ctx, c.timeouts.Aux, url, payload, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if len(result.UserPresences) == 0 {
		return nil, nil
	}

	p := result.UserPresences[0]
	return &model.PresenceRecord{
		Type:         model.PresenceType(p.UserPresenceType),
		UniverseID:   int64(p.UniverseID),
		PlaceID:      int64(p.PlaceID),
		LastLocation: p.LastLocation,
	}, nil
}
