package roblox

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/altscope/internal/model"
)

// ownerRank はグループオーナーを示すロールランク。
const ownerRank = 255

// GroupRole はユーザーのグループ所属1件を表す。
type GroupRole struct {
	GroupID     int64
	GroupName   string
	MemberCount int
	Rank        int
}

// IsOwner はこの所属がグループオーナーであるかを返す。
func (r GroupRole) IsOwner() bool {
	return r.Rank == ownerRank
}

// GetGroupRoles はユーザーの全グループ所属を取得する。
// ユーザーが存在しない場合は(nil, nil)を返す（absent）。
func (c *Client) GetGroupRoles(ctx context.Context, userID int64) ([]GroupRole, error) {
	var result struct {
		Data []struct {
			Group struct {
				ID          flexID `json:"id"`
				Name        string `json:"name"`
				MemberCount int    `json:"memberCount"`
			} `json:"group"`
			Role struct {
				Rank int `json:"rank"`
			} `json:"role"`
		} `json:"data"`
	}

	url := fmt.Sprintf("%s/v1/users/%d/groups/roles", c.endpoints.Groups, userID)
	if err := c.getJSON(ctx, c.timeouts.Aux, url, &result); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	roles := make([]GroupRole, 0, len(result.Data))
	for _, entry := range result.Data {
		roles = append(roles, GroupRole{
			GroupID:     int64(entry.Group.ID),
			GroupName:   entry.Group.Name,
			MemberCount: entry.Group.MemberCount,
			Rank:        entry.Role.Rank,
		})
	}
	return roles, nil
}

// OwnedGroups はグループ所属リストからオーナーであるものだけを抽出する。
func OwnedGroups(roles []GroupRole) []model.OwnedGroup {
	var owned []model.OwnedGroup
	for _, role := range roles {
		if !role.IsOwner() {
			continue
		}
		owned = append(owned, model.OwnedGroup{
			ID:          role.GroupID,
			Name:        role.GroupName,
			MemberCount: role.MemberCount,
		})
	}
	return owned
}
