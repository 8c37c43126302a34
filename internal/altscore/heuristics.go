package altscore

import (
	"fmt"
	"strings"

	"github.com/hitoshi/altscope/internal/model"
)

// ヒューリスティックの発火条件に使う定数。
const (
	// creationProximityDays は作成日接近とみなす日数差の上限。
	creationProximityDays = 30
	// usernameSimilarityThreshold はユーザー名類似とみなす類似度比の下限（排他）。
	usernameSimilarityThreshold = 0.6
	// descriptionSimilarityThreshold は自己紹介文類似とみなす類似度比の下限（排他）。
	descriptionSimilarityThreshold = 0.7
	// descriptionPrefixLen は自己紹介文の比較に使う先頭文字数。
	descriptionPrefixLen = 50
	// lowFriendsThreshold はフレンド数が少ないとみなす上限（排他）。
	lowFriendsThreshold = 10
	// lowBadgesThreshold はバッジ数が少ないとみなす上限（排他）。
	lowBadgesThreshold = 5
)

// candidateFacts はスコアリングに必要な候補側の取得済みデータをまとめる。
// ヒューリスティックは取得済みデータの純関数であり、ネットワークに触れない。
type candidateFacts struct {
	profile      *model.UserProfile
	friendsCount int
	badgesCount  int
}

// heuristic は独立に判定される加点規則1件を表す。
// evaluateは発火したかどうかと、発火時の理由文字列を返す。
type heuristic struct {
	name     string
	weight   int
	evaluate func(target *model.UserProfile, facts candidateFacts) (bool, string)
}

// heuristics は判定順に並んだ加点規則のリスト。
// スコアは発火した規則のweightの単純合計であり、理由文字列はこの順で
// 記録される。評価順・重みを変更する場合はテストの期待値も更新すること。
var heuristics = []heuristic{
	{
		name:   "creation_date_proximity",
		weight: 3,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			if target.CreatedAt.IsZero() || facts.profile.CreatedAt.IsZero() {
				return false, ""
			}
			days := daysBetween(target, facts.profile)
			if days > creationProximityDays {
				return false, ""
			}
			return true, fmt.Sprintf("アカウント作成日が%d日差", days)
		},
	},
	{
		name:   "username_similarity",
		weight: 2,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			ratio := Ratio(strings.ToLower(target.Username), strings.ToLower(facts.profile.Username))
			if ratio <= usernameSimilarityThreshold {
				return false, ""
			}
			return true, fmt.Sprintf("ユーザー名が類似（%.0f%%一致）", ratio*100)
		},
	},
	{
		name:   "shared_base_username",
		weight: 3,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			targetBase := baseUsername(target.Username)
			candidateBase := baseUsername(facts.profile.Username)
			if targetBase == "" || candidateBase == "" || targetBase != candidateBase {
				return false, ""
			}
			return true, "ベースユーザー名が一致（数字・記号の変形のみ）"
		},
	},
	{
		name:   "description_similarity",
		weight: 2,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			if target.Description == "" || facts.profile.Description == "" {
				return false, ""
			}
			ratio := Ratio(descriptionPrefix(target.Description), descriptionPrefix(facts.profile.Description))
			if ratio <= descriptionSimilarityThreshold {
				return false, ""
			}
			return true, "自己紹介文が類似"
		},
	},
	{
		name:   "low_friend_count",
		weight: 1,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			if facts.friendsCount >= lowFriendsThreshold {
				return false, ""
			}
			return true, fmt.Sprintf("フレンド数が少ない（%d人）", facts.friendsCount)
		},
	},
	{
		name:   "low_badge_count",
		weight: 1,
		evaluate: func(target *model.UserProfile, facts candidateFacts) (bool, string) {
			if facts.badgesCount >= lowBadgesThreshold {
				return false, ""
			}
			return true, fmt.Sprintf("バッジ数が少ない（%d個）", facts.badgesCount)
		},
	},
}

// daysBetween は2アカウントの作成日の差を日数（絶対値）で返す。
func daysBetween(a, b *model.UserProfile) int {
	diff := a.CreatedAt.Sub(b.CreatedAt)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}

// baseUsername はユーザー名から数字・アンダースコア・ハイフンを除去した
// 小文字のベース名を返す。
func baseUsername(username string) string {
	lower := strings.ToLower(username)
	var b strings.Builder
	for _, r := range lower {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// descriptionPrefix は自己紹介文の比較対象となる小文字化した先頭部分を返す。
func descriptionPrefix(description string) string {
	lower := strings.ToLower(description)
	runes := []rune(lower)
	if len(runes) > descriptionPrefixLen {
		runes = runes[:descriptionPrefixLen]
	}
	return string(runes)
}
