// Package altscore はalt（サブアカウント）判定のスコアリングエンジンを提供する。
// 対象ユーザーとフレンド候補の類似度ヒューリスティックを固定順で評価し、
// 疑惑スコアの降順ランキングを生成する。
//
// 判定は確率的なヒューリスティックであり、正解を保証するものではない。
package altscore

// Ratio は2つの文字列の類似度を[0,1]で返す。
// 最長一致ブロックの合計長Mに対して 2*M/(len(a)+len(b)) を計算する
// （シーケンスアライメント型の標準的な類似度比）。
// 両方が空文字列の場合は1を返す。rune単位で比較する。
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	matched := matchingBlocks(ra, rb)
	return 2.0 * float64(matched) / float64(total)
}

// matchingBlocks は最長共通部分列ブロックの合計長を返す。
// 最長一致を見つけ、その左右の残り区間に対して再帰的に同じ処理を行う。
func matchingBlocks(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	aStart, bStart, size := longestMatch(a, b)
	if size == 0 {
		return 0
	}

	total := size
	total += matchingBlocks(a[:aStart], b[:bStart])
	total += matchingBlocks(a[aStart+size:], b[bStart+size:])
	return total
}

// longestMatch はaとbの最長共通部分文字列の開始位置と長さを返す。
// 同じ長さの一致が複数ある場合はaの最も前方のものを選ぶ。
func longestMatch(a, b []rune) (aStart, bStart, size int) {
	// lengths[j]はa[i]とb[j]で終わる共通部分文字列の長さ。
	// 1行前の結果だけ保持すれば十分。
	prev := make([]int, len(b)+1)
	current := make([]int, len(b)+1)

	for i := 0; i < len(a); i++ {
		for j := 0; j < len(b); j++ {
			if a[i] != b[j] {
				current[j+1] = 0
				continue
			}
			current[j+1] = prev[j] + 1
			if current[j+1] > size {
				size = current[j+1]
				aStart = i - size + 1
				bStart = j - size + 1
			}
		}
		prev, current = current, prev
	}

	return aStart, bStart, size
}
