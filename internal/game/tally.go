// Package game はゲームセッションの中核ロジックを提供する。
//
// 投票集計と勝利判定は副作用のない純粋関数として切り出し、
// フェーズエンジン（engine.go）が夜・昼の解決の両方から利用する。
package game

import "github.com/hitoshi/jinro/internal/model"

// TallyResult は投票集計の結果を表す。
// 最多得票が1人に定まればWinnerに対象IDが入る。
// 最多得票が複数で並んだ場合はIsTieがtrueになり、Tiedに該当IDが入る。
// 票が1つもない場合はWinner空・IsTie false・Tied空。
type TallyResult struct {
	Winner string
	IsTie  bool
	Tied   []string
}

// Tally は(投票者, 対象)のリストを集計する。
// 呼び出し側は投票ウィンドウ内のlast-write-winsを維持している前提
// （同一投票者の票は1つしか含まれない）。
// Tiedの順序はテスト再現性のため票リスト内の初出順で固定する。
func Tally(votes []model.Vote) TallyResult {
	if len(votes) == 0 {
		return TallyResult{}
	}

	counts := make(map[string]int)
	var order []string
	for _, v := range votes {
		if counts[v.TargetID] == 0 {
			order = append(order, v.TargetID)
		}
		counts[v.TargetID]++
	}

	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	var top []string
	for _, id := range order {
		if counts[id] == max {
			top = append(top, id)
		}
	}

	if len(top) == 1 {
		return TallyResult{Winner: top[0]}
	}
	return TallyResult{IsTie: true, Tied: top}
}

// ResolveNightVotes は夜の人狼投票を解決し、襲撃対象のIDを返す。
// 同票（または票なし）の場合は襲撃なしとして空文字を返す。
// 夜の同票はタイブレークに発展しない。
func ResolveNightVotes(votes []model.Vote) string {
	r := Tally(votes)
	if r.IsTie {
		return ""
	}
	return r.Winner
}
