package game

import "github.com/hitoshi/jinro/internal/model"

// EvaluateWinner は生存役職数から勝利陣営を判定する。
// 生存人狼が0なら村人陣営、生存村人が0なら人狼陣営の勝利。
// どちらの条件も満たさなければ空文字を返す。
//
// 数的優位（人狼が村人と同数以上になる等）は勝利条件ではない。
// 一方の陣営が全滅したときのみゲームが終了する。
func EvaluateWinner(players []*model.Player) string {
	aliveWerewolves := 0
	aliveVillagers := 0
	for _, p := range players {
		if !p.IsAlive() {
			continue
		}
		switch p.Role {
		case model.RoleWerewolf:
			aliveWerewolves++
		case model.RoleVillager:
			aliveVillagers++
		}
	}

	if aliveWerewolves == 0 {
		return model.WinnerVillagers
	}
	if aliveVillagers == 0 {
		return model.WinnerWerewolves
	}
	return ""
}
