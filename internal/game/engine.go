package game

import (
	"log/slog"
	"time"

	"github.com/hitoshi/jinro/internal/model"
)

// Timings はフェーズごとの制限時間設定を保持する。
// ディスカッションの長さだけはゲームごとの設定値（分）を使う。
type Timings struct {
	Night              time.Duration // 夜フェーズの長さ
	Tiebreak           time.Duration // タイブレーク討論の長さ
	EliminationDisplay time.Duration // 脱落発表画面の表示時間
}

// DefaultTimings は標準のフェーズ時間を返す。
func DefaultTimings() Timings {
	return Timings{
		Night:              30 * time.Second,
		Tiebreak:           60 * time.Second,
		EliminationDisplay: 10 * time.Second,
	}
}

// advancePhase は現在のフェーズから次のフェーズへ1回だけ遷移させる。
// 呼び出し側がセッションロックを保持していること。
// 観測可能な変更を行う遷移はすべてバージョンを1回だけ進める。
func (s *Service) advancePhase(g *model.Game) {
	switch g.Phase {
	case model.PhaseRoleReveal:
		s.transitionToNight(g)

	case model.PhaseNight:
		if g.RoundNumber == 1 {
			// 初夜は襲撃なし。NightEliminationを飛ばして昼へ。
			s.transitionToDiscussion(g)
			return
		}
		kill := ResolveNightVotes(g.NightVotes)
		g.LastEliminatedByNight = kill
		if kill != "" {
			if p := g.FindPlayer(kill); p != nil {
				p.IsEliminated = true
			}
		}
		g.Phase = model.PhaseNightElimination
		g.PhaseEndsAt = s.deadline(s.timings.EliminationDisplay)
		s.evaluateWinCondition(g)
		resetDone(g)
		g.BumpVersion()
		s.recordTransition(g)

	case model.PhaseNightElimination:
		if s.transitionToGameOverIfWon(g) {
			return
		}
		s.transitionToDiscussion(g)

	case model.PhaseDiscussion:
		r := Tally(g.DayVotes)
		if r.IsTie && !g.DayTiebreakUsed {
			g.Phase = model.PhaseTiebreakDiscussion
			g.TiebreakCandidates = r.Tied
			g.DayTiebreakUsed = true
			g.DayVotes = nil
			g.PhaseEndsAt = s.deadline(s.timings.Tiebreak)
			resetDone(g)
			g.BumpVersion()
			s.recordTransition(g)
			return
		}
		s.finalizeDayElimination(g, r.Winner)

	case model.PhaseTiebreakDiscussion:
		// 2度目の同票は処刑なしで確定する。3度目のタイブレークはない。
		r := Tally(g.DayVotes)
		winner := r.Winner
		if r.IsTie {
			winner = ""
		}
		s.finalizeDayElimination(g, winner)

	case model.PhaseDayElimination:
		if s.transitionToGameOverIfWon(g) {
			return
		}
		g.RoundNumber++
		s.transitionToNight(g)

	case model.PhaseGameOver:
		// 終端状態。何もしない。
	}
}

// transitionToNight は夜フェーズへ遷移させる。
func (s *Service) transitionToNight(g *model.Game) {
	g.Phase = model.PhaseNight
	g.PhaseEndsAt = s.deadline(s.timings.Night)
	g.NightVotes = nil
	g.LastEliminatedByNight = ""
	g.DayTiebreakUsed = false
	g.TiebreakCandidates = nil
	resetDone(g)
	g.BumpVersion()
	s.recordTransition(g)
	slog.Info("phase transition",
		slog.String("game_id", g.GameID),
		slog.String("phase", string(model.PhaseNight)),
		slog.Int("round", g.RoundNumber),
	)
}

// transitionToDiscussion は昼の討論フェーズへ遷移させる。
// 制限時間はゲームごとの設定（分）を使う。
func (s *Service) transitionToDiscussion(g *model.Game) {
	g.Phase = model.PhaseDiscussion
	g.PhaseEndsAt = s.deadline(time.Duration(g.DiscussionDurationMinutes) * time.Minute)
	g.DayVotes = nil
	g.LastEliminatedByDay = ""
	g.DayTiebreakUsed = false
	g.TiebreakCandidates = nil
	resetDone(g)
	g.BumpVersion()
	s.recordTransition(g)
	slog.Info("phase transition",
		slog.String("game_id", g.GameID),
		slog.String("phase", string(model.PhaseDiscussion)),
		slog.Int("round", g.RoundNumber),
	)
}

// finalizeDayElimination は昼の処刑を確定し、発表フェーズへ遷移させる。
// eliminatedIDが空の場合は処刑なし。
func (s *Service) finalizeDayElimination(g *model.Game, eliminatedID string) {
	g.LastEliminatedByDay = eliminatedID
	if eliminatedID != "" {
		if p := g.FindPlayer(eliminatedID); p != nil {
			p.IsEliminated = true
		}
	}
	g.Phase = model.PhaseDayElimination
	g.PhaseEndsAt = s.deadline(s.timings.EliminationDisplay)
	s.evaluateWinCondition(g)
	resetDone(g)
	g.BumpVersion()
	s.recordTransition(g)
	slog.Info("phase transition",
		slog.String("game_id", g.GameID),
		slog.String("phase", string(model.PhaseDayElimination)),
		slog.String("eliminated", orNone(eliminatedID)),
		slog.String("winner", orNone(g.Winner)),
	)
}

// evaluateWinCondition は勝利条件を評価し、満たされていればWinnerを設定する。
// フェーズは変更しない。Winnerは一度設定されたら上書きしない。
func (s *Service) evaluateWinCondition(g *model.Game) {
	if g.Winner != "" {
		return
	}
	g.Winner = EvaluateWinner(g.Players)
}

// transitionToGameOverIfWon はWinnerが設定済みならGameOverへ遷移させてtrueを返す。
// 脱落発表の次の遷移で呼ばれるため、プレイヤーは発表画面を見てから
// ゲーム終了画面に移る（意図的な1ステップ遅延）。
// このバージョンバンプを忘れるとポーリングクライアントが終了を観測できない。
func (s *Service) transitionToGameOverIfWon(g *model.Game) bool {
	if g.Winner == "" {
		return false
	}
	g.Phase = model.PhaseGameOver
	g.PhaseEndsAt = nil
	g.Status = model.StatusEnded
	ended := s.now()
	g.EndedAt = &ended
	g.BumpVersion()
	s.recordTransition(g)
	s.metrics.RecordGameOver(g.Winner)
	slog.Info("game over",
		slog.String("game_id", g.GameID),
		slog.String("winner", g.Winner),
		slog.Int("round", g.RoundNumber),
	)
	return true
}

// resetDone は全参加者のdoneフラグをリセットする。フェーズ入場時に呼ぶ。
func resetDone(g *model.Game) {
	for _, p := range g.Players {
		p.IsDone = false
	}
}

// recalcLobbyStatus はロビー中の参加人数から導出ステータスを再計算する。
// InProgress / Ended のゲームには影響しない。
func recalcLobbyStatus(g *model.Game) {
	if g.Status != model.StatusWaitingForPlayers && g.Status != model.StatusReadyToStart {
		return
	}
	if g.ActivePlayerCount() >= g.MinPlayers {
		g.Status = model.StatusReadyToStart
	} else {
		g.Status = model.StatusWaitingForPlayers
	}
}

// deadline は現在時刻からd後の締め切りを返す。
func (s *Service) deadline(d time.Duration) *time.Time {
	t := s.now().Add(d)
	return &t
}

func (s *Service) recordTransition(g *model.Game) {
	s.metrics.RecordPhaseTransition(string(g.Phase))
}

func orNone(v string) string {
	if v == "" {
		return "none"
	}
	return v
}
