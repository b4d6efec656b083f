package game

import (
	"testing"
	"time"

	"github.com/hitoshi/jinro/internal/model"
)

var testNames = []string{"花子", "次郎", "三郎", "四郎", "五郎", "六郎", "七子"}

// startedGame はn人・人狼w匹のゲームを開始済み状態まで進めるヘルパー。
// RoleRevealフェーズで返す。
func startedGame(t *testing.T, s *Service, n, w int) (string, string) {
	t.Helper()

	gameID, creatorID := createGame(t, s)
	for i := 0; i < n-1; i++ {
		joinPlayer(t, s, gameID, testNames[i])
	}
	err := s.UpdateSettings(gameID, creatorID, Settings{
		MinPlayers:                2,
		MaxPlayers:                10,
		DiscussionDurationMinutes: 5,
		NumberOfWerewolves:        w,
	})
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if err := s.Start(gameID, creatorID); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return gameID, creatorID
}

// markAllDone は生存中の全参加者をdoneにするヘルパー。
func markAllDone(t *testing.T, s *Service, gameID string) {
	t.Helper()

	g := mustGet(t, s, gameID)
	var ids []string
	for _, p := range g.Players {
		if p.IsAlive() {
			ids = append(ids, p.PlayerID)
		}
	}
	for _, id := range ids {
		if err := s.MarkDone(gameID, id); err != nil {
			t.Fatalf("MarkDone(%s) failed: %v", id, err)
		}
	}
}

func wolvesAndVillagers(g *model.Game) (wolves, villagers []*model.Player) {
	for _, p := range g.Players {
		if p.Role == model.RoleWerewolf {
			wolves = append(wolves, p)
		} else {
			villagers = append(villagers, p)
		}
	}
	return wolves, villagers
}

func assertPhase(t *testing.T, g *model.Game, want model.GamePhase) {
	t.Helper()
	if g.Phase != want {
		t.Fatalf("phase = %q, want %q", g.Phase, want)
	}
}

func assertDeadline(t *testing.T, g *model.Game, clock *fakeClock, want time.Duration) {
	t.Helper()
	if g.PhaseEndsAt == nil {
		t.Fatal("phaseEndsAt is nil, want a deadline")
	}
	if got := g.PhaseEndsAt.Sub(clock.Now()); got != want {
		t.Fatalf("deadline offset = %v, want %v", got, want)
	}
}

// --- 合意による進行（done）のテスト ---

func TestMarkDone_AllDone_AdvancesRoleRevealToNight(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)

	markAllDone(t, s, gameID)

	g := mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNight)
	assertDeadline(t, g, clock, 30*time.Second)

	// フェーズ入場時にdoneフラグはリセットされる
	for _, p := range g.Players {
		if p.IsDone {
			t.Errorf("player %s done flag not reset", p.DisplayName)
		}
	}
}

func TestMarkDone_Partial_DoesNotAdvance(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)

	if err := s.MarkDone(gameID, creatorID); err != nil {
		t.Fatalf("MarkDone failed: %v", err)
	}

	g := mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseRoleReveal)
}

func TestMarkDone_EliminatedPlayersNotCounted(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, _ := startedGame(t, s, 4, 1)

	g := mustGet(t, s, gameID)
	g.Players[3].IsEliminated = true

	// 脱落者を除く3人のdoneで進行する
	for _, p := range g.Players[:3] {
		if err := s.MarkDone(gameID, p.PlayerID); err != nil {
			t.Fatalf("MarkDone failed: %v", err)
		}
	}
	assertPhase(t, mustGet(t, s, gameID), model.PhaseNight)
}

func TestMarkDone_RequiresInProgress(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := createGame(t, s)

	err := s.MarkDone(gameID, creatorID)
	assertGameErrorCode(t, err, model.ErrCodeNotInProgress)
}

func TestMarkDone_DoesNotAdvanceFromTimedPhase(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)

	markAllDone(t, s, gameID) // RoleReveal -> Night
	markAllDone(t, s, gameID) // 夜は時間制なのでdoneでは進まない

	assertPhase(t, mustGet(t, s, gameID), model.PhaseNight)
}

// --- 初日ラウンドのテスト ---

func TestNight_Round1_SkipsNightElimination(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)

	markAllDone(t, s, gameID) // -> Night
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g := mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseDiscussion)
	assertDeadline(t, g, clock, 5*time.Minute)
}

func TestNightVote_Round1_Rejected(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)
	markAllDone(t, s, gameID) // -> Night (round 1)

	g := mustGet(t, s, gameID)
	wolves, villagers := wolvesAndVillagers(g)

	err := s.CastVote(gameID, wolves[0].PlayerID, villagers[0].PlayerID)
	assertGameErrorCode(t, err, model.ErrCodeVoteNotAllowed)
}

// --- 夜フェーズのテスト ---

// nightRound2 はラウンド2の夜まで状態を直接進めるヘルパー。
// フェーズ個別の検証ではフルサイクルを回さず状態を直接整える。
func nightRound2(t *testing.T, s *Service, gameID string) {
	t.Helper()

	g := mustGet(t, s, gameID)
	g.Phase = model.PhaseNight
	g.RoundNumber = 2
	g.NightVotes = nil
}

func TestNightVote_VillagerRejected(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, _ := startedGame(t, s, 4, 2)
	nightRound2(t, s, gameID)

	g := mustGet(t, s, gameID)
	_, villagers := wolvesAndVillagers(g)

	err := s.CastVote(gameID, villagers[0].PlayerID, villagers[1].PlayerID)
	assertGameErrorCode(t, err, model.ErrCodeVoteNotAllowed)
}

func TestNight_UnanimousVote_EliminatesTarget(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, creatorID := startedGame(t, s, 5, 2)
	nightRound2(t, s, gameID)

	g := mustGet(t, s, gameID)
	wolves, villagers := wolvesAndVillagers(g)
	target := villagers[0]

	for _, w := range wolves {
		if err := s.CastVote(gameID, w.PlayerID, target.PlayerID); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNightElimination)
	assertDeadline(t, g, clock, 10*time.Second)
	if g.LastEliminatedByNight != target.PlayerID {
		t.Errorf("lastEliminatedByNight = %q, want %q", g.LastEliminatedByNight, target.PlayerID)
	}
	if !g.FindPlayer(target.PlayerID).IsEliminated {
		t.Error("target should be eliminated")
	}
}

func TestNight_SplitVote_NoKill(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 6, 2)
	nightRound2(t, s, gameID)

	g := mustGet(t, s, gameID)
	wolves, villagers := wolvesAndVillagers(g)

	// 人狼2匹が別々の対象に投票し同票になる
	if err := s.CastVote(gameID, wolves[0].PlayerID, villagers[0].PlayerID); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := s.CastVote(gameID, wolves[1].PlayerID, villagers[1].PlayerID); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNightElimination)
	if g.LastEliminatedByNight != "" {
		t.Errorf("lastEliminatedByNight = %q, want empty (tie)", g.LastEliminatedByNight)
	}
	for _, p := range g.Players {
		if p.IsEliminated {
			t.Errorf("no one should be eliminated on a tie, but %s is", p.DisplayName)
		}
	}
}

func TestNight_NoVotes_NoKill(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 5, 2)
	nightRound2(t, s, gameID)

	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g := mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNightElimination)
	if g.LastEliminatedByNight != "" {
		t.Errorf("lastEliminatedByNight = %q, want empty", g.LastEliminatedByNight)
	}
}

// --- 昼の投票とタイブレークのテスト ---

// discussion はDiscussionフェーズまで実進行させるヘルパー（ラウンド1）。
func discussion(t *testing.T, s *Service, gameID, creatorID string) {
	t.Helper()

	markAllDone(t, s, gameID) // RoleReveal -> Night
	// Night(1) -> Discussion
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}
	assertPhase(t, mustGet(t, s, gameID), model.PhaseDiscussion)
}

func TestDayVote_LastWriteWins(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	a, b, c := g.Players[0], g.Players[1], g.Players[2]

	if err := s.CastVote(gameID, a.PlayerID, b.PlayerID); err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if err := s.CastVote(gameID, a.PlayerID, c.PlayerID); err != nil {
		t.Fatalf("CastVote (re-vote) failed: %v", err)
	}

	if len(g.DayVotes) != 1 {
		t.Fatalf("dayVotes = %d, want 1 (last write wins)", len(g.DayVotes))
	}
	if g.DayVotes[0].TargetID != c.PlayerID {
		t.Errorf("target = %q, want latest %q", g.DayVotes[0].TargetID, c.PlayerID)
	}
}

func TestDayVote_EliminatedVoterRejected(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	g.Players[1].IsEliminated = true

	err := s.CastVote(gameID, g.Players[1].PlayerID, g.Players[0].PlayerID)
	assertGameErrorCode(t, err, model.ErrCodeVoteNotAllowed)
}

func TestDayVote_UnknownTargetRejected(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	err := s.CastVote(gameID, g.Players[0].PlayerID, "no-such-player")
	assertGameErrorCode(t, err, model.ErrCodeInvalidTarget)
}

func TestDiscussion_FirstTie_StartsTiebreak(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	a, b, c, d := g.Players[0], g.Players[1], g.Players[2], g.Players[3]

	// a,bがcへ、c,dがaへ投票して2-2の同票
	for _, v := range []struct{ voter, target string }{
		{a.PlayerID, c.PlayerID},
		{b.PlayerID, c.PlayerID},
		{c.PlayerID, a.PlayerID},
		{d.PlayerID, a.PlayerID},
	} {
		if err := s.CastVote(gameID, v.voter, v.target); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	markAllDone(t, s, gameID)

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseTiebreakDiscussion)
	assertDeadline(t, g, clock, 60*time.Second)
	if !g.DayTiebreakUsed {
		t.Error("dayTiebreakUsed should be set")
	}
	if len(g.DayVotes) != 0 {
		t.Errorf("dayVotes should be cleared, got %d", len(g.DayVotes))
	}
	// 候補は最初に票を得た順
	want := []string{c.PlayerID, a.PlayerID}
	if len(g.TiebreakCandidates) != 2 || g.TiebreakCandidates[0] != want[0] || g.TiebreakCandidates[1] != want[1] {
		t.Errorf("tiebreakCandidates = %v, want %v", g.TiebreakCandidates, want)
	}
	// 誰も脱落していない
	for _, p := range g.Players {
		if p.IsEliminated {
			t.Errorf("no one should be eliminated yet, but %s is", p.DisplayName)
		}
	}
}

func TestTiebreak_VoteOutsideCandidates_Rejected(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	a, b := g.Players[0], g.Players[1]
	g.Phase = model.PhaseTiebreakDiscussion
	g.TiebreakCandidates = []string{a.PlayerID}

	err := s.CastVote(gameID, a.PlayerID, b.PlayerID)
	assertGameErrorCode(t, err, model.ErrCodeInvalidTarget)
}

func TestTiebreak_MajorityEliminates(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	a, b, c, d := g.Players[0], g.Players[1], g.Players[2], g.Players[3]
	g.Phase = model.PhaseTiebreakDiscussion
	g.DayTiebreakUsed = true
	g.TiebreakCandidates = []string{a.PlayerID, c.PlayerID}

	for _, v := range []struct{ voter, target string }{
		{a.PlayerID, c.PlayerID},
		{b.PlayerID, c.PlayerID},
		{d.PlayerID, c.PlayerID},
		{c.PlayerID, a.PlayerID},
	} {
		if err := s.CastVote(gameID, v.voter, v.target); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	markAllDone(t, s, gameID)

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseDayElimination)
	if g.LastEliminatedByDay != c.PlayerID {
		t.Errorf("lastEliminatedByDay = %q, want %q", g.LastEliminatedByDay, c.PlayerID)
	}
	if !g.FindPlayer(c.PlayerID).IsEliminated {
		t.Error("candidate with majority should be eliminated")
	}
}

func TestTiebreak_SecondTie_NoElimination(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	a, b, c, d := g.Players[0], g.Players[1], g.Players[2], g.Players[3]
	g.Phase = model.PhaseTiebreakDiscussion
	g.DayTiebreakUsed = true
	g.TiebreakCandidates = []string{a.PlayerID, c.PlayerID}

	// 再び2-2で同票
	for _, v := range []struct{ voter, target string }{
		{a.PlayerID, c.PlayerID},
		{b.PlayerID, c.PlayerID},
		{c.PlayerID, a.PlayerID},
		{d.PlayerID, a.PlayerID},
	} {
		if err := s.CastVote(gameID, v.voter, v.target); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	markAllDone(t, s, gameID)

	// 3度目のタイブレークは起きず、処刑なしで発表フェーズへ
	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseDayElimination)
	if g.LastEliminatedByDay != "" {
		t.Errorf("lastEliminatedByDay = %q, want empty", g.LastEliminatedByDay)
	}
	for _, p := range g.Players {
		if p.IsEliminated {
			t.Errorf("no one should be eliminated on second tie, but %s is", p.DisplayName)
		}
	}
}

func TestTiebreakUsed_ResetsNextNight(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 1)

	g := mustGet(t, s, gameID)
	g.Phase = model.PhaseDayElimination
	g.DayTiebreakUsed = true
	g.TiebreakCandidates = []string{g.Players[0].PlayerID}

	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNight)
	if g.RoundNumber != 2 {
		t.Errorf("round = %d, want 2", g.RoundNumber)
	}
	if g.DayTiebreakUsed {
		t.Error("dayTiebreakUsed should reset when a new night begins")
	}
	if g.TiebreakCandidates != nil {
		t.Errorf("tiebreakCandidates should reset, got %v", g.TiebreakCandidates)
	}
}

// --- 勝敗判定のテスト ---

func TestGameOver_OneStepDelayAfterDayElimination(t *testing.T) {
	s, m, clock := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	wolves, _ := wolvesAndVillagers(g)
	wolf := wolves[0]

	// 全員が人狼に投票
	for _, p := range g.Players {
		if err := s.CastVote(gameID, p.PlayerID, wolf.PlayerID); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	markAllDone(t, s, gameID)

	// 処刑発表フェーズでは勝者が内部的に決まっているがゲームは継続中
	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseDayElimination)
	if g.Winner != model.WinnerVillagers {
		t.Errorf("winner = %q, want Villagers", g.Winner)
	}
	if g.Status != model.StatusInProgress {
		t.Errorf("status = %q, want InProgress during elimination display", g.Status)
	}

	// 次の遷移でGameOverに入る
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}
	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseGameOver)
	if g.Status != model.StatusEnded {
		t.Errorf("status = %q, want Ended", g.Status)
	}
	if g.PhaseEndsAt != nil {
		t.Error("GameOver should have no deadline")
	}
	if g.EndedAt == nil || !g.EndedAt.Equal(clock.Now()) {
		t.Errorf("endedAt = %v, want %v", g.EndedAt, clock.Now())
	}
	if m.gamesOver[model.WinnerVillagers] != 1 {
		t.Errorf("game over metric = %v", m.gamesOver)
	}
}

func TestGameOver_WerewolvesWinByExtermination(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 4, 2)
	nightRound2(t, s, gameID)

	g := mustGet(t, s, gameID)
	wolves, villagers := wolvesAndVillagers(g)

	// 村人残り1人を襲撃して全滅させる
	villagers[0].IsEliminated = true
	for _, w := range wolves {
		if err := s.CastVote(gameID, w.PlayerID, villagers[1].PlayerID); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNightElimination)
	if g.Winner != model.WinnerWerewolves {
		t.Errorf("winner = %q, want Werewolves", g.Winner)
	}

	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}
	assertPhase(t, mustGet(t, s, gameID), model.PhaseGameOver)
}

func TestNoMajorityRule_OneOnOneContinues(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)
	discussion(t, s, gameID, creatorID)

	g := mustGet(t, s, gameID)
	_, villagers := wolvesAndVillagers(g)
	victim := villagers[0]

	// 村人が処刑されて人狼1対村人1になっても、全滅条件を満たさない限り続行
	for _, p := range g.Players {
		if err := s.CastVote(gameID, p.PlayerID, victim.PlayerID); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
	}
	markAllDone(t, s, gameID)

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseDayElimination)
	if g.Winner != "" {
		t.Errorf("winner = %q, want empty (game continues)", g.Winner)
	}

	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}
	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNight)
	if g.RoundNumber != 2 {
		t.Errorf("round = %d, want 2", g.RoundNumber)
	}
}

func TestGameOver_IsTerminal(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)

	g := mustGet(t, s, gameID)
	g.Phase = model.PhaseGameOver
	g.Winner = model.WinnerVillagers

	err := s.ForceAdvance(gameID, creatorID)
	if err != nil {
		// Ended後のForceAdvanceはNotInProgress、InProgressのままなら無変化のどちらも許容
		assertGameErrorCode(t, err, model.ErrCodeNotInProgress)
	}
	assertPhase(t, mustGet(t, s, gameID), model.PhaseGameOver)
}

// --- ForceAdvance とバージョンのテスト ---

func TestForceAdvance_RequiresCreator(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)

	g := mustGet(t, s, gameID)
	var other string
	for _, p := range g.Players {
		if !p.IsCreator {
			other = p.PlayerID
			break
		}
	}

	err := s.ForceAdvance(gameID, other)
	assertGameErrorCode(t, err, model.ErrCodeNotCreator)
}

func TestForceAdvance_RequiresInProgress(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := createGame(t, s)

	err := s.ForceAdvance(gameID, creatorID)
	assertGameErrorCode(t, err, model.ErrCodeNotInProgress)
}

func TestVersion_BumpsOncePerTransition(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)

	before := mustGet(t, s, gameID).Version
	if err := s.ForceAdvance(gameID, creatorID); err != nil { // RoleReveal -> Night
		t.Fatalf("ForceAdvance failed: %v", err)
	}
	if got := mustGet(t, s, gameID).Version; got != before+1 {
		t.Errorf("version after transition = %d, want %d", got, before+1)
	}
}

func TestVersion_GameOverTransitionBumps(t *testing.T) {
	s, _, _ := newTestService(t)
	gameID, creatorID := startedGame(t, s, 3, 1)

	g := mustGet(t, s, gameID)
	g.Phase = model.PhaseDayElimination
	g.Winner = model.WinnerVillagers
	before := g.Version

	if err := s.ForceAdvance(gameID, creatorID); err != nil {
		t.Fatalf("ForceAdvance failed: %v", err)
	}

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseGameOver)
	if g.Version != before+1 {
		t.Errorf("GameOver transition must bump version exactly once: %d -> %d", before, g.Version)
	}
}

// --- 締め切りの遅延評価のテスト ---

func TestTryAdvanceIfExpired_AdvancesPastDeadline(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)
	markAllDone(t, s, gameID) // -> Night (30s)

	clock.Advance(31 * time.Second)
	s.TryAdvanceIfExpired(gameID)

	assertPhase(t, mustGet(t, s, gameID), model.PhaseDiscussion)
}

func TestTryAdvanceIfExpired_BeforeDeadline_NoChange(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)
	markAllDone(t, s, gameID) // -> Night

	before := mustGet(t, s, gameID).Version
	clock.Advance(29 * time.Second)
	s.TryAdvanceIfExpired(gameID)

	g := mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseNight)
	if g.Version != before {
		t.Errorf("version changed without transition: %d -> %d", before, g.Version)
	}
}

func TestTryAdvanceIfExpired_NoDeadline_NoChange(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1) // RoleRevealは無期限

	clock.Advance(24 * time.Hour)
	s.TryAdvanceIfExpired(gameID)

	assertPhase(t, mustGet(t, s, gameID), model.PhaseRoleReveal)
}

func TestTryAdvanceIfExpired_EndedGame_NoChange(t *testing.T) {
	s, _, clock := newTestService(t)
	gameID, _ := startedGame(t, s, 3, 1)

	g := mustGet(t, s, gameID)
	g.Status = model.StatusEnded
	g.Phase = model.PhaseGameOver
	deadline := clock.Now().Add(-time.Minute)
	g.PhaseEndsAt = &deadline
	before := g.Version

	s.TryAdvanceIfExpired(gameID)

	g = mustGet(t, s, gameID)
	assertPhase(t, g, model.PhaseGameOver)
	if g.Version != before {
		t.Errorf("ended game must not advance: version %d -> %d", before, g.Version)
	}
}
