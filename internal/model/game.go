// Package model はドメインモデルを定義する。
package model

import "time"

// GameStatus はゲームセッションのライフサイクル状態を表す。
// WaitingForPlayers / ReadyToStart はロビー中の参加人数から導出され、
// InProgress 以降は明示的な遷移でのみ変化する。
type GameStatus string

const (
	StatusWaitingForPlayers GameStatus = "WaitingForPlayers"
	StatusReadyToStart      GameStatus = "ReadyToStart"
	StatusInProgress        GameStatus = "InProgress"
	StatusEnded             GameStatus = "Ended"
)

// GamePhase は進行中ゲームのフェーズを表す。
type GamePhase string

const (
	PhaseRoleReveal         GamePhase = "RoleReveal"
	PhaseNight              GamePhase = "Night"
	PhaseNightElimination   GamePhase = "NightElimination"
	PhaseDiscussion         GamePhase = "Discussion"
	PhaseTiebreakDiscussion GamePhase = "TiebreakDiscussion"
	PhaseDayElimination     GamePhase = "DayElimination"
	PhaseGameOver           GamePhase = "GameOver"
)

// 勝利陣営のラベル。一度設定されたらセッション中は変更されない。
const (
	WinnerVillagers  = "Villagers"
	WinnerWerewolves = "Werewolves"
)

// Vote は1票（投票者→対象）を表す。
// 同一投票ウィンドウ内で投票者ごとに最新の1票のみが有効（last-write-wins）。
type Vote struct {
	VoterID  string
	TargetID string
}

// Game は1つのゲームセッションの全状態を保持する。
// フィールドの読み書きはストアが払い出すセッション単位のロック下で行うこと。
type Game struct {
	GameID                    string
	GameName                  string
	CreatorID                 string
	MinPlayers                int
	MaxPlayers                int
	JoinLink                  string
	QRCodeBase64              string
	Status                    GameStatus
	CreatedAt                 time.Time
	Players                   []*Player
	Version                   int
	DiscussionDurationMinutes int
	NumberOfWerewolves        int

	// セッション状態
	Phase                 GamePhase
	RoundNumber           int
	PhaseEndsAt           *time.Time
	NightVotes            []Vote
	DayVotes              []Vote
	TiebreakCandidates    []string
	DayTiebreakUsed       bool
	LastEliminatedByNight string
	LastEliminatedByDay   string
	Winner                string
	EndedAt               *time.Time
}

// FindPlayer はplayerIDに一致する参加者を返す。見つからない場合はnil。
func (g *Game) FindPlayer(playerID string) *Player {
	for _, p := range g.Players {
		if p.PlayerID == playerID {
			return p
		}
	}
	return nil
}

// ActivePlayerCount は参加中（Participating）の人数を返す。
func (g *Game) ActivePlayerCount() int {
	n := 0
	for _, p := range g.Players {
		if p.ParticipationStatus == ParticipationParticipating {
			n++
		}
	}
	return n
}

// BumpVersion はバージョンカウンターを1進める。
// 外部から観測可能な変更を行った呼び出し側は必ず1回だけ呼ぶこと。
// ポーリングクライアントの差分検知はこのカウンターの厳密な単調増加に依存する。
func (g *Game) BumpVersion() {
	g.Version++
}
