package model

import "time"

// ParticipationStatus は参加者のセッションへの参加状態を表す。
// Removedは恒久的で、同じIDでの再参加は常に拒否される。
// Leftは自発的な退出で、同じIDでの再参加が可能。
type ParticipationStatus string

const (
	ParticipationParticipating ParticipationStatus = "Participating"
	ParticipationLeft          ParticipationStatus = "Left"
	ParticipationRemoved       ParticipationStatus = "Removed"
)

// PlayerRole はゲーム開始時に割り当てられる役職を表す。
// 開始前は空文字で、割り当て後はセッション中に再割り当てされない。
type PlayerRole string

const (
	RoleVillager PlayerRole = "Villager"
	RoleWerewolf PlayerRole = "Werewolf"
)

// Player はセッション内の1参加者を表す。
// レコードは退出・除外後も削除されない（再参加判定と履歴のため）。
type Player struct {
	PlayerID            string
	DisplayName         string
	IsCreator           bool
	IsModerator         bool
	IsConnected         bool
	ParticipationStatus ParticipationStatus
	Role                PlayerRole
	IsEliminated        bool
	IsDone              bool
	JoinedAt            time.Time
}

// IsAlive は参加中かつ未脱落であることを返す。
// 投票権と「全員done」判定の適格性はこの条件で決まる。
func (p *Player) IsAlive() bool {
	return p.ParticipationStatus == ParticipationParticipating && !p.IsEliminated
}
