package game

import (
	"strings"
	"time"

	"github.com/hitoshi/jinro/internal/model"
)

// Snapshot はポーリングクライアントに返す全状態のスナップショット。
// JSONフィールド名は同期プロトコルのワイヤ契約そのもの。
type Snapshot struct {
	Game              GameInfo     `json:"game"`
	Players           []PlayerInfo `json:"players"`
	HasDuplicateNames bool         `json:"hasDuplicateNames"`
}

// GameInfo はスナップショット内のゲーム情報。
type GameInfo struct {
	GameID                    string     `json:"gameId"`
	GameName                  string     `json:"gameName"`
	CreatorID                 string     `json:"creatorId"`
	CreatorName               string     `json:"creatorName"`
	MinPlayers                int        `json:"minPlayers"`
	MaxPlayers                int        `json:"maxPlayers"`
	JoinLink                  string     `json:"joinLink"`
	QRCodeBase64              string     `json:"qrCodeBase64"`
	Status                    string     `json:"status"`
	Version                   int        `json:"version"`
	DiscussionDurationMinutes int        `json:"discussionDurationMinutes"`
	NumberOfWerewolves        int        `json:"numberOfWerewolves"`
	Phase                     string     `json:"phase"`
	RoundNumber               int        `json:"roundNumber"`
	PhaseEndsAt               *time.Time `json:"phaseEndsAt"`
	LastEliminatedByNight     *string    `json:"lastEliminatedByNight"`
	LastEliminatedByNightName *string    `json:"lastEliminatedByNightName"`
	LastEliminatedByDay       *string    `json:"lastEliminatedByDay"`
	LastEliminatedByDayName   *string    `json:"lastEliminatedByDayName"`
	Winner                    *string    `json:"winner"`
	TiebreakCandidates        []string   `json:"tiebreakCandidates"`
}

// PlayerInfo はスナップショット内の参加者情報。
type PlayerInfo struct {
	PlayerID            string    `json:"playerId"`
	DisplayName         string    `json:"displayName"`
	IsCreator           bool      `json:"isCreator"`
	IsModerator         bool      `json:"isModerator"`
	IsConnected         bool      `json:"isConnected"`
	ParticipationStatus string    `json:"participationStatus"`
	Role                *string   `json:"role"`
	IsEliminated        bool      `json:"isEliminated"`
	IsDone              bool      `json:"isDone"`
	JoinedAt            time.Time `json:"joinedAt"`
}

// Snapshot は同期プロトコルの読み取り側を実装する。
// 読み取り前に締め切り超過の遅延チェックを走らせるため、専用の
// スケジューラなしでもポーリング自体がフェーズ進行の引き金になる。
// lastVersionが現在のバージョンと一致する場合は「変更なし」を
// unchanged=trueで返し、スナップショットは構築しない。
// lastVersionに負数を渡すと常にスナップショットを返す。
func (s *Service) Snapshot(gameID string, lastVersion int) (snap *Snapshot, unchanged bool, err error) {
	s.TryAdvanceIfExpired(gameID)

	g, ok := s.store.Get(gameID)
	if !ok {
		return nil, false, model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if lastVersion >= 0 && lastVersion == g.Version {
		s.metrics.RecordPoll(true)
		return nil, true, nil
	}
	s.metrics.RecordPoll(false)
	return buildSnapshot(g), false, nil
}

// buildSnapshot はセッションロック下でスナップショットを構築する。
// 作成者の表示名はキャッシュせず、常に現在の参加者レコードから解決する。
// 作成者が改名した場合も即座にスナップショットへ反映される。
func buildSnapshot(g *model.Game) *Snapshot {
	creatorName := "Unknown"
	names := make(map[string]string, len(g.Players))
	for _, p := range g.Players {
		names[p.PlayerID] = p.DisplayName
		if p.PlayerID == g.CreatorID {
			creatorName = p.DisplayName
		}
	}

	tiebreak := g.TiebreakCandidates
	if tiebreak == nil {
		tiebreak = []string{}
	}

	snap := &Snapshot{
		Game: GameInfo{
			GameID:                    g.GameID,
			GameName:                  g.GameName,
			CreatorID:                 g.CreatorID,
			CreatorName:               creatorName,
			MinPlayers:                g.MinPlayers,
			MaxPlayers:                g.MaxPlayers,
			JoinLink:                  g.JoinLink,
			QRCodeBase64:              g.QRCodeBase64,
			Status:                    string(g.Status),
			Version:                   g.Version,
			DiscussionDurationMinutes: g.DiscussionDurationMinutes,
			NumberOfWerewolves:        g.NumberOfWerewolves,
			Phase:                     string(g.Phase),
			RoundNumber:               g.RoundNumber,
			PhaseEndsAt:               g.PhaseEndsAt,
			LastEliminatedByNight:     nilIfEmpty(g.LastEliminatedByNight),
			LastEliminatedByNightName: lookupName(names, g.LastEliminatedByNight),
			LastEliminatedByDay:       nilIfEmpty(g.LastEliminatedByDay),
			LastEliminatedByDayName:   lookupName(names, g.LastEliminatedByDay),
			Winner:                    nilIfEmpty(g.Winner),
			TiebreakCandidates:        tiebreak,
		},
		Players:           make([]PlayerInfo, 0, len(g.Players)),
		HasDuplicateNames: hasDuplicateNames(g),
	}

	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerInfo{
			PlayerID:            p.PlayerID,
			DisplayName:         p.DisplayName,
			IsCreator:           p.IsCreator,
			IsModerator:         p.IsModerator,
			IsConnected:         p.IsConnected,
			ParticipationStatus: string(p.ParticipationStatus),
			Role:                nilIfEmpty(string(p.Role)),
			IsEliminated:        p.IsEliminated,
			IsDone:              p.IsDone,
			JoinedAt:            p.JoinedAt,
		})
	}
	return snap
}

// hasDuplicateNames は参加中プレイヤーの表示名に大文字小文字を無視した
// 重複があるかを返す。
func hasDuplicateNames(g *model.Game) bool {
	seen := make(map[string]bool)
	for _, p := range g.Players {
		if p.ParticipationStatus != model.ParticipationParticipating {
			continue
		}
		key := strings.ToLower(p.DisplayName)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}

func nilIfEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func lookupName(names map[string]string, playerID string) *string {
	if playerID == "" {
		return nil
	}
	if name, ok := names[playerID]; ok {
		return &name
	}
	return nil
}
