package game

import (
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jinro/internal/model"
	"github.com/hitoshi/jinro/internal/store"
)

// NameSanitizer はユーザー入力の表示名・ゲーム名を無害化するインターフェース。
type NameSanitizer interface {
	// Sanitize はHTMLタグ等を除去した安全なプレーンテキストを返す。
	Sanitize(name string) string
}

// QRGenerator は参加リンクのQRコード画像を生成するインターフェース。
type QRGenerator interface {
	// Base64PNG はテキストをエンコードしたPNG画像をbase64文字列で返す。
	Base64PNG(text string) (string, error)
}

// MetricsRecorder はゲーム進行のメトリクスを記録するインターフェース。
type MetricsRecorder interface {
	RecordGameCreated()
	RecordPlayerJoined()
	RecordVoteCast(phase string)
	RecordPhaseTransition(phase string)
	RecordPoll(unchanged bool)
	RecordGameOver(winner string)
}

// Defaults はゲーム作成時の初期設定値を保持する。
type Defaults struct {
	MinPlayers        int
	MaxPlayers        int
	DiscussionMinutes int
	Werewolves        int
}

// DefaultDefaults は標準の初期設定を返す。
func DefaultDefaults() Defaults {
	return Defaults{
		MinPlayers:        3,
		MaxPlayers:        20,
		DiscussionMinutes: 5,
		Werewolves:        1,
	}
}

// Service はゲームセッションの全操作を提供する。
// 同一ゲームへの状態変更はストアのセッションロックで直列化され、
// 異なるゲームの操作は並行に進行する。
type Service struct {
	store    *store.Store
	sanitize NameSanitizer
	qr       QRGenerator
	metrics  MetricsRecorder
	timings  Timings
	defaults Defaults

	// テストから差し替えるための時刻源。
	now func() time.Time
}

// NewService はServiceを生成する。
// metricsにnilを渡すと記録なしで動作する。
func NewService(st *store.Store, sanitizer NameSanitizer, qr QRGenerator, m MetricsRecorder, timings Timings, defaults Defaults) *Service {
	if m == nil {
		m = noopMetrics{}
	}
	return &Service{
		store:    st,
		sanitize: sanitizer,
		qr:       qr,
		metrics:  m,
		timings:  timings,
		defaults: defaults,
		now:      time.Now,
	}
}

// noopMetrics は何も記録しないMetricsRecorder。
type noopMetrics struct{}

func (noopMetrics) RecordGameCreated()           {}
func (noopMetrics) RecordPlayerJoined()          {}
func (noopMetrics) RecordVoteCast(string)        {}
func (noopMetrics) RecordPhaseTransition(string) {}
func (noopMetrics) RecordPoll(bool)              {}
func (noopMetrics) RecordGameOver(string)        {}

// 入力検証の境界値。
const (
	maxGameNameLen    = 50
	maxDisplayNameLen = 30
	minPlayersBound   = 2
	maxPlayersBound   = 40
	maxDiscussionMin  = 30
)

// Created はゲーム作成結果を表す。
type Created struct {
	GameID       string
	PlayerID     string
	JoinLink     string
	QRCodeBase64 string
}

// Create は新しいゲームを作成し、作成者を唯一の参加者として登録する。
// originは参加リンクの生成元（フロントエンドのベースURL）。
// QRコード生成に失敗した場合はログに記録し、QRなしで続行する。
func (s *Service) Create(gameName, creatorName string, maxPlayers int, origin string) (*Created, error) {
	gameName = s.sanitize.Sanitize(gameName)
	creatorName = s.sanitize.Sanitize(creatorName)

	if gameName == "" || len([]rune(gameName)) > maxGameNameLen {
		return nil, model.NewValidationError(fmt.Sprintf("ゲーム名は1〜%d文字で指定してください。", maxGameNameLen))
	}
	if creatorName == "" || len([]rune(creatorName)) > maxDisplayNameLen {
		return nil, model.NewValidationError(fmt.Sprintf("表示名は1〜%d文字で指定してください。", maxDisplayNameLen))
	}
	if maxPlayers < minPlayersBound || maxPlayers > maxPlayersBound {
		return nil, model.NewValidationError(fmt.Sprintf("最大人数は%d〜%dで指定してください。", minPlayersBound, maxPlayersBound))
	}
	if origin == "" {
		return nil, model.NewValidationError("参加リンクの生成元URLが指定されていません。")
	}

	gameID := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	playerID := uuid.New().String()
	joinLink := strings.TrimRight(origin, "/") + "/game/" + gameID

	qrBase64 := ""
	if s.qr != nil {
		var err error
		qrBase64, err = s.qr.Base64PNG(joinLink)
		if err != nil {
			slog.Warn("QR code generation failed",
				slog.String("game_id", gameID),
				slog.String("error", err.Error()),
			)
			qrBase64 = ""
		}
	}

	g := &model.Game{
		GameID:                    gameID,
		GameName:                  gameName,
		CreatorID:                 playerID,
		MinPlayers:                s.defaults.MinPlayers,
		MaxPlayers:                maxPlayers,
		JoinLink:                  joinLink,
		QRCodeBase64:              qrBase64,
		Status:                    model.StatusWaitingForPlayers,
		CreatedAt:                 s.now(),
		Version:                   1,
		DiscussionDurationMinutes: s.defaults.DiscussionMinutes,
		NumberOfWerewolves:        s.defaults.Werewolves,
		Phase:                     model.PhaseRoleReveal,
	}
	g.Players = append(g.Players, &model.Player{
		PlayerID:            playerID,
		DisplayName:         creatorName,
		IsCreator:           true,
		IsModerator:         true,
		IsConnected:         true,
		ParticipationStatus: model.ParticipationParticipating,
		JoinedAt:            s.now(),
	})
	recalcLobbyStatus(g)

	s.store.Put(g)
	s.metrics.RecordGameCreated()

	slog.Info("game created",
		slog.String("game_id", gameID),
		slog.String("creator", creatorName),
	)
	return &Created{
		GameID:       gameID,
		PlayerID:     playerID,
		JoinLink:     joinLink,
		QRCodeBase64: qrBase64,
	}, nil
}

// Joined はゲーム参加の結果を表す。
type Joined struct {
	PlayerID string
	Rejoined bool
}

// Join は新規参加、またはexistingPlayerIDによる再参加を処理する。
// Removedされた参加者の再参加は常に拒否する。Leftした参加者は復帰できる。
// 満員判定は参加中（Participating）の人数で行う。
func (s *Service) Join(gameID, displayName, existingPlayerID string) (*Joined, error) {
	g, ok := s.store.Get(gameID)
	if !ok {
		return nil, model.NewGameNotFoundError(gameID)
	}

	displayName = s.sanitize.Sanitize(displayName)
	if displayName == "" || len([]rune(displayName)) > maxDisplayNameLen {
		return nil, model.NewValidationError(fmt.Sprintf("表示名は1〜%d文字で指定してください。", maxDisplayNameLen))
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	// 再参加の判定が満員判定より先。既存レコードの復帰は定員を消費しない
	// 判定で弾かれるべきではない。
	if existingPlayerID != "" {
		if p := g.FindPlayer(existingPlayerID); p != nil {
			if p.ParticipationStatus == model.ParticipationRemoved {
				return nil, model.NewPlayerRemovedError()
			}
			p.IsConnected = true
			p.ParticipationStatus = model.ParticipationParticipating
			recalcLobbyStatus(g)
			g.BumpVersion()
			slog.Info("player rejoined",
				slog.String("game_id", gameID),
				slog.String("player_id", existingPlayerID),
			)
			return &Joined{PlayerID: existingPlayerID, Rejoined: true}, nil
		}
	}

	active := g.ActivePlayerCount()
	if active >= g.MaxPlayers {
		return nil, model.NewGameFullError(active, g.MaxPlayers)
	}

	playerID := uuid.New().String()
	g.Players = append(g.Players, &model.Player{
		PlayerID:            playerID,
		DisplayName:         displayName,
		IsConnected:         true,
		ParticipationStatus: model.ParticipationParticipating,
		JoinedAt:            s.now(),
	})
	recalcLobbyStatus(g)
	g.BumpVersion()
	s.metrics.RecordPlayerJoined()

	slog.Info("player joined",
		slog.String("game_id", gameID),
		slog.String("player_id", playerID),
		slog.String("display_name", displayName),
	)
	return &Joined{PlayerID: playerID}, nil
}

// Leave は参加者をLeft状態にする。レコードは削除しない。
func (s *Service) Leave(gameID, playerID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	p := g.FindPlayer(playerID)
	if p == nil {
		return model.NewPlayerNotFoundError(playerID)
	}

	p.ParticipationStatus = model.ParticipationLeft
	p.IsConnected = false
	recalcLobbyStatus(g)
	g.BumpVersion()
	slog.Info("player left",
		slog.String("game_id", gameID),
		slog.String("player_id", playerID),
	)
	return nil
}

// Remove はモデレーターによる参加者の恒久除外を処理する。
// 作成者を除外することはできない。
func (s *Service) Remove(gameID, playerID, moderatorID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	mod := g.FindPlayer(moderatorID)
	if mod == nil || !mod.IsModerator {
		return model.NewNotModeratorError()
	}

	p := g.FindPlayer(playerID)
	if p == nil {
		return model.NewPlayerNotFoundError(playerID)
	}
	if p.IsCreator {
		return model.NewNotModeratorError()
	}

	p.ParticipationStatus = model.ParticipationRemoved
	p.IsConnected = false
	recalcLobbyStatus(g)
	g.BumpVersion()
	slog.Info("player removed",
		slog.String("game_id", gameID),
		slog.String("player_id", playerID),
		slog.String("moderator_id", moderatorID),
	)
	return nil
}

// Settings はゲーム設定の更新値を表す。
type Settings struct {
	MinPlayers                int
	MaxPlayers                int
	DiscussionDurationMinutes int
	NumberOfWerewolves        int
}

// UpdateSettings は作成者によるゲーム設定の一括更新を処理する。
// 人狼の数は1以上かつ参加人数未満でなければならない。
func (s *Service) UpdateSettings(gameID, creatorID string, settings Settings) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.CreatorID != creatorID {
		return model.NewNotCreatorError("設定の変更")
	}

	if settings.MinPlayers < minPlayersBound || settings.MinPlayers > maxPlayersBound ||
		settings.MaxPlayers < minPlayersBound || settings.MaxPlayers > maxPlayersBound {
		return model.NewValidationError(fmt.Sprintf("参加人数は%d〜%dで指定してください。", minPlayersBound, maxPlayersBound))
	}
	if settings.DiscussionDurationMinutes < 1 || settings.DiscussionDurationMinutes > maxDiscussionMin {
		return model.NewValidationError(fmt.Sprintf("討論時間は1〜%d分で指定してください。", maxDiscussionMin))
	}
	if settings.NumberOfWerewolves < 1 || settings.NumberOfWerewolves >= g.ActivePlayerCount() {
		return model.NewValidationError("人狼の数は1以上かつ参加人数未満で指定してください。")
	}

	g.MinPlayers = settings.MinPlayers
	g.MaxPlayers = settings.MaxPlayers
	g.DiscussionDurationMinutes = settings.DiscussionDurationMinutes
	g.NumberOfWerewolves = settings.NumberOfWerewolves
	recalcLobbyStatus(g)
	g.BumpVersion()
	slog.Info("settings updated",
		slog.String("game_id", gameID),
		slog.Int("min_players", settings.MinPlayers),
		slog.Int("max_players", settings.MaxPlayers),
		slog.Int("discussion_minutes", settings.DiscussionDurationMinutes),
		slog.Int("werewolves", settings.NumberOfWerewolves),
	)
	return nil
}

// UpdateGameName は作成者によるゲーム名の変更を処理する。
func (s *Service) UpdateGameName(gameID, creatorID, gameName string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	gameName = s.sanitize.Sanitize(gameName)
	if gameName == "" || len([]rune(gameName)) > maxGameNameLen {
		return model.NewValidationError(fmt.Sprintf("ゲーム名は1〜%d文字で指定してください。", maxGameNameLen))
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.CreatorID != creatorID {
		return model.NewNotCreatorError("ゲーム名の変更")
	}

	g.GameName = gameName
	g.BumpVersion()
	return nil
}

// UpdatePlayerName は本人による表示名の変更を処理する。
// ゲーム開始後の変更は不可。モデレーターでも他人の名前は変更できない。
func (s *Service) UpdatePlayerName(gameID, playerID, displayName string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	displayName = s.sanitize.Sanitize(displayName)
	if displayName == "" || len([]rune(displayName)) > maxDisplayNameLen {
		return model.NewValidationError(fmt.Sprintf("表示名は1〜%d文字で指定してください。", maxDisplayNameLen))
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.Status == model.StatusInProgress || g.Status == model.StatusEnded {
		return model.NewStateError(model.ErrCodeWrongPhase, "ゲーム開始後は名前を変更できません。")
	}

	p := g.FindPlayer(playerID)
	if p == nil {
		return model.NewPlayerNotFoundError(playerID)
	}

	p.DisplayName = displayName
	g.BumpVersion()
	return nil
}

// Start は作成者によるゲーム開始を処理する。
// 参加中のプレイヤーに役職をランダムに割り当て（人狼は設定数ちょうど）、
// ラウンド1のRoleRevealフェーズへ移行する。
func (s *Service) Start(gameID, creatorID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.CreatorID != creatorID {
		return model.NewNotCreatorError("ゲームの開始")
	}
	if g.Status != model.StatusReadyToStart {
		return model.NewStateError(model.ErrCodeNotReady, "開始に必要な人数が揃っていません。")
	}

	var active []*model.Player
	for _, p := range g.Players {
		if p.ParticipationStatus == model.ParticipationParticipating {
			active = append(active, p)
		}
	}
	if g.NumberOfWerewolves >= len(active) {
		return model.NewStateError(model.ErrCodeNotReady, "人狼の数が参加人数に対して多すぎます。")
	}

	// Fisher-Yatesで公平にシャッフルし、先頭N人を人狼にする。
	rand.Shuffle(len(active), func(i, j int) {
		active[i], active[j] = active[j], active[i]
	})
	for i, p := range active {
		if i < g.NumberOfWerewolves {
			p.Role = model.RoleWerewolf
		} else {
			p.Role = model.RoleVillager
		}
	}

	for _, p := range g.Players {
		p.IsDone = false
		p.IsEliminated = false
	}

	g.Status = model.StatusInProgress
	g.Phase = model.PhaseRoleReveal
	g.RoundNumber = 1
	g.PhaseEndsAt = nil
	g.NightVotes = nil
	g.DayVotes = nil
	g.TiebreakCandidates = nil
	g.DayTiebreakUsed = false
	g.LastEliminatedByNight = ""
	g.LastEliminatedByDay = ""
	g.Winner = ""
	g.BumpVersion()

	slog.Info("game started",
		slog.String("game_id", gameID),
		slog.Int("players", len(active)),
		slog.Int("werewolves", g.NumberOfWerewolves),
	)
	return nil
}

// MarkDone は参加者のdoneフラグを立てる。
// 適格者（参加中かつ未脱落）全員がdoneになった場合、手動進行フェーズ
// （RoleReveal / Discussion / TiebreakDiscussion）であれば次のフェーズへ進める。
func (s *Service) MarkDone(gameID, playerID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.Status != model.StatusInProgress {
		return model.NewNotInProgressError()
	}

	p := g.FindPlayer(playerID)
	if p == nil {
		return model.NewPlayerNotFoundError(playerID)
	}

	p.IsDone = true
	g.BumpVersion()

	allDone := true
	for _, q := range g.Players {
		if q.IsAlive() && !q.IsDone {
			allDone = false
			break
		}
	}

	if allDone {
		switch g.Phase {
		case model.PhaseRoleReveal, model.PhaseDiscussion, model.PhaseTiebreakDiscussion:
			s.advancePhase(g)
		}
	}
	return nil
}

// CastVote は投票を処理する。同一投票者の再投票は前の票を置き換える。
// 夜は生存している人狼のみ、初夜は全面禁止。
// 昼・タイブレークは脱落者不可、タイブレークは候補者のみ対象にできる。
func (s *Service) CastVote(gameID, voterID, targetID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.Status != model.StatusInProgress {
		return model.NewNotInProgressError()
	}

	voter := g.FindPlayer(voterID)
	if voter == nil {
		return model.NewPlayerNotFoundError(voterID)
	}
	if g.FindPlayer(targetID) == nil {
		return &model.GameError{
			Code:     model.ErrCodeInvalidTarget,
			Message:  "投票対象が見つかりません。",
			Category: "validation",
			Action:   "対象を選び直してください。",
		}
	}

	switch g.Phase {
	case model.PhaseNight:
		if voter.Role != model.RoleWerewolf || voter.IsEliminated {
			return &model.GameError{
				Code:     model.ErrCodeVoteNotAllowed,
				Message:  "夜に投票できるのは生存している人狼のみです。",
				Category: "state",
				Action:   "",
			}
		}
		if g.RoundNumber == 1 {
			return model.NewStateError(model.ErrCodeVoteNotAllowed, "初夜の襲撃はありません。")
		}
		g.NightVotes = replaceVote(g.NightVotes, voterID, targetID)

	case model.PhaseDiscussion, model.PhaseTiebreakDiscussion:
		if voter.IsEliminated {
			return model.NewStateError(model.ErrCodeVoteNotAllowed, "脱落したプレイヤーは投票できません。")
		}
		if g.Phase == model.PhaseTiebreakDiscussion && !contains(g.TiebreakCandidates, targetID) {
			return model.NewStateError(model.ErrCodeInvalidTarget, "タイブレークでは同票候補者にのみ投票できます。")
		}
		g.DayVotes = replaceVote(g.DayVotes, voterID, targetID)

	default:
		return model.NewStateError(model.ErrCodeWrongPhase, "このフェーズでは投票できません。")
	}

	g.BumpVersion()
	s.metrics.RecordVoteCast(string(g.Phase))
	return nil
}

// ForceAdvance は作成者による強制フェーズ進行を処理する。
func (s *Service) ForceAdvance(gameID, creatorID string) error {
	g, ok := s.store.Get(gameID)
	if !ok {
		return model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.CreatorID != creatorID {
		return model.NewNotCreatorError("フェーズの強制進行")
	}
	if g.Status != model.StatusInProgress {
		return model.NewNotInProgressError()
	}

	s.advancePhase(g)
	return nil
}

// TryAdvanceIfExpired は締め切り超過時のフェーズ進行を遅延評価する。
// バックグラウンドのスケジューラは存在せず、ポーリング読み取り等の
// 次の呼び出しが代わりに締め切りを検査する設計（遷移はクライアントの
// ポーリング間隔ぶんだけ遅れうるが、それは意図した選択）。
// 期限条件はセッションロック取得後に評価するため、同時に2つのポーリングが
// 競合しても遷移は最大1回しか起きない。
func (s *Service) TryAdvanceIfExpired(gameID string) {
	g, ok := s.store.Get(gameID)
	if !ok {
		return
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.Status != model.StatusInProgress {
		return
	}
	if g.PhaseEndsAt == nil || s.now().Before(*g.PhaseEndsAt) {
		return
	}

	s.advancePhase(g)
}

// Role は役職照会の結果を表す。
type Role struct {
	Role             string
	FellowWerewolves []string
}

// PlayerRole は参加者の役職を返す。
// 人狼の場合、夜フェーズ中に限り他の生存人狼の表示名を同封する。
// ゲームが開始（または終了）していない場合はエラーを返す。
func (s *Service) PlayerRole(gameID, playerID string) (*Role, error) {
	g, ok := s.store.Get(gameID)
	if !ok {
		return nil, model.NewGameNotFoundError(gameID)
	}

	mu := s.store.Lock(gameID)
	mu.Lock()
	defer mu.Unlock()

	if g.Status != model.StatusInProgress && g.Status != model.StatusEnded {
		return nil, model.NewStateError(model.ErrCodeNotStarted, "ゲームはまだ開始されていません。")
	}

	p := g.FindPlayer(playerID)
	if p == nil || p.Role == "" {
		return nil, model.NewPlayerNotFoundError(playerID)
	}

	role := &Role{Role: string(p.Role), FellowWerewolves: []string{}}
	if p.Role == model.RoleWerewolf && g.Phase == model.PhaseNight {
		for _, q := range g.Players {
			if q.Role == model.RoleWerewolf && q.PlayerID != playerID && !q.IsEliminated {
				role.FellowWerewolves = append(role.FellowWerewolves, q.DisplayName)
			}
		}
	}
	return role, nil
}

// replaceVote はvoterIDの既存票を取り除いてから新しい票を追加する。
func replaceVote(votes []model.Vote, voterID, targetID string) []model.Vote {
	out := votes[:0]
	for _, v := range votes {
		if v.VoterID != voterID {
			out = append(out, v)
		}
	}
	return append(out, model.Vote{VoterID: voterID, TargetID: targetID})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
