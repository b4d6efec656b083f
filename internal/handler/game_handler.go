// Package handler はゲームAPIのHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/jinro/internal/game"
	"github.com/hitoshi/jinro/internal/model"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	// Create は新しいゲームを作成する。
	Create(gameName, creatorName string, maxPlayers int, origin string) (*game.Created, error)
	// Join は新規参加または再参加を処理する。
	Join(gameID, displayName, existingPlayerID string) (*game.Joined, error)
	// Snapshot は現在の状態を返す。lastVersionと一致する場合はunchanged=trueを返す。
	Snapshot(gameID string, lastVersion int) (*game.Snapshot, bool, error)
	// Leave は参加者の退出を処理する。
	Leave(gameID, playerID string) error
	// Remove はモデレーターによる参加者の除名を処理する。
	Remove(gameID, playerID, moderatorID string) error
	// UpdateSettings は作成者によるゲーム設定の更新を処理する。
	UpdateSettings(gameID, creatorID string, settings game.Settings) error
	// UpdateGameName は作成者によるゲーム名の変更を処理する。
	UpdateGameName(gameID, creatorID, gameName string) error
	// UpdatePlayerName は参加者自身の表示名変更を処理する。
	UpdatePlayerName(gameID, playerID, displayName string) error
	// Start は作成者によるゲーム開始と役職配布を処理する。
	Start(gameID, creatorID string) error
	// MarkDone は参加者の準備完了を記録する。
	MarkDone(gameID, playerID string) error
	// CastVote は投票を処理する。
	CastVote(gameID, voterID, targetID string) error
	// ForceAdvance は作成者による強制フェーズ遷移を処理する。
	ForceAdvance(gameID, creatorID string) error
	// PlayerRole は参加者の役職を返す。
	PlayerRole(gameID, playerID string) (*game.Role, error)
}

// GameHandler はゲーム管理のHTTPハンドラー。
type GameHandler struct {
	service GameServiceInterface
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface) *GameHandler {
	return &GameHandler{service: service}
}

// createGameRequest はゲーム作成リクエストのボディ。
type createGameRequest struct {
	GameName        string `json:"gameName"`
	CreatorName     string `json:"creatorName"`
	MaxPlayers      int    `json:"maxPlayers"`
	FrontendBaseURL string `json:"frontendBaseUrl"`
}

// createGameResponse はゲーム作成のAPIレスポンス。
type createGameResponse struct {
	GameID       string `json:"gameId"`
	PlayerID     string `json:"playerId"`
	JoinLink     string `json:"joinLink"`
	QRCodeBase64 string `json:"qrCodeBase64"`
}

// joinGameRequest はゲーム参加リクエストのボディ。
// playerIdが指定された場合は再参加として扱う。
type joinGameRequest struct {
	DisplayName string `json:"displayName"`
	PlayerID    string `json:"playerId"`
}

// joinGameResponse はゲーム参加のAPIレスポンス。
type joinGameResponse struct {
	PlayerID string `json:"playerId"`
	Rejoined bool   `json:"rejoined"`
}

// playerActionRequest は参加者自身の操作（退出・準備完了）のボディ。
type playerActionRequest struct {
	PlayerID string `json:"playerId"`
}

// removePlayerRequest は参加者除名リクエストのボディ。
type removePlayerRequest struct {
	PlayerID    string `json:"playerId"`
	ModeratorID string `json:"moderatorId"`
}

// updateSettingsRequest はゲーム設定更新リクエストのボディ。
type updateSettingsRequest struct {
	CreatorID                 string `json:"creatorId"`
	MinPlayers                int    `json:"minPlayers"`
	MaxPlayers                int    `json:"maxPlayers"`
	DiscussionDurationMinutes int    `json:"discussionDurationMinutes"`
	NumberOfWerewolves        int    `json:"numberOfWerewolves"`
}

// updateGameNameRequest はゲーム名変更リクエストのボディ。
type updateGameNameRequest struct {
	CreatorID string `json:"creatorId"`
	GameName  string `json:"gameName"`
}

// updatePlayerNameRequest は表示名変更リクエストのボディ。
type updatePlayerNameRequest struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// creatorActionRequest は作成者の操作（開始・強制遷移）のボディ。
type creatorActionRequest struct {
	CreatorID string `json:"creatorId"`
}

// castVoteRequest は投票リクエストのボディ。
type castVoteRequest struct {
	VoterID  string `json:"voterId"`
	TargetID string `json:"targetId"`
}

// roleResponse は役職照会のAPIレスポンス。
type roleResponse struct {
	Role             string   `json:"role"`
	FellowWerewolves []string `json:"fellowWerewolves"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateGame はゲーム作成を処理する。
// POST /api/game/create
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(req.GameName, req.CreatorName, req.MaxPlayers, req.FrontendBaseURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createGameResponse{
		GameID:       created.GameID,
		PlayerID:     created.PlayerID,
		JoinLink:     created.JoinLink,
		QRCodeBase64: created.QRCodeBase64,
	})
}

// JoinGame はゲーム参加を処理する。
// POST /api/game/:gameID/join
func (h *GameHandler) JoinGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req joinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	joined, err := h.service.Join(gameID, req.DisplayName, req.PlayerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, joinGameResponse{
		PlayerID: joined.PlayerID,
		Rejoined: joined.Rejoined,
	})
}

// GetGameState はゲーム状態の取得を処理する。
// GET /api/game/:gameID?version=N
//
// versionクエリパラメータが現在のバージョンと一致する場合は204を返し、
// ポーリングクライアントの帯域を節約する。
func (h *GameHandler) GetGameState(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	lastVersion := -1
	if v := r.URL.Query().Get("version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("versionは整数で指定してください。"))
			return
		}
		lastVersion = parsed
	}

	snapshot, unchanged, err := h.service.Snapshot(gameID, lastVersion)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if unchanged {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// LeaveGame は参加者の退出を処理する。
// POST /api/game/:gameID/leave
func (h *GameHandler) LeaveGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req playerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.Leave(gameID, req.PlayerID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemovePlayer はモデレーターによる参加者の除名を処理する。
// POST /api/game/:gameID/remove
func (h *GameHandler) RemovePlayer(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req removePlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.Remove(gameID, req.PlayerID, req.ModeratorID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateSettings はゲーム設定の更新を処理する。
// POST /api/game/:gameID/settings
func (h *GameHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	settings := game.Settings{
		MinPlayers:                req.MinPlayers,
		MaxPlayers:                req.MaxPlayers,
		DiscussionDurationMinutes: req.DiscussionDurationMinutes,
		NumberOfWerewolves:        req.NumberOfWerewolves,
	}

	if err := h.service.UpdateSettings(gameID, req.CreatorID, settings); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdateGameName はゲーム名の変更を処理する。
// POST /api/game/:gameID/name
func (h *GameHandler) UpdateGameName(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req updateGameNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdateGameName(gameID, req.CreatorID, req.GameName); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UpdatePlayerName は参加者自身の表示名変更を処理する。
// POST /api/game/:gameID/player-name
func (h *GameHandler) UpdatePlayerName(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req updatePlayerNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.UpdatePlayerName(gameID, req.PlayerID, req.DisplayName); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartGame はゲーム開始を処理する。
// POST /api/game/:gameID/start
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req creatorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.Start(gameID, req.CreatorID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MarkDone は参加者の準備完了を処理する。
// POST /api/game/:gameID/done
func (h *GameHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req playerActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.MarkDone(gameID, req.PlayerID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CastVote は投票を処理する。
// POST /api/game/:gameID/vote
func (h *GameHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.CastVote(gameID, req.VoterID, req.TargetID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ForceAdvance は作成者による強制フェーズ遷移を処理する。
// POST /api/game/:gameID/force-advance
func (h *GameHandler) ForceAdvance(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	var req creatorActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if err := h.service.ForceAdvance(gameID, req.CreatorID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetRole は参加者の役職照会を処理する。
// GET /api/game/:gameID/role?playerId=xxx
func (h *GameHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	playerID := r.URL.Query().Get("playerId")

	if playerID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("playerIdを指定してください。"))
		return
	}

	role, err := h.service.PlayerRole(gameID, playerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	fellows := role.FellowWerewolves
	if fellows == nil {
		fellows = []string{}
	}

	writeJSON(w, http.StatusOK, roleResponse{
		Role:             role.Role,
		FellowWerewolves: fellows,
	})
}

// --- ヘルパー関数 ---

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, gameErr *model.GameError) {
	writeJSON(w, statusCode, apiErrorResponse{
		Code:     gameErr.Code,
		Message:  gameErr.Message,
		Category: gameErr.Category,
		Action:   gameErr.Action,
	})
}

// writeInvalidRequestBody はリクエストボディ解析失敗の400レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.GameError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var gameErr *model.GameError
	if errors.As(err, &gameErr) {
		writeAPIErrorResponse(w, mapGameErrorToHTTPStatus(gameErr), gameErr)
		return
	}

	// GameError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.GameError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapGameErrorToHTTPStatus はエラーカテゴリをHTTPステータスコードにマッピングする。
func mapGameErrorToHTTPStatus(gameErr *model.GameError) int {
	switch gameErr.Category {
	case "not_found":
		return http.StatusNotFound
	case "auth":
		return http.StatusUnauthorized
	case "state", "validation":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
