package model

import "fmt"

// GameError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// 想定内の失敗はすべてこの型の値として返し、panicにはしない。
type GameError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: not_found, auth, state, validation
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *GameError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeGameNotFound     = "GAME_NOT_FOUND"
	ErrCodePlayerNotFound   = "PLAYER_NOT_FOUND"
	ErrCodeGameFull         = "GAME_FULL"
	ErrCodePlayerRemoved    = "PLAYER_REMOVED"
	ErrCodeNotCreator       = "NOT_CREATOR"
	ErrCodeNotModerator     = "NOT_MODERATOR"
	ErrCodeNotInProgress    = "GAME_NOT_IN_PROGRESS"
	ErrCodeNotReady         = "GAME_NOT_READY"
	ErrCodeNotStarted       = "GAME_NOT_STARTED"
	ErrCodeWrongPhase       = "WRONG_PHASE"
	ErrCodeVoteNotAllowed   = "VOTE_NOT_ALLOWED"
	ErrCodeInvalidTarget    = "INVALID_TARGET"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
)

// NewGameNotFoundError はゲーム未検出エラーを生成する。
func NewGameNotFoundError(gameID string) *GameError {
	return &GameError{
		Code:     ErrCodeGameNotFound,
		Message:  fmt.Sprintf("指定されたゲームが見つかりません: %s", gameID),
		Category: "not_found",
		Action:   "ゲームIDを確認してください。",
	}
}

// NewPlayerNotFoundError はプレイヤー未検出エラーを生成する。
func NewPlayerNotFoundError(playerID string) *GameError {
	return &GameError{
		Code:     ErrCodePlayerNotFound,
		Message:  fmt.Sprintf("指定されたプレイヤーが見つかりません: %s", playerID),
		Category: "not_found",
		Action:   "プレイヤーIDを確認してください。",
	}
}

// NewGameFullError は定員超過エラーを生成する。
func NewGameFullError(active, max int) *GameError {
	return &GameError{
		Code:     ErrCodeGameFull,
		Message:  fmt.Sprintf("ゲームが満員です（%d/%d）。", active, max),
		Category: "validation",
		Action:   "別のゲームに参加するか、空きが出るまでお待ちください。",
	}
}

// NewPlayerRemovedError は除外済みプレイヤーの再参加拒否エラーを生成する。
func NewPlayerRemovedError() *GameError {
	return &GameError{
		Code:     ErrCodePlayerRemoved,
		Message:  "このゲームから除外されているため再参加できません。",
		Category: "auth",
		Action:   "新しいゲームに参加してください。",
	}
}

// NewNotCreatorError は作成者限定操作の権限エラーを生成する。
func NewNotCreatorError(operation string) *GameError {
	return &GameError{
		Code:     ErrCodeNotCreator,
		Message:  fmt.Sprintf("%sはゲーム作成者のみ実行できます。", operation),
		Category: "auth",
		Action:   "作成者に依頼してください。",
	}
}

// NewNotModeratorError はモデレーター限定操作の権限エラーを生成する。
func NewNotModeratorError() *GameError {
	return &GameError{
		Code:     ErrCodeNotModerator,
		Message:  "この操作はモデレーターのみ実行できます。",
		Category: "auth",
		Action:   "モデレーターに依頼してください。",
	}
}

// NewNotInProgressError はゲーム未進行の状態前提条件エラーを生成する。
func NewNotInProgressError() *GameError {
	return &GameError{
		Code:     ErrCodeNotInProgress,
		Message:  "ゲームが進行中ではありません。",
		Category: "state",
		Action:   "ゲームの開始を待ってください。",
	}
}

// NewStateError は任意の状態前提条件エラーを生成する。
func NewStateError(code, message string) *GameError {
	return &GameError{
		Code:     code,
		Message:  message,
		Category: "state",
		Action:   "画面を更新して現在の状態を確認してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(message string) *GameError {
	return &GameError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}
