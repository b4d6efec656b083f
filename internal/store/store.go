// Package store はゲームセッションのインメモリストアを提供する。
//
// ストアはゲームIDからセッション状態へのマップと、セッションごとの
// ロックを所有する。マップ自体の並行アクセスはストアのRWMutexで保護し、
// 個々のセッションの内容はセッション単位のロックで直列化する。
// プロセス再起動をまたぐ永続化は行わない。
package store

import (
	"sync"
	"time"

	"github.com/hitoshi/jinro/internal/model"
)

// Store はゲームIDをキーとするセッションストア。
// セッション単位のロックにより、同一ゲームへのフェーズ遷移は直列化され、
// 異なるゲームの操作は互いに影響しない。
type Store struct {
	mu    sync.RWMutex
	games map[string]*model.Game

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// New は空のStoreを生成する。
func New() *Store {
	return &Store{
		games: make(map[string]*model.Game),
		locks: make(map[string]*sync.Mutex),
	}
}

// Put はゲームを登録する。既存IDの場合は上書きする。
func (s *Store) Put(g *model.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.GameID] = g
}

// Get はgameIDに対応するゲームを返す。
// 返されたゲームのフィールドに触れる前にLock(gameID)を取得すること。
func (s *Store) Get(gameID string) (*model.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[gameID]
	return g, ok
}

// Exists はgameIDのゲームが存在するかを返す。
func (s *Store) Exists(gameID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.games[gameID]
	return ok
}

// Lock はgameIDに対応するセッションロックを返す。
// 初回アクセス時に作成する（ダブルチェックで競合時も単一インスタンスを保証）。
// ゲーム削除後もロックが残ることは許容する（エントリは軽量で数が限られる）。
func (s *Store) Lock(gameID string) *sync.Mutex {
	return s.lockFor(gameID)
}

// Delete はゲームと対応するロックを削除する。
func (s *Store) Delete(gameID string) {
	s.mu.Lock()
	delete(s.games, gameID)
	s.mu.Unlock()

	s.lockMu.Lock()
	delete(s.locks, gameID)
	s.lockMu.Unlock()
}

// Len は登録されているゲーム数を返す。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// PurgeEnded はretentionより前に終了したゲームを削除し、削除数を返す。
// いつ終了済みゲームを破棄するかは運用設定の問題であり、保持期間は
// 呼び出し側（クリーンアップワーカー）がconfigから渡す。
func (s *Store) PurgeEnded(retention time.Duration, now time.Time) int {
	s.mu.RLock()
	var expired []string
	for id, g := range s.games {
		mu := s.lockFor(id)
		mu.Lock()
		if g.Status == model.StatusEnded && g.EndedAt != nil && now.Sub(*g.EndedAt) > retention {
			expired = append(expired, id)
		}
		mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range expired {
		s.Delete(id)
	}
	return len(expired)
}

func (s *Store) lockFor(gameID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if mu, ok := s.locks[gameID]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	s.locks[gameID] = mu
	return mu
}
