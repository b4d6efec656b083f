package config

import (
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// すべての項目にデフォルト値があり、必須環境変数はない。
type Config struct {
	// Server
	ServerPort  string
	MetricsPort string

	// CORS
	CORSAllowedOrigin string

	// Rate Limit（req/min単位）
	RateLimitGeneral int
	RateLimitCreate  int

	// フェーズ時間
	NightPhase         time.Duration
	TiebreakPhase      time.Duration
	EliminationDisplay time.Duration

	// ゲーム作成時のデフォルト
	DefaultDiscussionMinutes int
	DefaultMinPlayers        int
	DefaultMaxPlayers        int
	DefaultWerewolves        int

	// QRコード
	QRCodeSize int

	// 終了済みゲームの保持
	GameRetention   time.Duration // 0で破棄しない
	CleanupInterval time.Duration
}

// Load は環境変数からConfigを読み込む。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:4200")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 300)
	cfg.RateLimitCreate = getEnvInt("RATE_LIMIT_CREATE", 10)
	cfg.NightPhase = getEnvDuration("NIGHT_PHASE_SECONDS", 30*time.Second)
	cfg.TiebreakPhase = getEnvDuration("TIEBREAK_PHASE_SECONDS", 60*time.Second)
	cfg.EliminationDisplay = getEnvDuration("ELIMINATION_DISPLAY_SECONDS", 10*time.Second)
	cfg.DefaultDiscussionMinutes = getEnvInt("DEFAULT_DISCUSSION_MINUTES", 5)
	cfg.DefaultMinPlayers = getEnvInt("DEFAULT_MIN_PLAYERS", 3)
	cfg.DefaultMaxPlayers = getEnvInt("DEFAULT_MAX_PLAYERS", 20)
	cfg.DefaultWerewolves = getEnvInt("DEFAULT_WEREWOLVES", 1)
	cfg.QRCodeSize = getEnvInt("QR_CODE_SIZE", 256)
	cfg.GameRetention = getEnvDuration("GAME_RETENTION", 24*time.Hour)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 10*time.Minute)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvDuration は期間の環境変数を読み込む。
// "30s"のようなGoのduration表記と、秒数の整数表記の両方を受け付ける。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	return defaultVal
}
