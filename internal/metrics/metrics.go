// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はゲーム進行のPrometheusメトリクスを収集する。
// game.MetricsRecorderインターフェースを実装する。
type Collector struct {
	gamesCreated     prometheus.Counter
	playersJoined    prometheus.Counter
	votesCast        *prometheus.CounterVec
	phaseTransitions *prometheus.CounterVec
	polls            prometheus.Counter
	pollsUnchanged   prometheus.Counter
	gamesOver        *prometheus.CounterVec
	gamesPurged      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		gamesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jinro_games_created_total",
			Help: "作成されたゲームの合計数",
		}),
		playersJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jinro_players_joined_total",
			Help: "参加したプレイヤーの合計数",
		}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jinro_votes_cast_total",
			Help: "フェーズ別の投票の合計数",
		}, []string{"phase"}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jinro_phase_transitions_total",
			Help: "遷移先フェーズ別のフェーズ遷移の合計数",
		}, []string{"phase"}),
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jinro_polls_total",
			Help: "状態ポーリングの合計数",
		}),
		pollsUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jinro_polls_unchanged_total",
			Help: "「変更なし」で短絡したポーリングの合計数",
		}),
		gamesOver: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jinro_games_over_total",
			Help: "勝利陣営別の終了ゲームの合計数",
		}, []string{"winner"}),
		gamesPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jinro_games_purged_total",
			Help: "保持期間超過で破棄された終了済みゲームの合計数",
		}),
	}

	reg.MustRegister(
		c.gamesCreated,
		c.playersJoined,
		c.votesCast,
		c.phaseTransitions,
		c.polls,
		c.pollsUnchanged,
		c.gamesOver,
		c.gamesPurged,
	)

	return c
}

// RecordGameCreated はゲーム作成を記録する。
func (c *Collector) RecordGameCreated() {
	c.gamesCreated.Inc()
}

// RecordPlayerJoined はプレイヤー参加を記録する。
func (c *Collector) RecordPlayerJoined() {
	c.playersJoined.Inc()
}

// RecordVoteCast は投票を記録する。
func (c *Collector) RecordVoteCast(phase string) {
	c.votesCast.WithLabelValues(phase).Inc()
}

// RecordPhaseTransition はフェーズ遷移を記録する。
func (c *Collector) RecordPhaseTransition(phase string) {
	c.phaseTransitions.WithLabelValues(phase).Inc()
}

// RecordPoll は状態ポーリングを記録する。
// 「変更なし」短絡の割合が、同期プロトコルの効率の指標になる。
func (c *Collector) RecordPoll(unchanged bool) {
	c.polls.Inc()
	if unchanged {
		c.pollsUnchanged.Inc()
	}
}

// RecordGameOver はゲーム終了を勝利陣営ラベル付きで記録する。
func (c *Collector) RecordGameOver(winner string) {
	c.gamesOver.WithLabelValues(winner).Inc()
}

// RecordGamesPurged は破棄された終了済みゲーム数を記録する。
func (c *Collector) RecordGamesPurged(count int) {
	c.gamesPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
