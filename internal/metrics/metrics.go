package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RevertedCalls 被回滚的合约调用, 按方法和错误类型统计
	RevertedCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ico_reverted_calls_total",
		Help: "Contract calls rejected by the registry or a token sale.",
	}, []string{"method", "kind"})

	// EventsIndexed 已索引的链上事件
	EventsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ico_indexed_events_total",
		Help: "Chain events persisted by the indexer.",
	}, []string{"event_type"})

	// TokensPurchased 成功的一级市场购买次数
	TokensPurchased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ico_token_purchases_total",
		Help: "Successful primary-market token purchases.",
	})

	ChainHead = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ico_chain_head_block",
		Help: "Latest mined block of the dev chain.",
	})

	IndexedBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ico_indexed_block",
		Help: "Highest block fully processed by the indexer.",
	})

	// ProjectsByStatus 投影表中各状态的项目数量
	ProjectsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ico_projects",
		Help: "Indexed projects grouped by status.",
	}, []string{"status"})

	ReconcileRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ico_reconcile_repairs_total",
		Help: "Token projections corrected by the reconcile job.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ico_http_requests_total",
		Help: "HTTP requests handled, by route and status code.",
	}, []string{"method", "route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ico_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
