// Package metrics はwebサービスのPrometheusメトリクスを定義する。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nao1215/gearboard/internal/routegate"
)

// Recorder はルートゲートの判定とプロキシの結果を記録する。
type Recorder struct {
	// GateDecisions はゲートの判定数を種類と分類ごとに数える。
	GateDecisions *prometheus.CounterVec
	// ProxyRequests は上流へのプロキシ数を転送先とステータス区分ごとに数える。
	ProxyRequests *prometheus.CounterVec
	// ProxyLatency は上流へのプロキシにかかった時間。
	ProxyLatency *prometheus.HistogramVec
}

// New は新しいRecorderを生成し、指定したレジストリに登録する。
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gearboard",
				Subsystem: "route_gate",
				Name:      "decisions_total",
				Help:      "Number of route gate decisions",
			},
			[]string{"kind", "class"},
		),
		ProxyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gearboard",
				Subsystem: "proxy",
				Name:      "requests_total",
				Help:      "Number of requests proxied to upstream services",
			},
			[]string{"target", "status_class"},
		),
		ProxyLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gearboard",
				Subsystem: "proxy",
				Name:      "latency_seconds",
				Help:      "Time spent proxying a request to an upstream service",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"target"},
		),
	}
	reg.MustRegister(r.GateDecisions, r.ProxyRequests, r.ProxyLatency)
	return r
}

// RecordDecision はゲートの判定を1件記録する。
func (r *Recorder) RecordDecision(d routegate.Decision) {
	r.GateDecisions.WithLabelValues(d.Kind.String(), d.Class.String()).Inc()
}

// RecordProxy は上流へのプロキシ結果を1件記録する。
// status が0の場合は上流に到達できなかったことを表す。
func (r *Recorder) RecordProxy(target string, status int, elapsed time.Duration) {
	r.ProxyRequests.WithLabelValues(target, statusClass(status)).Inc()
	r.ProxyLatency.WithLabelValues(target).Observe(elapsed.Seconds())
}

// statusClass はステータスコードを "2xx" のような区分に変換する。
func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
