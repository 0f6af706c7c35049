package apiclient

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics はクライアントが記録するPrometheusメトリクス。
type metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	forcedLogout prometheus.Counter
}

// newMetrics はメトリクスを生成してregに登録する。
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "localservices",
			Subsystem: "apiclient",
			Name:      "requests_total",
			Help:      "Total number of API requests by resource family, method and status code.",
		}, []string{"family", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "localservices",
			Subsystem: "apiclient",
			Name:      "request_duration_seconds",
			Help:      "API request latency by resource family and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"family", "method"}),
		forcedLogout: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "localservices",
			Subsystem: "apiclient",
			Name:      "forced_logouts_total",
			Help:      "Number of sessions cleared because the server answered 401.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.forcedLogout)
	return m
}

// observe は1リクエストの結果を記録する。statusが0の場合は通信失敗として扱う。
func (m *metrics) observe(path, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	family := familyOf(path)
	code := "error"
	if status != 0 {
		code = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(family, method, code).Inc()
	m.duration.WithLabelValues(family, method).Observe(elapsed.Seconds())
}

// logout は強制ログアウトを記録する。
func (m *metrics) logout() {
	if m == nil {
		return
	}
	m.forcedLogout.Inc()
}

// familyOf はパスの先頭セグメントをリソースファミリー名として返す。
func familyOf(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	head, _, _ := strings.Cut(trimmed, "/")
	head, _, _ = strings.Cut(head, "?")
	if head == "" {
		return "root"
	}
	return head
}
