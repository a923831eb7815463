// Package metrics 提供 Prometheus 指标封装
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 订单提交计数
	OrdersTotal prometheus.Counter
	// 成交计数
	FillsTotal prometheus.Counter
	// 未成交（限制/流动性/数据缺口）计数
	UnfilledTotal *prometheus.CounterVec
	// 被拒绝的持仓操作计数（反向开仓等）
	RejectedOpsTotal prometheus.Counter
	// 账本命令队列深度
	LedgerQueueDepth prometheus.Gauge
	// 当前持仓数量
	PositionsActive prometheus.Gauge
	// 撮合耗时
	ExecutionDuration prometheus.Histogram
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}, []string{"path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		OrdersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "orders_total",
			Help:      "Total orders submitted",
		}),
		FillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "fills_total",
			Help:      "Total transactions filled",
		}),
		UnfilledTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "unfilled_total",
			Help:      "Orders that produced no fill, by reason",
		}, []string{"reason"}),
		RejectedOpsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "rejected_ops_total",
			Help:      "Position operations rejected as unsupported",
		}),
		LedgerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "ledger_queue_depth",
			Help:      "Pending commands in the ledger actor queue",
		}),
		PositionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "positions_active",
			Help:      "Number of open positions",
		}),
		ExecutionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "equitysim",
			Subsystem: serviceName,
			Name:      "execution_duration_seconds",
			Help:      "Order execution simulation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OrdersTotal,
		m.FillsTotal,
		m.UnfilledTotal,
		m.RejectedOpsTotal,
		m.LedgerQueueDepth,
		m.PositionsActive,
		m.ExecutionDuration,
	)

	return m
}

// Handler 返回 Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 启动独立的指标服务
func (m *Metrics) Serve(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}
