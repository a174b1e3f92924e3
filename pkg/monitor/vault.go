package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// VaultMetrics 定义 vault 引擎的监控指标。
// 所有方法对 nil 接收者安全，未开启监控时直接传 nil。
type VaultMetrics struct {
	HandleBuildsTotal     *prometheus.CounterVec
	SignTotal             *prometheus.CounterVec
	HistoryRecordsTotal   *prometheus.CounterVec
	UnsignedBuildDuration *prometheus.HistogramVec
}

// NewVaultMetrics 在 reg 上注册指标，reg 为 nil 时使用默认 Registerer
func NewVaultMetrics(reg prometheus.Registerer) *VaultMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &VaultMetrics{
		HandleBuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_handle_builds_total",
			Help: "The total number of client handle constructions",
		}, []string{"cache"}),
		SignTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_sign_total",
			Help: "Signing operations by keyring variant and result",
		}, []string{"keyring", "op", "result"}),
		HistoryRecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vault_history_records_total",
			Help: "History records processed by the reconciler",
		}, []string{"network", "outcome"}),
		UnsignedBuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vault_unsigned_build_duration_seconds",
			Help:    "Duration of unsigned transaction builds",
			Buckets: prometheus.DefBuckets,
		}, []string{"network"}),
	}
}

func (m *VaultMetrics) HandleBuilt(cache string) {
	if m == nil {
		return
	}
	m.HandleBuildsTotal.WithLabelValues(cache).Inc()
}

func (m *VaultMetrics) Signed(keyring, op string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.SignTotal.WithLabelValues(keyring, op, result).Inc()
}

// HistoryRecord outcome: merged / skipped_final / dropped
func (m *VaultMetrics) HistoryRecord(network, outcome string) {
	if m == nil {
		return
	}
	m.HistoryRecordsTotal.WithLabelValues(network, outcome).Inc()
}

func (m *VaultMetrics) ObserveUnsignedBuild(network string, seconds float64) {
	if m == nil {
		return
	}
	m.UnsignedBuildDuration.WithLabelValues(network).Observe(seconds)
}
