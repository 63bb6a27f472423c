package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 解锁结果计数，label: kind=USER/PARTNER, result=success/insufficient/ceiling/conflict/error
var (
	UnlockTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slotsystem",
		Name:      "capacity_unlock_total",
		Help:      "容量解锁请求结果计数",
	}, []string{"kind", "result"})

	PointsGrantedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotsystem",
		Name:      "points_granted_total",
		Help:      "累计发放点数",
	})

	LedgerDriftTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slotsystem",
		Name:      "ledger_drift_total",
		Help:      "对账任务发现的 total_spent 偏差次数",
	})
)

const (
	ResultSuccess      = "success"
	ResultInsufficient = "insufficient"
	ResultCeiling      = "ceiling"
	ResultConflict     = "conflict"
	ResultError        = "error"
)
