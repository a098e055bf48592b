// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package quorum

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/luxfi/votechain/internal/errgroup"
	"github.com/luxfi/votechain/txmodel"
)

// RoundMetrics exposes per-committee round counters: transactions
// committed, rejected at admission, and rejected specifically for
// conflicting with an already-admitted transaction. Each counter is
// summed over every node in the round, so a transaction committed (or
// rejected) by five nodes adds five.
type RoundMetrics struct {
	committed *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	conflict  *prometheus.CounterVec
}

// NewRoundMetrics registers RoundMetrics's counters against reg. A nil
// reg is valid and simply skips registration, matching the package
// metrics Averager's nil-tolerant construction.
func NewRoundMetrics(reg prometheus.Registerer) (*RoundMetrics, error) {
	m := &RoundMetrics{
		committed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votechain_round_committed_total",
			Help: "Transactions committed per consensus round, summed over nodes, by committee.",
		}, []string{"committee"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votechain_round_rejected_total",
			Help: "Transactions rejected at admission per round, summed over nodes, by committee.",
		}, []string{"committee"}),
		conflict: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "votechain_round_conflicts_total",
			Help: "Transactions rejected for conflicting with an already-admitted transaction, summed over nodes, by committee.",
		}, []string{"committee"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.committed, m.rejected, m.conflict} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewRoundMetricsWithErrs is NewRoundMetrics but adds any construction
// error to errs instead of returning it, so a driver can wire metrics
// without a fallible constructor on its own critical path.
func NewRoundMetricsWithErrs(reg prometheus.Registerer, errs *errgroup.Errs) *RoundMetrics {
	m, err := NewRoundMetrics(reg)
	if err != nil {
		if errs != nil {
			errs.Add(err)
		}
		return nil
	}
	return m
}

// Observe records result against committeeLabel. A nil RoundMetrics is
// valid and a no-op, so callers can construct a Driver without metrics
// and still call Observe unconditionally.
func (m *RoundMetrics) Observe(committeeLabel string, result *Result) {
	if m == nil {
		return
	}
	for _, blk := range result.Committed {
		if blk != nil {
			m.committed.WithLabelValues(committeeLabel).Add(float64(len(blk.Transactions)))
		}
	}
	for _, reasons := range result.Rejected {
		for _, err := range reasons {
			if errors.Is(err, txmodel.ErrConflictingTransaction) {
				m.conflict.WithLabelValues(committeeLabel).Inc()
				continue
			}
			m.rejected.WithLabelValues(committeeLabel).Inc()
		}
	}
}
