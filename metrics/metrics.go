// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"time"

	"github.com/luxfi/metric"
	"github.com/luxfi/utils/wrappers"

	"github.com/luxfi/l2index/classifier"
)

const (
	kindLabel    = "kind"
	outcomeLabel = "outcome"

	Accepted = "accepted"
	Rejected = "rejected"
	Invalid  = "invalid"
)

var _ Metrics = (*metricsImpl)(nil)

type Metrics interface {
	// Mark that op was processed with the given outcome.
	MarkOperation(op *classifier.Operation, outcome string)
	// Mark that a batch was committed in d, advancing the cursor to cursor.
	MarkBatch(d time.Duration, cursor uint64)
	// Set the last imported L1 height.
	SetImportedHeight(height uint64)
}

func New(registerer metric.Registerer) (Metrics, error) {
	m := &metricsImpl{
		operations: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "operations_processed",
				Help: "number of L1 operations processed",
			},
			[]string{kindLabel, outcomeLabel},
		),
		batches: metric.NewCounter(metric.CounterOpts{
			Name: "batches_committed",
			Help: "number of operation batches committed",
		}),
		batchDuration: metric.NewGauge(metric.GaugeOpts{
			Name: "batch_duration_sum",
			Help: "total time spent processing batches in nanoseconds",
		}),
		cursor: metric.NewGauge(metric.GaugeOpts{
			Name: "last_processed_operation",
			Help: "id of the last committed operation",
		}),
		importedHeight: metric.NewGauge(metric.GaugeOpts{
			Name: "imported_height",
			Help: "last L1 height imported",
		}),
	}

	errs := wrappers.Errs{}
	errs.Add(
		registerer.Register(metric.AsCollector(m.operations)),
		registerer.Register(metric.AsCollector(m.batches)),
		registerer.Register(metric.AsCollector(m.batchDuration)),
		registerer.Register(metric.AsCollector(m.cursor)),
		registerer.Register(metric.AsCollector(m.importedHeight)),
	)
	return m, errs.Err
}

type metricsImpl struct {
	operations     metric.CounterVec
	batches        metric.Counter
	batchDuration  metric.Gauge
	cursor         metric.Gauge
	importedHeight metric.Gauge
}

func (m *metricsImpl) MarkOperation(op *classifier.Operation, outcome string) {
	m.operations.With(metric.Labels{
		kindLabel:    op.Kind.String(),
		outcomeLabel: outcome,
	}).Inc()
}

func (m *metricsImpl) MarkBatch(d time.Duration, cursor uint64) {
	m.batches.Inc()
	m.batchDuration.Add(float64(d))
	m.cursor.Set(float64(cursor))
}

func (m *metricsImpl) SetImportedHeight(height uint64) {
	m.importedHeight.Set(float64(height))
}
