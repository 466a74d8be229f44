// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package engine

import (
	"errors"

	"github.com/luxfi/metric"
)

type metrics struct {
	committed       metric.Counter
	failed          metric.Counter
	simulated       metric.Counter
	intentsExecuted metric.Counter
	batchSize       metric.Gauge
}

// newMetrics registers the engine metrics with registerer. A nil registerer
// leaves them unregistered.
func newMetrics(namespace string, registerer metric.Registerer) (*metrics, error) {
	m := &metrics{
		committed: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "batches_committed",
			Help:      "batches committed",
		}),
		failed: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "batches_failed",
			Help:      "batches aborted",
		}),
		simulated: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "batches_simulated",
			Help:      "batches simulated",
		}),
		intentsExecuted: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "intents_executed",
			Help:      "intents committed",
		}),
		batchSize: metric.NewGauge(metric.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_size",
			Help:      "number of intents in the last batch",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	return m, errors.Join(
		registerer.Register(m.committed),
		registerer.Register(m.failed),
		registerer.Register(m.simulated),
		registerer.Register(m.intentsExecuted),
		registerer.Register(m.batchSize),
	)
}
