package engine

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/opd-ai/go-orbitwar/pkg/entity"
)

const instrumentationName = "github.com/opd-ai/go-orbitwar/pkg/engine"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// metrics holds the registry's instruments. They are no-ops unless an SDK
// meter provider has been installed globally.
type metrics struct {
	ticks    metric.Int64Counter
	duration metric.Float64Histogram
	overruns metric.Int64Counter
	entities metric.Int64ObservableGauge
}

func newMetrics(r *Registry) (*metrics, error) {
	m := meter()
	out := &metrics{}

	var err error
	out.ticks, err = m.Int64Counter(
		"engine.ticks",
		metric.WithDescription("Total ticks completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}

	out.duration, err = m.Float64Histogram(
		"engine.tick.duration",
		metric.WithDescription("Wall-clock time spent in one tick"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick duration histogram: %w", err)
	}

	out.overruns, err = m.Int64Counter(
		"engine.tick.overruns",
		metric.WithDescription("Ticks that exceeded the tick budget"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating overrun counter: %w", err)
	}

	out.entities, err = m.Int64ObservableGauge(
		"engine.entities",
		metric.WithDescription("Live entities by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating entity gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for kind, n := range r.countByKind() {
				o.ObserveInt64(out.entities, int64(n),
					metric.WithAttributes(attribute.String("kind", kind.String())))
			}
			return nil
		},
		out.entities,
	)
	if err != nil {
		return nil, fmt.Errorf("registering entity callback: %w", err)
	}

	return out, nil
}

func (m *metrics) recordTick(ctx context.Context, elapsed time.Duration) {
	m.ticks.Add(ctx, 1)
	m.duration.Record(ctx, float64(elapsed.Microseconds())/1000)
}

func (m *metrics) recordOverrun(ctx context.Context) {
	m.overruns.Add(ctx, 1)
}

// countByKind tallies live entities for the entity gauge.
func (r *Registry) countByKind() map[entity.Kind]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[entity.Kind]int)
	for _, e := range r.entities {
		counts[e.Kind()]++
	}
	return counts
}
