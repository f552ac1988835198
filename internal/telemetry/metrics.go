// Package telemetry records experiment engine counters through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rpggio/splitlab/internal/domain/experiment"
	"github.com/rpggio/splitlab/internal/domain/participant"
)

var (
	_ experiment.Metrics  = (*Metrics)(nil)
	_ participant.Metrics = (*Metrics)(nil)
)

// Metrics holds the engine instruments.
type Metrics struct {
	experimentsTotal metric.Int64Counter
	assignmentsTotal metric.Int64Counter
	conversionsTotal metric.Int64Counter
	conversionValue  metric.Float64Histogram
}

// NewMetrics registers the engine instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	experimentsTotal, err := meter.Int64Counter(
		"splitlab_experiments_created_total",
		metric.WithDescription("Total experiments created"),
		metric.WithUnit("{experiment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating experiments counter: %w", err)
	}

	assignmentsTotal, err := meter.Int64Counter(
		"splitlab_assignments_total",
		metric.WithDescription("Total participant assignments, including reassignments"),
		metric.WithUnit("{assignment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating assignments counter: %w", err)
	}

	conversionsTotal, err := meter.Int64Counter(
		"splitlab_conversions_total",
		metric.WithDescription("Total conversions recorded"),
		metric.WithUnit("{conversion}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversions counter: %w", err)
	}

	conversionValue, err := meter.Float64Histogram(
		"splitlab_conversion_value",
		metric.WithDescription("Conversion values as recorded"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating conversion value histogram: %w", err)
	}

	return &Metrics{
		experimentsTotal: experimentsTotal,
		assignmentsTotal: assignmentsTotal,
		conversionsTotal: conversionsTotal,
		conversionValue:  conversionValue,
	}, nil
}

func (m *Metrics) ExperimentCreated(ctx context.Context, tenantID string) {
	m.experimentsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("tenant_id", tenantID)))
}

func (m *Metrics) AssignmentRecorded(ctx context.Context, experimentID, variant string) {
	m.assignmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("variant", variant),
	))
}

func (m *Metrics) ConversionRecorded(ctx context.Context, experimentID, variant string, value *float64) {
	opt := metric.WithAttributes(
		attribute.String("experiment_id", experimentID),
		attribute.String("variant", variant),
	)
	m.conversionsTotal.Add(ctx, 1, opt)
	if value != nil {
		m.conversionValue.Record(ctx, *value, opt)
	}
}
