package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredAPI forwards everything to an inner API and also turns broken/warning reports
// and counts into otel measurements keyed by report id.
type MeteredAPI struct {
	inner   API
	reports metric.Int64Counter
	counts  metric.Int64Gauge
}

func NewMeteredAPI(inner API, meter metric.Meter) (MeteredAPI, error) {
	reports, err := meter.Int64Counter(
		"citaprevia.reports",
		metric.WithDescription("broken and warning reports by component"),
	)
	if err != nil {
		return MeteredAPI{}, err
	}
	counts, err := meter.Int64Gauge(
		"citaprevia.count",
		metric.WithDescription("latest value of each reported count"),
	)
	if err != nil {
		return MeteredAPI{}, err
	}
	return MeteredAPI{inner: inner, reports: reports, counts: counts}, nil
}

func (m MeteredAPI) report(kind, id string) {
	m.reports.Add(
		context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind), attribute.String("id", id)),
	)
}

func (m MeteredAPI) ReportBroken(id string, params ...any) {
	m.report("broken", id)
	m.inner.ReportBroken(id, params...)
}

func (m MeteredAPI) ReportWarning(id string, params ...any) {
	m.report("warning", id)
	m.inner.ReportWarning(id, params...)
}

func (m MeteredAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m MeteredAPI) ReportTrace(msg string, params ...any) {
	m.inner.ReportTrace(msg, params...)
}

func (m MeteredAPI) ReportCount(id string, count int64) {
	m.counts.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
	m.inner.ReportCount(id, count)
}
