package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMeteredAPI(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	rec := &Recorder{}
	metered, err := NewMeteredAPI(rec, provider.Meter("test"))
	require.NoError(t, err)

	metered.ReportBroken("client.list-offices", "boom")
	metered.ReportBroken("client.list-offices", "boom")
	metered.ReportWarning("client.office-detail-without-session")
	metered.ReportDebug("request")
	metered.ReportCount("client.list-offices", 12)
	metered.ReportCount("client.list-offices", 13)

	require.Len(t, rec.Reports(""), 6)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	byName := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		byName[m.Name] = m
	}

	reports, ok := byName["citaprevia.reports"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, point := range reports.DataPoints {
		total += point.Value
	}
	require.Equal(t, int64(3), total)
	require.Len(t, reports.DataPoints, 2)

	counts, ok := byName["citaprevia.count"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, counts.DataPoints, 1)
	require.Equal(t, int64(13), counts.DataPoints[0].Value)
}
