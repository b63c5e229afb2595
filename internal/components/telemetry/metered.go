package telemetry

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeteredAPI forwards every report to another API, counts are also recorded as
// gauges on the global meter provider so they can be exported.
type MeteredAPI struct {
	inner API
	meter metric.Meter

	mutex  sync.Mutex
	gauges map[string]metric.Int64Gauge
	broken metric.Int64Counter
}

func NewMeteredAPI(inner API) *MeteredAPI {
	meter := otel.Meter("orderscan")
	broken, err := meter.Int64Counter("orderscan.broken")
	if err != nil {
		otel.Handle(err)
	}
	return &MeteredAPI{
		inner:  inner,
		meter:  meter,
		gauges: map[string]metric.Int64Gauge{},
		broken: broken,
	}
}

// instrumentName turns `order_scanner: scanner.items` into `order_scanner.scanner.items`.
func instrumentName(id string) string {
	return strings.ReplaceAll(id, ": ", ".")
}

func (m *MeteredAPI) gauge(id string) metric.Int64Gauge {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	gauge, ok := m.gauges[id]
	if ok {
		return gauge
	}
	gauge, err := m.meter.Int64Gauge(instrumentName(id))
	if err != nil {
		otel.Handle(err)
	}
	m.gauges[id] = gauge
	return gauge
}

func (m *MeteredAPI) ReportBroken(id string, params ...any) {
	m.inner.ReportBroken(id, params...)
	if m.broken != nil {
		m.broken.Add(context.Background(), 1, metric.WithAttributes(attribute.String("id", id)))
	}
}

func (m *MeteredAPI) ReportWarning(id string, params ...any) {
	m.inner.ReportWarning(id, params...)
}

func (m *MeteredAPI) ReportDebug(msg string, params ...any) {
	m.inner.ReportDebug(msg, params...)
}

func (m *MeteredAPI) ReportCount(id string, count int64) {
	m.inner.ReportCount(id, count)
	gauge := m.gauge(id)
	if gauge != nil {
		gauge.Record(context.Background(), count)
	}
}
