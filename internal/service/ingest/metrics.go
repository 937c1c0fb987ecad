package ingest

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts ingestion outcomes.
type Metrics struct {
	records *prometheus.CounterVec
	sources *prometheus.CounterVec
	farms   prometheus.Gauge
}

// NewMetrics builds the collectors and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "milkweights",
			Name:      "records_ingested_total",
			Help:      "Records committed to the registry, by source kind.",
		}, []string{"source"}),
		sources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "milkweights",
			Name:      "sources_total",
			Help:      "Ingested files, sheets and manual entries, by source kind and result.",
		}, []string{"source", "result"}),
		farms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "milkweights",
			Name:      "farms",
			Help:      "Farms currently known to the registry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.records, m.sources, m.farms)
	}
	return m
}

func (m *Metrics) committed(source string, records, farms int) {
	m.records.WithLabelValues(source).Add(float64(records))
	m.sources.WithLabelValues(source, "ok").Inc()
	m.farms.Set(float64(farms))
}

func (m *Metrics) failed(source string) {
	m.sources.WithLabelValues(source, "failed").Inc()
}
