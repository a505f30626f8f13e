package parking

import "github.com/prometheus/client_golang/prometheus"

// AvailabilitySource reports per-level, per-type slot counts.
type AvailabilitySource func() []Availability

// OccupancyCollector exposes slot counts as Prometheus gauges at scrape time.
type OccupancyCollector struct {
	source   AvailabilitySource
	total    *prometheus.Desc
	occupied *prometheus.Desc
}

func NewOccupancyCollector(source AvailabilitySource) *OccupancyCollector {
	labels := []string{"level", "vehicle_type"}
	return &OccupancyCollector{
		source: source,
		total: prometheus.NewDesc("parking_slots_total",
			"Number of parking slots", labels, nil),
		occupied: prometheus.NewDesc("parking_slots_occupied",
			"Number of occupied parking slots", labels, nil),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.total
	ch <- c.occupied
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	for _, a := range c.source() {
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(a.Total), a.LevelID, a.Type.String())
		ch <- prometheus.MustNewConstMetric(c.occupied, prometheus.GaugeValue, float64(a.Occupied), a.LevelID, a.Type.String())
	}
}
