package metrics

import (
	"net/http"
	"strconv"

	"smart_parking_lot/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "parking"

// Metrics owns its registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	parked    *prometheus.CounterVec
	vacated   *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	revenue   *prometheus.CounterVec
	occupied  *prometheus.GaugeVec
	capacity  *prometheus.GaugeVec
	requests  *prometheus.CounterVec
	durations *prometheus.HistogramVec

	chargingSessions *prometheus.CounterVec
	chargedEnergy    *prometheus.CounterVec
	chargingRevenue  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		parked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicles_parked_total",
			Help:      "Vehicles assigned to a slot.",
		}, []string{"lot_id", "slot_type"}),
		vacated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vehicles_left_total",
			Help:      "Slots vacated.",
		}, []string{"lot_id", "slot_type"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "park_rejections_total",
			Help:      "Park requests that could not be served.",
		}, []string{"lot_id", "reason"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Fees charged on exit.",
		}, []string{"lot_id"}),
		occupied: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "occupied_slots",
			Help:      "Currently occupied slots.",
		}, []string{"lot_id", "slot_type"}),
		capacity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Configured slots.",
		}, []string{"lot_id", "slot_type"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		chargingSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charging_sessions_total",
			Help:      "Completed EV charging sessions.",
		}, []string{"lot_id", "charger_type"}),
		chargedEnergy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charging_energy_kwh_total",
			Help:      "Energy delivered to EVs.",
		}, []string{"lot_id", "charger_type"}),
		chargingRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charging_revenue_total",
			Help:      "Fees charged for EV charging.",
		}, []string{"lot_id"}),
	}
	m.registry.MustRegister(
		m.parked, m.vacated, m.rejected, m.revenue, m.occupied, m.capacity, m.requests, m.durations,
		m.chargingSessions, m.chargedEnergy, m.chargingRevenue,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObservePark(lotID int, slotType domain.SlotType) {
	m.parked.WithLabelValues(strconv.Itoa(lotID), string(slotType)).Inc()
}

func (m *Metrics) ObserveVacate(lotID int, slotType domain.SlotType, fee float64) {
	id := strconv.Itoa(lotID)
	m.vacated.WithLabelValues(id, string(slotType)).Inc()
	m.revenue.WithLabelValues(id).Add(fee)
}

func (m *Metrics) ObserveRejection(lotID int, reason string) {
	m.rejected.WithLabelValues(strconv.Itoa(lotID), reason).Inc()
}

// ObserveStatus refreshes the occupancy gauges from a status report.
func (m *Metrics) ObserveStatus(r domain.StatusReport) {
	id := strconv.Itoa(r.LotID)
	m.occupied.WithLabelValues(id, string(domain.SlotRegular)).Set(float64(r.OccupiedRegular))
	m.occupied.WithLabelValues(id, string(domain.SlotEV)).Set(float64(r.OccupiedEV))
	m.capacity.WithLabelValues(id, string(domain.SlotRegular)).Set(float64(r.RegularSlots))
	m.capacity.WithLabelValues(id, string(domain.SlotEV)).Set(float64(r.EVSlots))
}

func (m *Metrics) ObserveCharge(lotID int, chargerType domain.ChargerType, energyKWh, fee float64) {
	id := strconv.Itoa(lotID)
	m.chargingSessions.WithLabelValues(id, string(chargerType)).Inc()
	m.chargedEnergy.WithLabelValues(id, string(chargerType)).Add(energyKWh)
	m.chargingRevenue.WithLabelValues(id).Add(fee)
}

func (m *Metrics) ObserveRequest(method, route string, status int, seconds float64) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(method, route).Observe(seconds)
}
