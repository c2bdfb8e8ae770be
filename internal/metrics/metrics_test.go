package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smart_parking_lot/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObservePark(1, domain.SlotEV)
	m.ObservePark(1, domain.SlotEV)
	m.ObserveVacate(1, domain.SlotEV, 14)
	m.ObserveRejection(1, "no_available_slot")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.parked.WithLabelValues("1", "EV")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.vacated.WithLabelValues("1", "EV")))
	assert.Equal(t, 14.0, testutil.ToFloat64(m.revenue.WithLabelValues("1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("1", "no_available_slot")))
}

func TestMetrics_StatusGaugesAndHandler(t *testing.T) {
	m := New()
	m.ObserveStatus(domain.StatusReport{LotID: 2, RegularSlots: 2, EVSlots: 1, OccupiedRegular: 1})
	m.ObserveRequest(http.MethodGet, "/api/v1/lots", http.StatusOK, 0.01)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.occupied.WithLabelValues("2", "REGULAR")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.occupied.WithLabelValues("2", "EV")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `parking_slots{lot_id="2",slot_type="EV"} 1`))
	assert.True(t, strings.Contains(body, "parking_http_requests_total"))
}

func TestMetrics_ChargingCounters(t *testing.T) {
	m := New()
	m.ObserveCharge(1, domain.ChargerDCFast, 20, 11.25)
	m.ObserveCharge(1, domain.ChargerDCFast, 5, 2.81)
	m.ObserveCharge(1, domain.ChargerLevel2, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.chargingSessions.WithLabelValues("1", "DC_FAST")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chargingSessions.WithLabelValues("1", "LEVEL_2")))
	assert.InDelta(t, 25.0, testutil.ToFloat64(m.chargedEnergy.WithLabelValues("1", "DC_FAST")), 1e-9)
	assert.InDelta(t, 14.06, testutil.ToFloat64(m.chargingRevenue.WithLabelValues("1")), 1e-9)
}
