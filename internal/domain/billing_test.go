package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeFee_RoundsUpToWholeHours(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		hours    int
		fee      float64
	}{
		{"zero", 0, 0, 0},
		{"negative", -5 * time.Minute, 0, 0},
		{"one second", time.Second, 1, 5},
		{"just under an hour", 59 * time.Minute, 1, 5},
		{"exactly one hour", time.Hour, 1, 5},
		{"exactly two hours", 120 * time.Minute, 2, 10},
		{"just over two hours", 121 * time.Minute, 3, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hours, BilledHours(tt.duration))
			assert.InDelta(t, tt.fee, ComputeFee(tt.duration, 5.00), 1e-9)
		})
	}
}

func TestComputeFee_RoundsToCents(t *testing.T) {
	assert.InDelta(t, 3.75, ComputeFee(3*time.Hour, 1.25), 1e-9)
	assert.InDelta(t, 0.10, ComputeFee(time.Hour, 0.1), 1e-9)
}

func TestTariff_StandardAddsOverstaySurcharge(t *testing.T) {
	tariff := DefaultTariff()

	assert.InDelta(t, 120.00, tariff.Quote(24*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)
	// 26 billed hours plus 2 overstay hours at half the rate again.
	assert.InDelta(t, 135.00, tariff.Quote(26*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)

	tariff.MaxStayHours = 0
	assert.InDelta(t, 130.00, tariff.Quote(26*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)
}

func TestTariff_UsesRatePerSlotType(t *testing.T) {
	tariff := DefaultTariff()
	assert.InDelta(t, 10.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)
	assert.InDelta(t, 14.00, tariff.Quote(2*time.Hour, SlotEV, VehicleCar, 0), 1e-9)
}

func TestTariff_ScalesRateByVehicleType(t *testing.T) {
	tariff := DefaultTariff()

	tests := []struct {
		name        string
		duration    time.Duration
		slotType    SlotType
		vehicleType VehicleType
		fee         float64
	}{
		{"car one hour", time.Hour, SlotRegular, VehicleCar, 5.00},
		{"motorcycle just under an hour", 59 * time.Minute, SlotRegular, VehicleMotorcycle, 2.50},
		{"motorcycle just over two hours", 121 * time.Minute, SlotRegular, VehicleMotorcycle, 7.50},
		{"truck just over an hour", 61 * time.Minute, SlotRegular, VehicleTruck, 15.00},
		{"bus exactly two hours", 2 * time.Hour, SlotRegular, VehicleBus, 20.00},
		{"ev car exactly one hour", time.Hour, SlotEV, VehicleEVCar, 6.30},
		{"ev motorcycle two hours", 2 * time.Hour, SlotEV, VehicleEVMotorcycle, 6.30},
		{"ev car in a regular slot", 2 * time.Hour, SlotRegular, VehicleEVCar, 9.00},
		{"bus zero duration", 0, SlotRegular, VehicleBus, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.fee, tariff.Quote(tt.duration, tt.slotType, tt.vehicleType, 0), 1e-9)
		})
	}
}

func TestTariff_VehicleMultiplierAppliesUnderEveryPricing(t *testing.T) {
	tariff := DefaultTariff()

	tariff.Pricing = PricingDynamic
	// 2h bus = 20.00, then 1.5 at full occupancy.
	assert.InDelta(t, 30.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleBus, 0.95), 1e-9)

	tariff.Pricing = PricingSubscription
	// 3h motorcycle = 7.50, half price.
	assert.InDelta(t, 3.75, tariff.Quote(3*time.Hour, SlotRegular, VehicleMotorcycle, 0), 1e-9)
	assert.InDelta(t, 20.00, tariff.Quote(10*time.Hour, SlotRegular, VehicleBus, 0), 1e-9)
}

func TestTariff_Dynamic(t *testing.T) {
	tariff := DefaultTariff()
	tariff.Pricing = PricingDynamic

	assert.InDelta(t, 9.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0.10), 1e-9)
	assert.InDelta(t, 10.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0.50), 1e-9)
	assert.InDelta(t, 12.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0.80), 1e-9)
	assert.InDelta(t, 15.00, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0.95), 1e-9)
	assert.Zero(t, tariff.Quote(0, SlotRegular, VehicleCar, 0.95))
}

func TestTariff_Subscription(t *testing.T) {
	tariff := DefaultTariff()
	tariff.Pricing = PricingSubscription

	assert.Zero(t, tariff.Quote(90*time.Minute, SlotRegular, VehicleCar, 0))
	assert.Zero(t, tariff.Quote(2*time.Hour, SlotRegular, VehicleCar, 0))
	assert.InDelta(t, 7.50, tariff.Quote(3*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)
	assert.InDelta(t, 20.00, tariff.Quote(10*time.Hour, SlotRegular, VehicleCar, 0), 1e-9)
}

func TestTariff_Validate(t *testing.T) {
	assert.NoError(t, DefaultTariff().Validate())

	bad := DefaultTariff()
	bad.EVHourlyRate = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLotConfig)

	bad = DefaultTariff()
	bad.OverstayMultiplier = 0.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLotConfig)

	bad = DefaultTariff()
	bad.MaxStayHours = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidLotConfig)
}
