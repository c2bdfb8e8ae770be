package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVehicle_NormalisesPlateAndType(t *testing.T) {
	v, err := NewVehicle("  ab 123-c ", "Honda", "Civic", "blue", "car")
	require.NoError(t, err)
	assert.Equal(t, "AB 123-C", v.LicensePlate)
	assert.Equal(t, VehicleCar, v.Type)
	assert.False(t, v.Type.IsElectric())
}

func TestNewVehicle_RejectsBadData(t *testing.T) {
	tests := []struct {
		name  string
		plate string
		vtype VehicleType
	}{
		{"empty plate", "", VehicleCar},
		{"short plate", "A", VehicleCar},
		{"long plate", "ABCDEFGHIJK", VehicleCar},
		{"bad characters", "AB_12", VehicleCar},
		{"unknown type", "AB-12", "HOVERCRAFT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVehicle(tt.plate, "", "", "", tt.vtype)
			assert.ErrorIs(t, err, ErrInvalidVehicleData)
		})
	}
}

func TestVehicle_BatteryValidation(t *testing.T) {
	v, err := NewVehicle("EV-1", "Nissan", "Leaf", "", VehicleEVCar)
	require.NoError(t, err)

	_, err = v.WithBattery(0, 0)
	assert.ErrorIs(t, err, ErrInvalidVehicleData)

	_, err = v.WithBattery(40, 41)
	assert.ErrorIs(t, err, ErrInvalidVehicleData)

	_, err = v.WithBattery(40, -1)
	assert.ErrorIs(t, err, ErrInvalidVehicleData)

	v, err = v.WithBattery(40, 10)
	require.NoError(t, err)
	assert.InDelta(t, 25.0, v.ChargePercentage(), 1e-9)

	gas, err := NewVehicle("GAS-1", "", "", "", VehicleTruck)
	require.NoError(t, err)
	_, err = gas.WithBattery(40, 10)
	assert.ErrorIs(t, err, ErrInvalidVehicleData)
}

func TestVehicleType_SlotMapping(t *testing.T) {
	assert.Equal(t, SlotEV, VehicleEVCar.NaturalSlotType())
	assert.Equal(t, SlotEV, VehicleEVMotorcycle.NaturalSlotType())
	for _, vt := range []VehicleType{VehicleCar, VehicleMotorcycle, VehicleTruck, VehicleBus} {
		assert.Equal(t, SlotRegular, vt.NaturalSlotType(), vt)
	}
}

func TestVehicleType_RateMultiplier(t *testing.T) {
	assert.Equal(t, 1.0, VehicleCar.RateMultiplier())
	assert.Equal(t, 0.5, VehicleMotorcycle.RateMultiplier())
	assert.Equal(t, 1.5, VehicleTruck.RateMultiplier())
	assert.Equal(t, 2.0, VehicleBus.RateMultiplier())
	assert.Equal(t, 0.9, VehicleEVCar.RateMultiplier())
	assert.Equal(t, 0.45, VehicleEVMotorcycle.RateMultiplier())
	assert.Equal(t, 1.0, VehicleType("TANK").RateMultiplier())
}

func TestParkVehicleDTO_ToVehicle(t *testing.T) {
	capacity, charge := 60.0, 30.0
	v, err := ParkVehicleDTO{
		LicensePlate:       "ev 42",
		VehicleType:        "ev_motorcycle",
		BatteryCapacityKWh: &capacity,
		CurrentChargeKWh:   &charge,
	}.ToVehicle()
	require.NoError(t, err)
	assert.Equal(t, "EV 42", v.LicensePlate)
	assert.Equal(t, VehicleEVMotorcycle, v.Type)
	assert.True(t, v.BatteryCapacityKWh.Valid)

	_, err = ParkVehicleDTO{LicensePlate: "AB-1", VehicleType: "CAR", CurrentChargeKWh: &charge}.ToVehicle()
	assert.ErrorIs(t, err, ErrInvalidVehicleData)
}

func TestParseSlotType(t *testing.T) {
	st, err := ParseSlotType(" ev ")
	require.NoError(t, err)
	assert.Equal(t, SlotEV, st)

	st, err = ParseSlotType("")
	require.NoError(t, err)
	assert.Equal(t, SlotType(""), st)

	_, err = ParseSlotType("valet")
	assert.ErrorIs(t, err, ErrInvalidVehicleData)
}
