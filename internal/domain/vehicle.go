package domain

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/guregu/null.v4"
)

type VehicleType string

const (
	VehicleCar          VehicleType = "CAR"
	VehicleMotorcycle   VehicleType = "MOTORCYCLE"
	VehicleTruck        VehicleType = "TRUCK"
	VehicleBus          VehicleType = "BUS"
	VehicleEVCar        VehicleType = "EV_CAR"
	VehicleEVMotorcycle VehicleType = "EV_MOTORCYCLE"
)

func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleMotorcycle, VehicleTruck, VehicleBus, VehicleEVCar, VehicleEVMotorcycle:
		return true
	}
	return false
}

// IsElectric reports whether the vehicle has to be parked in an EV slot.
func (t VehicleType) IsElectric() bool {
	switch t {
	case VehicleEVCar, VehicleEVMotorcycle:
		return true
	default:
		return false
	}
}

// NaturalSlotType is the slot type a vehicle of this kind is assigned to.
func (t VehicleType) NaturalSlotType() SlotType {
	if t.IsElectric() {
		return SlotEV
	}
	return SlotRegular
}

// RateMultiplier scales the hourly rate of the slot a vehicle occupies.
func (t VehicleType) RateMultiplier() float64 {
	switch t {
	case VehicleMotorcycle:
		return 0.5
	case VehicleTruck:
		return 1.5
	case VehicleBus:
		return 2.0
	case VehicleEVCar:
		return 0.9
	case VehicleEVMotorcycle:
		return 0.45
	default:
		return 1.0
	}
}

const (
	minPlateLength = 2
	maxPlateLength = 10
)

var plateRegex = regexp.MustCompile(`^[A-Z0-9 \-]+$`)

// NormalizePlate trims and upper-cases a licence plate.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

// ValidatePlate checks an already normalised plate.
func ValidatePlate(plate string) error {
	if len(plate) < minPlateLength || len(plate) > maxPlateLength {
		return fmt.Errorf("%w: license plate %q must be %d-%d characters", ErrInvalidVehicleData, plate, minPlateLength, maxPlateLength)
	}
	if !plateRegex.MatchString(plate) {
		return fmt.Errorf("%w: license plate %q contains invalid characters", ErrInvalidVehicleData, plate)
	}
	return nil
}

type Vehicle struct {
	LicensePlate       string      `json:"license_plate"`
	Make               string      `json:"make,omitempty"`
	Model              string      `json:"model,omitempty"`
	Color              string      `json:"color,omitempty"`
	Type               VehicleType `json:"vehicle_type"`
	BatteryCapacityKWh null.Float  `json:"battery_capacity_kwh"`
	CurrentChargeKWh   null.Float  `json:"current_charge_kwh"`
}

// NewVehicle normalises the plate and validates the result.
func NewVehicle(plate, vehicleMake, model, color string, vehicleType VehicleType) (*Vehicle, error) {
	v := &Vehicle{
		LicensePlate: NormalizePlate(plate),
		Make:         strings.TrimSpace(vehicleMake),
		Model:        strings.TrimSpace(model),
		Color:        strings.TrimSpace(color),
		Type:         VehicleType(strings.ToUpper(strings.TrimSpace(string(vehicleType)))),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// WithBattery attaches EV attributes and revalidates.
func (v *Vehicle) WithBattery(capacityKWh, chargeKWh float64) (*Vehicle, error) {
	v.BatteryCapacityKWh = null.FloatFrom(capacityKWh)
	v.CurrentChargeKWh = null.FloatFrom(chargeKWh)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Vehicle) Validate() error {
	if v == nil {
		return fmt.Errorf("%w: vehicle is required", ErrInvalidVehicleData)
	}
	if err := ValidatePlate(v.LicensePlate); err != nil {
		return err
	}
	if !v.Type.Valid() {
		return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidVehicleData, v.Type)
	}

	if !v.Type.IsElectric() {
		if v.BatteryCapacityKWh.Valid || v.CurrentChargeKWh.Valid {
			return fmt.Errorf("%w: battery data given for non-electric vehicle %s", ErrInvalidVehicleData, v.LicensePlate)
		}
		return nil
	}

	if v.BatteryCapacityKWh.Valid && v.BatteryCapacityKWh.Float64 <= 0 {
		return fmt.Errorf("%w: battery capacity must be positive", ErrInvalidVehicleData)
	}
	if v.CurrentChargeKWh.Valid {
		charge := v.CurrentChargeKWh.Float64
		if charge < 0 {
			return fmt.Errorf("%w: current charge cannot be negative", ErrInvalidVehicleData)
		}
		if v.BatteryCapacityKWh.Valid && charge > v.BatteryCapacityKWh.Float64 {
			return fmt.Errorf("%w: current charge %.2f exceeds battery capacity %.2f", ErrInvalidVehicleData, charge, v.BatteryCapacityKWh.Float64)
		}
	}
	return nil
}

// ChargePercentage returns 0 when the battery data is unknown.
func (v *Vehicle) ChargePercentage() float64 {
	if !v.BatteryCapacityKWh.Valid || !v.CurrentChargeKWh.Valid || v.BatteryCapacityKWh.Float64 == 0 {
		return 0
	}
	return v.CurrentChargeKWh.Float64 / v.BatteryCapacityKWh.Float64 * 100
}

// ParkVehicleDTO is the payload of a park request.
type ParkVehicleDTO struct {
	LicensePlate       string   `json:"license_plate" binding:"required"`
	Make               string   `json:"make"`
	Model              string   `json:"model"`
	Color              string   `json:"color"`
	VehicleType        string   `json:"vehicle_type" binding:"required"`
	BatteryCapacityKWh *float64 `json:"battery_capacity_kwh,omitempty"`
	CurrentChargeKWh   *float64 `json:"current_charge_kwh,omitempty"`
	PreferredSlotType  string   `json:"preferred_slot_type,omitempty"`
}

// ToVehicle builds and validates the vehicle described by the DTO.
func (d ParkVehicleDTO) ToVehicle() (*Vehicle, error) {
	v := &Vehicle{
		LicensePlate:       NormalizePlate(d.LicensePlate),
		Make:               strings.TrimSpace(d.Make),
		Model:              strings.TrimSpace(d.Model),
		Color:              strings.TrimSpace(d.Color),
		Type:               VehicleType(strings.ToUpper(strings.TrimSpace(d.VehicleType))),
		BatteryCapacityKWh: null.FloatFromPtr(d.BatteryCapacityKWh),
		CurrentChargeKWh:   null.FloatFromPtr(d.CurrentChargeKWh),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}
