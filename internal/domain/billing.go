package domain

import (
	"fmt"
	"math"
	"time"
)

type PricingKind string

const (
	PricingStandard     PricingKind = "standard"
	PricingDynamic      PricingKind = "dynamic"
	PricingSubscription PricingKind = "subscription"
)

func (k PricingKind) Valid() bool {
	switch k {
	case PricingStandard, PricingDynamic, PricingSubscription:
		return true
	}
	return false
}

const (
	DefaultRegularHourlyRate  = 5.00
	DefaultEVHourlyRate       = 7.00
	DefaultMaxStayHours       = 24
	DefaultOverstayMultiplier = 1.5

	subscriptionFreePeriod = 2 * time.Hour
	subscriptionDiscount   = 0.5
	subscriptionDailyCap   = 20.00
)

// Tariff decides what a completed stay costs.
type Tariff struct {
	Pricing            PricingKind `json:"pricing"`
	RegularHourlyRate  float64     `json:"regular_hourly_rate"`
	EVHourlyRate       float64     `json:"ev_hourly_rate"`
	MaxStayHours       int         `json:"max_stay_hours"`
	OverstayMultiplier float64     `json:"overstay_multiplier"`
}

func DefaultTariff() Tariff {
	return Tariff{
		Pricing:            PricingStandard,
		RegularHourlyRate:  DefaultRegularHourlyRate,
		EVHourlyRate:       DefaultEVHourlyRate,
		MaxStayHours:       DefaultMaxStayHours,
		OverstayMultiplier: DefaultOverstayMultiplier,
	}
}

func (t Tariff) Validate() error {
	if !t.Pricing.Valid() {
		return fmt.Errorf("%w: unknown pricing %q", ErrInvalidLotConfig, t.Pricing)
	}
	if t.RegularHourlyRate <= 0 || t.EVHourlyRate <= 0 {
		return fmt.Errorf("%w: hourly rates must be positive", ErrInvalidLotConfig)
	}
	if t.MaxStayHours < 0 {
		return fmt.Errorf("%w: max stay hours cannot be negative", ErrInvalidLotConfig)
	}
	if t.OverstayMultiplier != 0 && t.OverstayMultiplier < 1 {
		return fmt.Errorf("%w: overstay multiplier must be at least 1", ErrInvalidLotConfig)
	}
	return nil
}

func (t Tariff) HourlyRate(slotType SlotType) float64 {
	switch slotType {
	case SlotEV:
		return t.EVHourlyRate
	default:
		return t.RegularHourlyRate
	}
}

// BilledHours rounds a duration up to whole hours. Zero or negative
// durations bill nothing.
func BilledHours(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	hours := d / time.Hour
	if d%time.Hour != 0 {
		hours++
	}
	return int(hours)
}

// ComputeFee is ceil(hours) * hourlyRate, rounded to cents.
func ComputeFee(d time.Duration, hourlyRate float64) float64 {
	return roundCents(float64(BilledHours(d)) * hourlyRate)
}

// Quote prices a stay of d in a slot of slotType by a vehicle of
// vehicleType. occupancyRate is the lot occupancy (0..1) at the moment the
// vehicle leaves, counting that vehicle.
func (t Tariff) Quote(d time.Duration, slotType SlotType, vehicleType VehicleType, occupancyRate float64) float64 {
	standard := t.standardFee(d, t.HourlyRate(slotType)*vehicleType.RateMultiplier())

	switch t.Pricing {
	case PricingDynamic:
		return roundCents(standard * DemandMultiplier(occupancyRate))
	case PricingSubscription:
		if d <= subscriptionFreePeriod {
			return 0
		}
		return roundCents(math.Min(standard*subscriptionDiscount, subscriptionDailyCap))
	default:
		return standard
	}
}

func (t Tariff) standardFee(d time.Duration, rate float64) float64 {
	fee := ComputeFee(d, rate)

	if t.MaxStayHours > 0 && t.OverstayMultiplier > 1 {
		over := d - time.Duration(t.MaxStayHours)*time.Hour
		if over > 0 {
			fee += float64(BilledHours(over)) * rate * (t.OverstayMultiplier - 1)
		}
	}
	return roundCents(fee)
}

// DemandMultiplier scales the standard fee under dynamic pricing.
func DemandMultiplier(occupancyRate float64) float64 {
	switch {
	case occupancyRate < 0.50:
		return 0.9
	case occupancyRate < 0.75:
		return 1.0
	case occupancyRate < 0.90:
		return 1.2
	default:
		return 1.5
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
