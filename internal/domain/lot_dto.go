package domain

// CreateLotDTO is the payload of the admin "create lot" call. Zero tariff
// fields fall back to the defaults.
type CreateLotDTO struct {
	Name               string  `json:"name" binding:"required"`
	RegularSlots       int     `json:"regular_slots" binding:"min=0"`
	EVSlots            int     `json:"ev_slots" binding:"min=0"`
	EVCanUseRegular    bool    `json:"ev_can_use_regular"`
	Pricing            string  `json:"pricing"`
	RegularHourlyRate  float64 `json:"regular_hourly_rate"`
	EVHourlyRate       float64 `json:"ev_hourly_rate"`
	MaxStayHours       *int    `json:"max_stay_hours"`
	OverstayMultiplier float64 `json:"overstay_multiplier"`
}

func (d CreateLotDTO) ToConfig() LotConfig {
	cfg := DefaultLotConfig(d.Name, d.RegularSlots, d.EVSlots)
	cfg.EVCanUseRegular = d.EVCanUseRegular
	if d.Pricing != "" {
		cfg.Tariff.Pricing = PricingKind(d.Pricing)
	}
	if d.RegularHourlyRate != 0 {
		cfg.Tariff.RegularHourlyRate = d.RegularHourlyRate
	}
	if d.EVHourlyRate != 0 {
		cfg.Tariff.EVHourlyRate = d.EVHourlyRate
	}
	if d.MaxStayHours != nil {
		cfg.Tariff.MaxStayHours = *d.MaxStayHours
	}
	if d.OverstayMultiplier != 0 {
		cfg.Tariff.OverstayMultiplier = d.OverstayMultiplier
	}
	return cfg
}

// VacateResponse is the API view of a VacateResult.
type VacateResponse struct {
	LotID           int     `json:"lot_id"`
	SlotNumber      int     `json:"slot_number"`
	TicketID        string  `json:"ticket_id"`
	LicensePlate    string  `json:"license_plate"`
	EntryTime       string  `json:"entry_time"`
	ExitTime        string  `json:"exit_time"`
	DurationMinutes int64   `json:"duration_minutes"`
	BilledHours     int     `json:"billed_hours"`
	Fee             float64 `json:"fee"`
}
