package domain

// LPRRequestDTO carries a camera frame as base64.
type LPRRequestDTO struct {
	ImageBase64 string `json:"image_base64" binding:"required"`
}

type LPRResponseDTO struct {
	DetectedPlate string  `json:"detected_plate"`
	Confidence    float32 `json:"confidence,omitempty"`
	ErrorMessage  string  `json:"error_message,omitempty"`
}

// LPRParkDTO parks the vehicle whose plate is read from the image.
type LPRParkDTO struct {
	ImageBase64       string `json:"image_base64" binding:"required"`
	VehicleType       string `json:"vehicle_type" binding:"required"`
	Make              string `json:"make"`
	Model             string `json:"model"`
	Color             string `json:"color"`
	PreferredSlotType string `json:"preferred_slot_type,omitempty"`
}
