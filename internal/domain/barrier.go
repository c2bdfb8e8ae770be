package domain

const (
	BarrierCommandOpen  = "open"
	BarrierCommandClose = "close"
)

// BarrierControlCommandPayload is published to a gate's barrier topic.
type BarrierControlCommandPayload struct {
	Command   string `json:"command"`
	RequestID string `json:"request_id,omitempty"`
	TicketID  string `json:"ticket_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
