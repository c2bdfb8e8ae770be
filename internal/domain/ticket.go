package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TicketIDFunc produces the ticket id for a vehicle entering at entry.
type TicketIDFunc func(entry time.Time) string

// NewTicketID formats ids as TKT-<yyyymmddhhmmss>-<8 hex chars>.
func NewTicketID(entry time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("TKT-%s-%s", entry.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}
