package ticket

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"smart_parking_lot/internal/domain"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var (
	ErrInvalidPayload   = errors.New("invalid ticket payload")
	ErrInvalidSignature = errors.New("ticket signature mismatch")
	ErrSessionOpen      = errors.New("session has not been completed")
)

const qrSize = 256

// Issuer signs ticket payloads and renders QR codes and receipts.
type Issuer struct {
	secret []byte
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret)}
}

// Payload returns ticketID|lotID|plate|entryUnix|signature.
func (i *Issuer) Payload(s *domain.ParkingSession) string {
	data := fmt.Sprintf("%s|%d|%s|%d", s.TicketID, s.LotID, s.LicensePlate, s.EntryTime.Unix())
	return data + "|" + i.sign(data)
}

// Verify checks the signature and returns the ticket id it carries.
func (i *Issuer) Verify(payload string) (string, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 5 {
		return "", ErrInvalidPayload
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return "", ErrInvalidPayload
	}
	if _, err := strconv.ParseInt(parts[3], 10, 64); err != nil {
		return "", ErrInvalidPayload
	}
	data := strings.Join(parts[:4], "|")
	if !hmac.Equal([]byte(parts[4]), []byte(i.sign(data))) {
		return "", ErrInvalidSignature
	}
	return parts[0], nil
}

func (i *Issuer) sign(data string) string {
	h := hmac.New(sha256.New, i.secret)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// QRCode encodes the signed payload as a PNG.
func (i *Issuer) QRCode(s *domain.ParkingSession) ([]byte, error) {
	png, err := qrcode.Encode(i.Payload(s), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr for %s: %w", s.TicketID, err)
	}
	return png, nil
}

// Receipt renders a one-page PDF for a completed session.
func (i *Issuer) Receipt(s *domain.ParkingSession, lotName string) ([]byte, error) {
	if s.Status != domain.SessionCompleted {
		return nil, ErrSessionOpen
	}
	qrPNG, err := i.QRCode(s)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Parking Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.MultiCell(0, 7, fmt.Sprintf(
		"Lot: %s\nTicket: %s\nPlate: %s\nSlot: %d (%s)\nEntry: %s\nExit: %s\nDuration: %d min\nBilled hours: %d",
		lotName,
		s.TicketID,
		s.LicensePlate,
		s.SlotNumber, s.SlotType,
		s.EntryTime.UTC().Format(time.RFC1123),
		s.ExitTime.Time.UTC().Format(time.RFC1123),
		s.DurationMinutes.Int64,
		s.BilledHours.Int64,
	), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, fmt.Sprintf("Total: %.2f", s.Fee.Float64), "T", 1, "R", false, 0, "")

	imgOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imgOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 49, pdf.GetY()+4, 50, 50, false, imgOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt for %s: %w", s.TicketID, err)
	}
	return buf.Bytes(), nil
}
