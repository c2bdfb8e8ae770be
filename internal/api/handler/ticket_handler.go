package handler

import (
	"net/http"

	"smart_parking_lot/internal/service"
	"smart_parking_lot/internal/ticket"

	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	parkingService *service.ParkingService
	issuer         *ticket.Issuer
}

func NewTicketHandler(ps *service.ParkingService, issuer *ticket.Issuer) *TicketHandler {
	return &TicketHandler{parkingService: ps, issuer: issuer}
}

type verifyTicketRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// GET /api/v1/tickets/:ticket
func (h *TicketHandler) GetTicket(c *gin.Context) {
	session, err := h.parkingService.GetSession(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// GET /api/v1/tickets/:ticket/qr
func (h *TicketHandler) GetQRCode(c *gin.Context) {
	session, err := h.parkingService.GetSession(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		respondError(c, err)
		return
	}
	png, err := h.issuer.QRCode(session)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// GET /api/v1/tickets/:ticket/receipt
func (h *TicketHandler) GetReceipt(c *gin.Context) {
	session, err := h.parkingService.GetSession(c.Request.Context(), c.Param("ticket"))
	if err != nil {
		respondError(c, err)
		return
	}
	pdf, err := h.issuer.Receipt(session, h.parkingService.LotName(session.LotID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=receipt-"+session.TicketID+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// POST /api/v1/tickets/verify
func (h *TicketHandler) Verify(c *gin.Context) {
	var req verifyTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ticketID, err := h.issuer.Verify(req.Payload)
	if err != nil {
		respondError(c, err)
		return
	}
	session, err := h.parkingService.GetSession(c.Request.Context(), ticketID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
