package handler

import (
	"net/http"

	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IoTCommandHandler lets an operator drive a gate barrier by hand, for
// example when a plate cannot be read.
type IoTCommandHandler struct {
	barriers service.BarrierCommander
}

func NewIoTCommandHandler(barriers service.BarrierCommander) *IoTCommandHandler {
	return &IoTCommandHandler{barriers: barriers}
}

type ControlBarrierRequest struct {
	GateID  string `json:"gate_id" binding:"required"`
	Command string `json:"command" binding:"required,oneof=open close"`
	Reason  string `json:"reason"`
}

// POST /api/v1/iot/commands/barrier
func (h *IoTCommandHandler) ControlBarrier(c *gin.Context) {
	var req ControlBarrierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = "manual"
	}
	requestID := uuid.New().String()

	err := h.barriers.SendBarrierCommand(c.Request.Context(), req.GateID, domain.BarrierControlCommandPayload{
		Command:   req.Command,
		RequestID: requestID,
		Reason:    reason,
	})
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to send barrier command"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "barrier command sent", "request_id": requestID})
}
