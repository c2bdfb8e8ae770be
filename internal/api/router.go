package api

import (
	"net/http"

	"smart_parking_lot/internal/api/handler"
	"smart_parking_lot/internal/api/middleware"
	"smart_parking_lot/internal/domain"
	"smart_parking_lot/internal/metrics"
	"smart_parking_lot/internal/service"
	"smart_parking_lot/internal/ticket"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies are the services the HTTP layer is built from.
type Dependencies struct {
	AuthService     *service.AuthService
	ParkingService  *service.ParkingService
	ChargingService *service.ChargingService
	LPRService      *service.LPRService
	Barriers        service.BarrierCommander
	Issuer          *ticket.Issuer
	WSManager       *handler.WebSocketManager
	Metrics         *metrics.Metrics
	RateLimiter     *middleware.RateLimiter
	Logger          *zap.Logger
}

func SetupRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger, deps.Metrics))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Limit())
	}

	authMw := middleware.NewAuthMiddleware(deps.AuthService, logger)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")

	authHandler := handler.NewAuthHandler(deps.AuthService)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	if deps.WSManager != nil {
		wsHandler := handler.NewWebSocketHandler(deps.WSManager)
		v1.GET("/ws", wsHandler.HandleWebSocket)
	}

	secured := v1.Group("")
	secured.Use(authMw.Authenticate())
	adminOnly := authMw.AuthorizeRole(domain.RoleAdmin)

	secured.GET("/auth/me", authHandler.Me)

	lotH := handler.NewParkingLotHandler(deps.ParkingService)
	parkH := handler.NewParkingHandler(deps.ParkingService)
	lotRoutes := secured.Group("/lots")
	{
		lotRoutes.GET("", lotH.ListLots)
		lotRoutes.POST("", adminOnly, lotH.CreateLot)
		lotRoutes.GET("/:id", lotH.GetLotStatus)
		lotRoutes.GET("/:id/slots", lotH.GetSlots)
		lotRoutes.POST("/:id/park", parkH.Park)
		lotRoutes.POST("/:id/slots/:number/vacate", parkH.Vacate)
		lotRoutes.GET("/:id/vehicles/:plate", parkH.FindVehicle)
		lotRoutes.GET("/:id/sessions", adminOnly, lotH.GetSessions)
		lotRoutes.GET("/:id/revenue", adminOnly, lotH.GetRevenue)
		lotRoutes.DELETE("/:id/events", adminOnly, lotH.ClearEvents)
	}

	if deps.ChargingService != nil {
		chargeH := handler.NewChargingHandler(deps.ChargingService)
		lotRoutes.GET("/:id/charging-stations", chargeH.ListStations)
		lotRoutes.POST("/:id/charging-stations", adminOnly, chargeH.CreateStation)

		stationRoutes := secured.Group("/charging-stations")
		{
			stationRoutes.GET("/:station", chargeH.GetStation)
			stationRoutes.PUT("/:station/status", adminOnly, chargeH.SetStatus)
			stationRoutes.POST("/:station/sessions", chargeH.StartCharging)
			stationRoutes.POST("/:station/sessions/:session/stop", chargeH.StopCharging)
		}
	}

	if deps.Issuer != nil {
		ticketH := handler.NewTicketHandler(deps.ParkingService, deps.Issuer)
		ticketRoutes := secured.Group("/tickets")
		{
			ticketRoutes.POST("/verify", ticketH.Verify)
			ticketRoutes.GET("/:ticket", ticketH.GetTicket)
			ticketRoutes.GET("/:ticket/qr", ticketH.GetQRCode)
			ticketRoutes.GET("/:ticket/receipt", ticketH.GetReceipt)
		}
	}

	if deps.LPRService != nil {
		lprH := handler.NewLPRHandler(deps.LPRService, deps.ParkingService)
		secured.POST("/lpr/recognize", lprH.Recognize)
		lotRoutes.POST("/:id/lpr/park", lprH.ParkFromImage)
	}

	if deps.Barriers != nil {
		iotCmdH := handler.NewIoTCommandHandler(deps.Barriers)
		secured.POST("/iot/commands/barrier", iotCmdH.ControlBarrier)
	}

	return r
}
