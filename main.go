package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"smart_parking_lot/internal/api"
	"smart_parking_lot/internal/api/handler"
	"smart_parking_lot/internal/api/middleware"
	"smart_parking_lot/internal/config"
	"smart_parking_lot/internal/events"
	"smart_parking_lot/internal/iot"
	"smart_parking_lot/internal/logger"
	"smart_parking_lot/internal/metrics"
	"smart_parking_lot/internal/repository"
	"smart_parking_lot/internal/repository/memory"
	"smart_parking_lot/internal/repository/postgresql"
	"smart_parking_lot/internal/service"
	"smart_parking_lot/internal/ticket"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const serviceName = "smart-parking-lot"

type repositories struct {
	users    repository.UserRepository
	lots     repository.ParkingLotRepository
	sessions repository.ParkingSessionRepository
	db       *sql.DB
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg, log)
	if err != nil {
		return err
	}
	if repos.db != nil {
		defer repos.db.Close()
	}

	m := metrics.New()

	wsManager := handler.NewWebSocketManager(log)
	publishers := events.Multi{wsManager}
	if cfg.RedisAddr != "" {
		redisClient := events.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("Redis ping failed, stream publishing will keep trying", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		publishers = append(publishers, events.NewRedisStreamPublisher(redisClient, cfg.RedisEventStream, log))
		log.Info("Publishing lot events to Redis stream", zap.String("stream", cfg.RedisEventStream))
	}

	parkingService := service.NewParkingService(repos.lots, repos.sessions, publishers, m, log)
	if err := parkingService.LoadLots(ctx); err != nil {
		return fmt.Errorf("load lots: %w", err)
	}
	if err := parkingService.EnsureDefaultLot(ctx, cfg.LotConfig()); err != nil {
		return fmt.Errorf("create default lot: %w", err)
	}
	chargingService := service.NewChargingService(parkingService, publishers, m, log)

	authService := service.NewAuthService(repos.users, cfg.JWTSecret, cfg.JWTExpirationHours, log)
	if cfg.AdminUsername != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	var detector service.TextDetector
	if cfg.LPREnabled {
		detector = rekognition.NewFromConfig(awsCfg)
		log.Info("Plate recognition enabled", zap.String("region", cfg.AWSRegion))
	}
	lprService := service.NewLPRService(detector, log)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		wsManager.Start(ctx)
	}()

	var barriers service.BarrierCommander
	if cfg.IoTMQTTEndpoint == "" {
		log.Warn("IOT_MQTT_ENDPOINT is not set, barrier commands disabled")
	} else {
		endpoint := cfg.IoTMQTTEndpoint
		if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
			endpoint = "https://" + endpoint
		}
		iotClient := iotdataplane.NewFromConfig(awsCfg, func(o *iotdataplane.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
		barriers = iot.NewBarrierCommander(iotClient, log)
	}

	if cfg.SQSEventQueueURL == "" {
		log.Warn("SQS_EVENT_QUEUE_URL is not set, gate events consumer disabled")
	} else {
		gateService := service.NewGateService(parkingService, lprService, barriers, log)
		consumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsCfg), cfg.SQSEventQueueURL, gateService, service.IsPermanent, log)

		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(ctx)
		}()
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.SetupRouter(api.Dependencies{
		AuthService:     authService,
		ParkingService:  parkingService,
		ChargingService: chargingService,
		LPRService:      lprService,
		Barriers:        barriers,
		Issuer:          ticket.NewIssuer(cfg.TicketSigningSecret),
		WSManager:       wsManager,
		Metrics:         m,
		RateLimiter:     middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:          log,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down")
	case err := <-serverErr:
		if err != nil {
			stop()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shut down", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Warn("Background workers did not stop in time")
	}

	log.Info("Server stopped")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, log *zap.Logger) (repositories, error) {
	if !cfg.UsesDatabase() {
		log.Warn("DB_HOST is not set, keeping lots and sessions in memory")
		return repositories{
			users:    memory.NewUserRepo(),
			lots:     memory.NewParkingLotRepo(),
			sessions: memory.NewParkingSessionRepo(),
		}, nil
	}

	db, err := postgresql.NewDB(ctx, cfg)
	if err != nil {
		return repositories{}, err
	}
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return repositories{}, fmt.Errorf("ensure schema: %w", err)
	}
	log.Info("Connected to database", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	return repositories{
		users:    postgresql.NewPgUserRepository(db),
		lots:     postgresql.NewPgParkingLotRepository(db),
		sessions: postgresql.NewPgParkingSessionRepository(db),
		db:       db,
	}, nil
}
