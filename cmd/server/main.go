package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	accounthandler "asset-console/backend/internal/account/handler"
	accountrepo "asset-console/backend/internal/account/repository"
	accountservice "asset-console/backend/internal/account/service"
	authhandler "asset-console/backend/internal/auth/handler"
	authservice "asset-console/backend/internal/auth/service"
	"asset-console/backend/internal/broadcast"
	"asset-console/backend/internal/config"
	"asset-console/backend/internal/db"
	healthhandler "asset-console/backend/internal/health/handler"
	"asset-console/backend/internal/lockout"
	"asset-console/backend/internal/loginhistory"
	historyhandler "asset-console/backend/internal/loginhistory/handler"
	historyrepo "asset-console/backend/internal/loginhistory/repository"
	"asset-console/backend/internal/security"
	"asset-console/backend/internal/server"
	"asset-console/backend/internal/server/middleware"
	"asset-console/backend/internal/session"
	sessionhandler "asset-console/backend/internal/session/handler"
	sessionrepo "asset-console/backend/internal/session/repository"
	"asset-console/backend/internal/settings"
	settingshandler "asset-console/backend/internal/settings/handler"
	settingsrepo "asset-console/backend/internal/settings/repository"
	"asset-console/backend/internal/telemetry"
	telemetryotel "asset-console/backend/internal/telemetry/otel"
	"asset-console/backend/internal/telemetry/producer"
	"asset-console/backend/internal/twofactor"
	twofactorhandler "asset-console/backend/internal/twofactor/handler"
	twofactorrepo "asset-console/backend/internal/twofactor/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Security event sinks; both are optional.
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "asset-console-auth", false)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.SecurityKafkaBrokersList(), cfg.SecurityKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	events := telemetry.Fanout{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	if kafkaProducer != nil {
		events = append(events, kafkaProducer)
		defer kafkaProducer.Close()
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer redisClient.Close()
	}
	hub := broadcast.NewHub()
	broadcaster := broadcast.NewBroadcaster(redisClient, hub)
	go broadcaster.Run(ctx)

	accounts := accountrepo.NewPostgresRepository(conn)
	codes := twofactorrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	history := historyrepo.NewPostgresRepository(conn)
	settingsStore := settingsrepo.NewPostgresRepository(conn)

	settingsService := settings.NewService(settingsStore, events)
	registry := session.NewRegistry(sessions, tokens, settingsService, broadcaster)
	go registry.RunSweeper(ctx, cfg.CleanupInterval())

	policy := lockout.NewPolicy(cfg.LockoutThreshold, cfg.LockWindow())
	engine := twofactor.NewEngine(accounts, codes, hasher, "Asset Console")
	recorder := loginhistory.NewRecorder(history)
	gateway := authservice.NewGateway(accounts, hasher, policy, engine, registry, tokens, recorder, events)
	accountService := accountservice.NewService(accounts, hasher, registry)

	auth := middleware.NewAuthenticator(registry, accounts)
	router := server.NewRouter(auth, hub, server.Handlers{
		Auth:      authhandler.New(gateway),
		TwoFactor: twofactorhandler.New(engine),
		Sessions:  sessionhandler.New(registry, accounts, events),
		Accounts:  accounthandler.New(accountService),
		History:   historyhandler.New(history),
		Settings:  settingshandler.New(settingsService),
		Health:    healthhandler.New(conn),
	})

	srv := server.New(cfg.HTTPAddr, router)
	go func() {
		log.Printf("http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down http server...")
	if err := server.Shutdown(srv, 15*time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	cancel()

	// Let in-flight async security events drain before the exporter stops.
	time.Sleep(telemetry.ShutdownDrainDuration)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("http server stopped")
}
