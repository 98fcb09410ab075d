// Command server runs the bioentry HTTP API. main only wires dependencies;
// optional backends (redis, postgres, kafka) fall back to in-process
// equivalents when unconfigured so a bare binary still serves.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bioentry/internal/admin"
	adminhandler "bioentry/internal/admin/handler"
	"bioentry/internal/audit"
	"bioentry/internal/face"
	"bioentry/internal/face/deepface"
	"bioentry/internal/ledger"
	ledgerhandler "bioentry/internal/ledger/handler"
	ledgerstore "bioentry/internal/ledger/store"
	"bioentry/internal/location"
	locationhandler "bioentry/internal/location/handler"
	locationstore "bioentry/internal/location/store"
	"bioentry/internal/platform/config"
	"bioentry/internal/platform/database"
	"bioentry/internal/platform/httpserver"
	"bioentry/internal/platform/kafka/producer"
	"bioentry/internal/platform/logger"
	redisplatform "bioentry/internal/platform/redis"
	"bioentry/internal/session"
	"bioentry/internal/terminal"
	terminalhandler "bioentry/internal/terminal/handler"
	terminalstore "bioentry/internal/terminal/store"
	httptransport "bioentry/internal/transport/http"
	"bioentry/internal/user"
	userhandler "bioentry/internal/user/handler"
	userstore "bioentry/internal/user/store"
	"bioentry/internal/verification"
	verificationhandler "bioentry/internal/verification/handler"
)

const (
	tokenIssuer       = "bioentry"
	shutdownTimeout   = 10 * time.Second
	producerFlushWait = 5 * time.Second
	auditPartitions   = 3
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redisplatform.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("redis connected")
	} else {
		log.Info("redis not configured, using in-memory stores")
	}

	dbConfig := database.DefaultConfig()
	dbConfig.DSN = cfg.PostgresDSN
	db, err := database.Open(dbConfig)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if db != nil {
		defer db.Close()
		log.Info("postgres connected")
	} else {
		log.Info("postgres not configured, ledger kept in memory")
	}

	var (
		userStore     user.Store
		locationStore location.Store
		requestStore  terminalstore.Store
		replayGuard   session.ReplayGuard
	)
	if redisClient != nil {
		userStore = userstore.NewRedisStore(redisClient.Client)
		locationStore = locationstore.NewRedisStore(redisClient.Client)
		requestStore = terminalstore.NewRedisStore(redisClient.Client)
		replayGuard = session.NewRedisReplayGuard(redisClient.Client)
	} else {
		userStore = userstore.NewMemoryStore()
		locationStore = locationstore.NewMemoryStore()
		requestStore = terminalstore.NewMemoryStore()
		replayGuard = session.NewMemoryReplayGuard()
	}

	var recordStore ledger.Store
	if db != nil {
		pg := ledgerstore.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		recordStore = pg
	} else {
		recordStore = ledgerstore.NewMemoryStore()
	}

	var auditor verification.Auditor = audit.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		if err := audit.EnsureTopic(ctx, cfg.KafkaBrokers, auditPartitions); err != nil {
			return fmt.Errorf("ensure audit topic: %w", err)
		}
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:         cfg.KafkaBrokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			if err := kafkaProducer.Flush(producerFlushWait); err != nil {
				log.Warn("kafka flush on shutdown", "error", err)
			}
			_ = kafkaProducer.Close()
		}()
		auditor = audit.NewPublisher(kafkaProducer, log)
		log.Info("audit publisher enabled", "topic", audit.Topic)
	}

	gallery, err := face.NewGallery(cfg.GalleryDir)
	if err != nil {
		return fmt.Errorf("open gallery: %w", err)
	}

	matcherClient := deepface.NewClient(cfg.MatcherURL,
		deepface.WithMaxInFlight(int64(cfg.MatcherMaxInFlight)))
	verifier := face.NewVerifier(matcherClient, log)

	issuer := session.NewIssuer(cfg.JWTSigningKey, tokenIssuer,
		session.WithTTL(cfg.SessionTTL))

	userService := user.NewService(userStore)
	locationService := location.NewService(locationStore)
	ledgerService := ledger.NewService(recordStore, userService)

	verificationService := verification.NewService(
		userService,
		locationService,
		issuer,
		replayGuard,
		verifier,
		gallery,
		ledgerService,
		log,
		verification.WithScanWorkers(cfg.ScanWorkers),
		verification.WithAuditor(auditor),
	)

	terminalService := terminal.NewService(userService, ledgerService, requestStore, log,
		terminal.WithMatcherProbe(matcherClient.Healthy))
	terminalRegistry := terminal.NewRegistry(cfg.TerminalAPIKeys)

	adminService := admin.NewService(admin.NewMemoryStore(),
		[]byte(cfg.JWTSigningKey), tokenIssuer, log,
		admin.WithAccessTTL(cfg.AdminTokenTTL))
	if err := adminService.Seed(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed admin account: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Handlers{
		Verification: verificationhandler.New(verificationService, log),
		Admin:        adminhandler.New(adminService, log),
		Ledger:       ledgerhandler.New(ledgerService, log),
		User:         userhandler.New(userService, gallery, locationService, terminalService, log),
		Location:     locationhandler.New(locationService, log),
		Terminal:     terminalhandler.New(terminalService, log),
	}, httptransport.Config{
		Logger:         log,
		RequestTimeout: cfg.RequestTimeout,
		AdminAuth:      adminService,
		TerminalAuth:   terminalRegistry,
	})

	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
