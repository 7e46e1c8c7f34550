package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"challenge_arena/internal/attest"
	"challenge_arena/internal/bot"
	"challenge_arena/internal/config"
	"challenge_arena/internal/db"
	httpServer "challenge_arena/internal/http"
	"challenge_arena/internal/http/handlers"
	"challenge_arena/internal/http/middleware"
	"challenge_arena/internal/logger"
	"challenge_arena/internal/notify"
	"challenge_arena/internal/repository"
	"challenge_arena/internal/service"
	"challenge_arena/internal/tier"
	"challenge_arena/internal/ws"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

// Version устанавливается при сборке
var Version = "dev"

// хранилища под выбранный бэкенд
type stores struct {
	challenges   service.ChallengeStore
	participants service.ParticipantStore
	endpoints    interface {
		notify.EndpointStore
		service.EndpointRegistrar
	}
	audit service.AuditStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// логгер еще не настроен
		logger.Init("info", false)
		logger.Fatal("config error", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat == "json")
	log := logger.Get()

	if err := run(cfg); err != nil {
		logger.Fatal("server stopped with error", "error", err)
	}
	log.Info("server exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)

	checks := map[string]handlers.Checker{}

	var st stores
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(pool); err != nil {
			return err
		}
		st = postgresStores(pool)
		checks["postgres"] = handlers.CheckFunc(pool.Ping)
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		st = stores{
			challenges:   repository.NewMemoryChallengeRepository(),
			participants: repository.NewMemoryParticipantRepository(),
			endpoints:    repository.NewMemoryEndpointRepository(),
			audit:        repository.NewMemoryAuditRepository(),
		}
	}

	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		checks["redis"] = handlers.CheckFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	} else {
		logger.Warn("REDIS_URL not set, rate limiting disabled")
	}

	signer, err := attest.NewSigner(cfg.AttestationSignerKey)
	if err != nil {
		return err
	}
	if addr, err := signer.Address(); err == nil {
		logger.Info("attestation signer ready", "address", addr.Hex())
	} else {
		logger.Warn("ATTESTATION_SIGNER_KEY not set, attestations will be refused")
	}

	// каналы уведомлений
	hub := ws.NewHub()
	channels := []notify.Channel{
		notify.NewWSChannel(hub),
		notify.NewWebhookChannel(&http.Client{Timeout: cfg.NotifyTimeout}),
	}
	var botAPI *tgbotapi.BotAPI
	if cfg.BotToken != "" {
		botAPI, err = tgbotapi.NewBotAPI(cfg.BotToken)
		if err != nil {
			logger.Error("telegram bot disabled", "error", err)
			botAPI = nil
		} else {
			channels = append(channels, notify.NewTelegramChannel(botAPI))
		}
	}
	notifier := notify.New(st.endpoints, cfg.NotifyTimeout, channels...)
	defer notifier.Close()

	audit := service.NewAuditService(st.audit)
	challenges := service.NewChallengeService(st.challenges, st.participants, notifier, audit, service.ChallengeOptions{
		TTL:          cfg.ChallengeTTL,
		DedupeWindow: cfg.DedupeWindow,
	})
	attestations := service.NewAttestationService(signer, tier.Default, challenges, audit)
	h := &handlers.Handler{
		Challenges:   challenges,
		Attestations: attestations,
		Auth:         service.NewAuthService(st.participants, st.endpoints, audit, cfg.BotToken),
		Audit:        audit,
		Version:      Version,
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Metrics(), middleware.CORS(cfg.CORSOrigins))
	httpServer.RegisterRoutes(r, httpServer.RouterDeps{
		Handler:      h,
		RateLimiter:  middleware.NewRateLimiter(rdb, cfg.RateLimitPerMinute),
		ParseToken:   service.ParseJWT,
		AuthRequired: cfg.AuthRequired,
		Checks:       checks,
		WS:           ws.HandleWS(hub, service.ParseJWT, cfg.CORSOrigins),
		Metrics:      gin.WrapH(promhttp.Handler()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sweeper := service.NewExpirySweeper(challenges, cfg.ExpirySweepInterval)

	// админ бот слушает команды только если заданы админы
	var adminBot *bot.AdminBot
	if botAPI != nil && len(cfg.AdminIDs) > 0 {
		adminBot = bot.NewAdminBot(botAPI, challenges, attestations, audit, cfg.AdminIDs)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", Version, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweeper.Start()
		return nil
	})

	if adminBot != nil {
		g.Go(func() error {
			adminBot.Start()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		sweeper.Stop()
		if adminBot != nil {
			adminBot.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func postgresStores(pool *pgxpool.Pool) stores {
	return stores{
		challenges:   repository.NewChallengeRepository(pool),
		participants: repository.NewParticipantRepository(pool),
		endpoints:    repository.NewEndpointRepository(pool),
		audit:        repository.NewAuditRepository(pool),
	}
}
