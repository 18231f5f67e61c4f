package main

import (
	"context"
	"crypto/rand"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hushousing/internal/alerts"
	"github.com/sudo-init-do/hushousing/internal/auth"
	"github.com/sudo-init-do/hushousing/internal/chain"
	"github.com/sudo-init-do/hushousing/internal/config"
	"github.com/sudo-init-do/hushousing/internal/db"
	"github.com/sudo-init-do/hushousing/internal/journal"
	"github.com/sudo-init-do/hushousing/internal/logging"
	"github.com/sudo-init-do/hushousing/internal/marketplace"
	"github.com/sudo-init-do/hushousing/internal/messaging"
	mware "github.com/sudo-init-do/hushousing/internal/middleware"
	"github.com/sudo-init-do/hushousing/internal/user"
	"github.com/sudo-init-do/hushousing/internal/wallet"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Transaction journal: Postgres when configured, memory otherwise
	var (
		pool *pgxpool.Pool
		rec  journal.Recorder = journal.NewMemory(500)
	)
	if dsn := cfg.DSN(); dsn != "" {
		pool, err = db.Open(ctx, dsn)
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool, logger); err != nil {
			logger.Fatal("schema setup failed", zap.Error(err))
		}
		rec = journal.NewPgStore(pool)
		logger.Info("journal backed by postgres")
	} else {
		logger.Info("no database configured, journal kept in memory")
	}

	notify := alerts.NewChannel(logger.Named("alerts"))

	provider, err := wallet.Detect(cfg.Chain)
	if err != nil {
		logger.Warn("wallet provider unavailable", zap.Error(err))
	}
	if closer, ok := provider.(interface{ Close() }); ok {
		defer closer.Close()
	}
	connector := wallet.NewConnector(provider, chain.Options{
		Capabilities: cfg.Capabilities(),
		Marketplace:  common.HexToAddress(cfg.Chain.MarketplaceAddress),
		Token:        common.HexToAddress(cfg.Chain.TokenAddress),
	}, notify, logger.Named("wallet"))

	app := marketplace.NewMarketplace(marketplace.WalletConnector{Connector: connector}, notify, rec, marketplace.Options{
		Capabilities: cfg.Capabilities(),
		Decimals:     cfg.Chain.TokenDecimals,
		Symbol:       cfg.Chain.TokenSymbol,
		ExplorerURL:  cfg.Chain.ExplorerURL,
	}, logger.Named("marketplace"))

	renderer, err := marketplace.NewRenderer()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			logger.Fatal("session secret", zap.Error(err))
		}
		logger.Warn("JWT_SECRET not set, sessions will not survive a restart")
	}

	hub := messaging.NewHub(notify, logger.Named("ws"))
	go hub.Run(ctx)

	var refresher *marketplace.Refresher
	if cfg.RefreshSchedule != "" {
		refresher, err = marketplace.NewRefresher(app, cfg.RefreshSchedule, logger.Named("refresher"))
		if err != nil {
			logger.Fatal("refresher", zap.Error(err))
		}
		refresher.Start()
	}

	handler := marketplace.NewHandler(app, logger.Named("http"))
	authHandler := auth.NewHandler(app, secret, cfg.Session.TTL, logger.Named("auth"))
	requireSession := mware.RequireSession(secret, func() (common.Address, bool) {
		return app.Account(), app.Connected()
	})

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	// Basic middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))

	// Health and root routes
	e.GET("/", handler.Index)
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		rctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()
		if p, ok := provider.(pinger); ok {
			if err := p.Ping(rctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "rpc unreachable"})
			}
		}
		if pool != nil {
			if err := pool.Ping(rctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})

	// Public routes
	// Connect with per-IP rate limiting to slow passphrase guessing
	e.POST("/connect", authHandler.Connect, middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(5)))

	e.POST("/refresh", handler.Refresh)
	e.GET("/balance", handler.Balance)
	e.GET("/notifications", handler.Notification)
	e.GET("/notifications/ws", hub.NotificationsWS)
	e.GET("/identicons/:address", handler.Identicon)
	e.GET("/owners/:address/profile", user.GetPublicProfile(app.Cache(), app.Options()))
	e.GET("/activity", journal.ListActivity(rec))
	e.GET("/activity/stats", journal.ActivityStats(rec))

	// Protected routes
	e.GET("/session", auth.Me, requireSession)
	e.POST("/listings", handler.CreateListing, requireSession)
	e.POST("/listings/:index/:action", handler.Act, requireSession)

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if refresher != nil {
		refresher.Stop(shutdownCtx)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	// pending transactions have no timeout of their own
	pending := make(chan struct{})
	go func() {
		handler.Wait()
		close(pending)
	}()
	select {
	case <-pending:
	case <-shutdownCtx.Done():
		logger.Warn("shutdown with contract writes still pending")
	}
}
