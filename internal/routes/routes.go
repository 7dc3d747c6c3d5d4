package routes

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/congo-pay/wallet_engine/internal/catalog"
	"github.com/congo-pay/wallet_engine/internal/config"
	"github.com/congo-pay/wallet_engine/internal/coordinator"
	"github.com/congo-pay/wallet_engine/internal/deposit"
	"github.com/congo-pay/wallet_engine/internal/ledger"
	"github.com/congo-pay/wallet_engine/internal/metrics"
	"github.com/congo-pay/wallet_engine/internal/middleware"
	"github.com/congo-pay/wallet_engine/internal/notification"
	"github.com/congo-pay/wallet_engine/internal/store"
	"github.com/congo-pay/wallet_engine/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes. Nil backends
// fall back to in-memory implementations, which is only allowed in dev.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Gorm   *gorm.DB
	Cache  *redis.Client
	Events notification.MessageWriter
	// Registry receives the engine collectors and backs /metrics.
	Registry *prometheus.Registry
	Logger   *slog.Logger
	// AccessLog is where the plain access log goes; defaults to stdout.
	AccessLog io.Writer
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Registry == nil {
		d.Registry = prometheus.NewRegistry()
	}
	if d.AccessLog == nil {
		d.AccessLog = os.Stdout
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
		Output:     d.AccessLog,
	}))
	app.Use(middleware.Audit(d.Logger))

	// Backends
	var st store.Store
	if d.DB != nil {
		st = store.NewPostgres(d.DB, d.Cfg.LockTimeout)
	} else {
		d.Logger.Warn("no database configured, using in-memory store")
		st = store.NewMemory()
	}

	var prices catalog.Repository
	if d.Gorm != nil {
		prices = catalog.NewGormRepository(d.Gorm)
	} else {
		prices = catalog.NewMemoryRepository(catalog.DefaultActions()...)
	}
	if d.Cache != nil {
		prices = catalog.NewCached(prices, d.Cache, d.Cfg.CatalogCacheTTL, d.Logger)
	}

	var notifier notification.Notifier
	if d.Events != nil {
		notifier = notification.NewKafkaNotifier(d.Events)
	} else {
		notifier = notification.NewLoggerNotifier(d.Logger)
	}

	m := metrics.New(d.Registry)

	// Services and handlers
	walletSvc := wallet.NewService(st.Wallets())
	ledgerSvc := ledger.NewService(st.Wallets(), st.Ledger())
	catalogSvc := catalog.NewService(prices)
	coord := coordinator.New(st, catalogSvc, notifier, d.Logger, coordinator.Options{
		MaxRetries:    d.Cfg.MaxTxRetries,
		Metrics:       m,
		NotifyTimeout: d.Cfg.NotifyTimeout,
	})
	reconciler := deposit.NewReconciler(st, notifier, d.Logger, deposit.Options{
		MaxRetries:    d.Cfg.MaxTxRetries,
		Metrics:       m,
		NotifyTimeout: d.Cfg.NotifyTimeout,
	}, providers(d.Cfg)...)

	RegisterHealthRoutes(app, st, d.Cache)
	RegisterMetricsRoute(app, d.Registry)
	RegisterDepositRoutes(app, deposit.NewHandler(reconciler))

	// User API
	api := app.Group("/api/v1", middleware.Identity([]byte(d.Cfg.IdentityJWTSecret)))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterLedgerRoutes(api, ledger.NewHandler(ledgerSvc))
	RegisterCatalogRoutes(api, catalog.NewHandler(catalogSvc))

	var unsafe []fiber.Handler
	if d.Cache != nil {
		unsafe = append(unsafe, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	var spendLimit fiber.Handler
	if d.Cache != nil && d.Cfg.SpendRateLimit > 0 {
		spendLimit = middleware.SpendRateLimit(d.Cache, d.Cfg.SpendRateLimit)
	}
	RegisterCoordinatorRoutes(api, coordinator.NewHandler(coord), spendLimit, unsafe...)

	// Operator API
	internal := app.Group("/internal", middleware.ServiceKey(d.Cfg.ServiceKeyHash))
	RegisterOperatorRoutes(internal, coordinator.NewHandler(coord), ledger.NewHandler(ledgerSvc))

	return nil
}

func providers(cfg config.Config) []deposit.Provider {
	var out []deposit.Provider
	if cfg.PaystackSecretKey != "" {
		out = append(out, deposit.NewPaystack(cfg.PaystackSecretKey, cfg.DefaultCurrency))
	}
	if cfg.StripeWebhookSecret != "" {
		out = append(out, deposit.NewStripe(cfg.StripeWebhookSecret))
	}
	return out
}
