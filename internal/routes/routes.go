package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/upline-net/upline_net/internal/commission"
	"github.com/upline-net/upline_net/internal/config"
	"github.com/upline-net/upline_net/internal/epin"
	"github.com/upline-net/upline_net/internal/identity"
	"github.com/upline-net/upline_net/internal/ledger"
	"github.com/upline-net/upline_net/internal/middleware"
	"github.com/upline-net/upline_net/internal/network"
	"github.com/upline-net/upline_net/internal/notification"
	"github.com/upline-net/upline_net/internal/purchase"
	"github.com/upline-net/upline_net/internal/rank"
	"github.com/upline-net/upline_net/internal/tree"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Stores: Postgres-backed in production, in-memory in dev mode.
	var (
		accountRepo  identity.Repository
		ledgerStore  ledger.Store
		networkStore network.Store
		epinStore    epin.Store
		markStore    commission.MarkStore
	)
	if d.DB != nil {
		accountRepo = identity.NewPostgresRepository(d.DB)
		ledgerStore = ledger.NewPostgresStore(d.DB)
		networkStore = network.NewPostgresStore(d.DB)
		epinStore = epin.NewPostgresStore(d.DB)
		markStore = commission.NewPostgresMarkStore(d.DB)
	} else {
		accountRepo = identity.NewMemoryRepository()
		ledgerStore = ledger.NewInMemory()
		networkStore = network.NewInMemory()
		epinStore = epin.NewInMemory()
		markStore = commission.NewMemoryMarkStore()
	}

	// Services
	notifier := notification.NewLoggerNotifier(d.Logger)
	accountSvc := identity.NewService(accountRepo)
	networkSvc := network.NewService(networkStore, accountRepo, notifier, d.Logger, d.Cfg.StrictLeg)
	rankEval := rank.NewEvaluator(ledgerStore, networkStore, nil)
	engine := commission.NewEngine(ledgerStore, networkStore, markStore, rankEval, notifier, d.Logger, commission.Rates{
		DirectBps:     d.Cfg.DirectRateBps,
		MatchingBonus: d.Cfg.MatchingBonus,
		PairSize:      d.Cfg.PairSize,
	})
	epinSvc := epin.NewService(epinStore, ledgerStore, accountRepo, notifier, d.Logger, d.Cfg.PinCodeLength, d.Cfg.PinValidity)
	purchaseSvc := purchase.NewService(ledgerStore, engine)

	var treeCache *tree.Cache
	if d.Cache != nil {
		treeCache = tree.NewCache(d.Cache, d.Cfg.TreeCacheTTL, d.Logger)
	}
	treeSvc := tree.NewService(networkStore, ledgerStore, accountRepo, rankEval, treeCache, d.Cfg.TreeMaxDepth)

	// Handlers
	networkHandler := network.NewHandler(networkSvc)
	walletHandler := ledger.NewHandler(ledgerStore)
	epinHandler := epin.NewHandler(epinSvc)
	treeHandler := tree.NewHandler(treeSvc)
	rankHandler := rank.NewHandler(rankEval)
	purchaseHandler := purchase.NewHandler(purchaseSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	registerLimiter := middleware.RegistrationRateLimit(d.Cache, 5)
	RegisterEnrollmentRoutes(api, accountSvc, networkSvc, d.Logger, registerLimiter)
	RegisterNetworkRoutes(api, networkHandler)
	RegisterWalletRoutes(api, walletHandler)
	RegisterEPinRoutes(api, epinHandler)
	RegisterTreeRoutes(api, treeHandler)
	RegisterRankRoutes(api, rankHandler)
	RegisterPurchaseRoutes(api, purchaseHandler)

	return nil
}
