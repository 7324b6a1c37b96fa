// Package app assembles the table server: repositories, ledger, engine and
// the HTTP router.
package app

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cardroom/platform/internal/dlock"
	"github.com/cardroom/platform/internal/engine"
	"github.com/cardroom/platform/internal/engine/bingo"
	"github.com/cardroom/platform/internal/engine/blackjack"
	"github.com/cardroom/platform/internal/engine/hilo"
	"github.com/cardroom/platform/internal/engine/war"
	"github.com/cardroom/platform/internal/guard"
	"github.com/cardroom/platform/internal/handler"
	"github.com/cardroom/platform/internal/infra"
	"github.com/cardroom/platform/internal/ledger"
	"github.com/cardroom/platform/internal/repository"
	"github.com/cardroom/platform/internal/tablestate"
)

// Deps holds the external connections NewRouter wires together.
type Deps struct {
	Cfg       *infra.Config
	Pool      *pgxpool.Pool
	Cache     *redis.Client
	LockNodes []*redis.Client
	Logger    *slog.Logger
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps Deps) chi.Router {
	cfg := deps.Cfg
	logger := deps.Logger

	// Repositories
	playerRepo := repository.NewPlayerRepository()
	txRepo := repository.NewTransactionRepository()
	outboxRepo := repository.NewOutboxRepository()

	// Ledger engine
	ledgerEngine := ledger.NewEngine(playerRepo, txRepo, outboxRepo)

	// Table infrastructure
	nodes := make([]dlock.Node, len(deps.LockNodes))
	for i, n := range deps.LockNodes {
		nodes[i] = n
	}
	locks := dlock.New(nodes, logger)
	store := tablestate.NewStore(deps.Cache,
		time.Duration(cfg.TableIdleTTLMin)*time.Minute, logger)
	limiter := guard.NewRateLimiter(cfg.ActionRateLimit,
		time.Duration(cfg.ActionRateWindow)*time.Second)
	poster := engine.NewLedgerPoster(deps.Pool, ledgerEngine, outboxRepo)

	games := []engine.Game{war.New(), blackjack.New(), bingo.New(), hilo.New()}
	runner := engine.NewRunner(games, locks, store, poster, limiter,
		time.Duration(cfg.TableLockLeaseMs)*time.Millisecond, logger)

	// Handlers
	tableHandler := handler.NewTableHandler(runner, ledgerEngine, deps.Pool, cfg.DefaultCurrency)
	walletHandler := handler.NewWalletHandler(playerRepo, txRepo, deps.Pool, ledgerEngine)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Pool, deps.Cache))

	r.Route("/tables/{gameType}/{tableID}", func(r chi.Router) {
		r.Get("/", tableHandler.GetState)
		r.Post("/join", tableHandler.Join)
		r.Post("/bets", tableHandler.PlaceBet)
		r.Post("/bets/remove", tableHandler.RemoveBet)
		r.Post("/start", tableHandler.StartHand)
		r.Post("/decisions", tableHandler.Decide)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/{playerID}/balance", walletHandler.GetBalance)
		r.Get("/{playerID}/transactions", walletHandler.GetTransactions)
		r.Get("/hands/{tableID}/{handID}", walletHandler.GetHandTransactions)
	})

	r.Post("/admin/wallet/adjust", walletHandler.AdminAdjust)

	return r
}
