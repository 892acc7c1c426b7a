// @title                       Movimientos API
// @version                     1.0
// @description                 Retiros de consumibles y traslados de activos con cadena de aprobación.
// @BasePath                    /
// @securityDefinitions.apikey  Bearer
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/jhoicas/Movimientos-api/docs"
	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/memory"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Movimientos-api/internal/interfaces/http"
	"github.com/jhoicas/Movimientos-api/internal/scheduler"
	"github.com/jhoicas/Movimientos-api/pkg/config"
	"github.com/jhoicas/Movimientos-api/pkg/logger"
)

// txRunner lo implementan *postgres.TxRunner y *memory.Store.
type txRunner interface {
	withdrawal.TxRunner
	transfer.TxRunner
}

type backend struct {
	tx          txRunner
	items       repository.ItemRepository
	withdrawals repository.WithdrawalRepository
	transfers   repository.TransferRepository
	close       func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.App.Store).
		Msg("iniciando aplicación")

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer be.close()

	guard := reservation.NewGuard()
	withdrawalUC := withdrawal.NewUseCase(be.tx, be.withdrawals, guard,
		withdrawal.Config{ReleaseChecklist: cfg.Workflow.ReleaseChecklist},
		log.Component("withdrawal"))
	transferUC := transfer.NewUseCase(be.tx, be.transfers, guard, log.Component("transfer"))

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(scheduler.Config{
			OverdueCron: cfg.Scheduler.OverdueCron,
			DueSoonDays: cfg.Workflow.DueSoonDays,
		}, transferUC, log.Component("scheduler"))
		if err := sched.Start(); err != nil {
			log.Fatal().Err(err).Msg("scheduler")
		}
	}

	httpLog := log.Component("http")
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(httpLog),
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestLogger(httpLog))

	// Swagger UI: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Movimientos API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Withdrawals: withdrawalUC,
		Transfers:   transferUC,
		Items:       be.items,
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
		DueSoonDays: cfg.Workflow.DueSoonDays,
		Log:         httpLog,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Fatal().Err(err).Msg("servidor HTTP")
		}
	}()
	log.Info().Str("addr", cfg.HTTP.Addr()).Msg("servidor escuchando")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("apagando servidor...")

	if sched != nil {
		sched.Stop()
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("servidor detenido")
}

func openBackend(ctx context.Context, cfg *config.Config, log *logger.Logger) (*backend, error) {
	if cfg.App.Store == "memory" {
		st := memory.NewStore()
		seedDemo(st)
		log.Warn().Msg("usando almacenamiento en memoria: los datos se pierden al reiniciar")
		return &backend{
			tx:          st,
			items:       st.Items(),
			withdrawals: st.Withdrawals(),
			transfers:   st.Transfers(),
			close:       func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	return &backend{
		tx:          postgres.NewTxRunner(pool, postgres.RetryPolicyFrom(cfg.DB), log.Component("postgres")),
		items:       postgres.NewItemRepository(pool),
		withdrawals: postgres.NewWithdrawalRepository(pool),
		transfers:   postgres.NewTransferRepository(pool),
		close:       pool.Close,
	}, nil
}
