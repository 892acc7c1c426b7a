package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/jhoicas/Movimientos-api/internal/application/reservation"
	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Movimientos-api/pkg/config"
	"github.com/jhoicas/Movimientos-api/pkg/logger"
)

// deps puntos de inyección para probar los comandos sin base de datos.
type deps struct {
	out           io.Writer
	loadConfig    func() (*config.Config, error)
	openTransfers func(ctx context.Context, cfg *config.Config) (*transfer.UseCase, func(), error)
	migrate       func(cfg *config.Config, steps int) error
}

func defaultDeps() deps {
	return deps{
		out:        os.Stdout,
		loadConfig: config.Load,
		openTransfers: func(ctx context.Context, cfg *config.Config) (*transfer.UseCase, func(), error) {
			log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Out: os.Stderr})
			pool, err := postgres.NewPool(ctx, cfg.DB)
			if err != nil {
				return nil, nil, err
			}
			tx := postgres.NewTxRunner(pool, postgres.RetryPolicyFrom(cfg.DB), log.Component("postgres"))
			uc := transfer.NewUseCase(tx, postgres.NewTransferRepository(pool), reservation.NewGuard(), log.Component("transfer"))
			return uc, pool.Close, nil
		},
		migrate: func(cfg *config.Config, steps int) error {
			log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Out: os.Stderr})
			return postgres.Migrate(cfg.DB.ConnectionString(), steps, log.Component("migrate"))
		},
	}
}

func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "movctl",
		Short:         "Herramientas de operación de movimientos de inventario",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(d.out)
	root.AddCommand(newMigrateCmd(d), newOverdueCmd(d), newDueSoonCmd(d))
	return root
}

func newMigrateCmd(d deps) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones embebidas",
		Long:  `Sin --steps aplica todas las pendientes. --steps N avanza N; --steps -N revierte N.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := d.loadConfig()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			if err := d.migrate(cfg, steps); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migraciones aplicadas")
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "cantidad de migraciones a aplicar (negativo revierte)")
	return cmd
}

func newOverdueCmd(d deps) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Lista traslados temporales vencidos sin devolución",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.withTransfers(cmd.Context(), func(uc *transfer.UseCase) error {
				list, err := uc.Overdue(cmd.Context())
				if err != nil {
					return err
				}
				return printTransfers(cmd.OutOrStdout(), list, uc.Now(), asJSON)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "salida JSON")
	return cmd
}

func newDueSoonCmd(d deps) *cobra.Command {
	var (
		days   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "due-soon",
		Short: "Lista traslados temporales con devolución en los próximos N días",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.withTransfers(cmd.Context(), func(uc *transfer.UseCase) error {
				list, err := uc.DueSoon(cmd.Context(), days)
				if err != nil {
					return err
				}
				return printTransfers(cmd.OutOrStdout(), list, uc.Now(), asJSON)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 3, "ventana en días")
	cmd.Flags().BoolVar(&asJSON, "json", false, "salida JSON")
	return cmd
}

func (d deps) withTransfers(ctx context.Context, fn func(uc *transfer.UseCase) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := d.loadConfig()
	if err != nil {
		return fmt.Errorf("cargar configuración: %w", err)
	}
	uc, closeFn, err := d.openTransfers(ctx, cfg)
	if err != nil {
		return fmt.Errorf("conectar: %w", err)
	}
	defer closeFn()
	return fn(uc)
}

type transferRow struct {
	ID             string    `json:"id"`
	AssetID        string    `json:"asset_id"`
	FromLocationID string    `json:"from_location_id"`
	ToLocationID   string    `json:"to_location_id"`
	ExpectedReturn time.Time `json:"expected_return"`
	DaysLate       int       `json:"days_late"`
}

func printTransfers(w io.Writer, list []*entity.TransferRequest, now time.Time, asJSON bool) error {
	rows := make([]transferRow, 0, len(list))
	for _, t := range list {
		row := transferRow{ID: t.ID, AssetID: t.AssetID, FromLocationID: t.FromLocationID, ToLocationID: t.ToLocationID}
		if t.ExpectedReturn != nil {
			row.ExpectedReturn = *t.ExpectedReturn
			if late := now.Sub(*t.ExpectedReturn); late > 0 {
				row.DaysLate = int(late.Hours() / 24)
			}
		}
		rows = append(rows, row)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "sin traslados")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTIVO\tORIGEN\tDESTINO\tRETORNO ESPERADO\tDÍAS DE ATRASO")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", r.ID, r.AssetID, r.FromLocationID, r.ToLocationID,
			r.ExpectedReturn.Format("2006-01-02"), r.DaysLate)
	}
	return tw.Flush()
}
