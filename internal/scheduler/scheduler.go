package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

// TransferMonitor lo implementa *transfer.UseCase.
type TransferMonitor interface {
	Overdue(ctx context.Context) ([]*entity.TransferRequest, error)
	DueSoon(ctx context.Context, days int) ([]*entity.TransferRequest, error)
}

// Config expresión cron y ventana de próximos a vencer.
type Config struct {
	OverdueCron string
	DueSoonDays int
}

// Scheduler revisa periódicamente los traslados temporales vencidos o por vencer.
type Scheduler struct {
	cron    *cron.Cron
	monitor TransferMonitor
	cfg     Config
	log     zerolog.Logger
}

// New crea el scheduler; el parser es el estándar de 5 campos (min hora día mes díaSemana).
func New(cfg Config, monitor TransferMonitor, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		monitor: monitor,
		cfg:     cfg,
		log:     log,
	}
}

// Start registra la tarea y arranca el cron.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.OverdueCron, s.run); err != nil {
		return fmt.Errorf("programar revisión de traslados (%q): %w", s.cfg.OverdueCron, err)
	}
	s.log.Info().Str("cron", s.cfg.OverdueCron).Msg("scheduler iniciado")
	s.cron.Start()
	return nil
}

// Stop detiene el cron y espera la tarea en curso.
func (s *Scheduler) Stop() {
	s.log.Info().Msg("deteniendo scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s.Check(ctx)
}

// Check ejecuta una revisión: un Warn por traslado vencido y un Info por cada uno próximo a vencer.
// Devuelve las cantidades encontradas.
func (s *Scheduler) Check(ctx context.Context) (overdue, dueSoon int) {
	list, err := s.monitor.Overdue(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("consultar traslados vencidos")
	}
	for _, t := range list {
		s.log.Warn().
			Str("transfer_id", t.ID).
			Str("asset_id", t.AssetID).
			Str("to_location_id", t.ToLocationID).
			Time("expected_return", *t.ExpectedReturn).
			Msg("traslado temporal vencido sin devolución")
	}
	soon, err := s.monitor.DueSoon(ctx, s.cfg.DueSoonDays)
	if err != nil {
		s.log.Error().Err(err).Msg("consultar traslados próximos a vencer")
	}
	for _, t := range soon {
		s.log.Info().
			Str("transfer_id", t.ID).
			Str("asset_id", t.AssetID).
			Time("expected_return", *t.ExpectedReturn).
			Msg("traslado temporal próximo a vencer")
	}
	return len(list), len(soon)
}
