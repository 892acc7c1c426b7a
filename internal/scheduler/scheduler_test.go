package scheduler_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/scheduler"
)

type monitorMock struct {
	mock.Mock
}

func (m *monitorMock) Overdue(ctx context.Context) ([]*entity.TransferRequest, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]*entity.TransferRequest)
	return list, args.Error(1)
}

func (m *monitorMock) DueSoon(ctx context.Context, days int) ([]*entity.TransferRequest, error) {
	args := m.Called(ctx, days)
	list, _ := args.Get(0).([]*entity.TransferRequest)
	return list, args.Error(1)
}

func temporal(id string, exp time.Time) *entity.TransferRequest {
	return &entity.TransferRequest{ID: id, AssetID: "ACT-" + id, Type: entity.TransferTemporary,
		Status: entity.TransferCompleted, ExpectedReturn: &exp}
}

func TestCheck_RegistraVencidosYProximos(t *testing.T) {
	m := new(monitorMock)
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	m.On("Overdue", mock.Anything).Return([]*entity.TransferRequest{temporal("T1", now.Add(-time.Hour))}, nil)
	m.On("DueSoon", mock.Anything, 3).Return([]*entity.TransferRequest{temporal("T2", now.Add(time.Hour)), temporal("T3", now.Add(48*time.Hour))}, nil)

	var buf bytes.Buffer
	s := scheduler.New(scheduler.Config{OverdueCron: "0 7 * * *", DueSoonDays: 3}, m, zerolog.New(&buf))

	overdue, dueSoon := s.Check(context.Background())

	assert.Equal(t, 1, overdue)
	assert.Equal(t, 2, dueSoon)
	assert.Contains(t, buf.String(), "T1")
	assert.Contains(t, buf.String(), "traslado temporal vencido")
	m.AssertExpectations(t)
}

func TestCheck_ErrorDeConsultaNoDetieneLaRevision(t *testing.T) {
	m := new(monitorMock)
	m.On("Overdue", mock.Anything).Return(nil, errors.New("db caída"))
	m.On("DueSoon", mock.Anything, 1).Return(nil, nil)

	var buf bytes.Buffer
	s := scheduler.New(scheduler.Config{OverdueCron: "@hourly", DueSoonDays: 1}, m, zerolog.New(&buf))

	overdue, dueSoon := s.Check(context.Background())
	assert.Zero(t, overdue)
	assert.Zero(t, dueSoon)
	assert.Contains(t, buf.String(), "db caída")
	m.AssertExpectations(t)
}

func TestStart_ExpresionInvalida(t *testing.T) {
	s := scheduler.New(scheduler.Config{OverdueCron: "no es cron"}, new(monitorMock), zerolog.Nop())
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := scheduler.New(scheduler.Config{OverdueCron: "@every 1h"}, new(monitorMock), zerolog.Nop())
	assert.NoError(t, s.Start())
	s.Stop()
}
