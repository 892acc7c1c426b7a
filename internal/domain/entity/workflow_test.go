package entity_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

func TestWithdrawalStatus_Next(t *testing.T) {
	next, err := entity.WithdrawalPendingVerification.Next(entity.ActionVerify)
	require.NoError(t, err)
	assert.Equal(t, entity.WithdrawalPendingApproval, next)

	next, err = entity.WithdrawalApproved.Next(entity.ActionRelease)
	require.NoError(t, err)
	assert.Equal(t, entity.WithdrawalReleased, next)

	_, err = entity.WithdrawalPendingVerification.Next(entity.ActionRelease)
	assert.ErrorIs(t, err, domain.ErrState)

	_, err = entity.WithdrawalReleased.Next(entity.ActionCancel)
	assert.ErrorIs(t, err, domain.ErrState, "un lote despachado no se cancela")
}

func TestWithdrawalStatus_Terminal(t *testing.T) {
	for _, s := range []entity.WithdrawalStatus{entity.WithdrawalReturned, entity.WithdrawalCanceled, entity.WithdrawalRejected} {
		assert.True(t, s.Terminal(), s)
	}
	for _, s := range []entity.WithdrawalStatus{entity.WithdrawalPendingVerification, entity.WithdrawalApproved, entity.WithdrawalReleased} {
		assert.False(t, s.Terminal(), s)
	}
}

func TestParseWithdrawalStatus(t *testing.T) {
	st, err := entity.ParseWithdrawalStatus("released")
	require.NoError(t, err)
	assert.Equal(t, entity.WithdrawalReleased, st)

	st, err = entity.ParseWithdrawalStatus("canceled")
	require.NoError(t, err)
	assert.Equal(t, entity.WithdrawalCanceled, st)

	_, err = entity.ParseWithdrawalStatus("shipped")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWithdrawalLine_Outstanding(t *testing.T) {
	l := entity.WithdrawalLine{Released: decimal.NewFromInt(5), Returned: decimal.NewFromInt(2)}
	assert.True(t, l.Outstanding().Equal(decimal.NewFromInt(3)))
}

func TestTransferStatus_Next(t *testing.T) {
	next, err := entity.TransferApproved.Next(entity.ActionComplete)
	require.NoError(t, err)
	assert.Equal(t, entity.TransferCompleted, next)

	_, err = entity.TransferApproved.Next(entity.ActionReject)
	assert.ErrorIs(t, err, domain.ErrState)

	_, err = entity.TransferReturned.Next(entity.ActionReturn)
	assert.ErrorIs(t, err, domain.ErrState)
	assert.True(t, entity.TransferReturned.Terminal())
}

func TestTransferRequest_Overdue(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	expected := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	tr := &entity.TransferRequest{
		Type:           entity.TransferTemporary,
		Status:         entity.TransferCompleted,
		ExpectedReturn: &expected,
	}
	assert.True(t, tr.Overdue(now))
	assert.False(t, tr.Overdue(expected), "en la fecha exacta aún no está vencido")

	returned := now
	tr.ActualReturn = &returned
	assert.False(t, tr.Overdue(now), "devuelto no está vencido")

	tr.ActualReturn = nil
	tr.Status = entity.TransferApproved
	assert.False(t, tr.Overdue(now), "solo los completados pueden vencer")

	tr.Status = entity.TransferCompleted
	tr.Type = entity.TransferPermanent
	assert.False(t, tr.Overdue(now))
}

func TestTransferRequest_DueWithin(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	in2 := now.AddDate(0, 0, 2)
	tr := &entity.TransferRequest{
		Type:           entity.TransferTemporary,
		Status:         entity.TransferCompleted,
		ExpectedReturn: &in2,
	}
	assert.True(t, tr.DueWithin(now, 3))
	assert.False(t, tr.DueWithin(now, 1))

	past := now.Add(-time.Hour)
	tr.ExpectedReturn = &past
	assert.False(t, tr.DueWithin(now, 3), "vencido no es próximo a vencer")
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, entity.RoleReleaser.Valid())
	assert.False(t, entity.Role("auditor").Valid())
	assert.False(t, entity.Role("").Valid())
}

func TestItemStatus_Transferable(t *testing.T) {
	assert.True(t, entity.ItemStatusInUse.Transferable())
	assert.False(t, entity.ItemStatusMaintenance.Transferable())
	assert.False(t, entity.ItemStatusRetired.Transferable())
}
