package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id::text, asset_id, from_location_id, to_location_id, type, status, transfer_date,
	expected_return, actual_return, created_by, created_by_role, chain, created_at, updated_at`

// TransferRepo persistencia de traslados de activos.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// Create inserta el traslado y sus pasos iniciales.
func (r *TransferRepo) Create(ctx context.Context, t *entity.TransferRequest) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	chain, err := encodeChain(t.Chain)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO transfer_requests (id, asset_id, from_location_id, to_location_id, type, status, transfer_date,
			expected_return, actual_return, created_by, created_by_role, chain, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.AssetID, t.FromLocationID, t.ToLocationID, string(t.Type), string(t.Status), t.TransferDate,
		t.ExpectedReturn, t.ActualReturn, t.CreatedBy, string(t.CreatedByRole), chain, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.State("el traslado %s ya existe", t.ID)
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	for _, s := range t.Steps {
		if err := insertStep(ctx, r.q, entity.WorkflowTransfer, t.ID, s); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene el traslado con su bitácora.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate igual que GetByID bloqueando la fila.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.TransferRequest, error) {
	return r.get(ctx, id, true)
}

func (r *TransferRepo) get(ctx context.Context, id string, lock bool) (*entity.TransferRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + transferColumns + ` FROM transfer_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	if t.Steps, err = listSteps(ctx, r.q, t.ID); err != nil {
		return nil, err
	}
	return t, nil
}

// Update persiste estado y fecha real de devolución.
func (r *TransferRepo) Update(ctx context.Context, t *entity.TransferRequest) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transfer_requests SET status = $2, actual_return = $3, updated_at = $4 WHERE id = $1`,
		t.ID, string(t.Status), t.ActualReturn, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("traslado %s no encontrado", t.ID)
	}
	return nil
}

// AppendStep agrega una entrada a la bitácora.
func (r *TransferRepo) AppendStep(ctx context.Context, requestID string, step entity.ApprovalStep) error {
	return insertStep(ctx, r.q, entity.WorkflowTransfer, requestID, step)
}

// ListAwaitingReturn temporales completados sin devolución, con fecha esperada en [from, to].
func (r *TransferRepo) ListAwaitingReturn(ctx context.Context, from, to *time.Time) ([]*entity.TransferRequest, error) {
	ds := dialect.From("transfer_requests").
		Select(goqu.L(transferColumns)).
		Where(
			goqu.C("type").Eq(string(entity.TransferTemporary)),
			goqu.C("status").Eq(string(entity.TransferCompleted)),
			goqu.C("actual_return").IsNull(),
			goqu.C("expected_return").IsNotNull(),
		).
		Order(goqu.C("expected_return").Asc())
	if from != nil {
		ds = ds.Where(goqu.C("expected_return").Gte(*from))
	}
	if to != nil {
		ds = ds.Where(goqu.C("expected_return").Lte(*to))
	}
	return r.list(ctx, ds)
}

// ListByAsset historial de traslados de un activo, más recientes primero.
func (r *TransferRepo) ListByAsset(ctx context.Context, assetID string) ([]*entity.TransferRequest, error) {
	ds := dialect.From("transfer_requests").
		Select(goqu.L(transferColumns)).
		Where(goqu.C("asset_id").Eq(assetID)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	return r.list(ctx, ds)
}

// HasOutstandingReturn busca un temporal completado del activo sin actual_return.
func (r *TransferRepo) HasOutstandingReturn(ctx context.Context, assetID string) (bool, error) {
	ds := dialect.From("transfer_requests").
		Select(goqu.L("1")).
		Where(
			goqu.C("asset_id").Eq(assetID),
			goqu.C("type").Eq(string(entity.TransferTemporary)),
			goqu.C("status").Eq(string(entity.TransferCompleted)),
			goqu.C("actual_return").IsNull(),
		).
		Limit(1)
	query, args, err := build(ds)
	if err != nil {
		return false, fmt.Errorf("build outstanding return: %w", err)
	}
	var one int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("outstanding return: %w", err)
	}
	return true, nil
}

func (r *TransferRepo) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entity.TransferRequest, error) {
	query, args, err := build(ds)
	if err != nil {
		return nil, fmt.Errorf("build list transfers: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	var list []*entity.TransferRequest
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	for _, t := range list {
		if t.Steps, err = listSteps(ctx, r.q, t.ID); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func scanTransfer(row pgx.Row) (*entity.TransferRequest, error) {
	var t entity.TransferRequest
	var typ, status, role string
	var chain []byte
	err := row.Scan(&t.ID, &t.AssetID, &t.FromLocationID, &t.ToLocationID, &typ, &status, &t.TransferDate,
		&t.ExpectedReturn, &t.ActualReturn, &t.CreatedBy, &role, &chain, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = entity.TransferType(typ)
	t.Status = entity.TransferStatus(status)
	t.CreatedByRole = entity.Role(role)
	if t.Chain, err = decodeChain(chain); err != nil {
		return nil, err
	}
	return &t, nil
}
