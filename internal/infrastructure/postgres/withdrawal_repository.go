package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/Movimientos-api/internal/domain"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

var _ repository.WithdrawalRepository = (*WithdrawalRepo)(nil)

const withdrawalColumns = `id::text, receiver, purpose, status, created_by, created_by_role, chain, checklist, created_at, updated_at`

// WithdrawalRepo persistencia de lotes de retiro (cabecera, líneas y bitácora).
type WithdrawalRepo struct {
	q Querier
}

// NewWithdrawalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWithdrawalRepository(q Querier) *WithdrawalRepo {
	return &WithdrawalRepo{q: q}
}

// Create inserta la cabecera, las líneas y los pasos iniciales.
func (r *WithdrawalRepo) Create(ctx context.Context, w *entity.WithdrawalRequest) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	chain, err := encodeChain(w.Chain)
	if err != nil {
		return err
	}
	checklist, err := encodeChecklist(w.Checklist)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		INSERT INTO withdrawal_requests (id, receiver, purpose, status, created_by, created_by_role, chain, checklist, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		w.ID, w.Receiver, w.Purpose, string(w.Status), w.CreatedBy, string(w.CreatedByRole),
		chain, checklist, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.State("la solicitud %s ya existe", w.ID)
		}
		return fmt.Errorf("create withdrawal: %w", err)
	}
	for i := range w.Lines {
		l := &w.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		l.RequestID = w.ID
		_, err := r.q.Exec(ctx, `
			INSERT INTO withdrawal_lines (id, request_id, item_id, requested, released, returned, return_condition)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, w.ID, l.ItemID, l.Requested, l.Released, l.Returned, l.ReturnCondition)
		if err != nil {
			return fmt.Errorf("create withdrawal line: %w", err)
		}
	}
	for _, s := range w.Steps {
		if err := insertStep(ctx, r.q, entity.WorkflowWithdrawal, w.ID, s); err != nil {
			return err
		}
	}
	return nil
}

// GetByID obtiene la solicitud completa.
func (r *WithdrawalRepo) GetByID(ctx context.Context, id string) (*entity.WithdrawalRequest, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate obtiene la solicitud bloqueando su fila (SELECT FOR UPDATE).
func (r *WithdrawalRepo) GetForUpdate(ctx context.Context, id string) (*entity.WithdrawalRequest, error) {
	return r.get(ctx, id, true)
}

func (r *WithdrawalRepo) get(ctx context.Context, id string, lock bool) (*entity.WithdrawalRequest, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawal_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	w, err := scanWithdrawal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal: %w", err)
	}
	if err := r.loadDetail(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Update persiste estado, checklist y cantidades de las líneas.
func (r *WithdrawalRepo) Update(ctx context.Context, w *entity.WithdrawalRequest) error {
	checklist, err := encodeChecklist(w.Checklist)
	if err != nil {
		return err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE withdrawal_requests SET status = $2, checklist = $3, updated_at = $4 WHERE id = $1`,
		w.ID, string(w.Status), checklist, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update withdrawal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("solicitud de retiro %s no encontrada", w.ID)
	}
	for _, l := range w.Lines {
		_, err := r.q.Exec(ctx, `
			UPDATE withdrawal_lines SET released = $3, returned = $4, return_condition = $5
			WHERE request_id = $1 AND item_id = $2`,
			w.ID, l.ItemID, l.Released, l.Returned, l.ReturnCondition)
		if err != nil {
			return fmt.Errorf("update withdrawal line: %w", err)
		}
	}
	return nil
}

// AppendStep agrega una entrada a la bitácora.
func (r *WithdrawalRepo) AppendStep(ctx context.Context, requestID string, step entity.ApprovalStep) error {
	return insertStep(ctx, r.q, entity.WorkflowWithdrawal, requestID, step)
}

// List solicitudes (opcionalmente por estado), más recientes primero.
// Count total de lotes, opcionalmente filtrando por estado.
func (r *WithdrawalRepo) Count(ctx context.Context, status entity.WithdrawalStatus) (int, error) {
	ds := dialect.From("withdrawal_requests").Select(goqu.COUNT("*"))
	if status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(status)))
	}
	query, args, err := build(ds)
	if err != nil {
		return 0, fmt.Errorf("build count withdrawals: %w", err)
	}
	var total int
	if err := r.q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count withdrawals: %w", err)
	}
	return total, nil
}

func (r *WithdrawalRepo) List(ctx context.Context, status entity.WithdrawalStatus, limit, offset int) ([]*entity.WithdrawalRequest, error) {
	ds := dialect.From("withdrawal_requests").
		Select(goqu.L(withdrawalColumns)).
		Order(goqu.C("created_at").Desc(), goqu.C("id").Desc())
	if status != "" {
		ds = ds.Where(goqu.C("status").Eq(string(status)))
	}
	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}
	query, args, err := build(ds)
	if err != nil {
		return nil, fmt.Errorf("build list withdrawals: %w", err)
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	var list []*entity.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan withdrawal: %w", err)
		}
		list = append(list, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	// Las filas deben cerrarse antes de reutilizar la conexión para el detalle.
	for _, w := range list {
		if err := r.loadDetail(ctx, w); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func (r *WithdrawalRepo) loadDetail(ctx context.Context, w *entity.WithdrawalRequest) error {
	rows, err := r.q.Query(ctx, `
		SELECT id::text, item_id, requested, released, returned, return_condition
		FROM withdrawal_lines WHERE request_id = $1 ORDER BY item_id`, w.ID)
	if err != nil {
		return fmt.Errorf("list withdrawal lines: %w", err)
	}
	w.Lines = w.Lines[:0]
	for rows.Next() {
		l := entity.WithdrawalLine{RequestID: w.ID}
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Requested, &l.Released, &l.Returned, &l.ReturnCondition); err != nil {
			rows.Close()
			return fmt.Errorf("scan withdrawal line: %w", err)
		}
		w.Lines = append(w.Lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list withdrawal lines: %w", err)
	}
	steps, err := listSteps(ctx, r.q, w.ID)
	if err != nil {
		return err
	}
	w.Steps = steps
	return nil
}

func scanWithdrawal(row pgx.Row) (*entity.WithdrawalRequest, error) {
	var w entity.WithdrawalRequest
	var status, role string
	var chain, checklist []byte
	err := row.Scan(&w.ID, &w.Receiver, &w.Purpose, &status, &w.CreatedBy, &role,
		&chain, &checklist, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.Status = entity.WithdrawalStatus(status)
	w.CreatedByRole = entity.Role(role)
	if w.Chain, err = decodeChain(chain); err != nil {
		return nil, err
	}
	if len(checklist) > 0 {
		if err := json.Unmarshal(checklist, &w.Checklist); err != nil {
			return nil, fmt.Errorf("decode checklist: %w", err)
		}
	}
	return &w, nil
}

func encodeChecklist(c map[string]bool) (string, error) {
	if c == nil {
		c = map[string]bool{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode checklist: %w", err)
	}
	return string(b), nil
}
