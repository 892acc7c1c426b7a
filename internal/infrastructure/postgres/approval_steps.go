package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
)

func insertStep(ctx context.Context, q Querier, wf entity.Workflow, requestID string, s entity.ApprovalStep) error {
	_, err := q.Exec(ctx, `
		INSERT INTO approval_steps (id, workflow, request_id, role, action, actor_id, notes, automatic, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, string(wf), requestID, string(s.Role), string(s.Action), s.ActorID, s.Notes, s.Automatic, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert approval step: %w", err)
	}
	return nil
}

// listSteps bitácora de una solicitud en orden cronológico.
func listSteps(ctx context.Context, q Querier, requestID string) ([]entity.ApprovalStep, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, role, action, actor_id, notes, automatic, created_at
		FROM approval_steps WHERE request_id = $1
		ORDER BY created_at, id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list approval steps: %w", err)
	}
	defer rows.Close()
	var steps []entity.ApprovalStep
	for rows.Next() {
		var s entity.ApprovalStep
		var role, action string
		if err := rows.Scan(&s.ID, &role, &action, &s.ActorID, &s.Notes, &s.Automatic, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approval step: %w", err)
		}
		s.Role = entity.Role(role)
		s.Action = entity.Action(action)
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func encodeChain(chain []entity.ChainStep) (string, error) {
	if chain == nil {
		chain = []entity.ChainStep{}
	}
	b, err := json.Marshal(chain)
	if err != nil {
		return "", fmt.Errorf("encode chain: %w", err)
	}
	return string(b), nil
}

func decodeChain(raw []byte) ([]entity.ChainStep, error) {
	var chain []entity.ChainStep
	if len(raw) == 0 {
		return chain, nil
	}
	if err := json.Unmarshal(raw, &chain); err != nil {
		return nil, fmt.Errorf("decode chain: %w", err)
	}
	return chain, nil
}
