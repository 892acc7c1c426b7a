// Package memory implementa los puertos de persistencia en proceso. Cada transacción toma el
// mutex del store completo y restaura una copia del estado si el callback falla.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/Movimientos-api/internal/application/transfer"
	"github.com/jhoicas/Movimientos-api/internal/application/withdrawal"
	"github.com/jhoicas/Movimientos-api/internal/domain/entity"
	"github.com/jhoicas/Movimientos-api/internal/domain/repository"
)

var _ withdrawal.TxRunner = (*Store)(nil)
var _ transfer.TxRunner = (*Store)(nil)

// Store almacén en memoria de ítems, retiros y traslados.
type Store struct {
	mu          sync.Mutex
	items       map[string]*entity.Item
	withdrawals map[string]*entity.WithdrawalRequest
	transfers   map[string]*entity.TransferRequest
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		items:       make(map[string]*entity.Item),
		withdrawals: make(map[string]*entity.WithdrawalRequest),
		transfers:   make(map[string]*entity.TransferRequest),
	}
}

// PutItem inserta o reemplaza un ítem (seed y tests).
func (s *Store) PutItem(it entity.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := it
	s.items[it.ID] = &c
}

// Item copia del estado actual de un ítem.
func (s *Store) Item(id string) (entity.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return entity.Item{}, false
	}
	return *it, true
}

// Items repositorio de ítems fuera de transacción.
func (s *Store) Items() repository.ItemRepository { return &itemRepo{s: s} }

// Withdrawals repositorio de retiros fuera de transacción (lecturas).
func (s *Store) Withdrawals() repository.WithdrawalRepository { return &withdrawalRepo{s: s} }

// Transfers repositorio de traslados fuera de transacción (lecturas).
func (s *Store) Transfers() repository.TransferRepository { return &transferRepo{s: s} }

// RunWithdrawal ejecuta fn con acceso exclusivo; si fn falla el estado vuelve al previo.
func (s *Store) RunWithdrawal(ctx context.Context, fn func(
	items repository.ItemRepository,
	withdrawals repository.WithdrawalRepository,
) error) error {
	return s.run(ctx, func() error {
		return fn(&itemRepo{s: s, inTx: true}, &withdrawalRepo{s: s, inTx: true})
	})
}

// RunTransfer ejecuta fn con acceso exclusivo; si fn falla el estado vuelve al previo.
func (s *Store) RunTransfer(ctx context.Context, fn func(
	items repository.ItemRepository,
	transfers repository.TransferRepository,
) error) error {
	return s.run(ctx, func() error {
		return fn(&itemRepo{s: s, inTx: true}, &transferRepo{s: s, inTx: true})
	})
}

func (s *Store) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// acquire toma el mutex salvo que la operación corra dentro de run (que ya lo tiene).
func (s *Store) acquire(inTx bool) func() {
	if inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type snapshot struct {
	items       map[string]*entity.Item
	withdrawals map[string]*entity.WithdrawalRequest
	transfers   map[string]*entity.TransferRequest
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		items:       make(map[string]*entity.Item, len(s.items)),
		withdrawals: make(map[string]*entity.WithdrawalRequest, len(s.withdrawals)),
		transfers:   make(map[string]*entity.TransferRequest, len(s.transfers)),
	}
	for id, it := range s.items {
		c := *it
		snap.items[id] = &c
	}
	for id, w := range s.withdrawals {
		snap.withdrawals[id] = cloneWithdrawal(w)
	}
	for id, t := range s.transfers {
		snap.transfers[id] = cloneTransfer(t)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.items = snap.items
	s.withdrawals = snap.withdrawals
	s.transfers = snap.transfers
}

func cloneWithdrawal(w *entity.WithdrawalRequest) *entity.WithdrawalRequest {
	c := *w
	c.Lines = append([]entity.WithdrawalLine(nil), w.Lines...)
	c.Chain = append([]entity.ChainStep(nil), w.Chain...)
	c.Steps = append([]entity.ApprovalStep(nil), w.Steps...)
	if w.Checklist != nil {
		c.Checklist = make(map[string]bool, len(w.Checklist))
		for k, v := range w.Checklist {
			c.Checklist[k] = v
		}
	}
	return &c
}

func cloneTransfer(t *entity.TransferRequest) *entity.TransferRequest {
	c := *t
	c.Chain = append([]entity.ChainStep(nil), t.Chain...)
	c.Steps = append([]entity.ApprovalStep(nil), t.Steps...)
	if t.ExpectedReturn != nil {
		v := *t.ExpectedReturn
		c.ExpectedReturn = &v
	}
	if t.ActualReturn != nil {
		v := *t.ActualReturn
		c.ActualReturn = &v
	}
	return &c
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
