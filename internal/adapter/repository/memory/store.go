package memory

import (
	"context"
	"sync"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"golang.org/x/sync/semaphore"
)

// Store is the shared in-memory backing for the memory repositories.
// It mirrors the transactional store contract: one mutex guards all
// record maps, and each fund carries its own weighted semaphore acting
// as the exclusive row lock with a bounded wait.
type Store struct {
	mu             sync.Mutex
	lockTimeout    time.Duration
	funds          map[string]domain.Fund
	requisitions   map[string]domain.Requisition
	payments       map[string]domain.Payment
	otpCodes       map[string]domain.OtpCode
	ledgerEntries  map[string]domain.LedgerEntry
	executions     map[string]domain.PaymentExecution
	variances      map[string]domain.VarianceAdjustment
	replenishments map[string]domain.ReplenishmentRequest

	fundLocks map[string]*semaphore.Weighted
}

func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		lockTimeout:    lockTimeout,
		funds:          make(map[string]domain.Fund),
		requisitions:   make(map[string]domain.Requisition),
		payments:       make(map[string]domain.Payment),
		otpCodes:       make(map[string]domain.OtpCode),
		ledgerEntries:  make(map[string]domain.LedgerEntry),
		executions:     make(map[string]domain.PaymentExecution),
		variances:      make(map[string]domain.VarianceAdjustment),
		replenishments: make(map[string]domain.ReplenishmentRequest),
		fundLocks:      make(map[string]*semaphore.Weighted),
	}
}

// LockFund acquires the fund's exclusive lock, waiting at most the
// configured lock timeout. The returned release func must be called
// once the balance mutation has been applied.
func (s *Store) LockFund(ctx context.Context, fundID string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.fundLocks[fundID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.fundLocks[fundID] = sem
	}
	s.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	if err := sem.Acquire(waitCtx, 1); err != nil {
		return nil, domain.ErrLockTimeout
	}

	return func() { sem.Release(1) }, nil
}

func now() time.Time {
	return time.Now().UTC()
}
