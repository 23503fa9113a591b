package memory

import (
	"context"
	"sync"

	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
)

// ApprovalResolver answers from the stored requisition's approval flag.
// The real resolver lives in the approval workflow service; this stands
// in for it in tests and local wiring.
type ApprovalResolver struct {
	store *Store
}

func NewApprovalResolver(store *Store) *ApprovalResolver {
	return &ApprovalResolver{store: store}
}

func (r *ApprovalResolver) IsFullyApproved(_ context.Context, requisitionID string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	requisition, ok := r.store.requisitions[requisitionID]
	if !ok {
		return false, domain.ErrRecordNotFound
	}
	return requisition.FullyApproved, nil
}

// ApprovalAuthority allows a fixed set of user IDs to approve
// variances.
type ApprovalAuthority struct {
	allowed map[string]struct{}
}

func NewApprovalAuthority(userIDs ...string) *ApprovalAuthority {
	allowed := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = struct{}{}
	}
	return &ApprovalAuthority{allowed: allowed}
}

func (a *ApprovalAuthority) CanApproveVariance(_ context.Context, userID string) (bool, error) {
	_, ok := a.allowed[userID]
	return ok, nil
}

// NotifiedEvent is one captured notification.
type NotifiedEvent struct {
	Event   string
	Payload map[string]any
}

// Notifier logs each event with a sanitized payload and keeps it for
// inspection. Delivery channels (email, SMS) live outside this core.
type Notifier struct {
	mu     sync.Mutex
	events []NotifiedEvent
}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(_ context.Context, event string, payload map[string]any) error {
	n.mu.Lock()
	n.events = append(n.events, NotifiedEvent{Event: event, Payload: payload})
	n.mu.Unlock()

	logger.Info("notify "+event, logger.Fields{
		"payload": logger.SanitizePayload(payload),
	})
	return nil
}

func (n *Notifier) Events() []NotifiedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]NotifiedEvent, len(n.events))
	copy(out, n.events)
	return out
}
