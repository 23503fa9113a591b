package domain

import "context"

// ApprovalResolver is the single fact the engine trusts from the
// approval workflow. A requisition is never fully approved by a chain
// that includes its own requester.
type ApprovalResolver interface {
	IsFullyApproved(ctx context.Context, requisitionID string) (bool, error)
}

// ApprovalAuthority answers capability checks for the identity
// collaborator. The engine never inspects role strings directly.
type ApprovalAuthority interface {
	CanApproveVariance(ctx context.Context, userID string) (bool, error)
}

// Notifier is fire and forget. A notification failure must never roll
// back a committed financial transition.
type Notifier interface {
	Notify(ctx context.Context, event string, payload map[string]any) error
}
