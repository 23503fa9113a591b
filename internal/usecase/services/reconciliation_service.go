package services

import (
	"context"
	"errors"
	"strings"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
)

type ReconciliationService struct {
	ledgerRepo        repo_interfaces.LedgerRepository
	varianceRepo      repo_interfaces.VarianceRepository
	fundRepo          repo_interfaces.FundRepository
	approvalAuthority domain.ApprovalAuthority
	notifier          domain.Notifier
}

func NewReconciliationService(
	ledgerRepo repo_interfaces.LedgerRepository,
	varianceRepo repo_interfaces.VarianceRepository,
	fundRepo repo_interfaces.FundRepository,
	approvalAuthority domain.ApprovalAuthority,
	notifier domain.Notifier,
) *ReconciliationService {
	return &ReconciliationService{
		ledgerRepo:        ledgerRepo,
		varianceRepo:      varianceRepo,
		fundRepo:          fundRepo,
		approvalAuthority: approvalAuthority,
		notifier:          notifier,
	}
}

// Reconcile compares the settled amount reported for a payment against
// the amount its ledger entry recorded. A match flips the entry to
// reconciled; a mismatch raises a pending variance adjustment instead
// and leaves the entry open until the variance is resolved.
func (s *ReconciliationService) Reconcile(ctx context.Context, req models.ReconcileRequest) (commons.Response[models.ReconcileResponse], error) {
	logger.Info("reconciliation service reconcile request", logger.Fields{
		"paymentId": req.PaymentID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.ReconcileResponse]("validation failed", err.Error()), err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	entry, err := s.ledgerRepo.GetByPaymentSource(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.ReconcileResponse]("No ledger entry for payment"), err
		}
		return commons.ErrorResponse[models.ReconcileResponse]("failed to reconcile", "Unable to reconcile right now"), err
	}

	// The payment entry is a debit, so the recorded settlement amount is
	// the negated delta.
	recorded := entry.Delta.Neg()

	if recorded.Equal(req.ActualSettledAmount) {
		flipped, err := s.ledgerRepo.MarkReconciled(ctx, entry.ID)
		if err != nil {
			return commons.ErrorResponse[models.ReconcileResponse]("failed to reconcile", "Unable to reconcile right now"), err
		}
		if !flipped {
			logger.Info("reconciliation service entry already reconciled", logger.Fields{
				"paymentId":     paymentID,
				"ledgerEntryId": entry.ID,
			})
		}
		return commons.SuccessResponse("payment reconciled", models.ReconcileResponse{
			PaymentID:     paymentID,
			LedgerEntryID: entry.ID,
			Reconciled:    true,
		}), nil
	}

	if entry.Reconciled {
		err := domain.ErrAlreadyResolved
		return commons.ErrorResponse[models.ReconcileResponse]("Ledger entry is already reconciled", err.Error()), err
	}

	// Repeat reports of the same mismatch reuse the open variance
	// rather than stacking new ones.
	if pending, err := s.varianceRepo.GetPendingByLedgerEntryID(ctx, entry.ID); err == nil {
		varianceID := pending.ID
		return commons.SuccessResponse("variance already pending", models.ReconcileResponse{
			PaymentID:     paymentID,
			LedgerEntryID: entry.ID,
			Reconciled:    false,
			VarianceID:    &varianceID,
		}), nil
	} else if !errors.Is(err, domain.ErrRecordNotFound) {
		return commons.ErrorResponse[models.ReconcileResponse]("failed to reconcile", "Unable to reconcile right now"), err
	}

	variance, err := s.varianceRepo.Create(ctx, domain.VarianceAdjustment{
		PaymentID:      paymentID,
		LedgerEntryID:  entry.ID,
		OriginalAmount: recorded,
		AdjustedAmount: req.ActualSettledAmount,
		Reason:         strings.TrimSpace(req.Reason),
		Status:         domain.VarianceStatusPending,
	})
	if err != nil {
		logger.Error("reconciliation service create variance failed", err, logger.Fields{
			"paymentId":     paymentID,
			"ledgerEntryId": entry.ID,
		})
		return commons.ErrorResponse[models.ReconcileResponse]("failed to reconcile", "Unable to raise variance right now"), err
	}

	if err := s.notifier.Notify(ctx, "reconciliation.variance_raised", map[string]any{
		"paymentId":      paymentID,
		"varianceId":     variance.ID,
		"originalAmount": variance.OriginalAmount.StringFixed(2),
		"adjustedAmount": variance.AdjustedAmount.StringFixed(2),
	}); err != nil {
		logger.Error("reconciliation service notify failed", err, logger.Fields{
			"varianceId": variance.ID,
		})
	}

	logger.Info("reconciliation service variance raised", logger.Fields{
		"paymentId":      paymentID,
		"varianceId":     variance.ID,
		"originalAmount": variance.OriginalAmount.StringFixed(2),
		"adjustedAmount": variance.AdjustedAmount.StringFixed(2),
	})

	varianceID := variance.ID
	return commons.SuccessResponse("variance raised", models.ReconcileResponse{
		PaymentID:     paymentID,
		LedgerEntryID: entry.ID,
		Reconciled:    false,
		VarianceID:    &varianceID,
	}), nil
}

// ApproveVariance applies the correction: the fund moves by the signed
// difference between what was recorded and what actually settled, a
// VARIANCE ledger entry records the movement and the original entry is
// finally marked reconciled.
func (s *ReconciliationService) ApproveVariance(ctx context.Context, req models.ResolveVarianceRequest) (commons.Response[models.VarianceResponse], error) {
	logger.Info("reconciliation service approve variance request", logger.Fields{
		"varianceId": req.VarianceID,
		"approverId": req.ApproverID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.VarianceResponse]("validation failed", err.Error()), err
	}

	variance, approverID, response, err := s.resolveVariance(ctx, req, domain.VarianceStatusApproved)
	if err != nil {
		return response, err
	}

	// The claim is reverted on any failure before money moves, so a
	// transient error (a held fund lock, a dropped connection) can be
	// retried instead of stranding the variance in APPROVED.
	var correctiveID *string
	delta := variance.OriginalAmount.Sub(variance.AdjustedAmount)
	if !delta.IsZero() {
		original, err := s.ledgerRepo.GetByID(ctx, variance.LedgerEntryID)
		if err != nil {
			logger.Error("reconciliation service ledger lookup failed", err, logger.Fields{
				"varianceId":    variance.ID,
				"ledgerEntryId": variance.LedgerEntryID,
			})
			s.reopenClaim(ctx, variance.ID, domain.VarianceStatusApproved)
			return commons.ErrorResponse[models.VarianceResponse]("failed to apply variance", "Unable to post correction right now"), err
		}

		entry, err := s.fundRepo.Post(ctx, repo_interfaces.PostParams{
			FundID:     original.FundID,
			Delta:      delta,
			SourceType: domain.LedgerSourceVariance,
			SourceID:   variance.ID,
		})
		if err != nil {
			logger.Error("reconciliation service corrective posting failed", err, logger.Fields{
				"varianceId": variance.ID,
			})
			s.reopenClaim(ctx, variance.ID, domain.VarianceStatusApproved)
			return commons.ErrorResponse[models.VarianceResponse]("failed to apply variance", "Unable to post correction right now"), err
		}
		correctiveID = &entry.ID
	}

	if _, err := s.ledgerRepo.MarkReconciled(ctx, variance.LedgerEntryID); err != nil {
		logger.Error("reconciliation service mark reconciled failed", err, logger.Fields{
			"varianceId":    variance.ID,
			"ledgerEntryId": variance.LedgerEntryID,
		})
		// Once the corrective entry is posted the claim must stand;
		// reopening would double-post on retry.
		if correctiveID == nil {
			s.reopenClaim(ctx, variance.ID, domain.VarianceStatusApproved)
		}
		return commons.ErrorResponse[models.VarianceResponse]("failed to apply variance", "Unable to close ledger entry right now"), err
	}

	if err := s.notifier.Notify(ctx, "reconciliation.variance_approved", map[string]any{
		"varianceId": variance.ID,
		"approverId": approverID,
		"delta":      delta.StringFixed(2),
	}); err != nil {
		logger.Error("reconciliation service notify failed", err, logger.Fields{
			"varianceId": variance.ID,
		})
	}

	logger.Info("reconciliation service approve variance success", logger.Fields{
		"varianceId": variance.ID,
		"approverId": approverID,
	})
	return commons.SuccessResponse("variance approved", mapVarianceToResponse(variance, correctiveID)), nil
}

// RejectVariance closes the variance without touching the fund. The
// books stand as posted and the original entry is marked reconciled so
// the discrepancy stops resurfacing.
func (s *ReconciliationService) RejectVariance(ctx context.Context, req models.ResolveVarianceRequest) (commons.Response[models.VarianceResponse], error) {
	logger.Info("reconciliation service reject variance request", logger.Fields{
		"varianceId": req.VarianceID,
		"approverId": req.ApproverID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.VarianceResponse]("validation failed", err.Error()), err
	}

	variance, approverID, response, err := s.resolveVariance(ctx, req, domain.VarianceStatusRejected)
	if err != nil {
		return response, err
	}

	if _, err := s.ledgerRepo.MarkReconciled(ctx, variance.LedgerEntryID); err != nil {
		logger.Error("reconciliation service mark reconciled failed", err, logger.Fields{
			"varianceId":    variance.ID,
			"ledgerEntryId": variance.LedgerEntryID,
		})
		s.reopenClaim(ctx, variance.ID, domain.VarianceStatusRejected)
		return commons.ErrorResponse[models.VarianceResponse]("failed to reject variance", "Unable to close ledger entry right now"), err
	}

	if err := s.notifier.Notify(ctx, "reconciliation.variance_rejected", map[string]any{
		"varianceId": variance.ID,
		"approverId": approverID,
	}); err != nil {
		logger.Error("reconciliation service notify failed", err, logger.Fields{
			"varianceId": variance.ID,
		})
	}

	logger.Info("reconciliation service reject variance success", logger.Fields{
		"varianceId": variance.ID,
		"approverId": approverID,
	})
	return commons.SuccessResponse("variance rejected", mapVarianceToResponse(variance, nil)), nil
}

// reopenClaim reverts a resolve compare-and-set whose side effects did
// not land, returning the variance to PENDING for a retry.
func (s *ReconciliationService) reopenClaim(ctx context.Context, varianceID string, from domain.VarianceStatus) {
	if err := s.varianceRepo.Reopen(ctx, varianceID, from); err != nil {
		logger.Error("reconciliation service claim revert failed", err, logger.Fields{
			"varianceId": varianceID,
		})
	}
}

// resolveVariance performs the shared authority check and the PENDING
// compare-and-set for both terminal outcomes.
func (s *ReconciliationService) resolveVariance(
	ctx context.Context,
	req models.ResolveVarianceRequest,
	status domain.VarianceStatus,
) (domain.VarianceAdjustment, string, commons.Response[models.VarianceResponse], error) {
	approverID := strings.TrimSpace(req.ApproverID)
	varianceID := strings.TrimSpace(req.VarianceID)

	allowed, err := s.approvalAuthority.CanApproveVariance(ctx, approverID)
	if err != nil {
		logger.Error("reconciliation service authority check failed", err, logger.Fields{
			"approverId": approverID,
		})
		return domain.VarianceAdjustment{}, approverID,
			commons.ErrorResponse[models.VarianceResponse]("failed to resolve variance", "Unable to resolve variance right now"), err
	}
	if !allowed {
		err := domain.ErrNotAuthorized
		logger.Warn("reconciliation service resolve denied", logger.Fields{
			"varianceId": varianceID,
			"approverId": approverID,
		})
		return domain.VarianceAdjustment{}, approverID,
			commons.ErrorResponse[models.VarianceResponse]("Approver is not authorized to resolve variances", err.Error()), err
	}

	variance, err := s.varianceRepo.Resolve(ctx, varianceID, status, approverID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			return domain.VarianceAdjustment{}, approverID,
				commons.ErrorResponse[models.VarianceResponse]("Variance not found"), err
		case errors.Is(err, domain.ErrAlreadyResolved):
			return domain.VarianceAdjustment{}, approverID,
				commons.ErrorResponse[models.VarianceResponse]("Variance is already resolved", err.Error()), err
		default:
			return domain.VarianceAdjustment{}, approverID,
				commons.ErrorResponse[models.VarianceResponse]("failed to resolve variance", "Unable to resolve variance right now"), err
		}
	}

	return variance, approverID, commons.Response[models.VarianceResponse]{}, nil
}

func mapVarianceToResponse(variance domain.VarianceAdjustment, correctiveID *string) models.VarianceResponse {
	return models.VarianceResponse{
		ID:             variance.ID,
		PaymentID:      variance.PaymentID,
		LedgerEntryID:  variance.LedgerEntryID,
		OriginalAmount: variance.OriginalAmount.StringFixed(2),
		AdjustedAmount: variance.AdjustedAmount.StringFixed(2),
		Reason:         variance.Reason,
		Status:         string(variance.Status),
		ApproverID:     variance.ApproverID,
		CorrectiveID:   correctiveID,
	}
}
