package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
	"github.com/api-sage/treasury-payment-engine/internal/domain"
	"github.com/api-sage/treasury-payment-engine/internal/logger"
	"golang.org/x/crypto/bcrypt"
)

type OtpService struct {
	otpRepo     repo_interfaces.OtpRepository
	paymentRepo repo_interfaces.PaymentRepository
	notifier    domain.Notifier
	codeLength  int
	ttl         time.Duration
}

func NewOtpService(
	otpRepo repo_interfaces.OtpRepository,
	paymentRepo repo_interfaces.PaymentRepository,
	notifier domain.Notifier,
	codeLength int,
	ttl time.Duration,
) *OtpService {
	return &OtpService{
		otpRepo:     otpRepo,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		codeLength:  codeLength,
		ttl:         ttl,
	}
}

func (s *OtpService) Issue(ctx context.Context, req models.IssueOtpRequest) (commons.Response[models.IssueOtpResponse], error) {
	logger.Info("otp service issue request", logger.Fields{
		"paymentId": req.PaymentID,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.IssueOtpResponse]("validation failed", err.Error()), err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.IssueOtpResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
	}

	// Re-issue is allowed while the payment is still waiting on its
	// second factor; any earlier unconsumed code is invalidated.
	if payment.Status != domain.PaymentStatusPending && payment.Status != domain.PaymentStatusOtpRequested {
		err := domain.ErrInvalidState
		return commons.ErrorResponse[models.IssueOtpResponse]("Payment is not awaiting otp", err.Error()), err
	}

	code, err := generateNumericCode(s.codeLength)
	if err != nil {
		logger.Error("otp service generate code failed", err, logger.Fields{
			"paymentId": paymentID,
		})
		return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("otp service hash code failed", err, logger.Fields{
			"paymentId": paymentID,
		})
		return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
	}

	if err := s.otpRepo.InvalidateActive(ctx, paymentID); err != nil {
		logger.Error("otp service invalidate active codes failed", err, logger.Fields{
			"paymentId": paymentID,
		})
		return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
	}

	record := domain.OtpCode{
		PaymentID: paymentID,
		CodeHash:  string(hash),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	record, err = s.otpRepo.Create(ctx, record)
	if err != nil {
		logger.Error("otp service create code failed", err, logger.Fields{
			"paymentId": paymentID,
		})
		return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
	}

	if payment.Status == domain.PaymentStatusPending {
		if err := s.paymentRepo.UpdateStatus(ctx, paymentID, domain.PaymentStatusOtpRequested); err != nil {
			logger.Error("otp service transition payment failed", err, logger.Fields{
				"paymentId": paymentID,
			})
			return commons.ErrorResponse[models.IssueOtpResponse]("failed to issue otp", "Unable to issue otp right now"), err
		}
	}

	// The plaintext code leaves the process only through the notifier.
	// Payload sanitization keeps it out of the log stream.
	if err := s.notifier.Notify(ctx, "payment.otp_issued", map[string]any{
		"paymentId": paymentID,
		"reference": payment.Reference,
		"otp":       code,
		"expiresAt": record.ExpiresAt.Format(time.RFC3339),
	}); err != nil {
		logger.Error("otp service notify failed", err, logger.Fields{
			"paymentId": paymentID,
		})
	}

	response := models.IssueOtpResponse{
		PaymentID: paymentID,
		ExpiresAt: record.ExpiresAt.Format(time.RFC3339),
	}

	logger.Info("otp service issue success", logger.Fields{
		"paymentId": paymentID,
		"expiresAt": response.ExpiresAt,
	})
	return commons.SuccessResponse("otp issued", response), nil
}

func (s *OtpService) Verify(ctx context.Context, req models.VerifyOtpRequest) (commons.Response[models.VerifyOtpResponse], error) {
	logger.Info("otp service verify request", logger.Fields{
		"paymentId":  req.PaymentID,
		"verifiedBy": req.VerifiedBy,
	})

	if err := req.Validate(); err != nil {
		return commons.ErrorResponse[models.VerifyOtpResponse]("validation failed", err.Error()), err
	}

	paymentID := strings.TrimSpace(req.PaymentID)
	verifiedBy := strings.TrimSpace(req.VerifiedBy)

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return commons.ErrorResponse[models.VerifyOtpResponse]("Payment not found"), err
		}
		return commons.ErrorResponse[models.VerifyOtpResponse]("failed to verify otp", "Unable to verify otp right now"), err
	}

	// A payment that already left OTP_REQUESTED (cancelled, executed)
	// is refused here, before the single-use code gets consumed.
	if payment.Status != domain.PaymentStatusOtpRequested {
		err := domain.ErrInvalidState
		return commons.ErrorResponse[models.VerifyOtpResponse]("Payment is not awaiting otp", err.Error()), err
	}

	code, err := s.otpRepo.GetLatestByPaymentID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			err := domain.ErrOtpInvalid
			return commons.ErrorResponse[models.VerifyOtpResponse]("Invalid otp", err.Error()), err
		}
		return commons.ErrorResponse[models.VerifyOtpResponse]("failed to verify otp", "Unable to verify otp right now"), err
	}

	if code.Consumed() {
		err := domain.ErrOtpAlreadyUsed
		return commons.ErrorResponse[models.VerifyOtpResponse]("Otp already used", err.Error()), err
	}
	if code.Expired(time.Now().UTC()) {
		err := domain.ErrOtpExpired
		return commons.ErrorResponse[models.VerifyOtpResponse]("Otp expired", err.Error()), err
	}
	if bcrypt.CompareHashAndPassword([]byte(code.CodeHash), []byte(strings.TrimSpace(req.Code))) != nil {
		err := domain.ErrOtpInvalid
		return commons.ErrorResponse[models.VerifyOtpResponse]("Invalid otp", err.Error()), err
	}

	// Single-use consume. A concurrent verification of the same code
	// loses this compare-and-set and gets ErrOtpAlreadyUsed.
	if err := s.otpRepo.Consume(ctx, code.ID); err != nil {
		if errors.Is(err, domain.ErrOtpAlreadyUsed) {
			return commons.ErrorResponse[models.VerifyOtpResponse]("Otp already used", err.Error()), err
		}
		return commons.ErrorResponse[models.VerifyOtpResponse]("failed to verify otp", "Unable to verify otp right now"), err
	}

	verifiedAt := time.Now().UTC()
	if err := s.paymentRepo.MarkOtpVerified(ctx, paymentID, verifiedBy, verifiedAt); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			return commons.ErrorResponse[models.VerifyOtpResponse]("Payment is not awaiting otp", err.Error()), err
		}
		return commons.ErrorResponse[models.VerifyOtpResponse]("failed to verify otp", "Unable to verify otp right now"), err
	}

	response := models.VerifyOtpResponse{
		PaymentID:  paymentID,
		Status:     string(domain.PaymentStatusOtpVerified),
		VerifiedAt: verifiedAt.Format(time.RFC3339),
		VerifiedBy: verifiedBy,
	}

	logger.Info("otp service verify success", logger.Fields{
		"paymentId":  paymentID,
		"verifiedBy": verifiedBy,
		"reference":  payment.Reference,
	})
	return commons.SuccessResponse("otp verified", response), nil
}

func generateNumericCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		digit, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		b.WriteString(digit.String())
	}
	return b.String(), nil
}
