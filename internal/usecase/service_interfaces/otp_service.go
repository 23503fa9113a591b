package service_interfaces

import (
	"context"

	"github.com/api-sage/treasury-payment-engine/internal/adapter/http/models"
	"github.com/api-sage/treasury-payment-engine/internal/commons"
)

type OtpService interface {
	Issue(ctx context.Context, req models.IssueOtpRequest) (commons.Response[models.IssueOtpResponse], error)
	Verify(ctx context.Context, req models.VerifyOtpRequest) (commons.Response[models.VerifyOtpResponse], error)
}
