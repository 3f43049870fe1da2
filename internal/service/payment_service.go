package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gigpay/config"
	"gigpay/internal/domain"
	"gigpay/internal/models"
	"gigpay/internal/repository"
	"gigpay/pkg/gateway"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentService creates payment records and opens checkout sessions with the
// gateway. Confirmation of the charge is ReconcileService's job.
type PaymentService struct {
	payments *repository.PaymentRepository
	users    *repository.UserRepository
	gw       gateway.Gateway
	fees     config.FeeConfig
	gwCfg    config.GatewayConfig
}

func NewPaymentService(
	payments *repository.PaymentRepository,
	users *repository.UserRepository,
	gw gateway.Gateway,
	fees config.FeeConfig,
	gwCfg config.GatewayConfig,
) *PaymentService {
	return &PaymentService{payments: payments, users: users, gw: gw, fees: fees, gwCfg: gwCfg}
}

// PlatformFee returns the platform's cut of a gross payment amount.
func (s *PaymentService) PlatformFee(amountMinor int64) int64 {
	return amountMinor * s.fees.PlatformFeeBasisPoints / 10000
}

type EscrowPaymentParams struct {
	PayeeID      uint
	AmountMinor  int64
	PaymentType  string // milestone or full_payment
	ProjectRef   string
	MilestoneRef string
	Description  string
}

// InitializeEscrow records a pending payment and opens a checkout session.
// A still-pending payment for the same project and pair is reused so repeated
// checkout attempts do not stack duplicate records.
func (s *PaymentService) InitializeEscrow(ctx context.Context, payerID uint, payerEmail string, params EscrowPaymentParams) (*models.Payment, *gateway.ChargeSession, error) {
	if params.AmountMinor <= 0 {
		return nil, nil, fmt.Errorf("payment amount must be positive")
	}
	if params.PaymentType != domain.PaymentTypeMilestone && params.PaymentType != domain.PaymentTypeFullPayment {
		return nil, nil, fmt.Errorf("unknown payment type %q", params.PaymentType)
	}
	if params.PayeeID == payerID {
		return nil, nil, fmt.Errorf("payer and payee must differ")
	}
	if _, err := s.users.GetByID(params.PayeeID); err != nil {
		return nil, nil, fmt.Errorf("payee %d: %w", params.PayeeID, err)
	}

	var p *models.Payment
	if params.ProjectRef != "" {
		existing, err := s.payments.FindPendingForProject(params.ProjectRef, payerID, params.PayeeID)
		switch {
		case err == nil:
			p = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return nil, nil, err
		}
	}
	if p == nil {
		fee := s.PlatformFee(params.AmountMinor)
		p = &models.Payment{
			Reference:        "pay-" + uuid.New().String(),
			PayerID:          payerID,
			PayeeID:          params.PayeeID,
			AmountMinor:      params.AmountMinor,
			PlatformFeeMinor: fee,
			NetAmountMinor:   params.AmountMinor - fee,
			Currency:         domain.DefaultCurrency,
			PaymentType:      params.PaymentType,
			Status:           domain.PaymentStatusPending,
			EscrowStatus:     domain.EscrowStatusNone,
			ProjectRef:       params.ProjectRef,
			MilestoneRef:     params.MilestoneRef,
			Description:      params.Description,
		}
		if err := s.payments.Create(p); err != nil {
			return nil, nil, err
		}
	}

	session, err := s.openCheckout(ctx, p, payerEmail)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[Payment] %s initialized: %d from user %d to user %d", p.Reference, p.AmountMinor, payerID, params.PayeeID)
	return p, session, nil
}

// InitializeJobVerification opens a checkout for the flat job verification
// fee. The full amount is the platform's; no wallet is touched on completion.
func (s *PaymentService) InitializeJobVerification(ctx context.Context, payerID uint, payerEmail string, amountMinor int64, jobRef, description string) (*models.Payment, *gateway.ChargeSession, error) {
	if amountMinor <= 0 {
		return nil, nil, fmt.Errorf("payment amount must be positive")
	}
	if jobRef == "" {
		return nil, nil, fmt.Errorf("job reference required")
	}
	p := &models.Payment{
		Reference:        "pay-" + uuid.New().String(),
		PayerID:          payerID,
		PayeeID:          payerID,
		AmountMinor:      amountMinor,
		PlatformFeeMinor: amountMinor,
		NetAmountMinor:   0,
		Currency:         domain.DefaultCurrency,
		PaymentType:      domain.PaymentTypeJobVerification,
		Status:           domain.PaymentStatusPending,
		EscrowStatus:     domain.EscrowStatusNone,
		JobRef:           jobRef,
		Description:      description,
	}
	if err := s.payments.Create(p); err != nil {
		return nil, nil, err
	}
	session, err := s.openCheckout(ctx, p, payerEmail)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("[Payment] %s initialized: job verification for %s", p.Reference, jobRef)
	return p, session, nil
}

func (s *PaymentService) openCheckout(ctx context.Context, p *models.Payment, payerEmail string) (*gateway.ChargeSession, error) {
	return s.gw.InitializeCharge(ctx, gateway.ChargeRequest{
		Reference:     p.Reference,
		AmountMinor:   p.AmountMinor,
		Currency:      p.Currency,
		CustomerEmail: payerEmail,
		RedirectURL:   s.gwCfg.RedirectURL,
		Description:   p.Description,
		Meta: map[string]string{
			"payment_type": p.PaymentType,
		},
	})
}
