package service

import (
	"context"
	"log"
	"time"

	"gigpay/config"
	"gigpay/internal/repository"
	"gigpay/pkg/gateway"
)

// SweepService is the safety net for missed callbacks. On each tick it
// re-verifies stale pending payments and settles in-flight withdrawals by
// querying the gateway directly.
type SweepService struct {
	payments    *repository.PaymentRepository
	withdrawals *repository.WithdrawalRepository
	reconciler  *ReconcileService
	payouts     *WithdrawalService
	gw          gateway.Gateway
	cfg         config.SweepConfig
}

func NewSweepService(
	payments *repository.PaymentRepository,
	withdrawals *repository.WithdrawalRepository,
	reconciler *ReconcileService,
	payouts *WithdrawalService,
	gw gateway.Gateway,
	cfg config.SweepConfig,
) *SweepService {
	return &SweepService{
		payments:    payments,
		withdrawals: withdrawals,
		reconciler:  reconciler,
		payouts:     payouts,
		gw:          gw,
		cfg:         cfg,
	}
}

// Run ticks until the context is cancelled.
func (s *SweepService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	log.Printf("[Sweep] started, interval %s", s.cfg.Interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Sweep] stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass. Per-item errors are logged and skipped so one
// bad record cannot stall the rest of the batch.
func (s *SweepService) SweepOnce(ctx context.Context) {
	s.sweepPayments(ctx)
	s.sweepWithdrawals(ctx)
}

func (s *SweepService) sweepPayments(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.PendingMaxAge)
	stale, err := s.payments.ListStalePending(cutoff, s.cfg.BatchSize)
	if err != nil {
		log.Printf("[Sweep] listing stale payments: %v", err)
		return
	}
	for i := range stale {
		p := &stale[i]
		status, err := s.gw.VerifyChargeByReference(ctx, p.Reference)
		if err != nil {
			log.Printf("[Sweep] verify %s: %v", p.Reference, err)
			continue
		}
		if _, err := s.reconciler.ApplyGatewayEvent(ctx, p.Reference, status.Status, status.AmountMinor, status.GatewayID); err != nil {
			log.Printf("[Sweep] reconcile %s: %v", p.Reference, err)
		}
	}
}

func (s *SweepService) sweepWithdrawals(ctx context.Context) {
	inflight, err := s.withdrawals.ListInFlight(s.cfg.BatchSize)
	if err != nil {
		log.Printf("[Sweep] listing in-flight withdrawals: %v", err)
		return
	}
	for i := range inflight {
		w := &inflight[i]
		if _, err := s.payouts.Reconcile(ctx, w.ID); err != nil {
			log.Printf("[Sweep] settle withdrawal %s: %v", w.Reference, err)
		}
	}
}
