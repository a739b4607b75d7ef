package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/semscan/semscan-api/internal/app/services"
	"github.com/semscan/semscan-api/internal/pkg/logger"
)

// ExpirySweeper periodically expires lapsed approval tokens and promotion
// offers. The read paths already expire lazily; the sweeper bounds how long a
// lapsed token can sit unobserved when nobody reads.
type ExpirySweeper struct {
	cron      *cron.Cron
	schedule  string
	approval  *services.ApprovalService
	promotion *services.PromotionService
}

// NewExpirySweeper creates a new ExpirySweeper with a cron schedule
func NewExpirySweeper(schedule string, approval *services.ApprovalService, promotion *services.PromotionService) *ExpirySweeper {
	return &ExpirySweeper{
		cron:      cron.New(),
		schedule:  schedule,
		approval:  approval,
		promotion: promotion,
	}
}

// Start registers and starts the sweep job
func (s *ExpirySweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return err
	}
	s.cron.Start()
	logger.Info().Str("schedule", s.schedule).Msg("Expiry sweeper started")
	return nil
}

// Stop stops the cron scheduler, waiting for a running sweep to finish
func (s *ExpirySweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info().Msg("Expiry sweeper stopped")
}

func (s *ExpirySweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	freed, err := s.approval.ExpireDueRegistrations(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Registration expiry sweep failed")
	}
	for _, slotID := range freed {
		if _, err := s.promotion.Offer(ctx, slotID); err != nil {
			logger.Error().Err(err).Int64("slotID", slotID).Msg("Sweep promotion offer failed")
		}
	}

	if _, err := s.promotion.ExpireDuePromotions(ctx); err != nil {
		logger.Error().Err(err).Msg("Promotion expiry sweep failed")
	}
}
