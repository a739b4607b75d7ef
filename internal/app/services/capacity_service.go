package services

import (
	"context"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/config"
)

// CapacityService computes the weighted occupancy of seminar slots. A slot's
// fullness is never stored: it is always derived from the live registrations,
// with each registration weighted by the presenter's degree.
type CapacityService struct {
	cfg    *config.Config
	stores Stores
}

// NewCapacityService creates a new CapacityService
func NewCapacityService(cfg *config.Config, stores Stores) *CapacityService {
	return &CapacityService{cfg: cfg, stores: stores}
}

// WeightOf returns the capacity weight of a degree, read from config at call
// time so weight changes apply without restart-order coupling.
func (s *CapacityService) WeightOf(degree models.Degree) int {
	switch degree {
	case models.DegreePhD:
		return s.cfg.Seminar.PhDWeight
	default:
		return s.cfg.Seminar.MScWeight
	}
}

// OccupancyOf derives the occupancy of a slot from a registration set.
// Only PENDING and APPROVED registrations hold capacity.
func (s *CapacityService) OccupancyOf(slot *models.SeminarSlot, regs []models.Registration) models.Occupancy {
	weighted := 0
	for i := range regs {
		if regs[i].ApprovalStatus.Active() {
			weighted += s.WeightOf(regs[i].Degree)
		}
	}

	status := models.SlotStatusSemi
	switch {
	case weighted == 0:
		status = models.SlotStatusFree
	case weighted >= slot.Capacity:
		status = models.SlotStatusFull
	}

	return models.Occupancy{
		Weighted: weighted,
		Capacity: slot.Capacity,
		Status:   status,
	}
}

// ComputeOccupancy loads a slot and derives its current occupancy.
func (s *CapacityService) ComputeOccupancy(ctx context.Context, slotID int64) (models.Occupancy, error) {
	slot, err := s.stores.Slots.GetByID(ctx, slotID)
	if err != nil {
		return models.Occupancy{}, err
	}

	regs, err := s.stores.Registrations.ListActiveBySlot(ctx, slotID)
	if err != nil {
		return models.Occupancy{}, err
	}

	return s.OccupancyOf(slot, regs), nil
}

// Fits reports whether a candidate of the given degree still fits into the
// slot on top of the given registration set.
func (s *CapacityService) Fits(slot *models.SeminarSlot, regs []models.Registration, degree models.Degree) bool {
	occ := s.OccupancyOf(slot, regs)
	return occ.Weighted+s.WeightOf(degree) <= slot.Capacity
}
