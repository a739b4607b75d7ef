package services

import (
	"context"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/app/models/dto"
)

// SlotService provides the read views of seminar slots with their derived
// occupancy and queue length.
type SlotService struct {
	stores   Stores
	capacity *CapacityService
}

// NewSlotService creates a new SlotService
func NewSlotService(stores Stores, capacity *CapacityService) *SlotService {
	return &SlotService{stores: stores, capacity: capacity}
}

// List returns every slot with derived status and waiting list count.
func (s *SlotService) List(ctx context.Context) ([]dto.SlotResponse, error) {
	slots, err := s.stores.Slots.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SlotResponse, 0, len(slots))
	for i := range slots {
		resp, err := s.view(ctx, &slots[i])
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return responses, nil
}

// Get returns one slot with derived status and waiting list count.
func (s *SlotService) Get(ctx context.Context, slotID int64) (dto.SlotResponse, error) {
	slot, err := s.stores.Slots.GetByID(ctx, slotID)
	if err != nil {
		return dto.SlotResponse{}, err
	}
	return s.view(ctx, slot)
}

func (s *SlotService) view(ctx context.Context, slot *models.SeminarSlot) (dto.SlotResponse, error) {
	regs, err := s.stores.Registrations.ListActiveBySlot(ctx, slot.ID)
	if err != nil {
		return dto.SlotResponse{}, err
	}

	waiting, err := s.stores.WaitingList.CountBySlot(ctx, slot.ID)
	if err != nil {
		return dto.SlotResponse{}, err
	}

	return dto.NewSlotResponse(slot, s.capacity.OccupancyOf(slot, regs), waiting), nil
}
