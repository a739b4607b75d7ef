package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semscan/semscan-api/internal/app/models"
)

func TestWeightOf(t *testing.T) {
	f := newFixture()

	assert.Equal(t, 2, f.capacity.WeightOf(models.DegreePhD))
	assert.Equal(t, 1, f.capacity.WeightOf(models.DegreeMSc))
}

func TestOccupancyOf_DerivedStatus(t *testing.T) {
	f := newFixture()
	slot := &models.SeminarSlot{ID: 1, Capacity: 4}

	tests := []struct {
		name     string
		regs     []models.Registration
		weighted int
		status   models.SlotStatus
	}{
		{
			name:     "empty slot is free",
			regs:     nil,
			weighted: 0,
			status:   models.SlotStatusFree,
		},
		{
			name: "partial usage is semi",
			regs: []models.Registration{
				{Degree: models.DegreeMSc, ApprovalStatus: models.ApprovalStatusApproved},
				{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusPending},
			},
			weighted: 3,
			status:   models.SlotStatusSemi,
		},
		{
			name: "two phd talks fill a four seat slot",
			regs: []models.Registration{
				{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusApproved},
				{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusPending},
			},
			weighted: 4,
			status:   models.SlotStatusFull,
		},
		{
			name: "terminal registrations hold no capacity",
			regs: []models.Registration{
				{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusDeclined},
				{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusExpired},
				{Degree: models.DegreeMSc, ApprovalStatus: models.ApprovalStatusCancelled},
			},
			weighted: 0,
			status:   models.SlotStatusFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			occ := f.capacity.OccupancyOf(slot, tt.regs)
			assert.Equal(t, tt.weighted, occ.Weighted)
			assert.Equal(t, tt.status, occ.Status)
			assert.Equal(t, slot.Capacity, occ.Capacity)
		})
	}
}

func TestFits_PendingHoldsFullWeight(t *testing.T) {
	f := newFixture()
	slot := &models.SeminarSlot{ID: 1, Capacity: 3}

	regs := []models.Registration{
		{Degree: models.DegreePhD, ApprovalStatus: models.ApprovalStatusPending},
	}

	// 2 of 3 seats held by the pending PhD talk: one MSc fits, a PhD does not.
	assert.True(t, f.capacity.Fits(slot, regs, models.DegreeMSc))
	assert.False(t, f.capacity.Fits(slot, regs, models.DegreePhD))
}

func TestComputeOccupancy(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(4)
	f.addPresenter("jdoe", models.DegreePhD)

	reg := &models.Registration{
		SlotID:            slot.ID,
		PresenterUsername: "jdoe",
		Degree:            models.DegreePhD,
		ApprovalStatus:    models.ApprovalStatusApproved,
	}
	require.NoError(t, f.stores.Registrations.Upsert(context.Background(), reg))

	occ, err := f.capacity.ComputeOccupancy(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, occ.Weighted)
	assert.Equal(t, models.SlotStatusSemi, occ.Status)
	assert.Equal(t, 2, occ.Remaining())
}
