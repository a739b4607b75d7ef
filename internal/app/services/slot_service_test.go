package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

func TestSlotGet_DerivesStatusAndQueueCount(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(4)
	f.addPresenter("jdoe", models.DegreePhD)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.approval.Register(context.Background(), slot.ID, registerReq("jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	resp, err := f.slots.Get(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Equal(t, slot.ID, resp.ID)
	assert.Equal(t, 2, resp.WeightedUsage)
	assert.Equal(t, models.SlotStatusSemi, resp.Status)
	assert.Equal(t, 1, resp.WaitingListCount)
}

func TestSlotGet_UnknownSlot(t *testing.T) {
	f := newFixture()

	_, err := f.slots.Get(context.Background(), 999)
	assert.ErrorIs(t, err, apperrors.ErrSlotNotFound)
}

func TestSlotList_OrderedByID(t *testing.T) {
	f := newFixture()
	first := f.addSlot(2)
	second := f.addSlot(4)

	resp, err := f.slots.List(context.Background())
	require.NoError(t, err)
	require.Len(t, resp, 2)
	assert.Equal(t, first.ID, resp[0].ID)
	assert.Equal(t, second.ID, resp[1].ID)
	assert.Equal(t, models.SlotStatusFree, resp[0].Status)
}
