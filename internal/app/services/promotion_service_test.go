package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semscan/semscan-api/internal/app/models"
	"github.com/semscan/semscan-api/internal/pkg/apperrors"
)

// ageOffer rewrites an entry's promotion token window so it is already lapsed.
func ageOffer(t *testing.T, f *fixture, entry *models.WaitingListEntry) {
	t.Helper()
	past := time.Now().Add(-time.Hour)
	err := f.stores.WaitingList.SetPromotionToken(context.Background(), entry.ID,
		*entry.PromotionToken, past.Add(-time.Hour), past)
	require.NoError(t, err)
}

func TestOffer_EmptyQueueIsNoOp(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Nil(t, offered)
	assert.Empty(t, f.notifier.promotionOffers)
}

func TestOffer_HeadGetsTokenAndEmail(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)
	assert.Equal(t, "jdoe", offered.PresenterUsername)
	require.NotNil(t, offered.PromotionToken)
	assert.Equal(t, *offered.PromotionToken, f.notifier.lastPromotionToken())

	history, err := f.promotion.History(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PromotionStatusPending, history[0].Status)
}

func TestOffer_AtMostOneOutstandingPerSlot(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(4)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	first, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, first)

	// A second freeing event while the head's offer is live must not produce
	// a second offer.
	second, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Len(t, f.notifier.promotionOffers, 1)
}

func TestOffer_SkipsWhenHeadDoesNotFit(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreePhD)

	// One approved MSc talk leaves a single seat; the queued PhD needs two.
	reg, err := f.approval.Register(context.Background(), slot.ID, registerReq("jdoe"))
	require.NoError(t, err)
	_, err = f.approval.ApproveByToken(context.Background(), *reg.ApprovalToken)
	require.NoError(t, err)

	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.Nil(t, offered)
}

func TestConfirm_CreatesPendingRegistration(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)

	outcome, err := f.promotion.Confirm(context.Background(), *offered.PromotionToken)
	require.NoError(t, err)
	require.NotNil(t, outcome.Registration)
	assert.Equal(t, models.ApprovalStatusPending, outcome.Registration.ApprovalStatus)
	assert.Equal(t, offered.Topic, outcome.Registration.Topic)
	assert.Equal(t, offered.SupervisorEmail, outcome.Registration.SupervisorEmail)

	// The entry left the queue and the supervisor got an approval link.
	queued, err := f.stores.WaitingList.ExistsForPresenter(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.False(t, queued)
	require.Len(t, f.notifier.approvalRequests, 1)

	history, err := f.promotion.History(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PromotionStatusApproved, history[0].Status)
}

func TestConfirm_SeatGoneKeepsHeadPosition(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(1)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)

	// Someone else takes the last seat between offer and confirmation.
	_, err = f.approval.Register(context.Background(), slot.ID, registerReq("msmith"))
	require.NoError(t, err)

	_, err = f.promotion.Confirm(context.Background(), *offered.PromotionToken)
	assert.ErrorIs(t, err, apperrors.ErrSlotNoLongerAvailable)

	// The candidate keeps the head position with the token cleared, first in
	// line for the next freeing event.
	entry, err := f.stores.WaitingList.Get(context.Background(), slot.ID, "jdoe")
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)
	assert.Nil(t, entry.PromotionToken)

	history, err := f.promotion.History(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.PromotionStatusDeclined, history[0].Status)
}

func TestConfirm_ExpiredTokenRemovesEntryAndCascades(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)
	ageOffer(t, f, offered)

	_, err = f.promotion.Confirm(context.Background(), *offered.PromotionToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	// jdoe is out, msmith moved to the head and holds the next offer.
	queued, err := f.stores.WaitingList.ExistsForPresenter(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.False(t, queued)

	next, err := f.stores.WaitingList.Get(context.Background(), slot.ID, "msmith")
	require.NoError(t, err)
	assert.Equal(t, 1, next.Position)
	assert.NotNil(t, next.PromotionToken)
	assert.Len(t, f.notifier.promotionOffers, 2)
}

func TestDecline_RemovesEntryAndCascades(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)

	outcome, err := f.promotion.Decline(context.Background(), *offered.PromotionToken)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", outcome.PresenterUsername)

	next, err := f.stores.WaitingList.Get(context.Background(), slot.ID, "msmith")
	require.NoError(t, err)
	assert.Equal(t, 1, next.Position)
	assert.NotNil(t, next.PromotionToken)

	history, err := f.promotion.History(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestResolve_UnknownPromotionToken(t *testing.T) {
	f := newFixture()

	_, err := f.promotion.Confirm(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
	_, err = f.promotion.Decline(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestExpireDuePromotions_CascadesToNextInLine(t *testing.T) {
	f := newFixture()
	slot := f.addSlot(2)
	f.addPresenter("jdoe", models.DegreeMSc)
	f.addPresenter("msmith", models.DegreeMSc)

	_, err := f.waitingList.Add(context.Background(), addReq(slot.ID, "jdoe"))
	require.NoError(t, err)
	_, err = f.waitingList.Add(context.Background(), addReq(slot.ID, "msmith"))
	require.NoError(t, err)

	offered, err := f.promotion.Offer(context.Background(), slot.ID)
	require.NoError(t, err)
	require.NotNil(t, offered)
	ageOffer(t, f, offered)

	expired, err := f.promotion.ExpireDuePromotions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	history, err := f.promotion.History(context.Background(), slot.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)

	next, err := f.stores.WaitingList.Get(context.Background(), slot.ID, "msmith")
	require.NoError(t, err)
	assert.Equal(t, 1, next.Position)
	require.NotNil(t, next.PromotionToken)
	assert.True(t, next.HasLiveOffer(time.Now()))
}
