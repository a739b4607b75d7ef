package models

import "time"

// WaitingListEntry is a queued candidate for a full slot. Positions within a
// slot are dense, 1..N, in arrival order. A presenter appears on at most one
// waiting list system-wide.
type WaitingListEntry struct {
	ID                 int64      `json:"id"`
	SlotID             int64      `json:"slotId"`
	PresenterUsername  string     `json:"presenterUsername"`
	Degree             Degree     `json:"degree"`
	Topic              string     `json:"topic"`
	SupervisorName     string     `json:"supervisorName"`
	SupervisorEmail    string     `json:"supervisorEmail"`
	Position           int        `json:"position"`
	AddedAt            time.Time  `json:"addedAt"`
	PromotionToken     *string    `json:"-"`
	PromotionOfferedAt *time.Time `json:"promotionOfferedAt,omitempty"`
	PromotionExpiresAt *time.Time `json:"promotionExpiresAt,omitempty"`
}

// HasLiveOffer reports whether the entry holds an unexpired promotion token at
// the given instant.
func (e *WaitingListEntry) HasLiveOffer(now time.Time) bool {
	return e.PromotionToken != nil && e.PromotionExpiresAt != nil && now.Before(*e.PromotionExpiresAt)
}

// OfferExpired reports whether the entry holds a token whose window has passed.
func (e *WaitingListEntry) OfferExpired(now time.Time) bool {
	return e.PromotionToken != nil && e.PromotionExpiresAt != nil && !now.Before(*e.PromotionExpiresAt)
}

// PromotionStatus is the lifecycle state of a promotion offer.
type PromotionStatus string

const (
	PromotionStatusPending  PromotionStatus = "PENDING"
	PromotionStatusApproved PromotionStatus = "APPROVED"
	PromotionStatusDeclined PromotionStatus = "DECLINED"
	PromotionStatusExpired  PromotionStatus = "EXPIRED"
)

// WaitingListPromotion is the audit record of a single promotion offer.
type WaitingListPromotion struct {
	ID                int64           `json:"id"`
	SlotID            int64           `json:"slotId"`
	PresenterUsername string          `json:"presenterUsername"`
	Status            PromotionStatus `json:"status"`
	OfferedAt         time.Time       `json:"offeredAt"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	ResolvedAt        *time.Time      `json:"resolvedAt,omitempty"`
	ResolvedReason    *string         `json:"resolvedReason,omitempty"`
}
