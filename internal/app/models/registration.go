package models

import "time"

// ApprovalStatus is the lifecycle state of a slot registration.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "PENDING"
	ApprovalStatusApproved  ApprovalStatus = "APPROVED"
	ApprovalStatusDeclined  ApprovalStatus = "DECLINED"
	ApprovalStatusExpired   ApprovalStatus = "EXPIRED"
	ApprovalStatusCancelled ApprovalStatus = "CANCELLED"
)

// Active reports whether the registration still holds capacity.
// Only PENDING and APPROVED registrations count toward slot occupancy.
func (s ApprovalStatus) Active() bool {
	return s == ApprovalStatusPending || s == ApprovalStatusApproved
}

// Terminal reports whether the registration reached a final state.
func (s ApprovalStatus) Terminal() bool {
	return !s.Active()
}

// Registration is a presenter's claim on a seminar slot. The (SlotID,
// PresenterUsername) pair is the identity: a presenter registers at most once
// per slot.
type Registration struct {
	SlotID            int64          `json:"slotId"`
	PresenterUsername string         `json:"presenterUsername"`
	Degree            Degree         `json:"degree"`
	Topic             string         `json:"topic"`
	SeminarAbstract   string         `json:"seminarAbstract,omitempty"`
	SupervisorName    string         `json:"supervisorName"`
	SupervisorEmail   string         `json:"supervisorEmail"`
	ApprovalStatus    ApprovalStatus `json:"approvalStatus"`
	ApprovalToken     *string        `json:"-"`
	TokenExpiresAt    *time.Time     `json:"-"`
	RegisteredAt      time.Time      `json:"registeredAt"`
	ApprovedAt        *time.Time     `json:"approvedAt,omitempty"`
	DeclinedAt        *time.Time     `json:"declinedAt,omitempty"`
	DeclinedReason    *string        `json:"declinedReason,omitempty"`
}

// TokenExpired reports whether the approval token's window has passed at the
// given instant. A registration without a token cannot expire.
func (r *Registration) TokenExpired(now time.Time) bool {
	return r.TokenExpiresAt != nil && now.After(*r.TokenExpiresAt)
}
