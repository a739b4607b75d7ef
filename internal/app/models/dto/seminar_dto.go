package dto

import (
	"time"

	"github.com/semscan/semscan-api/internal/app/models"
)

// RegisterRequest is the payload for POST /slots/:slotId/registrations.
type RegisterRequest struct {
	PresenterUsername string `json:"presenterUsername" binding:"required" example:"jdoe"`
	Topic             string `json:"topic" binding:"required" example:"Streaming graph partitioning"`
	SeminarAbstract   string `json:"seminarAbstract" example:"We study..."`
	SupervisorName    string `json:"supervisorName" binding:"required" example:"Prof. Ada Lovelace"`
	SupervisorEmail   string `json:"supervisorEmail" binding:"required,email" example:"ada@university.edu"`
}

// AddWaitingListRequest is the payload for POST /waiting-list.
type AddWaitingListRequest struct {
	SlotID            int64  `json:"slotId" binding:"required" example:"42"`
	PresenterUsername string `json:"presenterUsername" binding:"required" example:"jdoe"`
	Topic             string `json:"topic" binding:"required" example:"Streaming graph partitioning"`
	SupervisorName    string `json:"supervisorName" binding:"required" example:"Prof. Ada Lovelace"`
	SupervisorEmail   string `json:"supervisorEmail" binding:"required,email" example:"ada@university.edu"`
}

// RemoveWaitingListRequest is the payload for DELETE /waiting-list.
type RemoveWaitingListRequest struct {
	SlotID            int64  `json:"slotId" binding:"required" example:"42"`
	PresenterUsername string `json:"presenterUsername" binding:"required" example:"jdoe"`
}

// SlotResponse is a seminar slot with its derived occupancy.
type SlotResponse struct {
	ID               int64             `json:"id" example:"42"`
	SlotDate         string            `json:"slotDate" example:"2026-03-12"`
	StartTime        string            `json:"startTime" example:"12:00"`
	EndTime          string            `json:"endTime" example:"14:00"`
	Building         string            `json:"building" example:"37"`
	Room             string            `json:"room" example:"202"`
	Capacity         int               `json:"capacity" example:"4"`
	WeightedUsage    int               `json:"weightedUsage" example:"3"`
	Status           models.SlotStatus `json:"status" example:"SEMI"`
	WaitingListCount int               `json:"waitingListCount" example:"2"`
}

// NewSlotResponse builds a SlotResponse from a slot and its occupancy.
func NewSlotResponse(slot *models.SeminarSlot, occ models.Occupancy, waiting int) SlotResponse {
	return SlotResponse{
		ID:               slot.ID,
		SlotDate:         slot.SlotDate.Format("2006-01-02"),
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		Building:         slot.Building,
		Room:             slot.Room,
		Capacity:         slot.Capacity,
		WeightedUsage:    occ.Weighted,
		Status:           occ.Status,
		WaitingListCount: waiting,
	}
}

// RegistrationResponse mirrors a registration without its token fields.
type RegistrationResponse struct {
	SlotID            int64                 `json:"slotId" example:"42"`
	PresenterUsername string                `json:"presenterUsername" example:"jdoe"`
	Degree            models.Degree         `json:"degree" example:"MSC"`
	Topic             string                `json:"topic"`
	SupervisorName    string                `json:"supervisorName"`
	SupervisorEmail   string                `json:"supervisorEmail"`
	ApprovalStatus    models.ApprovalStatus `json:"approvalStatus" example:"PENDING"`
	RegisteredAt      time.Time             `json:"registeredAt"`
}

// NewRegistrationResponse builds a RegistrationResponse from the model.
func NewRegistrationResponse(r *models.Registration) RegistrationResponse {
	return RegistrationResponse{
		SlotID:            r.SlotID,
		PresenterUsername: r.PresenterUsername,
		Degree:            r.Degree,
		Topic:             r.Topic,
		SupervisorName:    r.SupervisorName,
		SupervisorEmail:   r.SupervisorEmail,
		ApprovalStatus:    r.ApprovalStatus,
		RegisteredAt:      r.RegisteredAt,
	}
}

// WaitingListEntryResponse mirrors a waiting list entry without its token.
type WaitingListEntryResponse struct {
	SlotID            int64         `json:"slotId" example:"42"`
	PresenterUsername string        `json:"presenterUsername" example:"jdoe"`
	Degree            models.Degree `json:"degree" example:"MSC"`
	Topic             string        `json:"topic"`
	Position          int           `json:"position" example:"1"`
	AddedAt           time.Time     `json:"addedAt"`
	OfferPending      bool          `json:"offerPending" example:"false"`
}

// NewWaitingListEntryResponse builds the response view of an entry.
func NewWaitingListEntryResponse(e *models.WaitingListEntry, now time.Time) WaitingListEntryResponse {
	return WaitingListEntryResponse{
		SlotID:            e.SlotID,
		PresenterUsername: e.PresenterUsername,
		Degree:            e.Degree,
		Topic:             e.Topic,
		Position:          e.Position,
		AddedAt:           e.AddedAt,
		OfferPending:      e.HasLiveOffer(now),
	}
}
