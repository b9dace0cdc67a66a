package requests

import (
	"strings"
	"time"
)

// Booking statuses. Progression is the ordered happy path; cancelled sits
// outside it as an absorbing side-state.
const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

var Progression = []string{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted}

func ValidStatus(s string) bool {
	if s == StatusCancelled {
		return true
	}
	return StatusIndex(s) >= 0
}

// StatusIndex maps a status to its position in the ordered progression for
// progress rendering. Cancelled and unknown statuses map to -1: rendered as
// a terminal interrupt, not a step.
func StatusIndex(s string) int {
	for i, st := range Progression {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition may leave the status.
func IsTerminal(s string) bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition guards admin status updates: the target must belong to the
// fixed set and terminal states absorb. Within the active states any move is
// allowed, matching how the requests dashboard drives the field.
func CanTransition(from, to string) bool {
	if !ValidStatus(to) {
		return false
	}
	if IsTerminal(from) {
		return false
	}
	return true
}

// ServiceRequest is one booking attempt against a provider.
type ServiceRequest struct {
	ID              string    `firestore:"-" json:"id"`
	UserID          string    `firestore:"userId" json:"userId"`
	UserName        string    `firestore:"userName" json:"userName"`
	UserContact     string    `firestore:"userContact" json:"userContact"`
	UserAddress     string    `firestore:"userAddress" json:"userAddress"`
	ProviderID      string    `firestore:"providerId" json:"providerId"`
	ProviderName    string    `firestore:"providerName" json:"providerName"`
	ProviderContact string    `firestore:"providerContact" json:"providerContact"`
	ServiceID       string    `firestore:"serviceId" json:"serviceId"`
	Status          string    `firestore:"status" json:"status"`
	RequestedAt     time.Time `firestore:"requestedAt" json:"requestedAt"`
}

type CreateRequestInput struct {
	UserName        string `json:"userName"`
	UserContact     string `json:"userContact"`
	UserAddress     string `json:"userAddress"`
	ProviderID      string `json:"providerId"`
	ProviderName    string `json:"providerName"`
	ProviderContact string `json:"providerContact"`
	ServiceID       string `json:"serviceId"`
}

func (in *CreateRequestInput) Trim() {
	in.UserName = strings.TrimSpace(in.UserName)
	in.UserContact = strings.TrimSpace(in.UserContact)
	in.UserAddress = strings.TrimSpace(in.UserAddress)
	in.ProviderID = strings.TrimSpace(in.ProviderID)
	in.ProviderName = strings.TrimSpace(in.ProviderName)
	in.ProviderContact = strings.TrimSpace(in.ProviderContact)
	in.ServiceID = strings.TrimSpace(in.ServiceID)
}
