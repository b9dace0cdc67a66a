package notifications

import "time"

// Notification is one users/{uid}/notifications document.
type Notification struct {
	ID        string         `firestore:"-" json:"id"`
	Title     string         `firestore:"title" json:"title"`
	Body      string         `firestore:"body,omitempty" json:"body,omitempty"`
	Type      string         `firestore:"type,omitempty" json:"type,omitempty"`
	Data      map[string]any `firestore:"data,omitempty" json:"data,omitempty"`
	Read      bool           `firestore:"read" json:"read"`
	CreatedAt time.Time      `firestore:"createdAt" json:"createdAt"`
}

const TypeBookingStatus = "booking-status"
