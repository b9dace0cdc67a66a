package users

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// Profile is the users/{uid} document. The document id is the auth uid.
type Profile struct {
	UID      string `firestore:"-" json:"id"`
	Email    string `firestore:"email" json:"email"`
	Role     string `firestore:"role" json:"role"`
	Name     string `firestore:"name,omitempty" json:"name,omitempty"`
	Contact  string `firestore:"contact,omitempty" json:"contact,omitempty"`
	Address  string `firestore:"address,omitempty" json:"address,omitempty"`
	City     string `firestore:"city,omitempty" json:"city,omitempty"`
	State    string `firestore:"state,omitempty" json:"state,omitempty"`
	Pin      string `firestore:"pin,omitempty" json:"pin,omitempty"`
	FCMToken string `firestore:"fcmToken,omitempty" json:"fcmToken,omitempty"`

	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// UpdateProfileInput carries the fields a user may set on their own profile.
// Anything outside this set never reaches the store.
type UpdateProfileInput struct {
	Name     *string `json:"name,omitempty"`
	Contact  *string `json:"contact,omitempty"`
	Address  *string `json:"address,omitempty"`
	City     *string `json:"city,omitempty"`
	State    *string `json:"state,omitempty"`
	Pin      *string `json:"pin,omitempty"`
	FCMToken *string `json:"fcmToken,omitempty"`
}

func (in *UpdateProfileInput) Trim() {
	trimPtr(in.Name)
	trimPtr(in.Contact)
	trimPtr(in.Address)
	trimPtr(in.City)
	trimPtr(in.State)
	trimPtr(in.Pin)
	trimPtr(in.FCMToken)
}

func (in UpdateProfileInput) Fields() map[string]any {
	out := map[string]any{}
	putPtr(out, "name", in.Name)
	putPtr(out, "contact", in.Contact)
	putPtr(out, "address", in.Address)
	putPtr(out, "city", in.City)
	putPtr(out, "state", in.State)
	putPtr(out, "pin", in.Pin)
	putPtr(out, "fcmToken", in.FCMToken)
	return out
}

// AdminUpdateInput is the admin user-management patch: profile fields plus
// email and role.
type AdminUpdateInput struct {
	UpdateProfileInput
	Email *string `json:"email,omitempty"`
	Role  *string `json:"role,omitempty"`
}

func (in *AdminUpdateInput) Trim() {
	in.UpdateProfileInput.Trim()
	trimPtr(in.Email)
	trimPtr(in.Role)
}

func (in AdminUpdateInput) Fields() map[string]any {
	out := in.UpdateProfileInput.Fields()
	putPtr(out, "email", in.Email)
	putPtr(out, "role", in.Role)
	return out
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func putPtr(m map[string]any, key string, v *string) {
	if v != nil {
		m[key] = *v
	}
}
