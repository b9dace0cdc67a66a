package services

import (
	"strings"
	"time"
)

// Service is one bookable category on the marketplace, a services/{id}
// document.
type Service struct {
	ID           string   `firestore:"-" json:"id"`
	SectionTitle string   `firestore:"sectionTitle" json:"sectionTitle"`
	Details      string   `firestore:"details,omitempty" json:"details,omitempty"`
	Status       string   `firestore:"status,omitempty" json:"status,omitempty"`
	Image        any      `firestore:"image,omitempty" json:"image,omitempty"`
	NameLower    string   `firestore:"nameLower,omitempty" json:"-"`
	Keywords     []string `firestore:"keywords,omitempty" json:"-"`

	CreatedAt time.Time `firestore:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt time.Time `firestore:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// Provider lives only under services/{serviceId}/providers. Field casing
// follows the stored documents.
type Provider struct {
	ID          string   `firestore:"-" json:"id"`
	Name        string   `firestore:"Name" json:"Name"`
	Contact     string   `firestore:"contact,omitempty" json:"contact,omitempty"`
	Type        string   `firestore:"Type,omitempty" json:"Type,omitempty"`
	Location    string   `firestore:"Location,omitempty" json:"Location,omitempty"`
	Address     string   `firestore:"address,omitempty" json:"address,omitempty"`
	Pincode     string   `firestore:"pincode,omitempty" json:"pincode,omitempty"`
	Price       string   `firestore:"Price,omitempty" json:"Price,omitempty"`
	PriceUnit   string   `firestore:"priceUnit,omitempty" json:"priceUnit,omitempty"`
	ProfileImg  string   `firestore:"profileimg,omitempty" json:"profileimg,omitempty"`
	WorkImage   []string `firestore:"workImage,omitempty" json:"workImage,omitempty"`
	Description string   `firestore:"description,omitempty" json:"description,omitempty"`
	Rating      float64  `firestore:"rating,omitempty" json:"rating,omitempty"`
}

// ServiceFields is the known-field schema for the services collection.
var ServiceFields = []string{
	"sectionTitle", "details", "status", "image", "nameLower", "keywords",
	"createdAt", "updatedAt",
}

// ProviderFields is the known-field schema for provider subcollections.
var ProviderFields = []string{
	"Name", "contact", "Type", "Location", "address", "pincode",
	"Price", "priceUnit", "profileimg", "workImage", "description", "rating",
	"image",
}

type CreateServiceInput struct {
	SectionTitle string `json:"sectionTitle"`
	Details      string `json:"details,omitempty"`
	Status       string `json:"status,omitempty"`
}

func (in *CreateServiceInput) Trim() {
	in.SectionTitle = strings.TrimSpace(in.SectionTitle)
	in.Details = strings.TrimSpace(in.Details)
	in.Status = strings.TrimSpace(in.Status)
}

type UpdateServiceInput struct {
	SectionTitle *string `json:"sectionTitle,omitempty"`
	Details      *string `json:"details,omitempty"`
	Status       *string `json:"status,omitempty"`
}

// ProviderInput is the create/patch body for a provider. Name is a pointer so
// a patch that omits it leaves the stored name untouched; creation requires it
// at the HTTP edge.
type ProviderInput struct {
	Name        *string `json:"Name,omitempty"`
	Contact     string  `json:"contact,omitempty"`
	Type        string  `json:"Type,omitempty"`
	Location    string  `json:"Location,omitempty"`
	Address     string  `json:"address,omitempty"`
	Pincode     string  `json:"pincode,omitempty"`
	Price       string  `json:"Price,omitempty"`
	PriceUnit   string  `json:"priceUnit,omitempty"`
	Description string  `json:"description,omitempty"`
}

func (in *ProviderInput) Trim() {
	if in.Name != nil {
		*in.Name = strings.TrimSpace(*in.Name)
	}
	in.Contact = strings.TrimSpace(in.Contact)
	in.Type = strings.TrimSpace(in.Type)
	in.Location = strings.TrimSpace(in.Location)
	in.Address = strings.TrimSpace(in.Address)
	in.Pincode = strings.TrimSpace(in.Pincode)
	in.Price = strings.TrimSpace(in.Price)
	in.PriceUnit = strings.TrimSpace(in.PriceUnit)
	in.Description = strings.TrimSpace(in.Description)
}

func (in ProviderInput) Fields() map[string]any {
	out := map[string]any{}
	if in.Name != nil {
		out["Name"] = *in.Name
	}
	put(out, "contact", in.Contact)
	put(out, "Type", in.Type)
	put(out, "Location", in.Location)
	put(out, "address", in.Address)
	put(out, "pincode", in.Pincode)
	put(out, "Price", in.Price)
	put(out, "priceUnit", in.PriceUnit)
	put(out, "description", in.Description)
	return out
}

func put(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}
