package models

import "time"

type ListingStatus string

const (
	ListingActive  ListingStatus = "active"
	ListingPending ListingStatus = "pending"
	ListingSold    ListingStatus = "sold"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingActive, ListingPending, ListingSold:
		return true
	}
	return false
}

// Listing is one sellable social-media account.
type Listing struct {
	ID             string        `json:"id" db:"id"`
	Platform       string        `json:"platform" db:"platform"`
	Username       string        `json:"username" db:"username"`
	Followers      int64         `json:"followers" db:"followers"`
	EngagementRate float64       `json:"engagement_rate" db:"engagement_rate"`
	Price          int64         `json:"price" db:"price"` // in UC
	Description    string        `json:"description" db:"description"`
	Category       string        `json:"category" db:"category"`
	Status         ListingStatus `json:"status" db:"status"`
	Credentials    string        `json:"-" db:"credentials"` // sealed by the vault
	CreatedBy      string        `json:"created_by" db:"created_by"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at" db:"updated_at"`
}

// CredentialField is one named login detail delivered to a buyer.
type CredentialField struct {
	Name  string `json:"name" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=4000"`
}
