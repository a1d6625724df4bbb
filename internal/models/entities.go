package models

import (
	"fmt"
	"time"
)

// SavedProperty is a property the user saved to their portfolio
type SavedProperty struct {
	ID            string    `json:"id,omitempty"`
	AddressStreet string    `json:"address_street"`
	AddressCity   string    `json:"address_city,omitempty"`
	AddressState  string    `json:"address_state,omitempty"`
	AddressZip    string    `json:"address_zip,omitempty"`
	ListPrice     float64   `json:"list_price,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	UpdatedAt     time.Time `json:"updated_at,omitempty"`
}

// Validate checks the fields required to save a property
func (p *SavedProperty) Validate() error {
	if p.AddressStreet == "" {
		return fmt.Errorf("address_street is required")
	}
	if p.ListPrice < 0 {
		return fmt.Errorf("list_price cannot be negative")
	}
	return nil
}

// SearchHistoryEntry is one property search the user ran
type SearchHistoryEntry struct {
	ID         string            `json:"id,omitempty"`
	Query      string            `json:"query"`
	Filters    map[string]string `json:"filters,omitempty"`
	ResultSize int               `json:"result_size,omitempty"`
	SearchedAt time.Time         `json:"searched_at,omitempty"`
}

// Validate checks the fields required to record a search
func (s *SearchHistoryEntry) Validate() error {
	if s.Query == "" && len(s.Filters) == 0 {
		return fmt.Errorf("query or filters are required")
	}
	return nil
}

// Document is the metadata of a file attached to a property. Bodies are
// transferred out of band.
type Document struct {
	ID          string    `json:"id,omitempty"`
	PropertyID  string    `json:"property_id,omitempty"`
	Name        string    `json:"name"`
	ContentType string    `json:"content_type,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Validate checks the fields required for document metadata
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("name is required")
	}
	if d.SizeBytes < 0 {
		return fmt.Errorf("size_bytes cannot be negative")
	}
	return nil
}

// LetterOfIntent is an offer draft for a property
type LetterOfIntent struct {
	ID          string    `json:"id,omitempty"`
	PropertyID  string    `json:"property_id"`
	OfferPrice  float64   `json:"offer_price"`
	EarnestDays int       `json:"earnest_days,omitempty"`
	Terms       string    `json:"terms,omitempty"`
	Status      string    `json:"status,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// Validate checks the fields required for a letter of intent
func (l *LetterOfIntent) Validate() error {
	if l.PropertyID == "" {
		return fmt.Errorf("property_id is required")
	}
	if l.OfferPrice <= 0 {
		return fmt.Errorf("offer_price must be positive")
	}
	return nil
}
