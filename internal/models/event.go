package models

import "time"

// Listing event types published after a successful mutation.
const (
	EventListingCreated = "listing.created"
	EventListingUpdated = "listing.updated"
	EventListingDeleted = "listing.deleted"
)

// ImageCleanup is the outcome of removing one externally stored image.
type ImageCleanup struct {
	Image   string `json:"image"`
	Removed bool   `json:"removed"`
	Error   string `json:"error,omitempty"`
}

// ListingEvent describes a listing mutation for downstream consumers.
type ListingEvent struct {
	Type       string         `json:"type"`
	ListingID  string         `json:"listing_id"`
	CarNumber  string         `json:"car_number,omitempty"`
	Company    string         `json:"company,omitempty"`
	Images     []string       `json:"images,omitempty"`
	Cleanup    []ImageCleanup `json:"cleanup,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
