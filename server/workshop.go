package server

import (
	"context"
	"time"
)

// Workshop is a full workshop record with its embedded slide list.
type Workshop struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Duration      string    `json:"duration,omitempty"`
	Difficulty    string    `json:"difficulty"`
	Materials     string    `json:"materials,omitempty"`
	Objectives    string    `json:"objectives,omitempty"`
	Category      string    `json:"category,omitempty"`
	AgeRange      string    `json:"ageRange,omitempty"`
	CoverImageURL string    `json:"coverImageUrl"`
	StorageFolder string    `json:"storageFolder"`
	Slides        []Slide   `json:"slides"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// WorkshopSummary is the projected view returned by listings. It never
// carries the slide list.
type WorkshopSummary struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Duration      string    `json:"duration,omitempty"`
	Difficulty    string    `json:"difficulty"`
	Category      string    `json:"category,omitempty"`
	AgeRange      string    `json:"ageRange,omitempty"`
	CoverImageURL string    `json:"coverImageUrl"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Slide is an ordered step within a workshop. Title is assigned at append
// time and never renumbered afterwards.
type Slide struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"imageUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DefaultDifficulty is applied when a workshop is created without one.
const DefaultDifficulty = "EASY"

// SlidesField is the record list field targeted by AppendToList.
const SlidesField = "slides"

// RecordStore defines the interface for workshop record operations.
type RecordStore interface {
	// Get retrieves a workshop by ID, ErrNotFound if absent
	Get(ctx context.Context, id string) (*Workshop, error)

	// Put writes the full record unconditionally
	Put(ctx context.Context, workshop *Workshop) error

	// AppendToList atomically appends elem to the named list field,
	// creating the list if absent, and returns the updated record.
	// ErrNotFound if the record does not exist.
	AppendToList(ctx context.Context, id, field string, elem Slide) (*Workshop, error)

	// Delete removes the record
	Delete(ctx context.Context, id string) error

	// ScanSummaries returns all workshops projected to summary fields
	ScanSummaries(ctx context.Context) ([]*WorkshopSummary, error)
}

// BlobStore defines the interface for workshop image storage.
type BlobStore interface {
	// Upload stores data under key and returns a dereferenceable URL
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// ListKeys returns one page of keys under prefix; truncated reports
	// whether more keys exist beyond that page
	ListKeys(ctx context.Context, prefix string) (keys []string, truncated bool, err error)

	// DeleteKeys removes the given keys, chunking to the backend batch limit
	DeleteKeys(ctx context.Context, keys []string) error
}
