package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// WorkshopService orchestrates workshop workflows over the record store,
// the blob store and the cache. No transaction spans the two stores;
// consistency is maintained by ordering (image before record on create,
// blobs before record on delete) plus best-effort compensations.
type WorkshopService struct {
	store RecordStore
	blobs BlobStore
	cache Cache
}

// NewWorkshopService creates a workshop service over the given stores
func NewWorkshopService(store RecordStore, blobs BlobStore, cache Cache) *WorkshopService {
	return &WorkshopService{
		store: store,
		blobs: blobs,
		cache: cache,
	}
}

// CreateWorkshopInput carries the fields for a new workshop
type CreateWorkshopInput struct {
	Name        string
	Description string
	Duration    string
	Difficulty  string
	Materials   string
	Objectives  string
	Category    string
	AgeRange    string
	CoverImage  []byte
}

// MessageResponse is the confirmation payload for delete operations
type MessageResponse struct {
	Message string `json:"message"`
}

// acceptedImageTypes are the upload formats the API serves back as images.
var acceptedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// detectImage sniffs the uploaded bytes and rejects anything that is not
// an accepted image format.
func detectImage(data []byte) (contentType, ext string, err error) {
	m := mimetype.Detect(data)
	for _, accepted := range acceptedImageTypes {
		if m.Is(accepted) {
			return m.String(), m.Extension(), nil
		}
	}
	return "", "", &UnsupportedMediaError{ContentType: m.String()}
}

// compensation is one cleanup step registered as a multi-step workflow
// makes progress against external stores.
type compensation struct {
	name string
	fn   func(context.Context) error
}

// compensations is the ordered cleanup list for a workflow. Steps run in
// reverse registration order. Cleanup failures are logged, never
// returned: a failed compensation leaves visible partial state instead
// of masking the error that triggered it.
type compensations []compensation

func (c compensations) add(name string, fn func(context.Context) error) compensations {
	return append(c, compensation{name: name, fn: fn})
}

func (c compensations) run(ctx context.Context) {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].fn(ctx); err != nil {
			log.Printf("Warning: compensation %q failed: %v", c[i].name, err)
		}
	}
}

// CreateWorkshop validates the input, uploads the cover image and writes
// the workshop record. The cover is uploaded first: a record is never
// written pointing at a missing cover. If the record write fails the
// uploaded cover is removed again, best effort.
func (s *WorkshopService) CreateWorkshop(ctx context.Context, input *CreateWorkshopInput) (*Workshop, error) {
	if input.Name == "" {
		return nil, &ValidationError{Field: "name"}
	}
	if input.Description == "" {
		return nil, &ValidationError{Field: "description"}
	}
	if len(input.CoverImage) == 0 {
		return nil, &ValidationError{Field: "coverImage"}
	}

	contentType, ext, err := detectImage(input.CoverImage)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	folder := "workshops/" + id

	coverKey := fmt.Sprintf("%s/cover-%s%s", folder, uuid.NewString(), ext)
	coverURL, err := s.blobs.Upload(ctx, coverKey, input.CoverImage, contentType)
	if err != nil {
		return nil, &StorageError{Op: "upload cover image", Err: err}
	}

	var cleanup compensations
	cleanup = cleanup.add("delete cover "+coverKey, func(ctx context.Context) error {
		return s.blobs.DeleteKeys(ctx, []string{coverKey})
	})

	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}

	now := time.Now()
	workshop := &Workshop{
		ID:            id,
		Name:          input.Name,
		Description:   input.Description,
		Duration:      input.Duration,
		Difficulty:    difficulty,
		Materials:     input.Materials,
		Objectives:    input.Objectives,
		Category:      input.Category,
		AgeRange:      input.AgeRange,
		CoverImageURL: coverURL,
		StorageFolder: folder,
		Slides:        []Slide{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.Put(ctx, workshop); err != nil {
		cleanup.run(ctx)
		return nil, &StorageError{Op: "write workshop record", Err: err}
	}

	return workshop, nil
}

// GetWorkshop retrieves a workshop by ID
func (s *WorkshopService) GetWorkshop(ctx context.Context, id string) (*Workshop, error) {
	workshop, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &StorageError{Op: "get workshop", Err: err}
	}

	// Populate the cache after a successful read, never serve cache-first
	if err := s.cache.SetWorkshop(ctx, workshop); err != nil {
		log.Printf("Failed to cache workshop %s: %v", id, err)
	}

	return workshop, nil
}

// ListWorkshops returns summaries for all workshops. The result is one
// projected scan, unpaginated.
func (s *WorkshopService) ListWorkshops(ctx context.Context) ([]*WorkshopSummary, error) {
	summaries, err := s.store.ScanSummaries(ctx)
	if err != nil {
		return nil, &StorageError{Op: "list workshops", Err: err}
	}
	return summaries, nil
}

// AddSlide appends a slide to a workshop. List membership and order are
// guaranteed by the store's atomic conditional append; the "Step N"
// title is an advisory label computed from the pre-append snapshot, so
// two concurrent appends can produce the same number while still both
// landing in the list. The returned workshop is the authoritative
// post-append record.
func (s *WorkshopService) AddSlide(ctx context.Context, workshopID, description string, image []byte) (*Slide, *Workshop, error) {
	if description == "" {
		return nil, nil, &ValidationError{Field: "description"}
	}

	// Fetch first so no image is uploaded for a missing workshop
	workshop, err := s.store.Get(ctx, workshopID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, &NotFoundError{ID: workshopID}
		}
		return nil, nil, &StorageError{Op: "get workshop", Err: err}
	}

	number := len(workshop.Slides) + 1
	slideID := uuid.NewString()

	var imageURL *string
	var cleanup compensations
	if len(image) > 0 {
		contentType, ext, err := detectImage(image)
		if err != nil {
			return nil, nil, err
		}

		key := fmt.Sprintf("%s/slide-%s%s", workshop.StorageFolder, slideID, ext)
		url, err := s.blobs.Upload(ctx, key, image, contentType)
		if err != nil {
			return nil, nil, &StorageError{Op: "upload slide image", Err: err}
		}
		imageURL = &url
		cleanup = cleanup.add("delete slide image "+key, func(ctx context.Context) error {
			return s.blobs.DeleteKeys(ctx, []string{key})
		})
	}

	slide := Slide{
		ID:          slideID,
		Title:       fmt.Sprintf("Step %d", number),
		Description: description,
		ImageURL:    imageURL,
		CreatedAt:   time.Now(),
	}

	updated, err := s.store.AppendToList(ctx, workshopID, SlidesField, slide)
	if err != nil {
		cleanup.run(ctx)
		if errors.Is(err, ErrNotFound) {
			// Workshop deleted between the fetch and the append
			return nil, nil, &NotFoundError{ID: workshopID}
		}
		return nil, nil, &StorageError{Op: "append slide", Err: err}
	}

	if err := s.cache.DeleteWorkshop(ctx, workshopID); err != nil {
		log.Printf("Failed to invalidate cached workshop %s: %v", workshopID, err)
	}

	return &slide, updated, nil
}

// DeleteWorkshop removes all blobs under the workshop's storage folder
// and then its record. Blobs go first: if blob deletion fails the record
// stays intact so the operation can be retried, instead of orphaning
// blobs behind a deleted record.
func (s *WorkshopService) DeleteWorkshop(ctx context.Context, id string) (*MessageResponse, error) {
	workshop, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &StorageError{Op: "get workshop", Err: err}
	}

	keys, truncated, err := s.blobs.ListKeys(ctx, workshop.StorageFolder+"/")
	if err != nil {
		return nil, &StorageError{Op: "list workshop blobs", Err: err}
	}

	if len(keys) > 0 {
		if err := s.blobs.DeleteKeys(ctx, keys); err != nil {
			return nil, &StorageError{Op: "delete workshop blobs", Err: err}
		}
	}

	if truncated {
		// Non-fatal: the remaining objects stay behind for operator cleanup
		log.Printf("Warning: blob listing for workshop %s was truncated, not all objects were removed", id)
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, &StorageError{Op: "delete workshop record", Err: err}
	}

	if err := s.cache.DeleteWorkshop(ctx, id); err != nil {
		log.Printf("Failed to invalidate cached workshop %s: %v", id, err)
	}

	return &MessageResponse{Message: fmt.Sprintf("Workshop %s deleted", id)}, nil
}
