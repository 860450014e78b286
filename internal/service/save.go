package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/models"
)

// ErrSaveInProgress is returned when a save is submitted while another one
// is still running.
var ErrSaveInProgress = errors.New("a save is already in progress")

// Encoder turns image sources into inline encodings.
type Encoder interface {
	EncodeAll(ctx context.Context, sources []imaging.Source) ([]string, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(message string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(message string) (bool, error) { return f(message) }

// SaveRequest is one submission of the create/edit form.
type SaveRequest struct {
	Form   models.FormData
	Images []imaging.Source

	// ID addresses the record to update by identity. It takes precedence
	// over Index.
	ID int64

	// Index addresses the record to update by position. Nil (and a zero ID)
	// means the store's current edit target, or a new record when there is
	// none.
	Index *int

	// ClearImages removes existing images on update when no new ones are
	// supplied.
	ClearImages bool
}

// SaveResult describes what a save did.
type SaveResult struct {
	Recipe  models.Recipe
	Index   int
	Updated bool
	// Missing is set when the addressed record no longer exists; nothing
	// was written.
	Missing bool
}

// Saver runs the save flow: parse the form, encode images, then create or
// update a record. Only one save runs at a time.
type Saver struct {
	store   *RecipeStore
	encoder Encoder
	logger  *slog.Logger
	metrics *metrics.Collector

	inFlight atomic.Bool
}

// NewSaver creates a Saver writing to store.
func NewSaver(store *RecipeStore, encoder Encoder, logger *slog.Logger, m *metrics.Collector) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{store: store, encoder: encoder, logger: logger, metrics: m}
}

// Busy reports whether a save is running.
func (s *Saver) Busy() bool {
	return s.inFlight.Load()
}

// Save validates and applies req. Rating or image failures return before the
// collection is touched. A *PersistenceError means the collection changed in
// memory but could not be written.
func (s *Saver) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return SaveResult{}, ErrSaveInProgress
	}
	defer s.inFlight.Store(false)

	draft, err := models.ParseDraft(req.Form)
	if err != nil {
		return SaveResult{}, fmt.Errorf("parse form: %w", err)
	}

	images, err := s.encode(ctx, req.Images)
	if err != nil {
		return SaveResult{}, err
	}
	draft.Images = images

	created, editing, fromEdit := s.target(req)
	if !editing {
		r, err := s.store.Create(ctx, draft)
		return SaveResult{Recipe: r, Index: 0}, err
	}

	draft.KeepImages = len(images) == 0 && !req.ClearImages
	index, ok, err := s.store.UpdateByID(ctx, created, draft)
	if fromEdit {
		s.store.CancelEdit()
	}
	if !ok {
		s.logger.Warn("edit target no longer exists", "created", created)
		return SaveResult{Index: -1, Missing: true}, nil
	}

	r, _ := s.store.Get(index)
	return SaveResult{Recipe: r, Index: index, Updated: true}, err
}

// target resolves the identity a save updates. editing is false for a new
// record; fromEdit reports that the store's edit target was used.
func (s *Saver) target(req SaveRequest) (created int64, editing, fromEdit bool) {
	switch {
	case req.ID != 0:
		return req.ID, true, false
	case req.Index != nil:
		r, ok := s.store.Get(*req.Index)
		if !ok {
			// No record has a negative timestamp.
			return -1, true, false
		}
		return r.Created, true, false
	}
	created, editing = s.store.editID()
	return created, editing, editing
}

func (s *Saver) encode(ctx context.Context, sources []imaging.Source) ([]string, error) {
	if len(sources) == 0 {
		return []string{}, nil
	}

	start := time.Now()
	images, err := s.encoder.EncodeAll(ctx, sources)
	s.metrics.Record(metrics.OpImageEncode, time.Since(start), int64(len(sources)), err)
	if err != nil {
		return nil, err
	}
	return images, nil
}

// DeleteMessage is the confirmation question for deleting r.
func DeleteMessage(r models.Recipe) string {
	return fmt.Sprintf("Delete %q?", r.Title)
}

// ConfirmDelete asks confirmer before deleting the record at index. It
// reports whether the record was removed. The record asked about is the one
// deleted, even if the collection shifts while the question is open.
func ConfirmDelete(ctx context.Context, store *RecipeStore, confirmer Confirmer, index int) (bool, error) {
	r, ok := store.Get(index)
	if !ok {
		return false, ErrNotFound
	}
	return confirmDelete(ctx, store, confirmer, r)
}

// ConfirmDeleteID is ConfirmDelete addressed by identity.
func ConfirmDeleteID(ctx context.Context, store *RecipeStore, confirmer Confirmer, created int64) (bool, error) {
	r, _, ok := store.Find(created)
	if !ok {
		return false, ErrNotFound
	}
	return confirmDelete(ctx, store, confirmer, r)
}

func confirmDelete(ctx context.Context, store *RecipeStore, confirmer Confirmer, r models.Recipe) (bool, error) {
	yes, err := confirmer.Confirm(DeleteMessage(r))
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !yes {
		return false, nil
	}

	deleted, err := store.DeleteByID(ctx, r.Created)
	if !deleted && err == nil {
		return false, ErrNotFound
	}
	return deleted, err
}

// UserMessage turns a save error into the text shown to the user.
func UserMessage(err error) string {
	var readErr *imaging.ImageReadError
	var persistErr *PersistenceError
	switch {
	case errors.As(err, &readErr):
		return fmt.Sprintf("Image %q could not be read. It may be oversized or corrupt.", readErr.Name)
	case errors.As(err, &persistErr):
		return "The recipe is kept for this session but could not be saved. Storage may be full (large images?)."
	case errors.Is(err, models.ErrInvalidRating):
		return "Rating must be a number between 0 and 5."
	case errors.Is(err, ErrSaveInProgress):
		return "A save is already in progress."
	}
	return err.Error()
}
