// Package service holds the recipe collection and the operations on it:
// the store, the view derivation and the save flow.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/models"
)

// DefaultStorageKey is the slot the collection is stored under.
const DefaultStorageKey = "recipes"

// ErrNotFound indicates an index that does not address a record.
var ErrNotFound = errors.New("recipe not found")

// PersistenceError reports that the collection could not be written. The
// in-memory collection still holds the change.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save recipes: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MalformedStorageError reports a stored value that is not a JSON array of
// recipes. It is only produced while loading.
type MalformedStorageError struct {
	Key string
	Err error
}

func (e *MalformedStorageError) Error() string {
	return fmt.Sprintf("malformed storage in %q: %v", e.Key, e.Err)
}

func (e *MalformedStorageError) Unwrap() error { return e.Err }

// StoreOptions configures a RecipeStore. Zero values fall back to defaults.
type StoreOptions struct {
	Key      string
	Location *time.Location
	Locale   string
	Logger   *slog.Logger
	Metrics  *metrics.Collector

	// Now is the clock used for creation timestamps.
	Now func() time.Time
}

// RecipeStore owns the recipe collection and mirrors it to a KV slot after
// every mutation. Positions passed to Update, MarkCooked, Delete and
// BeginEdit are indexes into the unfiltered collection, as carried by
// models.ViewItem.
type RecipeStore struct {
	kv      db.KV
	key     string
	loc     *time.Location
	locale  string
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	mu      sync.RWMutex
	recipes []models.Recipe
	editing int64
	hasEdit bool
}

// NewRecipeStore creates a store and loads the collection from kv. A missing,
// unreadable or malformed slot leaves the collection empty; startup never
// fails because of stored data.
func NewRecipeStore(ctx context.Context, kv db.KV, opts StoreOptions) *RecipeStore {
	s := &RecipeStore{
		kv:      kv,
		key:     opts.Key,
		loc:     opts.Location,
		locale:  opts.Locale,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.key == "" {
		s.key = DefaultStorageKey
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.locale == "" {
		s.locale = DefaultLocale
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.Reload(ctx)
	return s
}

// Load reads and decodes the collection stored under key. It returns an
// empty collection with a nil error when the slot has never been written.
func Load(ctx context.Context, kv db.KV, key string) ([]models.Recipe, error) {
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return []models.Recipe{}, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return []models.Recipe{}, nil
	}

	var recipes []models.Recipe
	if err := json.Unmarshal([]byte(raw), &recipes); err != nil {
		return []models.Recipe{}, &MalformedStorageError{Key: key, Err: err}
	}
	if recipes == nil {
		return []models.Recipe{}, nil
	}
	for i := range recipes {
		normalize(&recipes[i])
	}
	return recipes, nil
}

// normalize fills defaults for fields older records may lack.
func normalize(r *models.Recipe) {
	if r.Ingredients == nil {
		r.Ingredients = []string{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Images == nil {
		r.Images = []string{}
	}
	if r.CookedCount < 0 {
		r.CookedCount = 0
	}
}

// Reload replaces the in-memory collection with what is in storage. Any
// load problem is logged and results in an empty collection. The edit target
// is cleared.
func (s *RecipeStore) Reload(ctx context.Context) {
	recipes, err := Load(ctx, s.kv, s.key)
	if err != nil {
		var malformed *MalformedStorageError
		if errors.As(err, &malformed) {
			s.logger.Warn("stored recipes are malformed, starting empty", "key", s.key, "error", err)
		} else {
			s.logger.Warn("could not read stored recipes, starting empty", "key", s.key, "error", err)
		}
	}

	s.mu.Lock()
	s.recipes = recipes
	s.hasEdit = false
	s.mu.Unlock()

	s.logger.Debug("recipes loaded", "key", s.key, "count", len(recipes))
}

// Create prepends a new record built from draft and persists. The returned
// record carries the assigned identity.
func (s *RecipeStore) Create(ctx context.Context, draft models.Draft) (models.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := s.nextCreated()
	r := draft.Apply(models.Recipe{})
	r.Created = created
	r.FormattedDate = models.FormatDate(created, s.loc)
	r.CookedCount = 0

	s.recipes = append([]models.Recipe{r}, s.recipes...)
	s.logger.Debug("recipe created", "created", created, "title", r.Title)

	return r.Clone(), s.persistLocked(ctx)
}

// nextCreated returns now in ms, bumped past the newest existing timestamp
// so identities stay unique. Caller must hold the write lock.
func (s *RecipeStore) nextCreated() int64 {
	created := s.now().UnixMilli()
	for _, r := range s.recipes {
		if r.Created >= created {
			created = r.Created + 1
		}
	}
	return created
}

// Update overwrites the record at index with draft, keeping its created,
// formattedDate and cookedCount. An index that no longer addresses a record
// is a no-op and reports false.
func (s *RecipeStore) Update(ctx context.Context, index int, draft models.Draft) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validLocked(index) {
		return false, nil
	}
	return true, s.updateLocked(ctx, index, draft)
}

// UpdateByID is Update addressed by identity. It returns the record's
// current index.
func (s *RecipeStore) UpdateByID(ctx context.Context, created int64, draft models.Draft) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := indexOf(s.recipes, created)
	if index < 0 {
		return -1, false, nil
	}
	return index, true, s.updateLocked(ctx, index, draft)
}

func (s *RecipeStore) updateLocked(ctx context.Context, index int, draft models.Draft) error {
	s.recipes[index] = draft.Apply(s.recipes[index])
	s.logger.Debug("recipe updated", "created", s.recipes[index].Created, "index", index)
	return s.persistLocked(ctx)
}

// MarkCooked increments the cooked count of the record at index by one.
func (s *RecipeStore) MarkCooked(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validLocked(index) {
		return false, nil
	}
	return true, s.markCookedLocked(ctx, index)
}

// MarkCookedByID is MarkCooked addressed by identity. It returns the
// record's current index.
func (s *RecipeStore) MarkCookedByID(ctx context.Context, created int64) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := indexOf(s.recipes, created)
	if index < 0 {
		return -1, false, nil
	}
	return index, true, s.markCookedLocked(ctx, index)
}

func (s *RecipeStore) markCookedLocked(ctx context.Context, index int) error {
	s.recipes[index].CookedCount++
	s.logger.Debug("recipe cooked", "created", s.recipes[index].Created, "count", s.recipes[index].CookedCount)
	return s.persistLocked(ctx)
}

// Delete removes the record at index. The caller is responsible for having
// asked the user first. If the record was the edit target, the target stays
// set so a pending edit finds it gone instead of creating a new record.
func (s *RecipeStore) Delete(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validLocked(index) {
		return false, nil
	}
	return true, s.deleteLocked(ctx, index)
}

// DeleteByID is Delete addressed by identity.
func (s *RecipeStore) DeleteByID(ctx context.Context, created int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := indexOf(s.recipes, created)
	if index < 0 {
		return false, nil
	}
	return true, s.deleteLocked(ctx, index)
}

func (s *RecipeStore) deleteLocked(ctx context.Context, index int) error {
	removed := s.recipes[index]
	s.recipes = append(s.recipes[:index:index], s.recipes[index+1:]...)
	s.logger.Debug("recipe deleted", "created", removed.Created, "title", removed.Title)
	return s.persistLocked(ctx)
}

// Import merges records into the collection, keeping their identity.
// Records whose created timestamp already exists are skipped; a zero
// timestamp gets a fresh one that collides with no existing or incoming
// record. The collection stays ordered newest first. It returns the number
// of records added.
func (s *RecipeStore) Import(ctx context.Context, recipes []models.Recipe) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int64]bool, len(s.recipes))
	for _, r := range s.recipes {
		seen[r.Created] = true
	}

	// Fresh timestamps start past every explicit one in the batch.
	var newest int64
	for _, r := range recipes {
		newest = max(newest, r.Created)
	}

	added := 0
	for _, r := range recipes {
		r = r.Clone()
		normalize(&r)
		if r.Created == 0 {
			r.Created = max(s.nextCreated(), newest+1)
			newest = r.Created
		} else if seen[r.Created] {
			s.logger.Debug("import skipped existing recipe", "created", r.Created, "title", r.Title)
			continue
		}
		if r.FormattedDate == "" {
			r.FormattedDate = models.FormatDate(r.Created, s.loc)
		}
		seen[r.Created] = true
		s.recipes = append(s.recipes, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}

	sort.SliceStable(s.recipes, func(i, j int) bool {
		return s.recipes[i].Created > s.recipes[j].Created
	})
	s.logger.Info("recipes imported", "added", added, "skipped", len(recipes)-added)

	return added, s.persistLocked(ctx)
}

// Persist writes the whole collection to storage.
func (s *RecipeStore) Persist(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistLocked(ctx)
}

// persistLocked serializes the collection and writes it with a single Set.
// Caller must hold the lock.
func (s *RecipeStore) persistLocked(ctx context.Context) error {
	start := time.Now()

	data, err := json.Marshal(s.recipes)
	if err != nil {
		s.metrics.Record(metrics.OpPersist, time.Since(start), 0, err)
		return &PersistenceError{Err: fmt.Errorf("encode: %w", err)}
	}

	err = s.kv.Set(ctx, s.key, string(data))
	s.metrics.Record(metrics.OpPersist, time.Since(start), int64(len(data)), err)
	if err != nil {
		s.logger.Error("persist recipes failed", "key", s.key, "bytes", len(data), "error", err)
		return &PersistenceError{Err: err}
	}
	return nil
}

func (s *RecipeStore) validLocked(index int) bool {
	return index >= 0 && index < len(s.recipes)
}

// Recipes returns a copy of the collection in stored order.
func (s *RecipeStore) Recipes() []models.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Recipe, len(s.recipes))
	for i, r := range s.recipes {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of records.
func (s *RecipeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.recipes)
}

// Get returns the record at index.
func (s *RecipeStore) Get(index int) (models.Recipe, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.validLocked(index) {
		return models.Recipe{}, false
	}
	return s.recipes[index].Clone(), true
}

// Find returns the record with the given identity and its current index.
func (s *RecipeStore) Find(created int64) (models.Recipe, int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	index := indexOf(s.recipes, created)
	if index < 0 {
		return models.Recipe{}, -1, false
	}
	return s.recipes[index].Clone(), index, true
}

// IndexOf returns the position of the record with the given identity, or -1.
func (s *RecipeStore) IndexOf(created int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.recipes, created)
}

func indexOf(recipes []models.Recipe, created int64) int {
	for i, r := range recipes {
		if r.Created == created {
			return i
		}
	}
	return -1
}

// BeginEdit makes the record at index the current edit target. The target is
// remembered by identity, so it survives reordering of the collection.
func (s *RecipeStore) BeginEdit(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.validLocked(index) {
		return false
	}
	s.editing = s.recipes[index].Created
	s.hasEdit = true
	return true
}

// EditTarget returns the current index of the record being edited. ok
// reports whether an edit is in progress; the index is -1 when the target
// has been deleted since BeginEdit.
func (s *RecipeStore) EditTarget() (index int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasEdit {
		return -1, false
	}
	return indexOf(s.recipes, s.editing), true
}

// editID returns the identity of the edit target.
func (s *RecipeStore) editID() (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editing, s.hasEdit
}

// CancelEdit clears the edit target.
func (s *RecipeStore) CancelEdit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasEdit = false
}

// View derives the filtered, sorted view of the current collection.
func (s *RecipeStore) View(term string, mode SortMode) []models.ViewItem {
	start := time.Now()
	s.mu.RLock()
	items := View(s.recipes, term, mode, NewCollator(s.locale))
	s.mu.RUnlock()

	s.metrics.Record(metrics.OpView, time.Since(start), int64(len(items)), nil)
	return items
}

// Stats summarizes the collection.
type Stats struct {
	Recipes       int     `json:"recipes"`
	TotalCooked   int     `json:"totalCooked"`
	Rated         int     `json:"rated"`
	AverageRating float64 `json:"averageRating"`
	Images        int     `json:"images"`
}

// Stats returns totals over the whole collection.
func (s *RecipeStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st Stats
	var ratingSum float64
	st.Recipes = len(s.recipes)
	for _, r := range s.recipes {
		st.TotalCooked += r.CookedCount
		st.Images += len(r.Images)
		if r.Rating > 0 {
			st.Rated++
			ratingSum += r.Rating
		}
	}
	if st.Rated > 0 {
		st.AverageRating = ratingSum / float64(st.Rated)
	}
	return st
}
