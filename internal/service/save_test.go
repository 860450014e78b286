package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/models"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// stubEncoder returns one fixed data URL per source, or err.
type stubEncoder struct {
	err   error
	block chan struct{}
	calls int
}

func (e *stubEncoder) EncodeAll(_ context.Context, sources []imaging.Source) ([]string, error) {
	e.calls++
	if e.block != nil {
		<-e.block
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = "data:image/jpeg;base64," + s.Name()
	}
	return out, nil
}

type namedSource string

func (n namedSource) Name() string                 { return string(n) }
func (n namedSource) Open() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("")), nil }

func form(title, rating string) models.FormData {
	return models.FormData{
		Title:       title,
		Rating:      rating,
		Ingredients: "rice\n\n  \nwater\r\n",
		Tags:        "japanese, , quick ",
		Steps:       "boil",
	}
}

func TestSaveCreates(t *testing.T) {
	s := newTestStore(t, nil)
	saver := NewSaver(s, &stubEncoder{}, nil, nil)

	res, err := saver.Save(context.Background(), SaveRequest{
		Form:   form("  Rice  ", "3.7"),
		Images: []imaging.Source{namedSource("a"), namedSource("b")},
	})
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, 0, res.Index)

	got, _ := s.Get(0)
	assert.Equal(t, "Rice", got.Title)
	assert.Equal(t, []string{"rice", "water"}, got.Ingredients)
	assert.Equal(t, []string{"japanese", "quick"}, got.Tags)
	assert.Equal(t, 3.7, got.Rating)
	assert.Equal(t, []string{"data:image/jpeg;base64,a", "data:image/jpeg;base64,b"}, got.Images)
	assert.False(t, saver.Busy())
}

func TestSaveImageFailureLeavesCollectionUnchanged(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, draft("existing", 2))
	require.NoError(t, err)
	before := s.Recipes()

	readErr := &imaging.ImageReadError{Name: "broken.jpg", Err: errors.New("unexpected EOF")}
	saver := NewSaver(s, &stubEncoder{err: readErr}, nil, nil)

	// Create path.
	_, err = saver.Save(ctx, SaveRequest{
		Form:   form("new", "1"),
		Images: []imaging.Source{namedSource("ok.jpg"), namedSource("broken.jpg")},
	})
	var got *imaging.ImageReadError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "broken.jpg", got.Name)
	assert.Equal(t, before, s.Recipes())

	// Update path.
	idx := 0
	_, err = saver.Save(ctx, SaveRequest{
		Form:   form("edited", "5"),
		Images: []imaging.Source{namedSource("broken.jpg")},
		Index:  &idx,
	})
	require.Error(t, err)
	assert.Equal(t, before, s.Recipes())
	assert.False(t, saver.Busy(), "guard released on failure")
}

func TestSaveInvalidRating(t *testing.T) {
	s := newTestStore(t, nil)
	enc := &stubEncoder{}
	saver := NewSaver(s, enc, nil, nil)

	_, err := saver.Save(context.Background(), SaveRequest{
		Form:   form("x", "five"),
		Images: []imaging.Source{namedSource("a")},
	})
	assert.ErrorIs(t, err, models.ErrInvalidRating)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, enc.calls, "images are not encoded for a rejected form")
}

func TestSaveUpdatesEditTarget(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	withImg := draft("old", 1)
	withImg.Images = []string{"data:image/jpeg;base64,OLD"}
	orig, err := s.Create(ctx, withImg)
	require.NoError(t, err)
	_, err = s.MarkCooked(ctx, 0)
	require.NoError(t, err)

	require.True(t, s.BeginEdit(0))
	saver := NewSaver(s, &stubEncoder{}, nil, nil)

	res, err := saver.Save(ctx, SaveRequest{Form: form("new", "4")})
	require.NoError(t, err)
	assert.True(t, res.Updated)

	got, _ := s.Get(0)
	assert.Equal(t, "new", got.Title)
	assert.Equal(t, orig.Created, got.Created)
	assert.Equal(t, orig.FormattedDate, got.FormattedDate)
	assert.Equal(t, 1, got.CookedCount)
	assert.Equal(t, []string{"data:image/jpeg;base64,OLD"}, got.Images, "images kept when none supplied")

	_, editing := s.EditTarget()
	assert.False(t, editing, "edit target cleared after save")
	assert.Equal(t, 1, s.Len())
}

func TestSaveImageReplacementAndClearing(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		req    SaveRequest
		images []string
	}{
		{
			name:   "new images replace old",
			req:    SaveRequest{Form: form("x", ""), Images: []imaging.Source{namedSource("NEW")}},
			images: []string{"data:image/jpeg;base64,NEW"},
		},
		{
			name:   "clear without new images",
			req:    SaveRequest{Form: form("x", ""), ClearImages: true},
			images: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, nil)
			d := draft("x", 1)
			d.Images = []string{"data:image/jpeg;base64,OLD"}
			_, err := s.Create(ctx, d)
			require.NoError(t, err)

			idx := 0
			tt.req.Index = &idx
			_, err = NewSaver(s, &stubEncoder{}, nil, nil).Save(ctx, tt.req)
			require.NoError(t, err)

			got, _ := s.Get(0)
			assert.Equal(t, tt.images, got.Images)
		})
	}
}

func TestSaveMissingTarget(t *testing.T) {
	s := newTestStore(t, nil)
	idx := 3
	res, err := NewSaver(s, &stubEncoder{}, nil, nil).Save(context.Background(), SaveRequest{
		Form:  form("x", "1"),
		Index: &idx,
	})
	require.NoError(t, err)
	assert.True(t, res.Missing)
	assert.Equal(t, 0, s.Len())
}

func TestSaveAfterEditTargetDeleted(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, draft("keep", 1))
	require.NoError(t, err)
	_, err = s.Create(ctx, draft("doomed", 2))
	require.NoError(t, err)

	require.True(t, s.BeginEdit(0))
	_, err = s.Delete(ctx, 0)
	require.NoError(t, err)

	res, err := NewSaver(s, &stubEncoder{}, nil, nil).Save(ctx, SaveRequest{Form: form("edit of deleted", "4")})
	require.NoError(t, err)
	assert.True(t, res.Missing)
	assert.False(t, res.Updated)

	require.Equal(t, 1, s.Len(), "no record created in place of the deleted one")
	got, _ := s.Get(0)
	assert.Equal(t, "keep", got.Title)

	_, editing := s.EditTarget()
	assert.False(t, editing, "edit target cleared once reported missing")
}

func TestSaveByIDFollowsIdentity(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	target, err := s.Create(ctx, draft("target", 1))
	require.NoError(t, err)
	_, err = s.Create(ctx, draft("newcomer", 1))
	require.NoError(t, err)

	res, err := NewSaver(s, &stubEncoder{}, nil, nil).Save(ctx, SaveRequest{
		Form: form("renamed", "5"),
		ID:   target.Created,
	})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, target.Created, res.Recipe.Created)

	first, _ := s.Get(0)
	assert.Equal(t, "newcomer", first.Title)
}

func TestSaveRejectsReentrantSubmission(t *testing.T) {
	s := newTestStore(t, nil)
	enc := &stubEncoder{block: make(chan struct{})}
	saver := NewSaver(s, enc, nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := saver.Save(ctx, SaveRequest{Form: form("slow", "1"), Images: []imaging.Source{namedSource("a")}})
		assert.NoError(t, err)
	}()

	require.Eventually(t, saver.Busy, timeout, tick)

	_, err := saver.Save(ctx, SaveRequest{Form: form("second", "1")})
	assert.ErrorIs(t, err, ErrSaveInProgress)

	close(enc.block)
	wg.Wait()

	assert.False(t, saver.Busy())
	assert.Equal(t, 1, s.Len())
}

func TestSavePersistenceError(t *testing.T) {
	kv := db.NewMemoryKV()
	s := newTestStore(t, kv)
	kv.FailWrites = db.ErrQuotaExceeded

	saver := NewSaver(s, &stubEncoder{}, nil, nil)
	_, err := saver.Save(context.Background(), SaveRequest{Form: form("x", "1")})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, 1, s.Len())
	assert.Contains(t, UserMessage(err), "could not be saved")
	assert.False(t, saver.Busy())
}

func TestConfirmDelete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		answer      bool
		answerErr   error
		wantDeleted bool
		wantErr     bool
	}{
		{name: "confirmed", answer: true, wantDeleted: true},
		{name: "declined", answer: false},
		{name: "prompt failed", answerErr: errors.New("no tty"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, nil)
			_, err := s.Create(ctx, draft("Gyoza", 3))
			require.NoError(t, err)

			var asked string
			confirmer := ConfirmFunc(func(msg string) (bool, error) {
				asked = msg
				return tt.answer, tt.answerErr
			})

			deleted, err := ConfirmDelete(ctx, s, confirmer, 0)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantDeleted, deleted)
			assert.Equal(t, `Delete "Gyoza"?`, asked)
			if tt.wantDeleted {
				assert.Equal(t, 0, s.Len())
			} else {
				assert.Equal(t, 1, s.Len())
			}
		})
	}
}

func TestConfirmDeleteMissing(t *testing.T) {
	s := newTestStore(t, nil)
	_, err := ConfirmDelete(context.Background(), s, ConfirmFunc(func(string) (bool, error) {
		t.Fatal("confirm must not be asked")
		return false, nil
	}), 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmDeleteTargetsAskedRecord(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	_, err := s.Create(ctx, draft("Target", 1))
	require.NoError(t, err)

	// Another writer prepends a record while the question is open.
	confirmer := ConfirmFunc(func(msg string) (bool, error) {
		assert.Equal(t, `Delete "Target"?`, msg)
		_, err := s.Create(ctx, draft("Newcomer", 1))
		require.NoError(t, err)
		return true, nil
	})

	deleted, err := ConfirmDelete(ctx, s, confirmer, 0)
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Equal(t, 1, s.Len())
	remaining, _ := s.Get(0)
	assert.Equal(t, "Newcomer", remaining.Title)
}

func TestConfirmDeleteVanishedWhileAsking(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()
	r, err := s.Create(ctx, draft("Target", 1))
	require.NoError(t, err)

	confirmer := ConfirmFunc(func(string) (bool, error) {
		_, err := s.DeleteByID(ctx, r.Created)
		require.NoError(t, err)
		return true, nil
	})

	deleted, err := ConfirmDeleteID(ctx, s, confirmer, r.Created)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, deleted)
}

func TestUserMessage(t *testing.T) {
	assert.Contains(t, UserMessage(&imaging.ImageReadError{Name: "x.png", Err: io.EOF}), "oversized or corrupt")
	assert.Contains(t, UserMessage(models.ErrInvalidRating), "between 0 and 5")
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
}
