package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raphaelgruber/recipebox/internal/db"
	"github.com/raphaelgruber/recipebox/internal/format"
	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/service"
)

// RecipeItem is one recipe as returned by the API. ID is the recipe's
// created timestamp and addresses it in later requests. Index is the position
// in the unfiltered collection at response time; it shifts as recipes are
// added or removed.
type RecipeItem struct {
	ID         int64         `json:"id"`
	Index      int           `json:"index"`
	RatingText string        `json:"ratingText"`
	Recipe     models.Recipe `json:"recipe"`
}

// ListResponse is the body of GET /recipes.
type ListResponse struct {
	Items []RecipeItem `json:"items"`
	Total int          `json:"total"`
	Sort  string       `json:"sort"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Collection service.Stats    `json:"collection"`
	Runtime    metrics.Snapshot `json:"runtime"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func newItem(v models.ViewItem) RecipeItem {
	return RecipeItem{
		ID:         v.Recipe.Created,
		Index:      v.Index,
		RatingText: format.Rating(v.Recipe.Rating),
		Recipe:     v.Recipe,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatsResponse{
		Collection: s.store.Stats(),
		Runtime:    s.metrics.Snapshot(),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	mode := service.ParseSortMode(r.URL.Query().Get("sort"))
	view := s.store.View(r.URL.Query().Get("q"), mode)

	items := make([]RecipeItem, len(view))
	for i, v := range view {
		items[i] = newItem(v)
	}
	s.writeJSON(w, http.StatusOK, ListResponse{Items: items, Total: s.store.Len(), Sort: mode.String()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	recipe, index, found := s.store.Find(id)
	if !found {
		s.writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newItem(models.ViewItem{Recipe: recipe, Index: index}))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := s.saveRequest(w, r)
	if !ok {
		return
	}
	res, err := s.saver.Save(r.Context(), req)
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newItem(models.ViewItem{Recipe: res.Recipe, Index: res.Index}))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	req, ok := s.saveRequest(w, r)
	if !ok {
		return
	}
	req.ID = id
	req.ClearImages = r.FormValue("clearImages") == "true"

	res, err := s.saver.Save(r.Context(), req)
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	if res.Missing {
		s.writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, newItem(models.ViewItem{Recipe: res.Recipe, Index: res.Index}))
}

func (s *Server) handleCooked(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	_, found, err := s.store.MarkCookedByID(r.Context(), id)
	if !found {
		s.writeError(w, http.StatusNotFound, service.ErrNotFound.Error())
		return
	}
	if err != nil {
		s.writeSaveError(w, err)
		return
	}
	recipe, index, _ := s.store.Find(id)
	s.writeJSON(w, http.StatusOK, newItem(models.ViewItem{Recipe: recipe, Index: index}))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.idParam(w, r)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	var question string
	confirmer := service.ConfirmFunc(func(msg string) (bool, error) {
		question = msg
		return confirmed, nil
	})

	deleted, err := service.ConfirmDeleteID(r.Context(), s.store, confirmer, id)
	switch {
	case errors.Is(err, service.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case err != nil && !deleted:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	case !deleted:
		s.writeError(w, http.StatusPreconditionRequired, question+" Repeat with confirm=true.")
	case err != nil:
		s.writeSaveError(w, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// saveRequest reads the multipart (or urlencoded) form of a save request.
func (s *Server) saveRequest(w http.ResponseWriter, r *http.Request) (service.SaveRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse form: %v", err))
		return service.SaveRequest{}, false
	}

	req := service.SaveRequest{
		Form: models.FormData{
			Title:       r.FormValue("title"),
			Rating:      r.FormValue("rating"),
			Ingredients: r.FormValue("ingredients"),
			Tags:        r.FormValue("tags"),
			Steps:       r.FormValue("steps"),
		},
	}
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["images"] {
			req.Images = append(req.Images, partSource{fh})
		}
	}
	return req, true
}

// idParam parses the {id} path parameter, writing a 400 on failure.
func (s *Server) idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "id must be a positive integer (the recipe's created timestamp)")
		return 0, false
	}
	return id, true
}

// saveStatus maps a save flow error to its HTTP status.
func saveStatus(err error) int {
	var readErr *imaging.ImageReadError
	var persistErr *service.PersistenceError
	switch {
	case errors.Is(err, service.ErrSaveInProgress):
		return http.StatusConflict
	case errors.As(err, &readErr), errors.Is(err, models.ErrInvalidRating):
		return http.StatusBadRequest
	case errors.As(err, &persistErr) && errors.Is(err, db.ErrQuotaExceeded):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func (s *Server) writeSaveError(w http.ResponseWriter, err error) {
	status := saveStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("save failed", "error", err)
	}
	s.writeError(w, status, service.UserMessage(err))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, ErrorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

// partSource adapts an uploaded file to imaging.Source.
type partSource struct {
	fh *multipart.FileHeader
}

func (p partSource) Name() string { return p.fh.Filename }

func (p partSource) Open() (io.ReadCloser, error) { return p.fh.Open() }
