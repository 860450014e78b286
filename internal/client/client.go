// Package client provides an HTTP client for the recipebox server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/raphaelgruber/recipebox/internal/imaging"
	"github.com/raphaelgruber/recipebox/internal/models"
	"github.com/raphaelgruber/recipebox/internal/server"
	"github.com/raphaelgruber/recipebox/internal/service"
)

// Client talks to a recipebox-server instance.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses RECIPEBOX_SERVER_URL env var or defaults to localhost:8585.
// Timeout can be configured via RECIPEBOX_CLIENT_TIMEOUT env var (default 1m for image uploads).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("RECIPEBOX_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "http://localhost:8585"
	}

	timeout := time.Minute
	if t := os.Getenv("RECIPEBOX_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return NewWithHTTPClient(endpoint, &http.Client{Timeout: timeout})
}

// NewWithHTTPClient creates a client using hc for all requests.
func NewWithHTTPClient(endpoint string, hc *http.Client) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: hc,
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %d %s - %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap maps well-known statuses back to the service sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return service.ErrNotFound
	case http.StatusConflict:
		return service.ErrSaveInProgress
	}
	return nil
}

// do sends a request and decodes a JSON response into result (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var errResp server.ErrorResponse
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, "", nil)
}

// List returns the filtered, sorted view.
func (c *Client) List(ctx context.Context, term string, mode service.SortMode) (*server.ListResponse, error) {
	q := url.Values{}
	if term != "" {
		q.Set("q", term)
	}
	if mode != service.SortNone {
		q.Set("sort", string(mode))
	}
	path := "/recipes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp server.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, "", &resp); err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return &resp, nil
}

// Get returns the recipe with the given id (its created timestamp).
func (c *Client) Get(ctx context.Context, id int64) (*server.RecipeItem, error) {
	var item server.RecipeItem
	if err := c.do(ctx, http.MethodGet, recipePath(id), nil, "", &item); err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return &item, nil
}

// Create uploads a new recipe with its images.
func (c *Client) Create(ctx context.Context, form models.FormData, images []imaging.Source) (*server.RecipeItem, error) {
	return c.save(ctx, http.MethodPost, "/recipes", form, images, false)
}

// Update replaces the recipe with the given id. Existing images are kept
// unless new ones are given or clearImages is set.
func (c *Client) Update(ctx context.Context, id int64, form models.FormData, images []imaging.Source, clearImages bool) (*server.RecipeItem, error) {
	return c.save(ctx, http.MethodPut, recipePath(id), form, images, clearImages)
}

func (c *Client) save(ctx context.Context, method, path string, form models.FormData, images []imaging.Source, clearImages bool) (*server.RecipeItem, error) {
	body, contentType, err := encodeForm(form, images, clearImages)
	if err != nil {
		return nil, err
	}

	var item server.RecipeItem
	if err := c.do(ctx, method, path, body, contentType, &item); err != nil {
		return nil, fmt.Errorf("save recipe: %w", err)
	}
	return &item, nil
}

// MarkCooked increments the cooked counter of the recipe with the given id.
func (c *Client) MarkCooked(ctx context.Context, id int64) (*server.RecipeItem, error) {
	var item server.RecipeItem
	if err := c.do(ctx, http.MethodPost, recipePath(id)+"/cooked", nil, "", &item); err != nil {
		return nil, fmt.Errorf("mark cooked: %w", err)
	}
	return &item, nil
}

// Delete removes the recipe with the given id. The caller must have
// confirmed with the user.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, recipePath(id)+"?confirm=true", nil, "", nil); err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return nil
}

// Stats returns collection totals and server runtime statistics.
func (c *Client) Stats(ctx context.Context) (*server.StatsResponse, error) {
	var stats server.StatsResponse
	if err := c.do(ctx, http.MethodGet, "/stats", nil, "", &stats); err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &stats, nil
}

func recipePath(id int64) string {
	return "/recipes/" + strconv.FormatInt(id, 10)
}

// encodeForm writes the multipart body of a save request.
func encodeForm(form models.FormData, images []imaging.Source, clearImages bool) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"title", form.Title},
		{"rating", form.Rating},
		{"ingredients", form.Ingredients},
		{"tags", form.Tags},
		{"steps", form.Steps},
	}
	if clearImages {
		fields = append(fields, [2]string{"clearImages", "true"})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", f[0], err)
		}
	}

	for _, src := range images {
		if err := writeImagePart(mw, src); err != nil {
			return nil, "", err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

func writeImagePart(mw *multipart.Writer, src imaging.Source) error {
	rc, err := src.Open()
	if err != nil {
		return &imaging.ImageReadError{Name: src.Name(), Err: err}
	}
	defer rc.Close()

	part, err := mw.CreateFormFile("images", src.Name())
	if err != nil {
		return fmt.Errorf("create image part: %w", err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return &imaging.ImageReadError{Name: src.Name(), Err: err}
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
