package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nosh-kitchen/nosh-backend/internal/dish"
)

// APIClient issues commands against the dish REST API.
type APIClient struct {
	BaseURL string
	HTTP    *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status  int
	Message string
	Errors  []dish.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Count   int               `json:"count"`
	Data    json.RawMessage   `json:"data"`
	Errors  []dish.FieldError `json:"errors"`
}

func (c *APIClient) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success {
		return nil, &APIError{Status: res.StatusCode, Message: env.Message, Errors: env.Errors}
	}
	return &env, nil
}

// ListDishes fetches the full catalog, server-side default ordering.
func (c *APIClient) ListDishes(ctx context.Context) ([]*dish.Dish, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/dishes", nil)
	if err != nil {
		return nil, err
	}
	var out []*dish.Dish
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TogglePublished flips the dish on the server and returns the confirmed
// record. The server performs the negation; no target value is sent.
func (c *APIClient) TogglePublished(ctx context.Context, dishID string) (*dish.Dish, error) {
	env, err := c.do(ctx, http.MethodPatch, "/api/dishes/"+dishID+"/toggle-published", nil)
	if err != nil {
		return nil, err
	}
	var d dish.Dish
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
