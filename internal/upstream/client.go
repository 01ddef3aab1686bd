// Package upstream is the REST client for the order-management service.
// The sync layer reads full order state from here and sends kitchen
// transitions through it; every response carries the server-authoritative
// order, which flows back into views only via the push channel or an
// explicit refetch.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"expo/internal/domain"
	apperrors "expo/internal/errors"
)

type Config struct {
	BaseURL string
	// Timeout bounds each request so a stalled upstream cannot hang a
	// command indefinitely.
	Timeout time.Duration
}

type Client struct {
	base    string
	timeout time.Duration
	http    *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:    cfg.BaseURL,
		timeout: timeout,
		http:    &http.Client{},
		logger:  logger,
	}
}

// Filters narrows a fetch server-side. Zero values mean unfiltered.
type Filters struct {
	Status   string
	Priority string
	WaiterID string
}

// FetchOrders retrieves the order list, optionally filtered.
func (c *Client) FetchOrders(ctx context.Context, f Filters) ([]domain.Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Priority != "" {
		q.Set("priority", f.Priority)
	}
	if f.WaiterID != "" {
		q.Set("waiter", f.WaiterID)
	}
	path := "/api/kitchen/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var orders []domain.Order
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Accept moves an order to the accepted status.
func (c *Client) Accept(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.transition(ctx, orderID, "accept")
}

// StartPreparation moves an order into preparation.
func (c *Client) StartPreparation(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.transition(ctx, orderID, "prepare")
}

// MarkReady moves an order to ready for delivery.
func (c *Client) MarkReady(ctx context.Context, orderID string) (*domain.Order, error) {
	return c.transition(ctx, orderID, "ready")
}

func (c *Client) transition(ctx context.Context, orderID, action string) (*domain.Order, error) {
	var o domain.Order
	path := fmt.Sprintf("/api/kitchen/orders/%s/%s", url.PathEscape(orderID), action)
	if err := c.do(ctx, http.MethodPut, path, nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ChangePriority updates an order's priority.
func (c *Client) ChangePriority(ctx context.Context, orderID string, p domain.Priority) (*domain.Order, error) {
	var o domain.Order
	path := fmt.Sprintf("/api/kitchen/orders/%s/priority", url.PathEscape(orderID))
	body := map[string]domain.Priority{"priority": p}
	if err := c.do(ctx, http.MethodPut, path, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// SetKitchenNotes replaces an order's kitchen notes.
func (c *Client) SetKitchenNotes(ctx context.Context, orderID, notes string) (*domain.Order, error) {
	var o domain.Order
	path := fmt.Sprintf("/api/kitchen/orders/%s/notes", url.PathEscape(orderID))
	body := map[string]string{"kitchenNotes": notes}
	if err := c.do(ctx, http.MethodPut, path, body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// FetchActiveWaiters retrieves the currently active staff roster.
func (c *Client) FetchActiveWaiters(ctx context.Context) ([]domain.Waiter, error) {
	var ws []domain.Waiter
	if err := c.do(ctx, http.MethodGet, "/api/waiters/active", nil, &ws); err != nil {
		return nil, err
	}
	return ws, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("encoding request body", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return apperrors.NewInternalError("building request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("upstream request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return apperrors.NewUnavailableError("order service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.asError(resp, method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewInternalError("decoding upstream response", err)
	}
	return nil
}

func (c *Client) asError(resp *http.Response, method, path string) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = resp.Status
	}

	c.logger.Warn("upstream rejected request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("error", msg))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NewNotFoundError(msg)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return apperrors.NewValidationError(msg)
	case resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusGatewayTimeout:
		return apperrors.NewUnavailableError(msg, nil)
	default:
		return apperrors.NewInternalError(fmt.Sprintf("upstream returned %d", resp.StatusCode), fmt.Errorf("%s", msg))
	}
}
