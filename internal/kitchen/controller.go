package kitchen

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"expo/internal/domain"
	"expo/internal/dto"
	apperrors "expo/internal/errors"
	"expo/internal/notify"
	"expo/internal/projection"
)

// Commands is the slice of the dispatcher the kitchen endpoints use.
type Commands interface {
	Accept(ctx context.Context, orderID string) (*domain.Order, error)
	StartPreparation(ctx context.Context, orderID string) (*domain.Order, error)
	MarkReady(ctx context.Context, orderID string) (*domain.Order, error)
	ChangePriority(ctx context.Context, orderID string, p domain.Priority) (*domain.Order, error)
	SetKitchenNotes(ctx context.Context, orderID, notes string) (*domain.Order, error)
}

type Controller struct {
	service  *Service
	commands Commands
	notices  *notify.Center
	logger   *zap.Logger
	now      func() time.Time
}

func NewController(service *Service, commands Commands, notices *notify.Center, logger *zap.Logger) *Controller {
	return &Controller{
		service:  service,
		commands: commands,
		notices:  notices,
		logger:   logger,
		now:      time.Now,
	}
}

func (c *Controller) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/orders", c.ListOrders)
	r.Get("/orders/{orderId}", c.GetOrder)
	r.Get("/counts", c.Counts)
	r.Get("/stats", c.Stats)
	r.Get("/notices", c.Notices)
	r.Post("/refresh", c.Refresh)
	r.Put("/orders/{orderId}/accept", c.Accept)
	r.Put("/orders/{orderId}/prepare", c.StartPreparation)
	r.Put("/orders/{orderId}/ready", c.MarkReady)
	r.Put("/orders/{orderId}/priority", c.ChangePriority)
	r.Put("/orders/{orderId}/notes", c.SetKitchenNotes)
	return r
}

// ListOrders serves the projected board. Filtering happens here, on the
// mirrored snapshot; the upstream fetch is always unfiltered.
func (c *Controller) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	status := r.URL.Query().Get("status")
	priority := r.URL.Query().Get("priority")
	view := projection.ViewMode(r.URL.Query().Get("view"))
	if !view.Valid() {
		c.writeValidationError(w, traceID, "invalid view", apperrors.ValidationDetail{
			Field:   "view",
			Message: "view must be all, new or ready",
		})
		return
	}

	orders := c.service.Store().Orders()
	orders = projection.ByStatus(orders, status)
	orders = projection.ByPriority(orders, priority)
	orders = projection.ByView(orders, view)

	c.writeJSON(w, http.StatusOK, dto.NewOrderViews(orders, c.now()))
}

func (c *Controller) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	o, ok := c.service.Store().Get(orderID)
	if !ok {
		c.writeError(w, uuid.New().String(), http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	c.writeJSON(w, http.StatusOK, dto.NewOrderView(o, c.now()))
}

func (c *Controller) Counts(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, projection.CountByStatus(c.service.Store().Orders()))
}

func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	if raw := c.service.PushedStats(); raw != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(raw); err != nil {
			c.logger.Error("failed to write response", zap.Error(err))
		}
		return
	}
	c.writeJSON(w, http.StatusOK, projection.Stats(c.service.Store().Orders(), c.now()))
}

func (c *Controller) Notices(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, c.notices.Recent())
}

// Refresh forces a full reconciliation against the upstream list.
func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	if err := c.service.Refresh(r.Context()); err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]int{"orders": c.service.Store().Len()})
}

func (c *Controller) Accept(w http.ResponseWriter, r *http.Request) {
	c.runCommand(w, r, c.commands.Accept)
}

func (c *Controller) StartPreparation(w http.ResponseWriter, r *http.Request) {
	c.runCommand(w, r, c.commands.StartPreparation)
}

func (c *Controller) MarkReady(w http.ResponseWriter, r *http.Request) {
	c.runCommand(w, r, c.commands.MarkReady)
}

func (c *Controller) ChangePriority(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")

	var req dto.ChangePriorityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	o, err := c.commands.ChangePriority(r.Context(), orderID, req.Priority)
	if err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusOK, dto.NewOrderView(*o, c.now()))
}

func (c *Controller) SetKitchenNotes(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")

	var req dto.KitchenNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	o, err := c.commands.SetKitchenNotes(r.Context(), orderID, req.KitchenNotes)
	if err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusOK, dto.NewOrderView(*o, c.now()))
}

func (c *Controller) runCommand(w http.ResponseWriter, r *http.Request, cmd func(context.Context, string) (*domain.Order, error)) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")

	o, err := cmd(r.Context(), orderID)
	if err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusOK, dto.NewOrderView(*o, c.now()))
}

func (c *Controller) handleCommandError(w http.ResponseWriter, traceID string, err error) {
	logger := c.logger.With(zap.String("traceId", traceID))

	if ve, ok := apperrors.IsValidationError(err); ok {
		logger.Warn("command rejected", zap.Error(err))
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if _, ok := apperrors.IsUnavailableError(err); ok {
		logger.Warn("upstream unavailable", zap.Error(err))
		c.writeError(w, traceID, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Controller) writeError(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, errorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

type validationErrorResponse struct {
	TraceID string                       `json:"traceId"`
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, traceID string, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		TraceID: traceID,
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
