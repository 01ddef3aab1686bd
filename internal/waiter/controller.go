package waiter

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

// Commands is the slice of the dispatcher the waiter endpoints use. These
// three go out over the push channel, not the REST API.
type Commands interface {
	CreateOrder(req dto.CreateOrderRequest) error
	CancelOrder(orderID string) error
	ChangeOrderStatus(orderID string, status domain.KitchenStatus) error
}

// WaiterDirectory resolves the active staff for the day summary.
type WaiterDirectory interface {
	FetchActiveWaiters(ctx context.Context) ([]domain.Waiter, error)
}

type Controller struct {
	service   *Service
	commands  Commands
	directory WaiterDirectory
	notices   *notify.Center
	logger    *zap.Logger
	now       func() time.Time
}

func NewController(service *Service, commands Commands, directory WaiterDirectory, notices *notify.Center, logger *zap.Logger) *Controller {
	return &Controller{
		service:   service,
		commands:  commands,
		directory: directory,
		notices:   notices,
		logger:    logger,
		now:       time.Now,
	}
}

func (c *Controller) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.ListOrders)
	r.Post("/", c.CreateOrder)
	r.Delete("/{orderId}", c.CancelOrder)
	r.Put("/{orderId}/status", c.ChangeStatus)
	r.Get("/stats", c.Stats)
	r.Get("/notices", c.Notices)
	return r
}

func (c *Controller) ListOrders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	waiterID := r.URL.Query().Get("waiterId")

	orders := c.service.Store().Orders()
	orders = projection.ByStatus(orders, status)
	orders = projection.ByWaiter(orders, waiterID)

	c.writeJSON(w, http.StatusOK, dto.NewOrderViews(orders, c.now()))
}

// CreateOrder validates and emits the order upstream. The response is 202:
// the created order arrives back through the push channel.
func (c *Controller) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.commands.CreateOrder(req); err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusAccepted, map[string]string{"traceId": traceID})
}

func (c *Controller) CancelOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	if err := c.commands.CancelOrder(chi.URLParam(r, "orderId")); err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusAccepted, map[string]string{"traceId": traceID})
}

func (c *Controller) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	orderID := chi.URLParam(r, "orderId")

	var req dto.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := c.commands.ChangeOrderStatus(orderID, req.Status); err != nil {
		c.handleCommandError(w, traceID, err)
		return
	}
	c.writeJSON(w, http.StatusAccepted, map[string]string{"traceId": traceID})
}

// Stats serves the waiter dashboard summary for the current day.
func (c *Controller) Stats(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	now := c.now()

	var ordersToday int
	var salesToday float64
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
	for _, o := range c.service.Store().Orders() {
		if o.CreatedAt.Before(midnight) {
			continue
		}
		ordersToday++
		salesToday += o.Total
	}

	active := 0
	waiters, err := c.directory.FetchActiveWaiters(r.Context())
	if err != nil {
		// The local numbers are still worth serving when the directory
		// lookup fails.
		c.logger.Warn("active waiter lookup failed",
			zap.String("traceId", traceID), zap.Error(err))
	} else {
		active = len(waiters)
	}

	c.writeJSON(w, http.StatusOK, dto.DayStats{
		OrdersToday:   ordersToday,
		SalesToday:    salesToday,
		ActiveWaiters: active,
	})
}

func (c *Controller) Notices(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, c.notices.Recent())
}

func (c *Controller) handleCommandError(w http.ResponseWriter, traceID string, err error) {
	logger := c.logger.With(zap.String("traceId", traceID))

	if ve, ok := apperrors.IsValidationError(err); ok {
		logger.Warn("command rejected", zap.Error(err))
		c.writeValidationError(w, traceID, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsUnavailableError(err); ok {
		logger.Warn("channel unavailable", zap.Error(err))
		c.writeError(w, traceID, http.StatusServiceUnavailable, "CHANNEL_UNAVAILABLE", err.Error())
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
