package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/swiftcart/apiserver/internal/services"
	"github.com/swiftcart/apiserver/internal/store"
	"github.com/swiftcart/apiserver/types"
)

// OrderHandler provides HTTP handlers for orders.
type OrderHandler struct {
	orderService  *services.OrderService
	userService   *services.UserService
	exportService *services.ExportService
}

// NewOrderHandler constructs a handler with the provided services.
// exportService may be nil when no storage backend is configured.
func NewOrderHandler(
	orderService *services.OrderService,
	userService *services.UserService,
	exportService *services.ExportService,
) *OrderHandler {
	return &OrderHandler{
		orderService:  orderService,
		userService:   userService,
		exportService: exportService,
	}
}

// OrderRouter registers order routes on the given router. All routes
// require a valid bearer token.
func OrderRouter(
	r chi.Router,
	orderService *services.OrderService,
	userService *services.UserService,
	exportService *services.ExportService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewOrderHandler(orderService, userService, exportService)

	r.Use(authMiddleware)
	r.Get("/", handler.Hello)
	r.Post("/order", handler.PlaceOrder)
	r.With(handler.requireStaff).Get("/orders", handler.ListOrders)
	r.With(handler.requireStaff).Get("/order/{orderID}", handler.GetOrder)
	r.Get("/user/orders", handler.ListOwnOrders)
	r.Get("/user/order/{orderID}", handler.GetOwnOrder)
	r.Put("/order/update/{orderID}", handler.UpdateOrder)
	r.With(handler.requireStaff).Patch("/order/update/{orderID}", handler.UpdateOrderStatus)
	r.Delete("/order/delete/{orderID}", handler.DeleteOrder)
	r.With(handler.requireStaff).Post("/export", handler.ExportOrders)
}

// Hello confirms the order routes are reachable.
func (h *OrderHandler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "hello orders"})
}

// PlaceOrder creates a new order owned by the caller.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	order, err := h.orderService.Place(r.Context(), account.ID, req.Quantity, req.Size)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuantity) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to place order")
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// ListOrders returns every order in the system. Staff only.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOrder returns any order by id. Staff only.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// ListOwnOrders returns the caller's orders.
func (h *OrderHandler) ListOwnOrders(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOwn(r.Context(), account.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// GetOwnOrder returns one of the caller's orders by id. Orders owned by
// other accounts are indistinguishable from missing ones.
func (h *OrderHandler) GetOwnOrder(w http.ResponseWriter, r *http.Request) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return
	}

	id, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.GetOwn(r.Context(), id, account.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateOrder changes the quantity and size of an order. Owner or staff.
func (h *OrderHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizeOwnerOrStaff(w, r)
	if !ok {
		return
	}

	var req OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.Size.Valid() {
		writeError(w, http.StatusBadRequest, "invalid order size")
		return
	}

	updated, err := h.orderService.UpdateDetails(r.Context(), order.ID, req.Quantity, req.Size)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// UpdateOrderStatus moves an order's status forward. Staff only.
func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req OrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid order status")
		return
	}

	updated, err := h.orderService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, store.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "order status cannot move backwards")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteOrder removes an order. Owner or staff.
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.authorizeOwnerOrStaff(w, r)
	if !ok {
		return
	}

	if err := h.orderService.Delete(r.Context(), order); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportOrders writes a snapshot of all orders to object storage. Staff
// only.
func (h *OrderHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	if h.exportService == nil {
		writeError(w, http.StatusServiceUnavailable, "export storage not configured")
		return
	}

	result, err := h.exportService.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export orders")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type OrderRequest struct {
	Quantity int             `json:"quantity"`
	Size     types.OrderSize `json:"order_size"`
}

type OrderStatusRequest struct {
	Status types.OrderStatus `json:"order_status"`
}

func parseOrderID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid order id")
	}
	return id, nil
}

// currentAccount re-fetches the caller's account record by token subject.
// The token claim alone is never trusted for role or ownership decisions.
func (h *OrderHandler) currentAccount(w http.ResponseWriter, r *http.Request) (types.User, bool) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.User{}, false
	}

	account, err := h.userService.GetByUsername(r.Context(), identity.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return types.User{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to load user")
		return types.User{}, false
	}
	return account, true
}

// authorizeOwnerOrStaff loads the order from the path and allows the
// request through when the caller owns it or is staff.
func (h *OrderHandler) authorizeOwnerOrStaff(w http.ResponseWriter, r *http.Request) (types.Order, bool) {
	account, ok := h.currentAccount(w, r)
	if !ok {
		return types.Order{}, false
	}

	id, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.Order{}, false
	}

	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return types.Order{}, false
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return types.Order{}, false
	}

	if !account.IsStaff && order.UserID != account.ID {
		writeError(w, http.StatusForbidden, "not the order owner")
		return types.Order{}, false
	}
	return order, true
}

func (h *OrderHandler) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account, ok := h.currentAccount(w, r)
		if !ok {
			return
		}

		if !account.IsStaff {
			writeError(w, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
