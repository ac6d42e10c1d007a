// Package httpsvc — HTTP-транспорт сервиса заказов поверх chi.
package httpsvc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/salesorders/internal/domain"
	"github.com/vladislavdragonenkov/salesorders/internal/service/order"
)

type detailPayload struct {
	ID        int64  `json:"id,omitempty"`
	OrderID   int64  `json:"order_id,omitempty"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal,omitempty"`
}

type orderPayload struct {
	Date     time.Time       `json:"date"`
	Customer string          `json:"customer"`
	Details  []detailPayload `json:"details"`
}

type orderResponse struct {
	ID       int64           `json:"id"`
	Date     time.Time       `json:"date"`
	Customer string          `json:"customer"`
	Status   string          `json:"status"`
	Total    string          `json:"total"`
	Details  []detailPayload `json:"details"`
}

type pageResponse struct {
	Items       []orderResponse `json:"items"`
	Page        int             `json:"page"`
	PageSize    int             `json:"page_size"`
	TotalCount  int             `json:"total_count"`
	TotalPages  int             `json:"total_pages"`
	HasPrevious bool            `json:"has_previous"`
	HasNext     bool            `json:"has_next"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// OrderHandler обслуживает REST-маршруты заказов.
type OrderHandler struct {
	service *order.Service
	logger  *log.Entry
}

// NewOrderHandler создаёт HTTP-обработчик заказов.
func NewOrderHandler(service *order.Service, logger *log.Entry) *OrderHandler {
	if logger == nil {
		logger = log.WithField("component", "http")
	}
	return &OrderHandler{service: service, logger: logger}
}

// RegisterRoutes вешает маршруты заказов на роутер. Чтение и создание
// доступны администратору и продавцу, изменение и удаление — только
// администратору.
func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(RequireRole(RoleAdmin, RoleVendor))
		r.Get("/orders", h.handleList)
		r.Post("/orders", h.handleCreate)
		r.Get("/orders/{id}", h.handleGet)
	})
	router.Group(func(r chi.Router) {
		r.Use(RequireRole(RoleAdmin))
		r.Put("/orders/{id}", h.handleUpdate)
		r.Delete("/orders/{id}", h.handleDelete)
	})
}

func (h *OrderHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodeOrderPayload(w, r)
	if !ok {
		return
	}

	details, ok := toDetailInputs(w, payload.Details)
	if !ok {
		return
	}

	created, err := h.service.Create(r.Context(), order.CreateOrderRequest{
		Date:     payload.Date,
		Customer: payload.Customer,
		Details:  details,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	got, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(got))
}

func (h *OrderHandler) handleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := order.ListOrdersRequest{
		Customer: query.Get("customer"),
	}
	if raw := query.Get("page"); raw != "" {
		req.Page, _ = strconv.Atoi(raw)
	}
	if raw := query.Get("page_size"); raw != "" {
		req.PageSize, _ = strconv.Atoi(raw)
	}
	if raw := query.Get("date_from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_from must be RFC3339")
			return
		}
		req.DateFrom = &from
	}
	if raw := query.Get("date_to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date_to must be RFC3339")
			return
		}
		req.DateTo = &to
	}

	result, err := h.service.List(r.Context(), req)
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	items := make([]orderResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, toOrderResponse(item))
	}
	writeJSON(w, http.StatusOK, pageResponse{
		Items:       items,
		Page:        result.Page,
		PageSize:    result.PageSize,
		TotalCount:  result.TotalCount,
		TotalPages:  result.TotalPages,
		HasPrevious: result.HasPrevious,
		HasNext:     result.HasNext,
	})
}

func (h *OrderHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}
	payload, ok := decodeOrderPayload(w, r)
	if !ok {
		return
	}
	details, ok := toDetailInputs(w, payload.Details)
	if !ok {
		return
	}

	updated, err := h.service.Update(r.Context(), order.UpdateOrderRequest{
		ID:       id,
		Date:     payload.Date,
		Customer: payload.Customer,
		Details:  details,
	})
	if err != nil {
		h.writeFault(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

func (h *OrderHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeFault(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) writeFault(w http.ResponseWriter, r *http.Request, err error) {
	if fault, ok := domain.AsFault(err); ok {
		writeError(w, fault.Code, fault.Message)
		return
	}
	h.logger.WithError(err).WithField("request_id", RequestIDFromContext(r.Context())).
		Error("unclassified handler error")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeOrderPayload(w http.ResponseWriter, r *http.Request) (orderPayload, bool) {
	var payload orderPayload
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return orderPayload{}, false
	}
	return payload, true
}

func toDetailInputs(w http.ResponseWriter, payloads []detailPayload) ([]order.DetailInput, bool) {
	details := make([]order.DetailInput, 0, len(payloads))
	for i, p := range payloads {
		price, err := decimal.NewFromString(p.UnitPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, "detail "+strconv.Itoa(i+1)+": unit_price must be a decimal string")
			return nil, false
		}
		details = append(details, order.DetailInput{
			ID:        p.ID,
			Product:   p.Product,
			Quantity:  p.Quantity,
			UnitPrice: price,
		})
	}
	return details, true
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "order id must be a positive integer")
		return 0, false
	}
	return id, true
}

func toOrderResponse(o domain.Order) orderResponse {
	details := make([]detailPayload, 0, len(o.Details))
	for _, d := range o.Details {
		details = append(details, detailPayload{
			ID:        d.ID,
			OrderID:   d.OrderID,
			Product:   d.Product,
			Quantity:  d.Quantity,
			UnitPrice: d.UnitPrice.StringFixed(2),
			Subtotal:  d.Subtotal().StringFixed(2),
		})
	}
	return orderResponse{
		ID:       o.ID,
		Date:     o.Date,
		Customer: o.Customer,
		Status:   string(o.Status),
		Total:    o.Total.StringFixed(2),
		Details:  details,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
