package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/server"

	"gorm.io/gorm"
)

// AcceptanceWaiter 长轮询等待接单（realtime 包的 OrderWatcher 实现）。
// 超时应返回 ErrAcceptanceTimeout。
type AcceptanceWaiter interface {
	WaitForAcceptance(ctx context.Context, orderID string, timeout time.Duration) (*Order, error)
}

// HTTPServer 订单服务的 HTTP 接入层。只做请求映射和错误码转换，
// 业务规则全部在 Service 里。
type HTTPServer struct {
	svc    *Service
	waiter AcceptanceWaiter
	log    logger.Logger
}

func NewHTTPServer(svc *Service, waiter AcceptanceWaiter, log logger.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, waiter: waiter, log: log}
}

// Routes 注册路由。
func (h *HTTPServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", h.handleOrders)
	mux.HandleFunc("/orders/", h.handleOrderByID)
	mux.HandleFunc("/earnings", h.handleEarnings)
	mux.HandleFunc("/bookings", h.handleBookings)
	return mux
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeServiceError 把业务错误映射到 HTTP 状态码。
func (h *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderTaken),
		errors.Is(err, ErrCourierBusy),
		errors.Is(err, ErrScheduleConflict),
		errors.Is(err, ErrTerminal),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		if h.log != nil {
			h.log.Errorf("order http: %v", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// subjectOr 优先用令牌里的身份，没有鉴权时退回请求体里的字段。
func subjectOr(r *http.Request, fallback string) string {
	if info, ok := server.AuthFromContext(r.Context()); ok && info.Subject != "" {
		return info.Subject
	}
	return fallback
}

type createOrderRequest struct {
	CustomerID      string   `json:"customer_id"`
	PickupAddress   string   `json:"pickup_address"`
	DeliveryAddress string   `json:"delivery_address"`
	PickupLat       *float64 `json:"pickup_lat"`
	PickupLng       *float64 `json:"pickup_lng"`
	DeliveryLat     *float64 `json:"delivery_lat"`
	DeliveryLng     *float64 `json:"delivery_lng"`

	ItemDescription string   `json:"item_description"`
	ItemCategory    string   `json:"item_category"`
	PhotoURLs       []string `json:"photo_urls"`

	VehicleType   string `json:"vehicle_type"`
	ServiceType   string `json:"service_type"`
	PaymentMethod string `json:"payment_method"`

	Booking         bool   `json:"booking"`
	BookedAt        string `json:"booked_at"` // RFC3339
	DurationMinutes int    `json:"duration_minutes"`

	DistanceKm       float64 `json:"distance_km"`
	EstimatedMinutes float64 `json:"estimated_minutes"`
	Rush             bool    `json:"rush"`
	WaitMinutes      float64 `json:"wait_minutes"`
}

func (h *HTTPServer) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPServer) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := CreateOrderInput{
		CustomerID:       subjectOr(r, req.CustomerID),
		PickupAddress:    req.PickupAddress,
		DeliveryAddress:  req.DeliveryAddress,
		PickupLat:        req.PickupLat,
		PickupLng:        req.PickupLng,
		DeliveryLat:      req.DeliveryLat,
		DeliveryLng:      req.DeliveryLng,
		ItemDescription:  req.ItemDescription,
		ItemCategory:     req.ItemCategory,
		PhotoURLs:        req.PhotoURLs,
		VehicleType:      req.VehicleType,
		ServiceType:      ServiceType(req.ServiceType),
		PaymentMethod:    req.PaymentMethod,
		Booking:          req.Booking,
		DurationMinutes:  req.DurationMinutes,
		DistanceKm:       req.DistanceKm,
		EstimatedMinutes: req.EstimatedMinutes,
		Rush:             req.Rush,
		WaitMinutes:      req.WaitMinutes,
	}
	if req.BookedAt != "" {
		t, err := time.Parse(time.RFC3339, req.BookedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "booked_at must be RFC3339")
			return
		}
		in.BookedAt = &t
	}

	o, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *HTTPServer) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	orders, total, err := h.svc.ListOrders(r.Context(), ListOrdersFilter{
		CustomerID: q.Get("customer_id"),
		CourierID:  q.Get("courier_id"),
		Status:     Status(q.Get("status")),
		Offset:     offset,
		Limit:      limit,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "total": total})
}

func (h *HTTPServer) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "order id is required")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	// /orders/quote 是下单前试算，不带订单 id
	if id == "quote" && action == "" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.routeQuote(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getOrder(w, r, id)
	case action == "history" && r.Method == http.MethodGet:
		h.orderHistory(w, r, id)
	case action == "receipt" && r.Method == http.MethodGet:
		h.orderReceipt(w, r, id)
	case action == "wait" && r.Method == http.MethodGet:
		h.waitOrder(w, r, id)
	case action == "accept" && r.Method == http.MethodPost:
		h.acceptOrder(w, r, id)
	case action == "advance" && r.Method == http.MethodPost:
		h.advanceOrder(w, r, id)
	case action == "cancel" && r.Method == http.MethodPost:
		h.cancelOrder(w, r, id)
	case action == "photos" && r.Method == http.MethodPost:
		h.uploadPhoto(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (h *HTTPServer) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *HTTPServer) orderHistory(w http.ResponseWriter, r *http.Request, id string) {
	hist, err := h.svc.History(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": hist})
}

func (h *HTTPServer) acceptOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		CourierID string `json:"courier_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	courierID := subjectOr(r, req.CourierID)
	if courierID == "" {
		writeError(w, http.StatusBadRequest, "courier_id is required")
		return
	}

	o, err := h.svc.Accept(r.Context(), id, courierID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *HTTPServer) advanceOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	o, err := h.svc.Advance(r.Context(), id, Status(req.Status))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *HTTPServer) cancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Actor string `json:"actor"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	actor := Actor(req.Actor)
	if actor != ActorCustomer && actor != ActorCourier {
		writeError(w, http.StatusBadRequest, "actor must be customer or courier")
		return
	}

	o, err := h.svc.Cancel(r.Context(), id, actor)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type routeQuoteRequest struct {
	PickupAddress   string   `json:"pickup_address"`
	DeliveryAddress string   `json:"delivery_address"`
	PickupLat       *float64 `json:"pickup_lat"`
	PickupLng       *float64 `json:"pickup_lng"`
	DeliveryLat     *float64 `json:"delivery_lat"`
	DeliveryLng     *float64 `json:"delivery_lng"`
	VehicleType     string   `json:"vehicle_type"`
	Rush            bool     `json:"rush"`
}

func (h *HTTPServer) routeQuote(w http.ResponseWriter, r *http.Request) {
	var req routeQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rq, err := h.svc.QuoteRoute(r.Context(), RouteQuoteInput(req))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rq)
}

// waitOrder 长轮询等订单离开 pending。超时按 408 返回，
// timeout_seconds 省略时由 watcher 用默认上限。
func (h *HTTPServer) waitOrder(w http.ResponseWriter, r *http.Request, id string) {
	if h.waiter == nil {
		writeError(w, http.StatusServiceUnavailable, "change feed not configured")
		return
	}

	var timeout time.Duration
	if raw := r.URL.Query().Get("timeout_seconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			writeError(w, http.StatusBadRequest, "timeout_seconds must be a positive integer")
			return
		}
		timeout = time.Duration(secs) * time.Second
	}

	o, err := h.waiter.WaitForAcceptance(r.Context(), id, timeout)
	if err != nil {
		if errors.Is(err, ErrAcceptanceTimeout) {
			writeError(w, http.StatusRequestTimeout, err.Error())
			return
		}
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *HTTPServer) uploadPhoto(w http.ResponseWriter, r *http.Request, id string) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field file is required")
		return
	}
	defer file.Close()

	o, err := h.svc.AttachPhoto(r.Context(), id, header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *HTTPServer) orderReceipt(w http.ResponseWriter, r *http.Request, id string) {
	text, err := h.svc.OrderReceipt(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		// 未送达的订单没有回执
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func (h *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	courierID := subjectOr(r, r.URL.Query().Get("courier_id"))
	if courierID == "" {
		writeError(w, http.StatusBadRequest, "courier_id is required")
		return
	}
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	orders, err := h.svc.BookingsOn(r.Context(), courierID, date)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": orders})
}

func (h *HTTPServer) handleEarnings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	courierID := subjectOr(r, r.URL.Query().Get("courier_id"))
	if courierID == "" {
		writeError(w, http.StatusBadRequest, "courier_id is required")
		return
	}
	earnings, err := h.svc.Earnings(r.Context(), courierID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"earnings": earnings})
}
