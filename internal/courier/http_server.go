package courier

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/server"

	"gorm.io/gorm"
)

// HTTPServer 骑手服务的 HTTP 接入层。
type HTTPServer struct {
	svc *Service
	log logger.Logger
}

func NewHTTPServer(svc *Service, log logger.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, log: log}
}

func (h *HTTPServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/couriers", h.handleCouriers)
	mux.HandleFunc("/couriers/", h.handleCourierByID)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (h *HTTPServer) handleCouriers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.apply(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *HTTPServer) apply(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		VehicleType string `json:"vehicle_type"`
		PlateNumber string `json:"plate_number"`
		ServiceArea string `json:"service_area"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := req.UserID
	if info, ok := server.AuthFromContext(r.Context()); ok && info.Subject != "" {
		userID = info.Subject
	}

	c, err := h.svc.Apply(r.Context(), ApplyInput{
		UserID:      userID,
		VehicleType: req.VehicleType,
		PlateNumber: req.PlateNumber,
		ServiceArea: req.ServiceArea,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyApplied):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrUnknownVehicleType):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *HTTPServer) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	couriers, total, err := h.svc.List(r.Context(), ApplicationStatus(q.Get("status")), offset, limit)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("list couriers: %v", err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"couriers": couriers, "total": total})
}

func (h *HTTPServer) handleCourierByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/couriers/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "courier id is required")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.get(w, r, id)
	case len(parts) == 2 && parts[1] == "review" && r.Method == http.MethodPost:
		h.review(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (h *HTTPServer) get(w http.ResponseWriter, r *http.Request, id string) {
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "courier not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *HTTPServer) review(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.svc.Review(r.Context(), id, ApplicationStatus(req.Status))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "courier not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}
