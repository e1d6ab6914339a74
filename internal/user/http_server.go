package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"

	"gorm.io/gorm"
)

// HTTPServer 账号服务的 HTTP 接入层。
type HTTPServer struct {
	svc *Service
	log logger.Logger
}

func NewHTTPServer(svc *Service, log logger.Logger) *HTTPServer {
	return &HTTPServer{svc: svc, log: log}
}

func (h *HTTPServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/auth/register", h.handleRegister)
	mux.HandleFunc("/auth/login", h.handleLogin)
	mux.HandleFunc("/users/", h.handleUserByID)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

type userView struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// 口令散列绝不出接入层。
func toView(u *User) userView {
	return userView{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Phone:    u.Phone,
		Email:    u.Email,
		Roles:    u.RolesSlice(),
	}
}

func (h *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
		Phone    string `json:"phone"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.svc.Register(r.Context(), RegisterInput(req))
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toView(u))
}

func (h *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrSuspended):
			writeError(w, http.StatusForbidden, err.Error())
		default:
			if h.log != nil {
				h.log.Errorf("login: %v", err)
			}
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":      res.Token,
		"expires_at": res.ExpiresAt.Format(time.RFC3339),
		"user":       toView(res.User),
	})
}

func (h *HTTPServer) handleUserByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	parts := strings.SplitN(rest, "/", 2)
	id := parts[0]

	switch {
	case len(parts) == 2 && parts[1] == "suspend" && r.Method == http.MethodPost:
		h.handleSuspend(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "unknown route")
	}
}

func (h *HTTPServer) handleSuspend(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Suspended bool   `json:"suspended"`
		Reason    string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.svc.Suspend(r.Context(), id, req.Suspended, req.Reason); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if h.log != nil {
			h.log.Errorf("suspend user %s: %v", id, err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"suspended": req.Suspended})
}
