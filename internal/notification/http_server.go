package notification

import (
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

// HTTPServer 通知查询接口。接收方身份优先取令牌，没开鉴权时取查询参数。
type HTTPServer struct {
	repo *Repo
	log  logger.Logger
}

func NewHTTPServer(repo *Repo, log logger.Logger) *HTTPServer {
	return &HTTPServer{repo: repo, log: log}
}

func (h *HTTPServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/notifications", h.handleList)
	mux.HandleFunc("/notifications/read-all", h.handleReadAll)
	mux.HandleFunc("/notifications/", h.handleByID)
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func recipientFrom(r *http.Request) string {
	if info, ok := server.AuthFromContext(r.Context()); ok && info.Subject != "" {
		return info.Subject
	}
	return r.URL.Query().Get("recipient_id")
}

func (h *HTTPServer) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	recipient := recipientFrom(r)
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	unreadOnly := q.Get("unread") == "true"

	ns, total, err := h.repo.ListByRecipient(r.Context(), recipient, unreadOnly, offset, limit)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("list notifications for %s: %v", recipient, err)
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": ns, "total": total})
}

func (h *HTTPServer) handleReadAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	recipient := recipientFrom(r)
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	if err := h.repo.MarkAllRead(r.Context(), recipient, time.Now()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *HTTPServer) handleByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/notifications/")
	parts := strings.SplitN(rest, "/", 2)

	if len(parts) != 2 || parts[1] != "read" || r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}

	recipient := recipientFrom(r)
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	if err := h.repo.MarkRead(r.Context(), parts[0], recipient, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
