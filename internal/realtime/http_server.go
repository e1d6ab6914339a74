package realtime

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
)

// HTTPServer 骑手侧变更流视图的 HTTP 接入层：
// 把 OrderWatcher 的内存视图开放成可轮询的订单看板。
type HTTPServer struct {
	watcher *OrderWatcher
	log     logger.Logger
}

func NewHTTPServer(watcher *OrderWatcher, log logger.Logger) *HTTPServer {
	return &HTTPServer{watcher: watcher, log: log}
}

// Register 注册路由。
func (h *HTTPServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/feed/orders", h.handleOrders)
}

func (h *HTTPServer) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := order.Status(r.URL.Query().Get("status"))
	all := h.watcher.Snapshot()
	out := make([]order.Order, 0, len(all))
	for _, o := range all {
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	// 新单在前
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	writeJSON(w, http.StatusOK, map[string]interface{}{"orders": out})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
