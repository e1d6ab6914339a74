package server

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
)

// HTTPMiddleware net/http 中间件（与 unary interceptor 同形）。
type HTTPMiddleware func(http.Handler) http.Handler

// HTTPChain 按传入顺序串联中间件。
func HTTPChain(h http.Handler, mws ...HTTPMiddleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		h = mws[i](h)
	}
	return h
}

// HTTPRecovery 防止 handler panic 打崩进程。
func HTTPRecovery(log logger.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.Errorf("panic in http path=%s err=%v stack=%s", r.URL.Path, rec, string(debug.Stack()))
					}
					http.Error(w, "internal error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// HTTPAccessLog 记录每个 HTTP 请求的耗时/状态码。
func HTTPAccessLog(log logger.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			cost := time.Since(start)

			if log != nil {
				fields := map[string]interface{}{
					"method": r.Method,
					"path":   r.URL.Path,
					"status": sw.status,
					"cost":   cost.String(),
				}
				if sw.status >= http.StatusInternalServerError {
					log.WithFields(fields).Warn("http request failed")
				} else {
					log.WithFields(fields).Info("http request ok")
				}
			}
		})
	}
}

// HTTPJWTAuth HTTP 侧 JWT 鉴权 + RBAC（与 gRPC 拦截器共用 parseBearerToken）：
// - cfg.PublicMethods 里放免鉴权路径（精确匹配）
// - cfg.RBAC[path] 非空时要求 roles 有交集
func HTTPJWTAuth(cfg config.AuthConfig, log logger.Logger) HTTPMiddleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublicMethod(cfg.PublicMethods, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if strings.TrimSpace(cfg.JWTSecret) == "" {
				if log != nil {
					log.Warn("auth enabled but jwt_secret is empty")
				}
				http.Error(w, "auth not configured", http.StatusUnauthorized)
				return
			}

			raw := r.Header.Get("Authorization")
			if raw == "" {
				http.Error(w, "missing authorization", http.StatusUnauthorized)
				return
			}

			ai, err := parseBearerToken(cfg, raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if required := cfg.RBAC[r.URL.Path]; len(required) > 0 && !hasAnyRole(ai.Roles, required) {
				http.Error(w, "permission denied", http.StatusForbidden)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, ai)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
