package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/auth"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		Issuer:    "pickarry",
		Audience:  "pickarry",
	}
}

func TestUnaryJWTAuthInterceptor(t *testing.T) {
	cfg := testAuthConfig()
	ic := UnaryJWTAuthInterceptor(cfg, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/pickarry.OrderService/Accept"}

	// 无 token
	_, err := ic(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	// 合法 token
	token, _, err := auth.GenerateAccessToken(cfg, "courier-1", []string{"courier"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	md := metadata.Pairs("authorization", "Bearer "+token)
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var got AuthInfo
	_, err = ic(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ = AuthFromContext(ctx)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if got.Subject != "courier-1" {
		t.Fatalf("subject mismatch: %s", got.Subject)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "courier" {
		t.Fatalf("roles mismatch: %#v", got.Roles)
	}
}

func TestHTTPJWTAuth(t *testing.T) {
	cfg := testAuthConfig()
	cfg.PublicMethods = []string{"/healthz"}
	cfg.RBAC = map[string][]string{"/admin/couriers": {"admin"}}

	handler := HTTPChain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), HTTPJWTAuth(cfg, nil))

	// 免鉴权路径
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("public path: expected 200, got %d", rec.Code)
	}

	// 无 token
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	// 角色不足
	token, _, err := auth.GenerateAccessToken(cfg, "u-1", []string{"customer"}, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/couriers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// 正常请求
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
