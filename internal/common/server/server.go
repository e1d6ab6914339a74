package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/discovery"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
)

// GRPCRegisterFunc 用于注册业务 gRPC 服务（预留；当前各服务只挂 health）。
type GRPCRegisterFunc func(s *grpc.Server) error

type RunOptions struct {
	EnableReflection bool
	ShutdownTimeout  time.Duration
}

func defaultRunOptions() RunOptions {
	return RunOptions{
		EnableReflection: true,
		ShutdownTimeout:  5 * time.Second,
	}
}

// Run 统一的服务启动模板：
// - HTTP 业务端口（handler 由各服务组装，外层套 recovery/accesslog/JWT 中间件）
// - gRPC 端口挂 health / reflection，供 Consul 的 GRPC check 探测
// - 注册到 Consul，优雅退出时注销
func Run(cfg *config.Config, log logger.Logger, handler http.Handler, register GRPCRegisterFunc, opts ...func(*RunOptions)) error {
	if cfg == nil {
		return fmt.Errorf("cfg is nil")
	}
	if log == nil {
		return fmt.Errorf("log is nil")
	}
	if handler == nil {
		return fmt.Errorf("handler is nil")
	}

	o := defaultRunOptions()
	for _, apply := range opts {
		if apply != nil {
			apply(&o)
		}
	}

	// 初始化 Consul 客户端（失败不阻塞服务启动）
	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Warnf("failed to connect to Consul: %v", err)
		consulClient = nil
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen grpc: %w", err)
	}

	// 构建统一的 Unary 拦截器链（按顺序执行）
	unaryInterceptors := UnaryChain(
		UnaryRecoveryInterceptor(log),            // 异常恢复，避免服务崩溃
		UnaryTracingInterceptor(cfg.Server.Name), // 链路追踪
		UnaryAccessLogInterceptor(log),           // 访问日志
		UnaryJWTAuthInterceptor(cfg.Auth, log),   // JWT 鉴权
		UnaryRBACInterceptor(cfg.Auth),           // RBAC
	)

	s := grpc.NewServer(
		grpc.UnaryInterceptor(unaryInterceptors),
	)

	// gRPC 健康检查（供 Consul 的 GRPC check 探测）
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	if o.EnableReflection {
		reflection.Register(s)
	}

	if register != nil {
		if err := register(s); err != nil {
			return fmt.Errorf("failed to register grpc services: %w", err)
		}
	}

	// HTTP 业务服务（recovery -> accesslog -> JWT）
	httpSrv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler: HTTPChain(handler,
			HTTPRecovery(log),
			HTTPAccessLog(log),
			HTTPJWTAuth(cfg.Auth, log),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 注册到 Consul（成功才 defer 注销）
	if consulClient != nil {
		serviceID := fmt.Sprintf("%s-%s", cfg.Server.Name, uuid.New().String())
		registry := discovery.NewServiceRegistry(
			consulClient,
			serviceID,
			cfg.Server.Name,
			cfg.Server.Host,
			cfg.Server.GRPCPort,
			[]string{"grpc", "http"},
			map[string]string{"http_port": strconv.Itoa(cfg.Server.HTTPPort)},
		)
		if err := registry.Register(); err != nil {
			log.Warnf("failed to register service to Consul: %v", err)
		} else {
			log.Infof("Service registered to Consul: %s", serviceID)
			defer func() {
				if err := registry.Deregister(); err != nil {
					log.Warnf("failed to deregister service from Consul: %v", err)
				}
			}()
		}
	}

	log.Infof("%s starting: http=%s:%d grpc=%s:%d",
		cfg.Server.Name, cfg.Server.Host, cfg.Server.HTTPPort, cfg.Server.Host, cfg.Server.GRPCPort)

	serveErr := make(chan error, 2)
	go func() {
		if err := s.Serve(lis); err != nil {
			serveErr <- fmt.Errorf("grpc serve failed: %w", err)
			return
		}
		serveErr <- nil
	}()
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- fmt.Errorf("http serve failed: %w", err)
			return
		}
		serveErr <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Infof("received signal %v, shutting down...", sig)
	case err := <-serveErr:
		if err != nil {
			return err
		}
		return nil
	}

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), o.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Warnf("http shutdown: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(stopped)
	}()

	select {
	case <-ctx.Done():
		log.Warn("grpc shutdown timeout, forcing stop...")
		s.Stop()
	case <-stopped:
		log.Info("grpc server stopped gracefully")
	}

	return nil
}

// WithShutdownTimeout 修改优雅退出等待时间。
func WithShutdownTimeout(d time.Duration) func(*RunOptions) {
	return func(o *RunOptions) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

// WithReflection 控制是否启用 gRPC reflection。
func WithReflection(enable bool) func(*RunOptions) {
	return func(o *RunOptions) {
		o.EnableReflection = enable
	}
}
