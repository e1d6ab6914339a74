package main

import (
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/discovery"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/middleware"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/server"

	"github.com/hashicorp/consul/api"
)

var (
	configPath = flag.String("config", "configs/api-gateway.json", "配置文件路径")
)

// 路由前缀 -> 后端服务名。
var routes = map[string]string{
	"/orders":        "order-service",
	"/earnings":      "order-service",
	"/bookings":      "order-service",
	"/feed":          "courier-service",
	"/auth":          "courier-service",
	"/users":         "courier-service",
	"/couriers":      "courier-service",
	"/notifications": "courier-service",
}

// proxy 带短缓存的 Consul 反向代理。每个后端共用一把滑动窗口限流。
type proxy struct {
	consul  *api.Client
	log     logger.Logger
	limiter *middleware.SlidingWindow

	mu    sync.Mutex
	addrs map[string]cachedAddr
}

type cachedAddr struct {
	addr    string
	expires time.Time
}

func (p *proxy) resolve(service string) (string, error) {
	p.mu.Lock()
	if c, ok := p.addrs[service]; ok && time.Now().Before(c.expires) {
		p.mu.Unlock()
		return c.addr, nil
	}
	p.mu.Unlock()

	addr, err := discovery.LookupService(p.consul, service)
	if err != nil {
		return "", err
	}

	p.mu.Lock()
	p.addrs[service] = cachedAddr{addr: addr, expires: time.Now().Add(10 * time.Second)}
	p.mu.Unlock()
	return addr, nil
}

func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
		return
	}

	if !p.limiter.Allow(r.Context()) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	service := ""
	for prefix, svc := range routes {
		if r.URL.Path == prefix || strings.HasPrefix(r.URL.Path, prefix+"/") {
			service = svc
			break
		}
	}
	if service == "" {
		http.Error(w, "unknown route", http.StatusNotFound)
		return
	}

	addr, err := p.resolve(service)
	if err != nil {
		p.log.Errorf("resolve %s: %v", service, err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	target := &url.URL{Scheme: "http", Host: addr}
	rp := httputil.NewSingleHostReverseProxy(target)
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		p.log.Errorf("proxy to %s: %v", addr, err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}
	rp.ServeHTTP(w, r)
}

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	consulClient, err := discovery.NewConsulClient(cfg.Consul.Host, cfg.Consul.Port)
	if err != nil {
		log.Fatalf("failed to connect to Consul: %v", err)
	}

	p := &proxy{
		consul:  consulClient,
		log:     log,
		limiter: middleware.NewSlidingWindow(time.Second, 200),
		addrs:   make(map[string]cachedAddr),
	}

	if err := server.Run(cfg, log, p, nil); err != nil {
		log.Fatalf("api-gateway exited with error: %v", err)
	}
}
