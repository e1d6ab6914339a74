package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/db"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	commonredis "github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/redis"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/server"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/tracing"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/courier"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/notification"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/realtime"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/user"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/courier-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	tracer, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}
	_ = tracer

	// 初始化 MySQL
	gdb, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect mysql: %v", err)
	}
	if err := gdb.AutoMigrate(
		&user.User{},
		&courier.Courier{},
		&notification.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Redis：消费订单变更流，给骑手侧开一个可轮询的订单看板
	rdb, err := commonredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	feed := realtime.NewFeed(rdb, log)

	// 组装账号 / 骑手 / 通知服务
	notifRepo := notification.NewRepo(gdb)
	courierRepo := courier.NewRepo(gdb)
	dispatcher := notification.NewDispatcher(notifRepo, courierRepo, cfg.Admin.RecipientID, log)

	userSvc := user.NewService(user.NewRepo(gdb), cfg.Auth, dispatcher, log)
	courierSvc := courier.NewService(courierRepo, dispatcher, log)

	// orders 表归 order-service 管（这里只按 id 回查，不迁移）
	watcher := realtime.NewOrderWatcher(feed, order.NewRepo(gdb).GetByID, log)
	go func() {
		if err := watcher.Run(context.Background()); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("order feed consumer stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	user.NewHTTPServer(userSvc, log).Register(mux)
	courier.NewHTTPServer(courierSvc, log).Register(mux)
	notification.NewHTTPServer(notifRepo, log).Register(mux)
	realtime.NewHTTPServer(watcher, log).Register(mux)

	if err := server.Run(cfg, log, mux, func(s *grpc.Server) error {
		return nil
	}); err != nil {
		log.Fatalf("courier-service exited with error: %v", err)
	}
}
