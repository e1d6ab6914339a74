package main

import (
	"flag"
	"fmt"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/config"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/db"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	commonredis "github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/redis"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/server"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/tracing"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/courier"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/fare"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/geo"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/notification"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/realtime"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/storage"
	"google.golang.org/grpc"
)

var (
	configPath = flag.String("config", "configs/order-service.json", "配置文件路径")
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
		&order.Order{},
		&order.StatusHistory{},
		&order.CourierEarning{},
		&fare.FareConfiguration{},
		&fare.VehicleRate{},
		&fare.DistanceFareSetting{},
		&notification.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	// Redis：订单变更推送通道
	rdb, err := commonredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	feed := realtime.NewFeed(rdb, log)

	// 组装订单服务
	repo := order.NewRepo(gdb)
	quoter := fare.NewQuoter(fare.NewRepo(gdb))
	dispatcher := notification.NewDispatcher(
		notification.NewRepo(gdb),
		courier.NewRepo(gdb),
		cfg.Admin.RecipientID,
		log,
	)
	svc := order.NewService(repo, quoter, dispatcher, feed, log).
		WithRoutePlanner(geo.NewClient(cfg.Geo)).
		WithUploader(storage.NewClient(cfg.Storage))

	// 长轮询等接单（/orders/{id}/wait）靠变更流 + 按 id 回查
	watcher := realtime.NewOrderWatcher(feed, repo.GetByID, log)

	if err := server.Run(cfg, log, order.NewHTTPServer(svc, watcher, log).Routes(), func(s *grpc.Server) error {
		return nil
	}); err != nil {
		log.Fatalf("order-service exited with error: %v", err)
	}
}
