package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Redis    RedisConfig    `json:"redis"`
	Consul   ConsulConfig   `json:"consul"`
	Jaeger   JaegerConfig   `json:"jaeger"`
	Log      LogConfig      `json:"log"`
	Auth     AuthConfig     `json:"auth"`
	Admin    AdminConfig    `json:"admin"`
	Geo      GeoConfig      `json:"geo"`
	Storage  StorageConfig  `json:"storage"`
}

// ServerConfig 服务配置
type ServerConfig struct {
	Name     string `json:"name"`      // 服务名称
	Host     string `json:"host"`      // 服务地址
	GRPCPort int    `json:"grpc_port"` // gRPC 端口（健康检查面）
	HTTPPort int    `json:"http_port"` // HTTP 业务端口
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver   string `json:"driver"`   // 数据库驱动
	Host     string `json:"host"`     // 数据库地址
	Port     int    `json:"port"`     // 数据库端口
	User     string `json:"user"`     // 用户名
	Password string `json:"password"` // 密码
	Database string `json:"database"` // 数据库名
	MaxIdle  int    `json:"max_idle"` // 最大空闲连接
	MaxOpen  int    `json:"max_open"` // 最大打开连接
}

// RedisConfig Redis 配置（变更订阅通道 + 热点订单缓存）
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// ConsulConfig Consul 配置
type ConsulConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// JaegerConfig Jaeger 配置
type JaegerConfig struct {
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"` // 采样率 0.0-1.0
}

// LogConfig 日志配置
type LogConfig struct {
	Driver string `json:"driver"` // logrus, zap
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stdout, file
	Path   string `json:"path"`   // 日志文件路径
}

// AuthConfig JWT 鉴权配置
type AuthConfig struct {
	Enabled       bool                `json:"enabled"`        // 是否开启鉴权
	JWTSecret     string              `json:"jwt_secret"`     // HS256 密钥
	Issuer        string              `json:"issuer"`         // 可选：签发者校验
	Audience      string              `json:"audience"`       // 可选：受众校验
	PublicMethods []string            `json:"public_methods"` // 免鉴权的方法/路径
	RBAC          map[string][]string `json:"rbac"`           // 方法/路径 -> 允许的角色
}

// AdminConfig 平台管理员配置。
// Pickarry 目前只有一个固定的管理员身份，面向管理员的通知都发给它。
type AdminConfig struct {
	RecipientID string `json:"recipient_id"`
}

// GeoConfig 地理编码/路线规划服务配置
type GeoConfig struct {
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	RatePerSecond  int64  `json:"rate_per_second"` // 令牌桶速率
}

// StorageConfig 对象存储配置（订单物品照片）
type StorageConfig struct {
	Endpoint      string `json:"endpoint"`
	APIKey        string `json:"api_key"`
	Bucket        string `json:"bucket"`
	PublicBaseURL string `json:"public_base_url"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// LoadConfig 加载配置
func LoadConfig(configPath string) (*Config, error) {
	var err error
	configOnce.Do(func() {
		globalConfig = &Config{}
		// 如果配置文件不存在，使用默认配置
		if _, err = os.Stat(configPath); os.IsNotExist(err) {
			logrus.Warnf("Config file not found: %s, using default config", configPath)
			globalConfig = defaultConfig()
			err = nil
			return
		}

		data, readErr := os.ReadFile(configPath)
		if readErr != nil {
			err = fmt.Errorf("failed to read config file: %w", readErr)
			return
		}

		if unmarshalErr := json.Unmarshal(data, globalConfig); unmarshalErr != nil {
			err = fmt.Errorf("failed to parse config file: %w", unmarshalErr)
			return
		}
	})

	if err != nil {
		return nil, err
	}

	return globalConfig, nil
}

// GetConfig 获取全局配置
func GetConfig() *Config {
	if globalConfig == nil {
		return defaultConfig()
	}
	return globalConfig
}

// defaultConfig 默认配置（开发环境）
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name:     "pickarry-service",
			Host:     "0.0.0.0",
			GRPCPort: 50051,
			HTTPPort: 8080,
		},
		Database: DatabaseConfig{
			Driver:   "mysql",
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Password: "root",
			Database: "pickarry",
			MaxIdle:  10,
			MaxOpen:  100,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Consul: ConsulConfig{
			Host: "localhost",
			Port: 8500,
		},
		Jaeger: JaegerConfig{
			Endpoint: "http://localhost:14268/api/traces",
			Sampler:  1.0,
		},
		Log: LogConfig{
			Driver: "logrus",
			Level:  "debug",
			Format: "text",
			Output: "stdout",
			Path:   "logs/app.log",
		},
		Auth: AuthConfig{
			Enabled:   false,
			Issuer:    "pickarry",
			Audience:  "pickarry",
		},
		Admin: AdminConfig{
			RecipientID: "admin-0001",
		},
		Geo: GeoConfig{
			BaseURL:        "http://localhost:9500",
			TimeoutSeconds: 10,
			RatePerSecond:  20,
		},
		Storage: StorageConfig{
			Endpoint:      "http://localhost:9600",
			Bucket:        "order-photos",
			PublicBaseURL: "http://localhost:9600/public",
		},
	}
}
