package fare

import "time"

// FareConfiguration 平台级计费配置（fare_configurations 表，按租户只有一行生效）。
type FareConfiguration struct {
	ID                   string    `gorm:"primaryKey;size:36"`
	TimeRatePerMinute    float64   `gorm:"not null;default:0"` // 每分钟时间费
	PenaltyRatePerMinute float64   `gorm:"not null;default:0"` // 超时等待每分钟罚金
	GracePeriodSeconds   float64   `gorm:"not null;default:0"` // 等待免罚时长（秒）
	BonusRate            float64   `gorm:"not null;default:0"` // 加急（rush）固定加价
	PlatformCommission   float64   `gorm:"not null;default:0"` // 平台抽成（百分比，如 0.8 表示 0.8%）
	Active               bool      `gorm:"index;default:true"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (FareConfiguration) TableName() string { return "fare_configurations" }

// VehicleRate 车型费率（vehicle_rates 表）。
type VehicleRate struct {
	ID                string    `gorm:"primaryKey;size:36"`
	VehicleType       string    `gorm:"uniqueIndex;size:32;not null"` // 规范化后的车型值
	BaseFare          float64   `gorm:"not null;default:0"`
	DistanceRatePerKm float64   `gorm:"not null;default:0"`
	Active            bool      `gorm:"index;default:true"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

func (VehicleRate) TableName() string { return "vehicle_rates" }

// DistanceFareSetting 距离分段系数（distance_fare_settings 表）。
// 区间为 [MinDistanceKm, MaxDistanceKm)，不在任何区间时系数按 1.0。
type DistanceFareSetting struct {
	ID             string    `gorm:"primaryKey;size:36"`
	MinDistanceKm  float64   `gorm:"not null;default:0"`
	MaxDistanceKm  float64   `gorm:"not null;default:0"`
	BaseMultiplier float64   `gorm:"not null;default:1"`
	TimeMultiplier float64   `gorm:"not null;default:1"`
	Active         bool      `gorm:"index;default:true"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (DistanceFareSetting) TableName() string { return "distance_fare_settings" }
