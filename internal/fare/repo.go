package fare

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Repo 计费配置只读仓储（配置由运营后台维护，这里不提供写入）。
type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

// LoadActive 加载当前生效的配置 + 全部车型费率 + 距离分段。
func (r *Repo) LoadActive(ctx context.Context) (FareConfiguration, []VehicleRate, []DistanceFareSetting, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return FareConfiguration{}, nil, nil, fmt.Errorf("repo db is nil")
	}

	var cfg FareConfiguration
	if err := db.Where("active = ?", true).Order("updated_at DESC").First(&cfg).Error; err != nil {
		return FareConfiguration{}, nil, nil, fmt.Errorf("load fare configuration: %w", err)
	}

	var rates []VehicleRate
	if err := db.Where("active = ?", true).Find(&rates).Error; err != nil {
		return FareConfiguration{}, nil, nil, fmt.Errorf("load vehicle rates: %w", err)
	}

	var settings []DistanceFareSetting
	if err := db.Where("active = ?", true).Order("min_distance_km ASC").Find(&settings).Error; err != nil {
		return FareConfiguration{}, nil, nil, fmt.Errorf("load distance fare settings: %w", err)
	}

	return cfg, rates, settings, nil
}
