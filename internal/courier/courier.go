package courier

import (
	"strings"
	"time"
)

// ApplicationStatus 骑手入驻申请状态。
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "pending"
	ApplicationApproved  ApplicationStatus = "approved"
	ApplicationRejected  ApplicationStatus = "rejected"
	ApplicationSuspended ApplicationStatus = "suspended"
)

// VehicleType 规范化后的车型枚举。
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "motorcycle"
	VehicleBicycle    VehicleType = "bicycle"
	VehicleCar        VehicleType = "car"
	VehicleVan        VehicleType = "van"
	VehicleOnFoot     VehicleType = "on_foot"
)

// vehicleAliases 历史数据里的车型别名表。
// 上游录入从未规范化过（"walking" / "walker" / "on-foot" 混用），
// 只在入口处折叠成枚举值，存储和匹配一律用规范值。
var vehicleAliases = map[string]VehicleType{
	"motorcycle": VehicleMotorcycle,
	"motorbike":  VehicleMotorcycle,
	"bicycle":    VehicleBicycle,
	"bike":       VehicleBicycle,
	"car":        VehicleCar,
	"sedan":      VehicleCar,
	"van":        VehicleVan,
	"on_foot":    VehicleOnFoot,
	"on-foot":    VehicleOnFoot,
	"onfoot":     VehicleOnFoot,
	"walking":    VehicleOnFoot,
	"walker":     VehicleOnFoot,
}

// NormalizeVehicleType 把任意录入值折叠成规范枚举；无法识别时返回 ok=false。
func NormalizeVehicleType(raw string) (VehicleType, bool) {
	v, ok := vehicleAliases[strings.ToLower(strings.TrimSpace(raw))]
	return v, ok
}

// Courier 骑手档案 GORM 模型。
type Courier struct {
	ID                string            `gorm:"primaryKey;size:36"`
	UserID            string            `gorm:"uniqueIndex;size:36;not null"`
	ApplicationStatus ApplicationStatus `gorm:"type:varchar(16);index;not null"`
	VehicleType       VehicleType       `gorm:"type:varchar(16);index;not null"`
	PlateNumber       string            `gorm:"size:32"`
	ServiceArea       string            `gorm:"size:128"` // 服务范围（barangay / 城镇）
	CreatedAt         time.Time         `gorm:"autoCreateTime"`
	UpdatedAt         time.Time         `gorm:"autoUpdateTime"`
	ApprovedAt        *time.Time
	SuspendedAt       *time.Time
}

func (Courier) TableName() string { return "couriers" }
