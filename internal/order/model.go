package order

import (
	"time"

	"gorm.io/datatypes"
)

// Status 订单状态枚举（持久化为字符串）。
type Status string

const (
	StatusPending   Status = "pending"    // 已提交，等待骑手接单
	StatusAccepted  Status = "accepted"   // 骑手已接单
	StatusPickedUp  Status = "picked_up"  // 已取件
	StatusOnTheWay  Status = "on_the_way" // 配送中
	StatusArrived   Status = "arrived"    // 已到达收件地址
	StatusDelivered Status = "delivered"  // 已送达（终态）
	StatusCancelled Status = "cancelled"  // 已取消（终态，双方均可触发）
)

// ServiceType 首发服务类型。
type ServiceType string

const (
	ServicePasundo ServiceType = "pasundo" // 随行
	ServicePasugo  ServiceType = "pasugo"  // 跑腿代办
)

// Valid 服务类型是否是已知枚举值。
func (s ServiceType) Valid() bool {
	return s == ServicePasundo || s == ServicePasugo
}

// Actor 触发取消的一方。
type Actor string

const (
	ActorCustomer Actor = "customer"
	ActorCourier  Actor = "courier"
)

// EarningType 骑手收入类型。
type EarningType string

const (
	EarningDelivery EarningType = "delivery"
	EarningBooking  EarningType = "booking"
)

// Order 订单 GORM 模型。
type Order struct {
	ID string `gorm:"primaryKey;size:36"`

	// 业务关联
	CustomerID string `gorm:"index;size:36;not null"` // 下单客户
	CourierID  string `gorm:"index;size:36"`          // 接单骑手（accept 后写入）

	// 当前状态 + 骑手侧镜像
	Status        Status `gorm:"type:varchar(16);index;not null"`
	CourierStatus Status `gorm:"type:varchar(16);not null"`

	// 起终点信息
	PickupAddress   string   `gorm:"size:255;not null"`
	DeliveryAddress string   `gorm:"size:255;not null"`
	PickupLat       *float64 // 可选坐标（地理编码失败时为空）
	PickupLng       *float64
	DeliveryLat     *float64
	DeliveryLng     *float64

	// 物品信息
	ItemDescription string         `gorm:"size:255;not null"`
	ItemCategory    string         `gorm:"size:64"`
	PhotoURLs       datatypes.JSON `gorm:"type:json"` // 0-3 张照片的公开 URL

	// 车型 / 服务类型 / 支付方式
	VehicleType   string      `gorm:"size:32;not null"`
	ServiceType   ServiceType `gorm:"type:varchar(16);not null"`
	PaymentMethod string      `gorm:"size:32"`

	// 调度：立即单 vs 预约单
	Booking         bool       `gorm:"index;not null;default:false"`
	BookedAt        *time.Time // 预约开始时间（Booking=true 时必填）
	DurationMinutes int        `gorm:"not null;default:0"` // 预计占用时长，0 按 60 处理

	// 计费结果
	DistanceKm       float64        `gorm:"not null;default:0"`
	EstimatedMinutes float64        `gorm:"not null;default:0"`
	Rush             bool           `gorm:"not null;default:false"`
	TotalAmount      float64        `gorm:"not null;default:0"`
	FareBreakdown    datatypes.JSON `gorm:"type:json"`

	// 时间信息
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
	AcceptedAt  *time.Time
	PickedUpAt  *time.Time
	OnTheWayAt  *time.Time
	ArrivedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time
}

func (Order) TableName() string { return "orders" }

// StatusHistory 订单状态流转日志（append-only，不更新不删除）。
type StatusHistory struct {
	ID            string    `gorm:"primaryKey;size:36"`
	OrderID       string    `gorm:"index;size:36;not null"`
	Status        Status    `gorm:"type:varchar(16);not null"`
	CourierStatus Status    `gorm:"type:varchar(16);not null"`
	Notes         string    `gorm:"size:255"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (StatusHistory) TableName() string { return "order_status_history" }

// CourierEarning 骑手收入记录，订单送达时写入且仅写一次。
type CourierEarning struct {
	ID        string      `gorm:"primaryKey;size:36"`
	CourierID string      `gorm:"index;size:36;not null"`
	OrderID   string      `gorm:"uniqueIndex;size:36;not null"`
	Amount    float64     `gorm:"not null;default:0"`
	Type      EarningType `gorm:"type:varchar(16);not null"`
	CreatedAt time.Time   `gorm:"autoCreateTime"`
}

func (CourierEarning) TableName() string { return "courier_earnings" }

// BookingWindow 返回预约单的占用时间窗 [start, end)；时长为 0 按 60 分钟。
func (o *Order) BookingWindow() (time.Time, time.Time, bool) {
	if o == nil || !o.Booking || o.BookedAt == nil {
		return time.Time{}, time.Time{}, false
	}
	d := o.DurationMinutes
	if d <= 0 {
		d = 60
	}
	start := *o.BookedAt
	return start, start.Add(time.Duration(d) * time.Minute), true
}
