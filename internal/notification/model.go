package notification

import (
	"time"

	"gorm.io/datatypes"
)

// RecipientType 通知接收方类型。
type RecipientType string

const (
	RecipientCustomer RecipientType = "customer"
	RecipientCourier  RecipientType = "courier"
	RecipientAdmin    RecipientType = "admin"
)

// 通知事件类型。
const (
	TypeNewOrder         = "new_order"
	TypeOrderAccepted    = "order_accepted"
	TypeOrderProgress    = "order_progress"
	TypeOrderDelivered   = "order_delivered"
	TypeOrderCancelled   = "order_cancelled"
	TypeAccountSuspended = "account_suspended"
	TypeFeedback         = "feedback_received"
	TypeNewSignup        = "new_signup"
	TypeNewApplication   = "new_application"
	TypeSupportTicket    = "support_ticket"
	TypeComplaint        = "complaint"
)

// 通知优先级。
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Notification 通知 GORM 模型。行内 payload 用 JSON 列存放，
// 不同事件的附加字段不一样，列结构固定不下来。
type Notification struct {
	ID            string         `gorm:"primaryKey;size:36"`
	RecipientID   string         `gorm:"index:idx_recipient,priority:1;size:36;not null"`
	RecipientType RecipientType  `gorm:"type:varchar(16);not null"`
	Type          string         `gorm:"type:varchar(32);index;not null"`
	Title         string         `gorm:"size:128"`
	Body          string         `gorm:"size:512"`
	Priority      string         `gorm:"type:varchar(8);default:normal"`
	OrderID       string         `gorm:"index;size:36"`
	Metadata      datatypes.JSON `gorm:"type:json"`
	Read          bool           `gorm:"index:idx_recipient,priority:2;default:false"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index"`
	ReadAt        *time.Time
}

func (Notification) TableName() string { return "notifications" }
