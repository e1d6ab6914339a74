package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/courier"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Store 通知落库接口。
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	InsertBatch(ctx context.Context, ns []Notification) error
}

// CourierDirectory 广播新单时解析接收骑手集合。
type CourierDirectory interface {
	ListApproved(ctx context.Context) ([]courier.Courier, error)
}

// Dispatcher 通知分发器。所有投递都是尽力而为：落库失败只记日志，
// 不回传错误，订单主流程不因通知失败回滚。
type Dispatcher struct {
	store    Store
	couriers CourierDirectory
	adminID  string
	log      logger.Logger
}

func NewDispatcher(store Store, couriers CourierDirectory, adminID string, log logger.Logger) *Dispatcher {
	return &Dispatcher{store: store, couriers: couriers, adminID: adminID, log: log}
}

func (d *Dispatcher) warnf(format string, args ...interface{}) {
	if d.log != nil {
		d.log.Warnf(format, args...)
	}
}

func orderMetadata(o *order.Order) datatypes.JSON {
	raw, err := json.Marshal(map[string]interface{}{
		"order_id":     o.ID,
		"service_type": string(o.ServiceType),
		"vehicle_type": o.VehicleType,
		"total_amount": o.TotalAmount,
		"booking":      o.Booking,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// OrderCreated 新单广播：投给所有审核通过、车型匹配的骑手。
// 车型匹配在规范化后进行，历史别名（"walking" / "on-foot"）不漏投。
func (d *Dispatcher) OrderCreated(ctx context.Context, o *order.Order) {
	if d.couriers == nil {
		return
	}
	approved, err := d.couriers.ListApproved(ctx)
	if err != nil {
		d.warnf("list approved couriers for order %s: %v", o.ID, err)
		return
	}

	want, wantOK := courier.NormalizeVehicleType(o.VehicleType)
	meta := orderMetadata(o)
	var batch []Notification
	for _, c := range approved {
		if wantOK {
			got, ok := courier.NormalizeVehicleType(string(c.VehicleType))
			if !ok || got != want {
				continue
			}
		}
		priority := PriorityNormal
		if o.Rush {
			priority = PriorityHigh
		}
		batch = append(batch, Notification{
			ID:            uuid.NewString(),
			RecipientID:   c.UserID,
			RecipientType: RecipientCourier,
			Type:          TypeNewOrder,
			Title:         "New delivery available",
			Body:          fmt.Sprintf("%s to %s", o.PickupAddress, o.DeliveryAddress),
			Priority:      priority,
			OrderID:       o.ID,
			Metadata:      meta,
		})
	}
	if len(batch) == 0 {
		return
	}
	if err := d.store.InsertBatch(ctx, batch); err != nil {
		d.warnf("broadcast new order %s to %d couriers: %v", o.ID, len(batch), err)
	}
}

func (d *Dispatcher) notifyCustomer(ctx context.Context, o *order.Order, typ, title, body, priority string) {
	n := Notification{
		ID:            uuid.NewString(),
		RecipientID:   o.CustomerID,
		RecipientType: RecipientCustomer,
		Type:          typ,
		Title:         title,
		Body:          body,
		Priority:      priority,
		OrderID:       o.ID,
		Metadata:      orderMetadata(o),
	}
	if err := d.store.Insert(ctx, &n); err != nil {
		d.warnf("notify customer %s about order %s: %v", o.CustomerID, o.ID, err)
	}
}

func (d *Dispatcher) OrderAccepted(ctx context.Context, o *order.Order) {
	d.notifyCustomer(ctx, o, TypeOrderAccepted, "Order accepted",
		fmt.Sprintf("A courier accepted your order %s", o.ID), PriorityNormal)
}

func (d *Dispatcher) OrderProgress(ctx context.Context, o *order.Order) {
	d.notifyCustomer(ctx, o, TypeOrderProgress, "Order update",
		fmt.Sprintf("Your order %s is now %s", o.ID, o.Status), PriorityNormal)
}

func (d *Dispatcher) OrderDelivered(ctx context.Context, o *order.Order) {
	d.notifyCustomer(ctx, o, TypeOrderDelivered, "Order delivered",
		fmt.Sprintf("Your order %s has been delivered", o.ID), PriorityNormal)
}

func (d *Dispatcher) OrderCancelled(ctx context.Context, o *order.Order, actor order.Actor) {
	d.notifyCustomer(ctx, o, TypeOrderCancelled, "Order cancelled",
		fmt.Sprintf("Your order %s was cancelled by %s", o.ID, actor), PriorityHigh)
}

// AccountSuspended 账号封禁提醒。
func (d *Dispatcher) AccountSuspended(ctx context.Context, userID, reason string) {
	n := Notification{
		ID:            uuid.NewString(),
		RecipientID:   userID,
		RecipientType: RecipientCustomer,
		Type:          TypeAccountSuspended,
		Title:         "Account suspended",
		Body:          reason,
	}
	if err := d.store.Insert(ctx, &n); err != nil {
		d.warnf("notify suspended user %s: %v", userID, err)
	}
}

// FeedbackReceived 骑手收到新评价。
func (d *Dispatcher) FeedbackReceived(ctx context.Context, courierUserID, orderID string, rating int) {
	n := Notification{
		ID:            uuid.NewString(),
		RecipientID:   courierUserID,
		RecipientType: RecipientCourier,
		Type:          TypeFeedback,
		Title:         "New feedback",
		Body:          fmt.Sprintf("You received a %d-star rating", rating),
		OrderID:       orderID,
	}
	if err := d.store.Insert(ctx, &n); err != nil {
		d.warnf("notify feedback to courier %s: %v", courierUserID, err)
	}
}

func (d *Dispatcher) notifyAdmin(ctx context.Context, typ, title, body string) {
	if d.adminID == "" {
		return
	}
	n := Notification{
		ID:            uuid.NewString(),
		RecipientID:   d.adminID,
		RecipientType: RecipientAdmin,
		Type:          typ,
		Title:         title,
		Body:          body,
	}
	if err := d.store.Insert(ctx, &n); err != nil {
		d.warnf("notify admin: %v", err)
	}
}

// NewSignup 新用户注册上报管理员。
func (d *Dispatcher) NewSignup(ctx context.Context, userID string) {
	d.notifyAdmin(ctx, TypeNewSignup, "New signup", fmt.Sprintf("User %s registered", userID))
}

// NewApplication 新骑手申请上报管理员。
func (d *Dispatcher) NewApplication(ctx context.Context, courierID string) {
	d.notifyAdmin(ctx, TypeNewApplication, "New courier application",
		fmt.Sprintf("Courier application %s awaiting review", courierID))
}

// SupportTicket 新工单上报管理员。
func (d *Dispatcher) SupportTicket(ctx context.Context, ticketID, subject string) {
	d.notifyAdmin(ctx, TypeSupportTicket, "New support ticket",
		fmt.Sprintf("Ticket %s: %s", ticketID, subject))
}

// Complaint 订单投诉上报管理员。
func (d *Dispatcher) Complaint(ctx context.Context, orderID, details string) {
	d.notifyAdmin(ctx, TypeComplaint, "New complaint",
		fmt.Sprintf("Order %s: %s", orderID, details))
}
