package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/courier"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
)

type memNotifStore struct {
	rows    []Notification
	failing bool
}

func (m *memNotifStore) Insert(ctx context.Context, n *Notification) error {
	if m.failing {
		return errors.New("db down")
	}
	m.rows = append(m.rows, *n)
	return nil
}

func (m *memNotifStore) InsertBatch(ctx context.Context, ns []Notification) error {
	if m.failing {
		return errors.New("db down")
	}
	m.rows = append(m.rows, ns...)
	return nil
}

type fakeDirectory struct {
	couriers []courier.Courier
}

func (f fakeDirectory) ListApproved(ctx context.Context) ([]courier.Courier, error) {
	return f.couriers, nil
}

func TestOrderCreatedBroadcastFiltersVehicleType(t *testing.T) {
	store := &memNotifStore{}
	dir := fakeDirectory{couriers: []courier.Courier{
		{UserID: "c-1", VehicleType: "motorcycle"},
		{UserID: "c-2", VehicleType: "motorbike"}, // 别名也要匹配上
		{UserID: "c-3", VehicleType: "bicycle"},
	}}
	d := NewDispatcher(store, dir, "admin-1", nil)

	o := &order.Order{ID: "ord-1", CustomerID: "cust-1", VehicleType: "Motorcycle",
		PickupAddress: "A", DeliveryAddress: "B"}
	d.OrderCreated(context.Background(), o)

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 broadcast rows, got %d", len(store.rows))
	}
	for _, n := range store.rows {
		if n.RecipientType != RecipientCourier || n.Type != TypeNewOrder || n.OrderID != "ord-1" {
			t.Fatalf("unexpected row: %+v", n)
		}
		if n.RecipientID == "c-3" {
			t.Fatalf("bicycle courier should not receive motorcycle order")
		}
	}
}

func TestCustomerNotifications(t *testing.T) {
	store := &memNotifStore{}
	d := NewDispatcher(store, nil, "admin-1", nil)
	ctx := context.Background()
	o := &order.Order{ID: "ord-2", CustomerID: "cust-9", Status: order.StatusOnTheWay}

	d.OrderAccepted(ctx, o)
	d.OrderProgress(ctx, o)
	d.OrderDelivered(ctx, o)
	d.OrderCancelled(ctx, o, order.ActorCourier)

	if len(store.rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(store.rows))
	}
	wantTypes := []string{TypeOrderAccepted, TypeOrderProgress, TypeOrderDelivered, TypeOrderCancelled}
	for i, n := range store.rows {
		if n.RecipientID != "cust-9" || n.Type != wantTypes[i] {
			t.Fatalf("row %d: got %s/%s", i, n.RecipientID, n.Type)
		}
	}
}

func TestDispatchSwallowsStoreFailure(t *testing.T) {
	store := &memNotifStore{failing: true}
	d := NewDispatcher(store, nil, "admin-1", nil)
	o := &order.Order{ID: "ord-3", CustomerID: "cust-1"}

	// 落库失败不 panic、不传播
	d.OrderAccepted(context.Background(), o)
	d.NewSignup(context.Background(), "user-1")
}

func TestAdminEvents(t *testing.T) {
	store := &memNotifStore{}
	d := NewDispatcher(store, nil, "admin-7", nil)
	ctx := context.Background()

	d.NewSignup(ctx, "user-1")
	d.NewApplication(ctx, "courier-app-1")
	d.SupportTicket(ctx, "tick-1", "lost parcel")

	if len(store.rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(store.rows))
	}
	for _, n := range store.rows {
		if n.RecipientID != "admin-7" || n.RecipientType != RecipientAdmin {
			t.Fatalf("unexpected admin row: %+v", n)
		}
	}
}
