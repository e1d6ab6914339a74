package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/fare"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/geo"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// memStore 内存实现的 Store，语义与 MySQL 仓储一致（条件更新未命中返回 ErrConflict）。
type memStore struct {
	orders   map[string]Order
	history  []StatusHistory
	earnings []CourierEarning
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]Order)}
}

func (m *memStore) Insert(ctx context.Context, o *Order) error {
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("duplicate order id")
	}
	m.orders[o.ID] = *o
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := o
	return &cp, nil
}

func (m *memStore) List(ctx context.Context, customerID, courierID string, status Status, offset, limit int) ([]Order, int64, error) {
	var out []Order
	for _, o := range m.orders {
		if customerID != "" && o.CustomerID != customerID {
			continue
		}
		if courierID != "" && o.CourierID != courierID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (m *memStore) ListActiveByCourier(ctx context.Context, courierID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.CourierID == courierID && IsActive(o.Status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListBookingsOn(ctx context.Context, courierID string, date time.Time) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.CourierID != courierID || !o.Booking || o.BookedAt == nil || o.Status == StatusCancelled {
			continue
		}
		y1, m1, d1 := o.BookedAt.Date()
		y2, m2, d2 := date.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) SaveTransition(ctx context.Context, o *Order, from Status, hist *StatusHistory, earning *CourierEarning) error {
	cur, ok := m.orders[o.ID]
	if !ok || cur.Status != from {
		return ErrConflict
	}
	m.orders[o.ID] = *o
	m.history = append(m.history, *hist)
	if earning != nil {
		m.earnings = append(m.earnings, *earning)
	}
	return nil
}

func (m *memStore) UpdatePhotos(ctx context.Context, id string, photos datatypes.JSON) error {
	o, ok := m.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.PhotoURLs = photos
	m.orders[id] = o
	return nil
}

func (m *memStore) ListHistory(ctx context.Context, orderID string) ([]StatusHistory, error) {
	var out []StatusHistory
	for _, h := range m.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *memStore) ListEarnings(ctx context.Context, courierID string) ([]CourierEarning, error) {
	var out []CourierEarning
	for _, e := range m.earnings {
		if e.CourierID == courierID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fixedQuoter 固定报价的 Quoter。
type fixedQuoter struct {
	quote fare.Quote
	ok    bool
}

func (q fixedQuoter) Quote(ctx context.Context, in fare.Input) (fare.Quote, bool, error) {
	return q.quote, q.ok, nil
}

// countingNotifier 只计数的 Notifier。
type countingNotifier struct {
	created, accepted, progress, delivered, cancelled int
}

func (n *countingNotifier) OrderCreated(ctx context.Context, o *Order) { n.created++ }
func (n *countingNotifier) OrderAccepted(ctx context.Context, o *Order) { n.accepted++ }
func (n *countingNotifier) OrderProgress(ctx context.Context, o *Order) { n.progress++ }
func (n *countingNotifier) OrderDelivered(ctx context.Context, o *Order) {
	n.delivered++
}
func (n *countingNotifier) OrderCancelled(ctx context.Context, o *Order, actor Actor) {
	n.cancelled++
}

func newTestService(store Store, n Notifier) *Service {
	return NewService(store, fixedQuoter{quote: fare.Quote{Total: 216.72, Subtotal: 215}, ok: true}, n, nil, nil)
}

func createTestOrder(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:       "cust-1",
		PickupAddress:    "Poblacion, Baliuag",
		DeliveryAddress:  "San Rafael",
		ItemDescription:  "documents",
		VehicleType:      "motorcycle",
		ServiceType:      ServicePasugo,
		DistanceKm:       5,
		EstimatedMinutes: 15,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func TestCreateOrderValidation(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{CustomerID: "cust-1"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestCreateOrderServiceTypeValidation(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      "cust-1",
		PickupAddress:   "Poblacion, Baliuag",
		DeliveryAddress: "San Rafael",
		ItemDescription: "documents",
		VehicleType:     "motorcycle",
		ServiceType:     "delivery",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown service type, got %v", err)
	}
}

func TestCreateOrderPhotoLimit(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID:      "cust-1",
		PickupAddress:   "Poblacion, Baliuag",
		DeliveryAddress: "San Rafael",
		ItemDescription: "documents",
		VehicleType:     "motorcycle",
		ServiceType:     ServicePasugo,
		PhotoURLs:       []string{"a", "b", "c", "d"},
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for too many photos, got %v", err)
	}
}

// fakePlanner 固定坐标和路线的 RoutePlanner。
type fakePlanner struct{}

func (fakePlanner) Geocode(ctx context.Context, address string) (*geo.Place, error) {
	return &geo.Place{Label: address, Point: geo.Point{Lat: 14.95, Lng: 120.9}}, nil
}

func (fakePlanner) Route(ctx context.Context, from, to geo.Point) (*geo.RouteResult, error) {
	return &geo.RouteResult{DistanceKm: 5, DurationMinutes: 15}, nil
}

func TestQuoteRouteFromAddresses(t *testing.T) {
	svc := newTestService(newMemStore(), nil).WithRoutePlanner(fakePlanner{})

	rq, err := svc.QuoteRoute(context.Background(), RouteQuoteInput{
		PickupAddress:   "Poblacion, Baliuag",
		DeliveryAddress: "San Rafael",
		VehicleType:     "motorcycle",
	})
	if err != nil {
		t.Fatalf("QuoteRoute: %v", err)
	}
	if rq.Route.DistanceKm != 5 || rq.Quote.Total != 216.72 {
		t.Fatalf("unexpected quote: %+v", rq)
	}

	// 既没有坐标也没有地址：400 级别错误
	_, err = svc.QuoteRoute(context.Background(), RouteQuoteInput{VehicleType: "motorcycle"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// fakeUploader 返回固定 URL 的 PhotoUploader。
type fakeUploader struct{ n int }

func (u *fakeUploader) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	u.n++
	return fmt.Sprintf("https://cdn.example.com/pickarry/photo-%d.jpg", u.n), nil
}

func TestAttachPhotoLimit(t *testing.T) {
	store := newMemStore()
	up := &fakeUploader{}
	svc := newTestService(store, nil).WithUploader(up)
	ctx := context.Background()

	o := createTestOrder(t, svc)
	for i := 0; i < 3; i++ {
		got, err := svc.AttachPhoto(ctx, o.ID, "item.jpg", strings.NewReader("img"))
		if err != nil {
			t.Fatalf("AttachPhoto #%d: %v", i+1, err)
		}
		if len(got.PhotoURLs) == 0 {
			t.Fatalf("photo urls not persisted")
		}
	}

	// 第四张超限
	if _, err := svc.AttachPhoto(ctx, o.ID, "item.jpg", strings.NewReader("img")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for 4th photo, got %v", err)
	}

	// 非 pending 订单不能补传
	if _, err := svc.Accept(ctx, o.ID, "courier-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := svc.AttachPhoto(ctx, o.ID, "item.jpg", strings.NewReader("img")); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for accepted order, got %v", err)
	}
}

func TestLifecycleSequential(t *testing.T) {
	store := newMemStore()
	n := &countingNotifier{}
	svc := newTestService(store, n)
	ctx := context.Background()

	o := createTestOrder(t, svc)
	if o.Status != StatusPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if o.TotalAmount != 216.72 {
		t.Fatalf("expected total 216.72, got %v", o.TotalAmount)
	}
	if n.created != 1 {
		t.Fatalf("expected 1 created notification, got %d", n.created)
	}

	if _, err := svc.Accept(ctx, o.ID, "courier-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// 跳步被拒绝
	if _, err := svc.Advance(ctx, o.ID, StatusOnTheWay); err == nil {
		t.Fatalf("expected skip advance to fail")
	}

	for _, next := range []Status{StatusPickedUp, StatusOnTheWay, StatusArrived, StatusDelivered} {
		if _, err := svc.Advance(ctx, o.ID, next); err != nil {
			t.Fatalf("Advance(%s): %v", next, err)
		}
	}

	// 收入记录恰好一条，且只在送达时写
	earnings, err := svc.Earnings(ctx, "courier-1")
	if err != nil {
		t.Fatalf("Earnings: %v", err)
	}
	if len(earnings) != 1 {
		t.Fatalf("expected exactly 1 earning, got %d", len(earnings))
	}
	if earnings[0].Amount != 216.72 || earnings[0].Type != EarningDelivery {
		t.Fatalf("unexpected earning: %+v", earnings[0])
	}

	// 每次流转一条历史（accept + 4 次 advance）
	hist, err := svc.History(ctx, o.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 5 {
		t.Fatalf("expected 5 history rows, got %d", len(hist))
	}

	if n.accepted != 1 || n.progress != 3 || n.delivered != 1 {
		t.Fatalf("notification counts: %+v", n)
	}

	// 终态后取消报错
	if _, err := svc.Cancel(ctx, o.ID, ActorCustomer); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}

func TestAcceptRejectedWhenCourierBusy(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	first := createTestOrder(t, svc)
	if _, err := svc.Accept(ctx, first.ID, "courier-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	second := createTestOrder(t, svc)
	if _, err := svc.Accept(ctx, second.ID, "courier-1"); !errors.Is(err, ErrCourierBusy) {
		t.Fatalf("expected ErrCourierBusy, got %v", err)
	}

	// 空闲骑手可以接
	if _, err := svc.Accept(ctx, second.ID, "courier-2"); err != nil {
		t.Fatalf("Accept by idle courier: %v", err)
	}
}

func TestAcceptRace(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()

	o := createTestOrder(t, svc)
	if _, err := svc.Accept(ctx, o.ID, "courier-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	// 第二个骑手晚到一步
	if _, err := svc.Accept(ctx, o.ID, "courier-2"); !errors.Is(err, ErrOrderTaken) {
		t.Fatalf("expected ErrOrderTaken, got %v", err)
	}
}

func TestCancelByCourierReleasesOrder(t *testing.T) {
	store := newMemStore()
	n := &countingNotifier{}
	svc := newTestService(store, n)
	ctx := context.Background()

	o := createTestOrder(t, svc)
	if _, err := svc.Accept(ctx, o.ID, "courier-1"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	got, err := svc.Cancel(ctx, o.ID, ActorCourier)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got.Status != StatusCancelled || got.CourierID != "" {
		t.Fatalf("expected cancelled + released, got %s courier=%q", got.Status, got.CourierID)
	}
	if n.cancelled != 1 {
		t.Fatalf("expected 1 cancelled notification, got %d", n.cancelled)
	}

	// 重复取消报错
	if _, err := svc.Cancel(ctx, o.ID, ActorCustomer); !errors.Is(err, ErrTerminal) {
		t.Fatalf("expected ErrTerminal, got %v", err)
	}
}
