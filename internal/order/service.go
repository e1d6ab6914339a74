package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/fare"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/geo"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/storage"
)

// ErrOrderTaken 订单已被其他骑手抢到。
var ErrOrderTaken = errors.New("order already taken")

// ErrInvalidInput 入参不合法（接入层映射为 400）。
var ErrInvalidInput = errors.New("invalid input")

// ErrAcceptanceTimeout 等待骑手接单超时。
var ErrAcceptanceTimeout = errors.New("no courier accepted the order in time")

// Store 订单仓储（由 *Repo 提供 MySQL 实现；测试用内存实现）。
type Store interface {
	Insert(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, customerID, courierID string, status Status, offset, limit int) ([]Order, int64, error)
	ListActiveByCourier(ctx context.Context, courierID string) ([]Order, error)
	ListBookingsOn(ctx context.Context, courierID string, date time.Time) ([]Order, error)
	SaveTransition(ctx context.Context, o *Order, from Status, hist *StatusHistory, earning *CourierEarning) error
	UpdatePhotos(ctx context.Context, id string, photos datatypes.JSON) error
	ListHistory(ctx context.Context, orderID string) ([]StatusHistory, error)
	ListEarnings(ctx context.Context, courierID string) ([]CourierEarning, error)
}

// Notifier 通知分发（尽力而为：实现方内部吞掉失败，绝不反馈到状态流转）。
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	OrderAccepted(ctx context.Context, o *Order)
	OrderProgress(ctx context.Context, o *Order)
	OrderDelivered(ctx context.Context, o *Order)
	OrderCancelled(ctx context.Context, o *Order, actor Actor)
}

// FeedPublisher 变更事件发布（Redis 通道，订阅方按 id 重新拉取）。
type FeedPublisher interface {
	PublishChange(ctx context.Context, table, eventType, id string) error
}

// Quoter 计费入口（fare 包实现）。
type Quoter interface {
	Quote(ctx context.Context, in fare.Input) (fare.Quote, bool, error)
}

// RoutePlanner 地图协作方（geo 包实现）：地址解析 + 路线规划。
type RoutePlanner interface {
	Geocode(ctx context.Context, address string) (*geo.Place, error)
	Route(ctx context.Context, from, to geo.Point) (*geo.RouteResult, error)
}

// PhotoUploader 订单照片上传（storage 包实现）。
type PhotoUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Service 封装订单领域的核心用例（不依赖传输层），便于复用和测试。
type Service struct {
	store    Store
	quoter   Quoter
	notifier Notifier
	feed     FeedPublisher
	planner  RoutePlanner
	uploader PhotoUploader
	log      logger.Logger
}

func NewService(store Store, quoter Quoter, notifier Notifier, feed FeedPublisher, log logger.Logger) *Service {
	return &Service{store: store, quoter: quoter, notifier: notifier, feed: feed, log: log}
}

// WithRoutePlanner 注入地图协作方（报价接口依赖）。
func (s *Service) WithRoutePlanner(p RoutePlanner) *Service {
	s.planner = p
	return s
}

// WithUploader 注入照片上传协作方。
func (s *Service) WithUploader(u PhotoUploader) *Service {
	s.uploader = u
	return s
}

// CreateOrderInput 创建订单的入参。
type CreateOrderInput struct {
	CustomerID      string
	PickupAddress   string
	DeliveryAddress string
	PickupLat       *float64
	PickupLng       *float64
	DeliveryLat     *float64
	DeliveryLng     *float64

	ItemDescription string
	ItemCategory    string
	PhotoURLs       []string

	VehicleType   string
	ServiceType   ServiceType
	PaymentMethod string

	Booking         bool
	BookedAt        *time.Time
	DurationMinutes int

	DistanceKm       float64
	EstimatedMinutes float64
	Rush             bool
	WaitMinutes      float64
}

func (in *CreateOrderInput) validate() error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return fmt.Errorf("customer_id required")
	}
	if strings.TrimSpace(in.PickupAddress) == "" {
		return fmt.Errorf("pickup_address required")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		return fmt.Errorf("delivery_address required")
	}
	if strings.TrimSpace(in.ItemDescription) == "" {
		return fmt.Errorf("item_description required")
	}
	if strings.TrimSpace(in.VehicleType) == "" {
		return fmt.Errorf("vehicle_type required")
	}
	if !in.ServiceType.Valid() {
		return fmt.Errorf("service_type must be %s or %s", ServicePasundo, ServicePasugo)
	}
	if len(in.PhotoURLs) > storage.MaxOrderPhotos {
		return fmt.Errorf("at most %d photos allowed", storage.MaxOrderPhotos)
	}
	if in.Booking && in.BookedAt == nil {
		return fmt.Errorf("booked_at required for booking order")
	}
	if in.DistanceKm < 0 || in.EstimatedMinutes < 0 || in.WaitMinutes < 0 {
		return fmt.Errorf("distance/duration must be non-negative")
	}
	return nil
}

// CreateOrder 校验入参、计费并落库（status=pending）。
// 车型没有费率时订单仍可创建，金额为 0（"费率不可用"降级）。
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if err := in.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	o := &Order{
		ID:               uuid.NewString(),
		CustomerID:       strings.TrimSpace(in.CustomerID),
		Status:           StatusPending,
		CourierStatus:    StatusPending,
		PickupAddress:    strings.TrimSpace(in.PickupAddress),
		DeliveryAddress:  strings.TrimSpace(in.DeliveryAddress),
		PickupLat:        in.PickupLat,
		PickupLng:        in.PickupLng,
		DeliveryLat:      in.DeliveryLat,
		DeliveryLng:      in.DeliveryLng,
		ItemDescription:  strings.TrimSpace(in.ItemDescription),
		ItemCategory:     strings.TrimSpace(in.ItemCategory),
		VehicleType:      strings.TrimSpace(in.VehicleType),
		ServiceType:      in.ServiceType,
		PaymentMethod:    strings.TrimSpace(in.PaymentMethod),
		Booking:          in.Booking,
		BookedAt:         in.BookedAt,
		DurationMinutes:  in.DurationMinutes,
		DistanceKm:       in.DistanceKm,
		EstimatedMinutes: in.EstimatedMinutes,
		Rush:             in.Rush,
	}

	if len(in.PhotoURLs) > 0 {
		raw, err := json.Marshal(in.PhotoURLs)
		if err != nil {
			return nil, fmt.Errorf("marshal photo urls: %w", err)
		}
		o.PhotoURLs = datatypes.JSON(raw)
	}

	if s.quoter != nil {
		q, ok, err := s.quoter.Quote(ctx, fare.Input{
			VehicleType:      o.VehicleType,
			DistanceKm:       in.DistanceKm,
			EstimatedMinutes: in.EstimatedMinutes,
			Rush:             in.Rush,
			WaitMinutes:      in.WaitMinutes,
		})
		if err != nil {
			return nil, fmt.Errorf("quote fare: %w", err)
		}
		if ok {
			o.TotalAmount = q.Total
			raw, err := json.Marshal(q.Breakdown)
			if err != nil {
				return nil, fmt.Errorf("marshal fare breakdown: %w", err)
			}
			o.FareBreakdown = datatypes.JSON(raw)
		} else if s.log != nil {
			s.log.Warnf("no vehicle rate for type=%s, order %s created with zero fare", o.VehicleType, o.ID)
		}
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, o)
	s.publish(ctx, "orders", "insert", o.ID)
	return o, nil
}

// Accept 骑手接单：
// - 接单前置校验（即时单占用 / 预约时间窗重叠）
// - 条件更新 WHERE status='pending'，被并发抢走时返回 ErrOrderTaken
func (s *Service) Accept(ctx context.Context, orderID, courierID string) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	courierID = strings.TrimSpace(courierID)
	if orderID == "" || courierID == "" {
		return nil, fmt.Errorf("order_id/courier_id required")
	}

	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		if IsTerminal(o.Status) {
			return nil, ErrTerminal
		}
		return nil, ErrOrderTaken
	}

	active, err := s.store.ListActiveByCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	if err := CheckAcceptance(o, active); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := ApplyTransition(o, StatusAccepted, now); err != nil {
		return nil, err
	}
	o.CourierID = courierID

	hist := s.historyRow(o, "accepted by courier")
	if err := s.store.SaveTransition(ctx, o, StatusPending, hist, nil); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrOrderTaken
		}
		return nil, err
	}

	s.notifyAccepted(ctx, o)
	s.publish(ctx, "orders", "update", o.ID)
	return o, nil
}

// Advance 沿固定顺序推进一步（不允许跳步），送达时写入一条收入记录。
func (s *Service) Advance(ctx context.Context, orderID string, next Status) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order_id required")
	}
	if next == "" || next == StatusCancelled {
		return nil, fmt.Errorf("invalid target status")
	}

	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if IsTerminal(from) {
		return nil, ErrTerminal
	}
	succ, ok := Successor(from)
	if !ok || succ != next {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, next)
	}

	now := time.Now()
	if err := ApplyTransition(o, next, now); err != nil {
		return nil, err
	}

	var earning *CourierEarning
	if next == StatusDelivered {
		typ := EarningDelivery
		if o.Booking {
			typ = EarningBooking
		}
		earning = &CourierEarning{
			ID:        uuid.NewString(),
			CourierID: o.CourierID,
			OrderID:   o.ID,
			Amount:    o.TotalAmount,
			Type:      typ,
		}
	}

	hist := s.historyRow(o, "")
	if err := s.store.SaveTransition(ctx, o, from, hist, earning); err != nil {
		return nil, err
	}

	if next == StatusDelivered {
		s.notifyDelivered(ctx, o)
	} else {
		s.notifyProgress(ctx, o)
	}
	s.publish(ctx, "orders", "update", o.ID)
	return o, nil
}

// Cancel 取消订单；终态下报错。骑手取消时释放订单（清空 courier_id）。
func (s *Service) Cancel(ctx context.Context, orderID string, actor Actor) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, fmt.Errorf("order_id required")
	}

	o, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if IsTerminal(from) {
		return nil, ErrTerminal
	}

	now := time.Now()
	if err := ApplyTransition(o, StatusCancelled, now); err != nil {
		return nil, err
	}
	if actor == ActorCourier {
		o.CourierID = ""
	}

	hist := s.historyRow(o, fmt.Sprintf("cancelled by %s", actor))
	if err := s.store.SaveTransition(ctx, o, from, hist, nil); err != nil {
		return nil, err
	}

	s.notifyCancelled(ctx, o, actor)
	s.publish(ctx, "orders", "update", o.ID)
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id required")
	}
	return s.store.GetByID(ctx, id)
}

// ListOrdersFilter 查询条件。
type ListOrdersFilter struct {
	CustomerID string
	CourierID  string
	Status     Status
	Offset     int
	Limit      int
}

func (s *Service) ListOrders(ctx context.Context, f ListOrdersFilter) ([]Order, int64, error) {
	if s == nil || s.store == nil {
		return nil, 0, fmt.Errorf("service not initialized")
	}
	return s.store.List(ctx, strings.TrimSpace(f.CustomerID), strings.TrimSpace(f.CourierID), f.Status, f.Offset, f.Limit)
}

func (s *Service) History(ctx context.Context, orderID string) ([]StatusHistory, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.ListHistory(ctx, strings.TrimSpace(orderID))
}

func (s *Service) Earnings(ctx context.Context, courierID string) ([]CourierEarning, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return s.store.ListEarnings(ctx, strings.TrimSpace(courierID))
}

// BookingsOn 骑手某天的预约日程。
func (s *Service) BookingsOn(ctx context.Context, courierID string, date time.Time) ([]Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	courierID = strings.TrimSpace(courierID)
	if courierID == "" {
		return nil, fmt.Errorf("%w: courier_id required", ErrInvalidInput)
	}
	return s.store.ListBookingsOn(ctx, courierID, date)
}

// OrderReceipt 送达订单的文本回执。
func (s *Service) OrderReceipt(ctx context.Context, id string) (string, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return "", err
	}
	return Receipt(o)
}

// RouteQuoteInput 下单前试算的入参。坐标缺失时按地址做地理编码。
type RouteQuoteInput struct {
	PickupAddress   string
	DeliveryAddress string
	PickupLat       *float64
	PickupLng       *float64
	DeliveryLat     *float64
	DeliveryLng     *float64

	VehicleType string
	Rush        bool
}

// RouteQuote 试算结果：解析后的起终点坐标、路线、费用明细。
type RouteQuote struct {
	Pickup   geo.Point       `json:"pickup"`
	Delivery geo.Point       `json:"delivery"`
	Route    geo.RouteResult `json:"route"`
	Quote    fare.Quote      `json:"quote"`
}

// QuoteRoute 下单前试算：解析起终点坐标、规划路线，再按路线的里程和时长报价。
func (s *Service) QuoteRoute(ctx context.Context, in RouteQuoteInput) (*RouteQuote, error) {
	if s == nil || s.quoter == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if s.planner == nil {
		return nil, fmt.Errorf("route planner not configured")
	}
	vehicleType := strings.TrimSpace(in.VehicleType)
	if vehicleType == "" {
		return nil, fmt.Errorf("%w: vehicle_type required", ErrInvalidInput)
	}

	pickup, err := s.resolvePoint(ctx, in.PickupLat, in.PickupLng, in.PickupAddress, "pickup")
	if err != nil {
		return nil, err
	}
	delivery, err := s.resolvePoint(ctx, in.DeliveryLat, in.DeliveryLng, in.DeliveryAddress, "delivery")
	if err != nil {
		return nil, err
	}

	route, err := s.planner.Route(ctx, pickup, delivery)
	if err != nil {
		return nil, fmt.Errorf("plan route: %w", err)
	}

	q, ok, err := s.quoter.Quote(ctx, fare.Input{
		VehicleType:      vehicleType,
		DistanceKm:       route.DistanceKm,
		EstimatedMinutes: route.DurationMinutes,
		Rush:             in.Rush,
	})
	if err != nil {
		return nil, fmt.Errorf("quote fare: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no rate for vehicle type %s", ErrInvalidInput, vehicleType)
	}
	return &RouteQuote{Pickup: pickup, Delivery: delivery, Route: *route, Quote: q}, nil
}

func (s *Service) resolvePoint(ctx context.Context, lat, lng *float64, address, side string) (geo.Point, error) {
	if lat != nil && lng != nil {
		return geo.Point{Lat: *lat, Lng: *lng}, nil
	}
	if strings.TrimSpace(address) == "" {
		return geo.Point{}, fmt.Errorf("%w: %s address or coordinates required", ErrInvalidInput, side)
	}
	place, err := s.planner.Geocode(ctx, address)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode %s address: %w", side, err)
	}
	return place.Point, nil
}

// AttachPhoto 上传一张物品照片并追加到订单的 photo_urls。
// 只有 pending 订单可以补传，总数不超过 storage.MaxOrderPhotos。
func (s *Service) AttachPhoto(ctx context.Context, orderID, filename string, r io.Reader) (*Order, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("photo uploader not configured")
	}

	o, err := s.store.GetByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: photos can only be added while pending", ErrConflict)
	}

	var urls []string
	if len(o.PhotoURLs) > 0 {
		if err := json.Unmarshal(o.PhotoURLs, &urls); err != nil {
			return nil, fmt.Errorf("decode photo urls: %w", err)
		}
	}
	if len(urls) >= storage.MaxOrderPhotos {
		return nil, fmt.Errorf("%w: at most %d photos allowed", ErrInvalidInput, storage.MaxOrderPhotos)
	}

	url, err := s.uploader.Upload(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	urls = append(urls, url)

	raw, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("marshal photo urls: %w", err)
	}
	o.PhotoURLs = datatypes.JSON(raw)
	if err := s.store.UpdatePhotos(ctx, o.ID, o.PhotoURLs); err != nil {
		return nil, err
	}

	s.publish(ctx, "orders", "update", o.ID)
	return o, nil
}

func (s *Service) historyRow(o *Order, notes string) *StatusHistory {
	return &StatusHistory{
		ID:            uuid.NewString(),
		OrderID:       o.ID,
		Status:        o.Status,
		CourierStatus: o.CourierStatus,
		Notes:         notes,
	}
}

// publish 变更事件发布失败只记日志，不影响主流程。
func (s *Service) publish(ctx context.Context, table, eventType, id string) {
	if s.feed == nil {
		return
	}
	if err := s.feed.PublishChange(ctx, table, eventType, id); err != nil && s.log != nil {
		s.log.Warnf("publish change event table=%s id=%s: %v", table, id, err)
	}
}

func (s *Service) notifyCreated(ctx context.Context, o *Order) {
	if s.notifier != nil {
		s.notifier.OrderCreated(ctx, o)
	}
}

func (s *Service) notifyAccepted(ctx context.Context, o *Order) {
	if s.notifier != nil {
		s.notifier.OrderAccepted(ctx, o)
	}
}

func (s *Service) notifyProgress(ctx context.Context, o *Order) {
	if s.notifier != nil {
		s.notifier.OrderProgress(ctx, o)
	}
}

func (s *Service) notifyDelivered(ctx context.Context, o *Order) {
	if s.notifier != nil {
		s.notifier.OrderDelivered(ctx, o)
	}
}

func (s *Service) notifyCancelled(ctx context.Context, o *Order, actor Actor) {
	if s.notifier != nil {
		s.notifier.OrderCancelled(ctx, o, actor)
	}
}
