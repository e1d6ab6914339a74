package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrConflict 条件更新未命中：订单状态已被并发修改（比如被另一骑手抢单）。
var ErrConflict = errors.New("order status changed concurrently")

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

func (r *Repo) Insert(ctx context.Context, o *Order) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(o).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var o Order
	if err := db.Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// SaveTransition 把一次状态流转作为原子操作落库：
// - 条件更新 WHERE id AND status = from，未命中行视为并发冲突（ErrConflict）
// - 同事务追加历史行，送达时追加收入行
// 三者要么全部成功要么全部回滚，对调用方等价于一次写。
func (r *Repo) SaveTransition(ctx context.Context, o *Order, from Status, hist *StatusHistory, earning *CourierEarning) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if o == nil || hist == nil {
		return fmt.Errorf("order/history is nil")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":         o.Status,
			"courier_status": o.CourierStatus,
			"courier_id":     o.CourierID,
			"accepted_at":    o.AcceptedAt,
			"picked_up_at":   o.PickedUpAt,
			"on_the_way_at":  o.OnTheWayAt,
			"arrived_at":     o.ArrivedAt,
			"delivered_at":   o.DeliveredAt,
			"cancelled_at":   o.CancelledAt,
		}
		res := tx.Model(&Order{}).Where("id = ? AND status = ?", o.ID, from).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		if err := tx.Create(hist).Error; err != nil {
			return err
		}
		if earning != nil {
			if err := tx.Create(earning).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdatePhotos 覆盖订单的照片列表。
func (r *Repo) UpdatePhotos(ctx context.Context, id string, photos datatypes.JSON) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Order{}).Where("id = ?", id).Update("photo_urls", photos)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 支持按 customer_id / courier_id / status 过滤 + 分页。
func (r *Repo) List(ctx context.Context, customerID, courierID string, status Status, offset, limit int) ([]Order, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Order{})
	if customerID != "" {
		q = q.Where("customer_id = ?", customerID)
	}
	if courierID != "" {
		q = q.Where("courier_id = ?", courierID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []Order
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListActiveByCourier 骑手当前占用中的订单（接单校验用）。
func (r *Repo) ListActiveByCourier(ctx context.Context, courierID string) ([]Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var orders []Order
	err := db.Where("courier_id = ? AND status IN ?", courierID,
		[]Status{StatusAccepted, StatusPickedUp, StatusOnTheWay, StatusArrived}).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListBookingsOn 骑手某一天的预约单（日程查询；取消的不算）。
func (r *Repo) ListBookingsOn(ctx context.Context, courierID string, date time.Time) ([]Order, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var orders []Order
	err := db.Where("courier_id = ? AND booking = ? AND booked_at >= ? AND booked_at < ? AND status <> ?",
		courierID, true, dayStart, dayEnd, StatusCancelled).
		Order("booked_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListHistory 按时间序返回订单的状态流转日志。
func (r *Repo) ListHistory(ctx context.Context, orderID string) ([]StatusHistory, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rows []StatusHistory
	if err := db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListEarnings 骑手收入记录。
func (r *Repo) ListEarnings(ctx context.Context, courierID string) ([]CourierEarning, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var rows []CourierEarning
	if err := db.Where("courier_id = ?", courierID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
