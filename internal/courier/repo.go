package courier

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

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

func (r *Repo) Create(ctx context.Context, c *Courier) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(c).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Courier, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Courier
	if err := db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) GetByUserID(ctx context.Context, userID string) (*Courier, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Courier
	if err := db.Where("user_id = ?", userID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListApproved 返回全部已通过审核的骑手（新单广播的候选集合）。
func (r *Repo) ListApproved(ctx context.Context) ([]Courier, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var couriers []Courier
	if err := db.Where("application_status = ?", ApplicationApproved).Find(&couriers).Error; err != nil {
		return nil, err
	}
	return couriers, nil
}

// UpdateApplicationStatus 管理员审核骑手申请。
func (r *Repo) UpdateApplicationStatus(ctx context.Context, id string, status ApplicationStatus, now time.Time) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	updates := map[string]interface{}{"application_status": status}
	switch status {
	case ApplicationApproved:
		updates["approved_at"] = now
	case ApplicationSuspended:
		updates["suspended_at"] = now
	}
	res := db.Model(&Courier{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List 分页列出骑手（管理后台用）。
func (r *Repo) List(ctx context.Context, status ApplicationStatus, offset, limit int) ([]Courier, int64, error) {
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

	q := db.Model(&Courier{})
	if status != "" {
		q = q.Where("application_status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var couriers []Courier
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&couriers).Error; err != nil {
		return nil, 0, err
	}
	return couriers, total, nil
}
