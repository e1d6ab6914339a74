package notification

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

func (r *Repo) Insert(ctx context.Context, n *Notification) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(n).Error
}

// InsertBatch 批量落库（广播场景一次事件多条记录）。
func (r *Repo) InsertBatch(ctx context.Context, ns []Notification) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	if len(ns) == 0 {
		return nil
	}
	return db.Create(&ns).Error
}

// ListByRecipient 按接收方倒序分页；unreadOnly 只取未读。
func (r *Repo) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, offset, limit int) ([]Notification, int64, error) {
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

	q := db.Model(&Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ns []Notification
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&ns).Error; err != nil {
		return nil, 0, err
	}
	return ns, total, nil
}

// MarkRead 标记单条已读；只允许接收方本人操作。
func (r *Repo) MarkRead(ctx context.Context, id, recipientID string, now time.Time) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	res := db.Model(&Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{"read": true, "read_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkAllRead 一键全部已读。
func (r *Repo) MarkAllRead(ctx context.Context, recipientID string, now time.Time) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Model(&Notification{}).
		Where("recipient_id = ? AND `read` = ?", recipientID, false).
		Updates(map[string]interface{}{"read": true, "read_at": now}).Error
}
