package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"

	goredis "github.com/go-redis/redis/v8"
)

// 变更事件类型。
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent 表级变更事件。只携带主键，订阅端自己回查最新行，
// 避免事件里夹带过期快照。
type ChangeEvent struct {
	Table string    `json:"table"`
	Type  string    `json:"type"`
	ID    string    `json:"id"`
	At    time.Time `json:"at"`
}

// Feed 基于 Redis Pub/Sub 的变更推送。
type Feed struct {
	rdb *goredis.Client
	log logger.Logger
}

func NewFeed(rdb *goredis.Client, log logger.Logger) *Feed {
	return &Feed{rdb: rdb, log: log}
}

func channelFor(table string) string {
	return "feed:" + table
}

// PublishChange 发布一条表变更。写库成功后调用，发布失败由调用方决定是否降级。
func (f *Feed) PublishChange(ctx context.Context, table, eventType, id string) error {
	ev := ChangeEvent{Table: table, Type: eventType, ID: id, At: time.Now()}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if err := f.rdb.Publish(ctx, channelFor(table), payload).Err(); err != nil {
		return fmt.Errorf("publish change event: %w", err)
	}
	return nil
}

// Subscribe 订阅一张表的变更流。返回的 stop 必须调用，否则泄漏连接。
// 解析失败的消息丢弃并记日志，不中断订阅。
func (f *Feed) Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, func(), error) {
	pubsub := f.rdb.Subscribe(ctx, channelFor(table))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	out := make(chan ChangeEvent, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				if f.log != nil {
					f.log.Warnf("drop malformed change event on %s: %v", msg.Channel, err)
				}
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() { _ = pubsub.Close() }
	return out, stop, nil
}
