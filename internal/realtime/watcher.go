package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/common/logger"
	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
)

// DefaultAcceptanceTimeout 等骑手接单的上限，超时后调用方应提示重新下单。
const DefaultAcceptanceTimeout = 30 * time.Minute

// ErrAcceptanceTimeout 与 order 包共用同一个哨兵，HTTP 层按它映射超时状态码。
var ErrAcceptanceTimeout = order.ErrAcceptanceTimeout

const ordersTable = "orders"

// Subscriber 变更流订阅接口，由 Feed 实现。
type Subscriber interface {
	Subscribe(ctx context.Context, table string) (<-chan ChangeEvent, func(), error)
}

// FetchFunc 按主键回查订单最新行。
type FetchFunc func(ctx context.Context, id string) (*order.Order, error)

// OrderWatcher 维护订单表的内存规约视图：收到变更事件只做"按 id 回查再合并"，
// 事件本身不作为数据来源，乱序或丢失事件最多导致视图短暂落后。
type OrderWatcher struct {
	feed  Subscriber
	fetch FetchFunc
	log   logger.Logger

	mu     sync.RWMutex
	orders map[string]order.Order
}

func NewOrderWatcher(feed Subscriber, fetch FetchFunc, log logger.Logger) *OrderWatcher {
	return &OrderWatcher{
		feed:   feed,
		fetch:  fetch,
		log:    log,
		orders: make(map[string]order.Order),
	}
}

// Run 消费订单变更流直到 ctx 取消。回查失败跳过该事件，等下一次变更补上。
func (w *OrderWatcher) Run(ctx context.Context) error {
	events, stop, err := w.feed.Subscribe(ctx, ordersTable)
	if err != nil {
		return err
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			w.applyEvent(ctx, ev)
		}
	}
}

func (w *OrderWatcher) applyEvent(ctx context.Context, ev ChangeEvent) {
	if ev.Type == EventDelete {
		w.mu.Lock()
		delete(w.orders, ev.ID)
		w.mu.Unlock()
		return
	}

	o, err := w.fetch(ctx, ev.ID)
	if err != nil {
		if w.log != nil {
			w.log.Warnf("refetch order %s after %s event: %v", ev.ID, ev.Type, err)
		}
		return
	}
	w.mu.Lock()
	w.orders[o.ID] = *o
	w.mu.Unlock()
}

// Get 读取视图里的订单快照。
func (w *OrderWatcher) Get(id string) (order.Order, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	o, ok := w.orders[id]
	return o, ok
}

// Snapshot 整表快照拷贝。
func (w *OrderWatcher) Snapshot() []order.Order {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]order.Order, 0, len(w.orders))
	for _, o := range w.orders {
		out = append(out, o)
	}
	return out
}

// WaitForAcceptance 阻塞等待订单离开 pending 状态。
// timeout<=0 时用 DefaultAcceptanceTimeout。返回离开 pending 后的订单快照；
// 超时返回 ErrAcceptanceTimeout，并退订变更流。
func (w *OrderWatcher) WaitForAcceptance(ctx context.Context, orderID string, timeout time.Duration) (*order.Order, error) {
	if timeout <= 0 {
		timeout = DefaultAcceptanceTimeout
	}

	events, stop, err := w.feed.Subscribe(ctx, ordersTable)
	if err != nil {
		return nil, err
	}
	defer stop()

	// 先查一次，订阅前就已接单的不用等事件
	if o, err := w.fetch(ctx, orderID); err == nil && o.Status != order.StatusPending {
		return o, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, ErrAcceptanceTimeout
		case ev, ok := <-events:
			if !ok {
				return nil, errors.New("change feed closed")
			}
			if ev.ID != orderID {
				continue
			}
			o, err := w.fetch(ctx, orderID)
			if err != nil {
				if w.log != nil {
					w.log.Warnf("refetch order %s while waiting: %v", orderID, err)
				}
				continue
			}
			if o.Status != order.StatusPending {
				return o, nil
			}
		}
	}
}
