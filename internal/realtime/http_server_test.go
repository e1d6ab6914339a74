package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tipsy-De-E/IT314-THE-PICKARRY-sub000/internal/order"
)

func TestFeedOrdersFiltersByStatus(t *testing.T) {
	feed := &fakeFeed{}
	src := newFakeOrderSource()
	w := NewOrderWatcher(feed, src.fetch, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	waitSub(t, feed, 1)

	now := time.Now()
	src.put(order.Order{ID: "ord-1", Status: order.StatusPending, CreatedAt: now})
	src.put(order.Order{ID: "ord-2", Status: order.StatusAccepted, CourierID: "c-1", CreatedAt: now.Add(time.Second)})
	feed.emit(ChangeEvent{Table: "orders", Type: EventInsert, ID: "ord-1"})
	feed.emit(ChangeEvent{Table: "orders", Type: EventInsert, ID: "ord-2"})
	waitFor(t, func() bool {
		_, ok := w.Get("ord-2")
		return ok
	})

	mux := http.NewServeMux()
	NewHTTPServer(w, nil).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/feed/orders?status=pending")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var body struct {
		Orders []order.Order `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orders) != 1 || body.Orders[0].ID != "ord-1" {
		t.Fatalf("expected only the pending order, got %+v", body.Orders)
	}

	// 不带过滤条件返回全部
	all, err := http.Get(srv.URL + "/feed/orders")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer all.Body.Close()
	if err := json.NewDecoder(all.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(body.Orders))
	}
}
