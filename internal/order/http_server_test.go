package order

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newHTTPTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	return newHTTPTestServerWithWaiter(t, nil)
}

func newHTTPTestServerWithWaiter(t *testing.T, waiter AcceptanceWaiter) (*httptest.Server, *Service) {
	t.Helper()
	svc := newTestService(newMemStore(), &countingNotifier{})
	srv := httptest.NewServer(NewHTTPServer(svc, waiter, nil).Routes())
	t.Cleanup(srv.Close)
	return srv, svc
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestHTTPCreateAndGetOrder(t *testing.T) {
	srv, _ := newHTTPTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{
		"customer_id": "cust-1",
		"pickup_address": "Poblacion, Baliuag",
		"delivery_address": "San Rafael",
		"item_description": "documents",
		"vehicle_type": "motorcycle",
		"service_type": "pasugo",
		"distance_km": 5,
		"estimated_minutes": 15
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}

	var created Order
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Status != StatusPending || created.TotalAmount != 216.72 {
		t.Fatalf("unexpected order: %+v", created)
	}

	getResp, err := http.Get(srv.URL + "/orders/" + created.ID)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("get: status %d", getResp.StatusCode)
	}
}

func TestHTTPCreateOrderValidation(t *testing.T) {
	srv, _ := newHTTPTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{"customer_id":"cust-1"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHTTPAcceptConflicts(t *testing.T) {
	srv, svc := newHTTPTestServer(t)
	o := createTestOrder(t, svc)

	resp := postJSON(t, srv.URL+"/orders/"+o.ID+"/accept", `{"courier_id":"c-1"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept: status %d", resp.StatusCode)
	}

	// 第二个骑手接同一单：409
	resp = postJSON(t, srv.URL+"/orders/"+o.ID+"/accept", `{"courier_id":"c-2"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestHTTPAdvanceSkipRejected(t *testing.T) {
	srv, svc := newHTTPTestServer(t)
	o := createTestOrder(t, svc)

	resp := postJSON(t, srv.URL+"/orders/"+o.ID+"/accept", `{"courier_id":"c-1"}`)
	resp.Body.Close()

	// 跳过 picked_up 直接 on_the_way：409
	resp = postJSON(t, srv.URL+"/orders/"+o.ID+"/advance", `{"status":"on_the_way"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for skip, got %d", resp.StatusCode)
	}

	resp = postJSON(t, srv.URL+"/orders/"+o.ID+"/advance", `{"status":"picked_up"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance: status %d", resp.StatusCode)
	}
}

func TestHTTPGetMissingOrder(t *testing.T) {
	srv, _ := newHTTPTestServer(t)

	resp, err := http.Get(srv.URL + "/orders/no-such-id")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHTTPCreateOrderUnknownServiceType(t *testing.T) {
	srv, _ := newHTTPTestServer(t)

	resp := postJSON(t, srv.URL+"/orders", `{
		"customer_id": "cust-1",
		"pickup_address": "Poblacion, Baliuag",
		"delivery_address": "San Rafael",
		"item_description": "documents",
		"vehicle_type": "motorcycle",
		"service_type": "delivery"
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown service type, got %d", resp.StatusCode)
	}
}

// fixedWaiter 直接返回预置结果的 AcceptanceWaiter。
type fixedWaiter struct {
	o   *Order
	err error
}

func (f fixedWaiter) WaitForAcceptance(ctx context.Context, orderID string, timeout time.Duration) (*Order, error) {
	return f.o, f.err
}

func TestHTTPWaitForAcceptance(t *testing.T) {
	accepted := &Order{ID: "ord-1", Status: StatusAccepted, CourierID: "c-1"}
	srv, _ := newHTTPTestServerWithWaiter(t, fixedWaiter{o: accepted})

	resp, err := http.Get(srv.URL + "/orders/ord-1/wait?timeout_seconds=5")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got Order
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != StatusAccepted || got.CourierID != "c-1" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestHTTPWaitForAcceptanceTimeout(t *testing.T) {
	srv, _ := newHTTPTestServerWithWaiter(t, fixedWaiter{err: ErrAcceptanceTimeout})

	resp, err := http.Get(srv.URL + "/orders/ord-1/wait")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusRequestTimeout {
		t.Fatalf("expected 408, got %d", resp.StatusCode)
	}
}

func TestHTTPRouteQuote(t *testing.T) {
	srv, svc := newHTTPTestServer(t)
	svc.WithRoutePlanner(fakePlanner{})

	resp := postJSON(t, srv.URL+"/orders/quote", `{
		"pickup_address": "Poblacion, Baliuag",
		"delivery_address": "San Rafael",
		"vehicle_type": "motorcycle"
	}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var rq RouteQuote
	if err := json.NewDecoder(resp.Body).Decode(&rq); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rq.Route.DistanceKm != 5 || rq.Quote.Total != 216.72 {
		t.Fatalf("unexpected quote: %+v", rq)
	}
}

func TestHTTPUploadPhoto(t *testing.T) {
	srv, svc := newHTTPTestServer(t)
	svc.WithUploader(&fakeUploader{})
	o := createTestOrder(t, svc)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "item.jpg")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte("img")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	resp, err := http.Post(srv.URL+"/orders/"+o.ID+"/photos", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}

	var got Order
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var urls []string
	if err := json.Unmarshal(got.PhotoURLs, &urls); err != nil || len(urls) != 1 {
		t.Fatalf("expected 1 photo url, got %s (%v)", got.PhotoURLs, err)
	}
}

func TestHTTPCancelBadActor(t *testing.T) {
	srv, svc := newHTTPTestServer(t)
	o := createTestOrder(t, svc)

	resp := postJSON(t, srv.URL+"/orders/"+o.ID+"/cancel", `{"actor":"stranger"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
