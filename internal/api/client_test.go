package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// testBackend is a scriptable stand-in for the restaurant backend.
type testBackend struct {
	mutex      sync.Mutex
	menu       []wireMenuItem
	menuAfter  []wireMenuItem // served after the first menu call, when set
	menuCalls  int
	orders     []wireOrder
	lastOrder  *createOrderRequest
	lastAuth   string
	totalCalls int
}

func (b *testBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mutex.Lock()
		defer b.mutex.Unlock()
		b.totalCalls++
		b.lastAuth = r.Header.Get("Authorization")

		switch {
		case r.URL.Path == "/api/menu":
			b.menuCalls++
			menu := b.menu
			if b.menuCalls > 1 && b.menuAfter != nil {
				menu = b.menuAfter
			}
			json.NewEncoder(w).Encode(menu)

		case r.URL.Path == "/api/orders" && r.Method == "POST":
			var req createOrderRequest
			json.NewDecoder(r.Body).Decode(&req)
			b.lastOrder = &req

			var total float64
			items := make([]wireOrderItem, 0, len(req.Items))
			for _, item := range req.Items {
				total += item.Price * float64(item.Quantity)
				items = append(items, wireOrderItem{
					MenuItemID: item.MenuItemID,
					Quantity:   item.Quantity,
					Price:      item.Price,
				})
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(wireOrder{
				ID:        101,
				Items:     items,
				Total:     total,
				Status:    "pending",
				CreatedAt: time.Now().Format(time.RFC3339),
			})

		case r.URL.Path == "/api/customers/123/orders":
			json.NewEncoder(w).Encode(b.orders)

		case r.URL.Path == "/api/orders/101":
			if len(b.orders) == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(b.orders[0])

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T, backend *testBackend, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)
	return NewClient(server.URL, testLogger(), opts...)
}

func TestGetProductsMapsFields(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{
			{ID: 1, Name: "Pizza", Description: "Wood fired", Price: 12.5, Category: "Mains", Available: 1, Image: "pizza.png"},
			{ID: 2, Name: "Fries", Price: 4.5, Available: 0},
		},
	}
	client := newTestClient(t, backend)

	products, err := client.GetProducts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}

	if products[0].Category != "Mains" || !products[0].Available || products[0].Image != "pizza.png" {
		t.Errorf("first product mapped wrong: %+v", products[0])
	}

	// Missing description and category take defaults, available 0 is false.
	if products[1].Description != "" {
		t.Errorf("expected empty description, got %q", products[1].Description)
	}
	if products[1].Category != "General" {
		t.Errorf("expected default category, got %q", products[1].Category)
	}
	if products[1].Available {
		t.Error("expected available=0 to map to false")
	}
}

func TestCreateOrderCapturesSubmissionPrice(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{
			{ID: 7, Name: "Pizza", Price: 12.5, Available: 1},
		},
		// Price changes between submission and the reconciliation re-fetch.
		menuAfter: []wireMenuItem{
			{ID: 7, Name: "Pizza", Price: 15.0, Available: 1},
		},
	}
	client := newTestClient(t, backend)

	order, err := client.CreateOrder([]Selection{{ProductID: 7, Quantity: 2}}, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	if order.Lines[0].UnitPrice != 12.5 {
		t.Errorf("expected captured unit price 12.5, got %v", order.Lines[0].UnitPrice)
	}
	if backend.lastOrder.Items[0].Price != 12.5 {
		t.Errorf("expected submitted price 12.5, got %v", backend.lastOrder.Items[0].Price)
	}
	// The embedded product detail reflects the fresh catalog.
	if order.Lines[0].Product.Price != 15.0 {
		t.Errorf("expected reconciled product price 15.0, got %v", order.Lines[0].Product.Price)
	}
}

func TestCreateOrderUnknownProductDefaultsToZeroPrice(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 12.5, Available: 1}},
	}
	client := newTestClient(t, backend)

	order, err := client.CreateOrder([]Selection{{ProductID: 999, Quantity: 1}}, "", nil)
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}

	if backend.lastOrder.Items[0].Price != 0 {
		t.Errorf("expected price 0 for unknown product, got %v", backend.lastOrder.Items[0].Price)
	}
	if order.Lines[0].Product.Name != "Product" {
		t.Errorf("expected synthetic product, got %+v", order.Lines[0].Product)
	}
	if !order.Lines[0].Product.Available {
		t.Error("expected synthetic product to report available")
	}
}

func TestCreateOrderPlaceholderCustomer(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 12.5, Available: 1}},
	}
	client := newTestClient(t, backend)

	if _, err := client.CreateOrder([]Selection{{ProductID: 1, Quantity: 1}}, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.lastOrder.CustomerName != "Customer" || backend.lastOrder.CustomerPhone != "0000000000" {
		t.Errorf("expected placeholder identity, got %q / %q",
			backend.lastOrder.CustomerName, backend.lastOrder.CustomerPhone)
	}

	customer := &models.Customer{Name: "Ana", Phone: "123"}
	if _, err := client.CreateOrder([]Selection{{ProductID: 1, Quantity: 1}}, "no onions", customer); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.lastOrder.CustomerName != "Ana" || backend.lastOrder.CustomerPhone != "123" {
		t.Errorf("expected real identity, got %q / %q",
			backend.lastOrder.CustomerName, backend.lastOrder.CustomerPhone)
	}
	if backend.lastOrder.Items[0].Notes != "no onions" {
		t.Errorf("expected notes on line item, got %q", backend.lastOrder.Items[0].Notes)
	}
}

func TestCreateOrderNotesAndStatusOnResult(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 10, Available: 1}},
	}
	client := newTestClient(t, backend)

	order, err := client.CreateOrder([]Selection{{ProductID: 1, Quantity: 3}}, "ring twice", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 101 || order.Status != models.StatusPending {
		t.Errorf("expected order 101 pending, got %d %s", order.ID, order.Status)
	}
	if order.Total != 30 {
		t.Errorf("expected total 30, got %v", order.Total)
	}
	if order.Notes != "ring twice" {
		t.Errorf("expected notes on order, got %q", order.Notes)
	}
}

func TestGetOrdersEmptyPhoneMakesNoNetworkCall(t *testing.T) {
	backend := &testBackend{}
	client := newTestClient(t, backend)

	orders, err := client.GetOrders("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("expected empty history, got %d orders", len(orders))
	}
	if backend.totalCalls != 0 {
		t.Errorf("expected no network calls, got %d", backend.totalCalls)
	}
}

func TestGetOrdersReconcilesProducts(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 12.5, Available: 1}},
		orders: []wireOrder{
			{
				ID:           101,
				CustomerName: "Ana",
				Items: []wireOrderItem{
					{MenuItemID: 1, Quantity: 2, Price: 12.5},
					{MenuItemID: 999, Quantity: 1, Price: 3.0},
				},
				Total:     28.0,
				Status:    "ready",
				CreatedAt: "2026-08-01T12:00:00Z",
			},
		},
	}
	client := newTestClient(t, backend)

	orders, err := client.GetOrders("123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	order := orders[0]
	if order.Status != models.StatusReady {
		t.Errorf("expected status ready, got %s", order.Status)
	}
	if order.Customer.Name != "Ana" {
		t.Errorf("expected owner from wire record, got %q", order.Customer.Name)
	}
	if order.CreatedAt.IsZero() {
		t.Error("expected parsed creation time")
	}

	if order.Lines[0].Product.Name != "Pizza" {
		t.Errorf("expected resolved product, got %+v", order.Lines[0].Product)
	}

	// The unknown id degrades to a synthetic product carrying the
	// captured price, never a missing reference.
	synthetic := order.Lines[1].Product
	if synthetic.Name != "Product" || synthetic.Price != 3.0 || !synthetic.Available {
		t.Errorf("unexpected synthetic product: %+v", synthetic)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	backend := &testBackend{}
	client := newTestClient(t, backend)

	if _, err := client.GetOrder(101); err == nil {
		t.Fatal("expected error for missing order")
	}
}

func TestGetOrderReconciles(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 12.5, Available: 1}},
		orders: []wireOrder{
			{
				ID:        101,
				Items:     []wireOrderItem{{MenuItemID: 1, Quantity: 1, Price: 12.5}},
				Total:     12.5,
				Status:    "preparing",
				CreatedAt: "2026-08-01T12:00:00Z",
			},
		},
	}
	client := newTestClient(t, backend)

	order, err := client.GetOrder(101)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != models.StatusPreparing {
		t.Errorf("expected status preparing, got %s", order.Status)
	}
	if order.Lines[0].Product.Name != "Pizza" {
		t.Errorf("expected resolved product, got %+v", order.Lines[0].Product)
	}
	// Missing customer fields fall back to the placeholder identity.
	if order.Customer.Name != "Customer" || order.Customer.Phone != "0000000000" {
		t.Errorf("expected placeholder owner, got %+v", order.Customer)
	}
}

func TestBearerTokenAttached(t *testing.T) {
	backend := &testBackend{menu: []wireMenuItem{}}
	client := newTestClient(t, backend)

	client.SetToken("tok-9")
	if _, err := client.GetProducts(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.lastAuth != "Bearer tok-9" {
		t.Errorf("expected bearer header, got %q", backend.lastAuth)
	}

	client.SetToken("")
	if _, err := client.GetProducts(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.lastAuth != "" {
		t.Errorf("expected no auth header after clearing token, got %q", backend.lastAuth)
	}
}

func TestCatalogCacheCollapsesFetches(t *testing.T) {
	backend := &testBackend{
		menu: []wireMenuItem{{ID: 1, Name: "Pizza", Price: 12.5, Available: 1}},
	}
	client := newTestClient(t, backend, WithCatalogCache(time.Minute))

	if _, err := client.CreateOrder([]Selection{{ProductID: 1, Quantity: 1}}, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend.menuCalls != 1 {
		t.Errorf("expected a single cached catalog fetch, got %d", backend.menuCalls)
	}

	// Without the cache the same submission fetches twice.
	uncached := &testBackend{menu: backend.menu}
	client = newTestClient(t, uncached)
	if _, err := client.CreateOrder([]Selection{{ProductID: 1, Quantity: 1}}, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if uncached.menuCalls != 2 {
		t.Errorf("expected two catalog fetches without cache, got %d", uncached.menuCalls)
	}
}

func TestRegisterThenLogin(t *testing.T) {
	registered := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/customers/register":
			var req registerRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Name != "Ana" || req.Age != 30 {
				t.Errorf("unexpected register payload: %+v", req)
			}
			registered = true
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(wireCustomer{ID: 5, Name: req.Name, Phone: req.Phone})
		case "/api/customers/login":
			if !registered {
				t.Error("login before register")
			}
			json.NewEncoder(w).Encode(loginResponse{
				Customer: wireCustomer{ID: 5, Name: "Ana", Phone: "123"},
				Token:    "tok-5",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, testLogger())
	customer, token, err := client.Register("Ana", "123", "Rua A", 30, "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if customer.ID != 5 || token != "tok-5" {
		t.Errorf("unexpected result: %+v token=%q", customer, token)
	}
}
