package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/internal/ws"
)

// Mock restaurant backend for local development and integration tests.
// Implements the HTTP surface the client consumes, keeps everything in
// memory, and walks each order through the kitchen states on a timer,
// broadcasting every transition over /ws.

var statusFlow = []string{"pending", "preparing", "ready", "delivered"}

type customer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type menuItem struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
	Available   int     `json:"available"`
	Image       string  `json:"image,omitempty"`
}

type orderItem struct {
	MenuItemID int     `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes,omitempty"`
}

type order struct {
	ID            int         `json:"id"`
	CustomerName  string      `json:"customer_name"`
	CustomerPhone string      `json:"customer_phone"`
	Items         []orderItem `json:"items"`
	Total         float64     `json:"total"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

type backend struct {
	mutex      sync.RWMutex
	customers  map[string]*customer // keyed by phone
	orders     map[int]*order
	nextID     int
	nextCustID int

	menu    []menuItem
	advance time.Duration
	hub     *ws.Hub
	logger  *logrus.Logger
}

func newBackend(advance time.Duration, hub *ws.Hub, logger *logrus.Logger) *backend {
	return &backend{
		customers:  make(map[string]*customer),
		orders:     make(map[int]*order),
		nextID:     1,
		nextCustID: 1,
		menu:       seedMenu(),
		advance:    advance,
		hub:        hub,
		logger:     logger,
	}
}

func seedMenu() []menuItem {
	return []menuItem{
		{ID: 1, Name: "Margherita Pizza", Description: "Tomato, mozzarella, basil", Price: 12.50, Category: "Pizza", Available: 1},
		{ID: 2, Name: "Calabresa Pizza", Description: "Calabresa sausage and onions", Price: 14.00, Category: "Pizza", Available: 1},
		{ID: 3, Name: "Cheeseburger", Description: "Beef, cheddar, pickles", Price: 9.90, Category: "Burgers", Available: 1},
		{ID: 4, Name: "Fries", Price: 4.50, Available: 1},
		{ID: 5, Name: "Guarana", Description: "Can, 350ml", Price: 2.50, Category: "Drinks", Available: 1},
		{ID: 6, Name: "Pudim", Description: "Caramel flan", Price: 5.00, Category: "Desserts", Available: 0},
	}
}

func (b *backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" {
		respondError(w, http.StatusBadRequest, "phone is required")
		return
	}

	b.mutex.Lock()
	c, ok := b.customers[req.Phone]
	if !ok {
		// Unregistered phones get an account on the spot; a dev mock has
		// no credential store to check against.
		c = &customer{ID: b.nextCustID, Name: "Customer", Phone: req.Phone}
		b.nextCustID++
		b.customers[req.Phone] = c
	}
	b.mutex.Unlock()

	b.logger.WithField("phone", req.Phone).Info("Customer logged in")
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"customer": c,
		"token":    uuid.New().String(),
	})
}

func (b *backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		Phone   string `json:"phone"`
		Address string `json:"address"`
		Age     int    `json:"age"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Phone == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "name and phone are required")
		return
	}

	b.mutex.Lock()
	if _, exists := b.customers[req.Phone]; exists {
		b.mutex.Unlock()
		respondError(w, http.StatusConflict, "phone already registered")
		return
	}
	c := &customer{ID: b.nextCustID, Name: req.Name, Phone: req.Phone, Address: req.Address}
	b.nextCustID++
	b.customers[req.Phone] = c
	b.mutex.Unlock()

	b.logger.WithFields(logrus.Fields{
		"phone": req.Phone,
		"name":  req.Name,
	}).Info("Customer registered")
	respondJSON(w, http.StatusCreated, c)
}

func (b *backend) handleMenu(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, b.menu)
}

func (b *backend) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerName  string      `json:"customer_name"`
		CustomerPhone string      `json:"customer_phone"`
		Items         []orderItem `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "order needs at least one item")
		return
	}

	var total float64
	for _, item := range req.Items {
		total += item.Price * float64(item.Quantity)
	}

	b.mutex.Lock()
	o := &order{
		ID:            b.nextID,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Items:         req.Items,
		Total:         total,
		Status:        "pending",
		CreatedAt:     time.Now(),
	}
	b.nextID++
	b.orders[o.ID] = o
	b.mutex.Unlock()

	b.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"phone":    o.CustomerPhone,
		"total":    o.Total,
	}).Info("Order received")

	go b.advanceOrder(o.ID)
	respondJSON(w, http.StatusCreated, o)
}

// advanceOrder walks the order through the kitchen states, broadcasting
// each transition to connected watchers.
func (b *backend) advanceOrder(id int) {
	for _, status := range statusFlow[1:] {
		time.Sleep(b.advance)

		b.mutex.Lock()
		o, ok := b.orders[id]
		if !ok || o.Status == "cancelled" {
			b.mutex.Unlock()
			return
		}
		o.Status = status
		b.mutex.Unlock()

		b.logger.WithFields(logrus.Fields{
			"order_id": id,
			"status":   status,
		}).Info("Order advanced")
		b.hub.Broadcast("order_status", map[string]interface{}{
			"order_id": id,
			"status":   status,
		})
	}
}

func (b *backend) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	phone := mux.Vars(r)["phone"]

	b.mutex.RLock()
	orders := make([]*order, 0)
	for _, o := range b.orders {
		if o.CustomerPhone == phone {
			orders = append(orders, o)
		}
	}
	b.mutex.RUnlock()

	respondJSON(w, http.StatusOK, orders)
}

func (b *backend) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	b.mutex.RLock()
	o, ok := b.orders[id]
	b.mutex.RUnlock()

	if !ok {
		respondError(w, http.StatusNotFound, "order not found")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	port := getEnv("PORT", "3001")
	advance, err := time.ParseDuration(getEnv("ORDER_ADVANCE_INTERVAL", "15s"))
	if err != nil {
		logger.WithError(err).Fatal("Invalid ORDER_ADVANCE_INTERVAL")
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	b := newBackend(advance, hub, logger)

	router := mux.NewRouter()
	router.HandleFunc("/api/customers/login", b.handleLogin).Methods("POST")
	router.HandleFunc("/api/customers/register", b.handleRegister).Methods("POST")
	router.HandleFunc("/api/menu", b.handleMenu).Methods("GET")
	router.HandleFunc("/api/orders", b.handleCreateOrder).Methods("POST")
	router.HandleFunc("/api/customers/{phone}/orders", b.handleCustomerOrders).Methods("GET")
	router.HandleFunc("/api/orders/{id}", b.handleGetOrder).Methods("GET")
	router.HandleFunc("/ws", hub.HandleWebSocket)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", port).Info("Mock backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down mock backend")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
