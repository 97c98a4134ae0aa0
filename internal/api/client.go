package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/pkg/models"
)

// Selection is one requested order line: a product id and how many of it.
type Selection struct {
	ProductID int
	Quantity  int
}

// Client talks to the restaurant backend and translates its wire shapes
// into the domain model. It never enforces business rules; price and
// availability stay authoritative on the backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger

	tokenMutex sync.RWMutex
	token      string

	catalogTTL    time.Duration
	cacheMutex    sync.Mutex
	cachedAt      time.Time
	cachedCatalog []models.Product
}

type Option func(*Client)

// WithHTTPClient replaces the default transport, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCatalogCache serves repeated catalog fetches from a short-lived cache
// instead of hitting the backend each time. Off by default: the stock
// behavior re-fetches the catalog on every lookup so order submission
// always captures fresh prices.
func WithCatalogCache(ttl time.Duration) Option {
	return func(c *Client) {
		c.catalogTTL = ttl
	}
}

func NewClient(baseURL string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken installs the bearer credential attached to every subsequent
// request. An empty token clears it.
func (c *Client) SetToken(token string) {
	c.tokenMutex.Lock()
	c.token = token
	c.tokenMutex.Unlock()
}

func (c *Client) do(method, path string, body interface{}) (*http.Response, error) {
	var buf *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewBuffer(jsonData)
	} else {
		buf = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, c.baseURL+path, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	c.tokenMutex.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.tokenMutex.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to backend: %w", err)
	}
	return resp, nil
}

// Login authenticates by phone and password. On success it returns the
// backend's customer record mapped into the domain shape plus the bearer
// token for subsequent requests.
func (c *Client) Login(phone, password string) (models.Customer, string, error) {
	c.logger.WithField("phone", phone).Info("Logging in customer")

	resp, err := c.do("POST", "/api/customers/login", loginRequest{Phone: phone, Password: password})
	if err != nil {
		return models.Customer{}, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Customer{}, "", fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var loginResp loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return models.Customer{}, "", fmt.Errorf("failed to decode login response: %w", err)
	}

	c.logger.WithField("customer_id", loginResp.Customer.ID).Info("Customer logged in")
	return mapCustomer(loginResp.Customer), loginResp.Token, nil
}

// Register creates a customer account and immediately logs it in,
// returning the new customer and its token.
func (c *Client) Register(name, phone, address string, age int, password string) (models.Customer, string, error) {
	c.logger.WithField("phone", phone).Info("Registering customer")

	resp, err := c.do("POST", "/api/customers/register", registerRequest{
		Name:     name,
		Phone:    phone,
		Address:  address,
		Age:      age,
		Password: password,
	})
	if err != nil {
		return models.Customer{}, "", err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return models.Customer{}, "", fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	return c.Login(phone, password)
}

// GetProducts fetches the full menu. It never filters by availability;
// that is a presentation concern.
func (c *Client) GetProducts() ([]models.Product, error) {
	c.logger.Info("Fetching menu from backend")

	resp, err := c.do("GET", "/api/menu", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var items []wireMenuItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode menu response: %w", err)
	}

	products := make([]models.Product, 0, len(items))
	for _, item := range items {
		products = append(products, mapProduct(item))
	}

	c.logger.WithField("count", len(products)).Info("Retrieved menu from backend")
	return products, nil
}

// fetchCatalog is GetProducts behind the optional short-validity cache.
func (c *Client) fetchCatalog() ([]models.Product, error) {
	if c.catalogTTL <= 0 {
		return c.GetProducts()
	}

	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()

	if c.cachedCatalog != nil && time.Since(c.cachedAt) < c.catalogTTL {
		return c.cachedCatalog, nil
	}

	products, err := c.GetProducts()
	if err != nil {
		return nil, err
	}
	c.cachedCatalog = products
	c.cachedAt = time.Now()
	return products, nil
}

// CreateOrder submits the selected lines. It fetches the catalog first so
// each line captures the current price, submits, then resolves the
// response items against the catalog again to hand back a fully
// denormalized order. Unresolvable product ids degrade to price zero on
// the way in and a synthetic product on the way out rather than failing
// the submission.
func (c *Client) CreateOrder(selections []Selection, notes string, customer *models.Customer) (*models.Order, error) {
	c.logger.WithField("line_count", len(selections)).Info("Submitting order")

	catalog, err := c.fetchCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog before order: %w", err)
	}

	items := make([]orderItemRequest, 0, len(selections))
	for _, sel := range selections {
		price := 0.0
		if product, ok := findProduct(catalog, sel.ProductID); ok {
			price = product.Price
		} else {
			c.logger.WithField("product_id", sel.ProductID).Warn("Product not in catalog, submitting with price 0")
		}
		items = append(items, orderItemRequest{
			MenuItemID: sel.ProductID,
			Quantity:   sel.Quantity,
			Price:      price,
			Notes:      notes,
		})
	}

	orderReq := createOrderRequest{
		CustomerName:  placeholderCustomer,
		CustomerPhone: placeholderPhone,
		Items:         items,
	}
	if customer != nil {
		orderReq.CustomerName = customer.Name
		orderReq.CustomerPhone = customer.Phone
	} else {
		c.logger.Warn("Submitting order without a known customer, using placeholder identity")
	}

	resp, err := c.do("POST", "/api/orders", orderReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var wire wireOrder
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	// Fresh catalog again: the response carries only ids and captured
	// prices, the product detail comes from a lookup.
	catalog, err = c.fetchCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog after order: %w", err)
	}

	owner := placeholderOwner("", "")
	if customer != nil {
		owner = *customer
	}

	order := &models.Order{
		ID:        wire.ID,
		Customer:  owner,
		Lines:     c.resolveLines(wire.Items, catalog),
		Total:     wire.Total,
		Status:    models.OrderStatus(wire.Status),
		CreatedAt: time.Now(),
		Notes:     notes,
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"total":    order.Total,
		"status":   order.Status,
	}).Info("Order submitted")

	return order, nil
}

// GetOrders returns the order history for a phone number, with full
// product detail attached to every line. An empty phone means no orders,
// not an error, and makes no network call.
func (c *Client) GetOrders(phone string) ([]models.Order, error) {
	if phone == "" {
		return []models.Order{}, nil
	}

	c.logger.WithField("phone", phone).Info("Fetching order history")

	resp, err := c.do("GET", "/api/customers/"+phone+"/orders", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var wires []wireOrder
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, fmt.Errorf("failed to decode order history response: %w", err)
	}

	catalog, err := c.fetchCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog for order history: %w", err)
	}

	orders := make([]models.Order, 0, len(wires))
	for _, wire := range wires {
		orders = append(orders, c.assembleOrder(wire, catalog))
	}

	c.logger.WithField("count", len(orders)).Info("Retrieved order history")
	return orders, nil
}

// GetOrder fetches a single order by id and reconciles its lines against
// the current catalog the same way GetOrders does.
func (c *Client) GetOrder(id int) (*models.Order, error) {
	c.logger.WithField("order_id", id).Info("Fetching order")

	resp, err := c.do("GET", "/api/orders/"+strconv.Itoa(id), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("order not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned error status: %d", resp.StatusCode)
	}

	var wire wireOrder
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	catalog, err := c.fetchCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog for order: %w", err)
	}

	order := c.assembleOrder(wire, catalog)
	return &order, nil
}

func (c *Client) assembleOrder(wire wireOrder, catalog []models.Product) models.Order {
	return models.Order{
		ID:        wire.ID,
		Customer:  placeholderOwner(wire.CustomerName, wire.CustomerPhone),
		Lines:     c.resolveLines(wire.Items, catalog),
		Total:     wire.Total,
		Status:    models.OrderStatus(wire.Status),
		CreatedAt: parseWireTime(wire.CreatedAt),
	}
}

// resolveLines attaches product detail to each wire item, keeping the
// captured unit price even when the catalog price has since moved.
func (c *Client) resolveLines(items []wireOrderItem, catalog []models.Product) []models.OrderLine {
	lines := make([]models.OrderLine, 0, len(items))
	for _, item := range items {
		product, ok := findProduct(catalog, item.MenuItemID)
		if !ok {
			c.logger.WithField("product_id", item.MenuItemID).Warn("Product not in catalog, using placeholder")
			product = syntheticProduct(item.MenuItemID, item.Price)
		}
		lines = append(lines, models.OrderLine{
			ProductID: item.MenuItemID,
			Product:   product,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
		})
	}
	return lines
}
