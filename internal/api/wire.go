package api

import (
	"time"

	"github.com/pmendes/restaurante-client/pkg/models"
)

// Backend wire shapes for the restaurant API. The backend names fields in
// English with snake_case and encodes availability as 0/1; the mapping
// functions below are the single place where renaming and normalization
// happen for each entity.

const (
	defaultCategory        = "General"
	placeholderProductName = "Product"
	placeholderCustomer    = "Customer"
	placeholderPhone       = "0000000000"
)

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResponse struct {
	Customer wireCustomer `json:"customer"`
	Token    string       `json:"token"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Age      int    `json:"age"`
	Password string `json:"password"`
}

type wireCustomer struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type wireMenuItem struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Available   int     `json:"available"`
	Image       string  `json:"image"`
}

type createOrderRequest struct {
	CustomerName  string             `json:"customer_name"`
	CustomerPhone string             `json:"customer_phone"`
	Items         []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	MenuItemID int     `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Notes      string  `json:"notes"`
}

type wireOrderItem struct {
	MenuItemID int     `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
}

type wireOrder struct {
	ID            int             `json:"id"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Items         []wireOrderItem `json:"items"`
	Total         float64         `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

func mapCustomer(w wireCustomer) models.Customer {
	return models.Customer{
		ID:           w.ID,
		Name:         w.Name,
		Phone:        w.Phone,
		Email:        w.Email,
		Address:      w.Address,
		RegisteredAt: time.Now(),
	}
}

func mapProduct(w wireMenuItem) models.Product {
	category := w.Category
	if category == "" {
		category = defaultCategory
	}
	return models.Product{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Price:       w.Price,
		Category:    category,
		Available:   w.Available == 1,
		Image:       w.Image,
	}
}

// syntheticProduct stands in for a catalog entry that no longer resolves,
// so order history never carries an empty product reference. The captured
// line price doubles as the apparent product price.
func syntheticProduct(id int, price float64) models.Product {
	return models.Product{
		ID:        id,
		Name:      placeholderProductName,
		Price:     price,
		Category:  defaultCategory,
		Available: true,
	}
}

func placeholderOwner(name, phone string) models.Customer {
	if name == "" {
		name = placeholderCustomer
	}
	if phone == "" {
		phone = placeholderPhone
	}
	return models.Customer{
		Name:         name,
		Phone:        phone,
		RegisteredAt: time.Now(),
	}
}

func parseWireTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func findProduct(catalog []models.Product, id int) (models.Product, bool) {
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}
