package session

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/pmendes/restaurante-client/internal/storage"
	"github.com/pmendes/restaurante-client/pkg/models"
)

const (
	tokenKey    = "session_token"
	customerKey = "session_customer"
)

// Authenticator is the slice of the API client the session needs: it
// performs the credential exchange and receives the bearer token to attach
// to later requests.
type Authenticator interface {
	Login(phone, password string) (models.Customer, string, error)
	Register(name, phone, address string, age int, password string) (models.Customer, string, error)
	SetToken(token string)
}

// Store holds the currently authenticated customer and bearer credential,
// both persisted so a restart resumes the session.
type Store struct {
	mutex    sync.RWMutex
	customer *models.Customer
	token    string

	auth    Authenticator
	storage storage.Store
	logger  *logrus.Logger
}

func NewStore(auth Authenticator, store storage.Store, logger *logrus.Logger) *Store {
	s := &Store{
		auth:    auth,
		storage: store,
		logger:  logger,
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	token, err := s.storage.Get(tokenKey)
	if err != nil {
		s.purge()
		return
	}

	snapshot, err := s.storage.Get(customerKey)
	if err != nil {
		s.purge()
		return
	}

	var customer models.Customer
	if err := json.Unmarshal([]byte(snapshot), &customer); err != nil {
		s.logger.WithError(err).Warn("Discarding corrupt session snapshot")
		s.purge()
		return
	}

	s.customer = &customer
	s.token = token
	s.auth.SetToken(token)
	s.logger.WithField("customer_id", customer.ID).Info("Restored session")
}

// Login authenticates with the backend. On success the customer is stored
// with a digit-only phone and the credential is persisted; on failure the
// session state is left untouched.
func (s *Store) Login(phone, password string) (models.Customer, error) {
	customer, token, err := s.auth.Login(phone, password)
	if err != nil {
		return models.Customer{}, err
	}
	s.establish(customer, token)
	return customer, nil
}

// Register creates an account and logs it in, establishing the session the
// same way Login does.
func (s *Store) Register(name, phone, address string, age int, password string) (models.Customer, error) {
	customer, token, err := s.auth.Register(name, phone, address, age, password)
	if err != nil {
		return models.Customer{}, err
	}
	s.establish(customer, token)
	return customer, nil
}

func (s *Store) establish(customer models.Customer, token string) {
	customer.Phone = digitsOnly(customer.Phone)

	s.mutex.Lock()
	s.customer = &customer
	s.token = token
	s.mutex.Unlock()

	s.auth.SetToken(token)

	if err := s.storage.Set(tokenKey, token); err != nil {
		s.logger.WithError(err).Warn("Failed to persist session token")
	}
	snapshot, err := json.Marshal(customer)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to marshal customer snapshot")
		return
	}
	if err := s.storage.Set(customerKey, string(snapshot)); err != nil {
		s.logger.WithError(err).Warn("Failed to persist customer snapshot")
	}

	s.logger.WithFields(logrus.Fields{
		"customer_id": customer.ID,
		"phone":       customer.Phone,
	}).Info("Session established")
}

// Logout clears the session in memory and in durable storage. It always
// succeeds.
func (s *Store) Logout() {
	s.mutex.Lock()
	s.customer = nil
	s.token = ""
	s.mutex.Unlock()

	s.auth.SetToken("")
	s.purge()
	s.logger.Info("Session cleared")
}

func (s *Store) purge() {
	if err := s.storage.Delete(tokenKey); err != nil {
		s.logger.WithError(err).Warn("Failed to delete session token")
	}
	if err := s.storage.Delete(customerKey); err != nil {
		s.logger.WithError(err).Warn("Failed to delete customer snapshot")
	}
}

// IsAuthenticated reports whether a customer is currently held.
func (s *Store) IsAuthenticated() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.customer != nil
}

// Customer returns a copy of the current customer, or nil when logged out.
func (s *Store) Customer() *models.Customer {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.customer == nil {
		return nil
	}
	customer := *s.customer
	return &customer
}

func (s *Store) Token() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.token
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
