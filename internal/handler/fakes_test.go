package handler

import (
	"context"
	"sync"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/repository"
)

// memContractStore is a minimal in-memory service.ContractStore for handler
// tests.
type memContractStore struct {
	mu        sync.Mutex
	contracts map[string]*domain.Contract
}

func newMemContractStore() *memContractStore {
	return &memContractStore{contracts: make(map[string]*domain.Contract)}
}

func (s *memContractStore) get(id string) *domain.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contracts[id]
}

func (s *memContractStore) Create(_ context.Context, c *domain.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *memContractStore) FindByID(_ context.Context, id string) (*domain.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *memContractStore) SetProduct(_ context.Context, id, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ProductID = &productID
	return nil
}

func (s *memContractStore) SetPrice(_ context.Context, id, priceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.PriceID = &priceID
	return nil
}

func (s *memContractStore) SetSigningURL(_ context.Context, id, signingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.SigningURL = &signingURL
	return nil
}

func (s *memContractStore) UpdateStatus(_ context.Context, id string, status domain.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *memContractStore) ListAll(_ context.Context) ([]*domain.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memContractStore) ListByUserPattern(_ context.Context, _ string) ([]*domain.Contract, error) {
	return s.ListAll(context.Background())
}

// memUserStore is a minimal in-memory service.UserStore for handler tests.
type memUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUserStore(users ...*domain.User) *memUserStore {
	s := &memUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memUserStore) Exists(_ context.Context, email string) (bool, error) {
	u, _ := s.FindByEmail(context.Background(), email)
	return u != nil, nil
}

func (s *memUserStore) List(_ context.Context, _ string) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memUserStore) Update(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *memUserStore) UpdateStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (s *memUserStore) SetBillingCustomer(_ context.Context, id, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.BillingCustomerID = &customerID
	return nil
}

func (s *memUserStore) SetPassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// memFileStore stores uploads in memory.
type memFileStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newMemFileStore() *memFileStore {
	return &memFileStore{blobs: make(map[string][]byte)}
}

func (s *memFileStore) Upload(_ context.Context, originalName, contentType string, data []byte) (*domain.ContractFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objectName := "obj-" + originalName
	s.blobs[objectName] = data
	return &domain.ContractFile{
		ObjectName:   objectName,
		Path:         "contracts/" + objectName,
		OriginalName: originalName,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

func (s *memFileStore) Get(_ context.Context, objectName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[objectName], nil
}
