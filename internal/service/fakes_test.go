package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/repository"
	"github.com/contractdesk/backend/pkg/billing"
	"github.com/contractdesk/backend/pkg/notify"
	"github.com/contractdesk/backend/pkg/signing"
)

// fakeUserStore is an in-memory UserStore.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*domain.User

	findErr error
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// lookup bypasses the findErr switch so store-internal joins keep working
// while FindByID failures are being simulated.
func (s *fakeUserStore) lookup(id string) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func (s *fakeUserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (s *fakeUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *fakeUserStore) Exists(_ context.Context, email string) (bool, error) {
	u, _ := s.FindByEmail(context.Background(), email)
	return u != nil, nil
}

func (s *fakeUserStore) List(_ context.Context, _ string) ([]*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.User, 0, len(s.users))
	for _, u := range s.users {
		if u.Role != domain.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeUserStore) Update(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return repository.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

func (s *fakeUserStore) UpdateStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = status
	return nil
}

func (s *fakeUserStore) SetBillingCustomer(_ context.Context, id, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.BillingCustomerID = &customerID
	return nil
}

func (s *fakeUserStore) SetPassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

// fakeContractStore is an in-memory ContractStore with stage-scoped setters
// matching the real repository's write discipline. The per-user listing
// mirrors the repository's join semantics: case-insensitive substring match
// on the owner id, admin-owned contracts excluded.
type fakeContractStore struct {
	mu        sync.Mutex
	contracts map[string]*domain.Contract
	users     *fakeUserStore

	setProductErr error
	setPriceErr   error
}

func newFakeContractStore(users *fakeUserStore) *fakeContractStore {
	return &fakeContractStore{contracts: make(map[string]*domain.Contract), users: users}
}

func (s *fakeContractStore) get(id string) *domain.Contract {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contracts[id]
}

func (s *fakeContractStore) Create(_ context.Context, c *domain.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *fakeContractStore) FindByID(_ context.Context, id string) (*domain.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeContractStore) SetProduct(_ context.Context, id, productID string) error {
	if s.setProductErr != nil {
		return s.setProductErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ProductID = &productID
	return nil
}

func (s *fakeContractStore) SetPrice(_ context.Context, id, priceID string) error {
	if s.setPriceErr != nil {
		return s.setPriceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.PriceID = &priceID
	return nil
}

func (s *fakeContractStore) SetSigningURL(_ context.Context, id, signingURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.SigningURL = &signingURL
	return nil
}

func (s *fakeContractStore) UpdateStatus(_ context.Context, id string, status domain.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contracts[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (s *fakeContractStore) ListAll(_ context.Context) ([]*domain.Contract, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeContractStore) ListByUserPattern(_ context.Context, idPattern string) ([]*domain.Contract, error) {
	all, err := s.ListAll(context.Background())
	if err != nil {
		return nil, err
	}
	var out []*domain.Contract
	for _, c := range all {
		owner := s.users.lookup(c.UserID)
		if owner != nil && owner.Role == domain.RoleAdmin {
			continue
		}
		if !strings.Contains(strings.ToLower(c.UserID), strings.ToLower(idPattern)) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// fakeFileStore stores uploaded bytes in memory.
type fakeFileStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	uploadErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{blobs: make(map[string][]byte)}
}

func (s *fakeFileStore) Upload(_ context.Context, originalName, contentType string, data []byte) (*domain.ContractFile, error) {
	if s.uploadErr != nil {
		return nil, s.uploadErr
	}
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

func (s *fakeFileStore) Get(_ context.Context, objectName string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[objectName]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

// fakeBilling implements billing.Gateway with per-call failure switches.
type fakeBilling struct {
	mu sync.Mutex

	createProductErr   error
	createPriceErr     error
	setDefaultPriceErr error
	subscriptionErr    error
	checkoutErr        error
	getProductErr      error

	products      map[string]*billing.Product
	customers     map[string]*billing.Customer
	subscriptions []billing.Subscription
	transactions  []billing.BalanceTransaction
	charges       map[string]*billing.Charge

	priceParams        []billing.PriceParams
	subscriptionParams []billing.SubscriptionParams
	checkoutParams     []billing.CheckoutParams
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		products:  make(map[string]*billing.Product),
		customers: make(map[string]*billing.Customer),
		charges:   make(map[string]*billing.Charge),
	}
}

func (b *fakeBilling) CreateCustomer(_ context.Context, params billing.CustomerParams) (*billing.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &billing.Customer{
		ID:       "cus_" + params.Email,
		Email:    params.Email,
		Name:     params.Name,
		Metadata: params.Metadata,
	}
	b.customers[c.ID] = c
	return c, nil
}

func (b *fakeBilling) GetCustomer(_ context.Context, id string) (*billing.Customer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.customers[id]
	if !ok {
		return nil, errors.New("no such customer")
	}
	return c, nil
}

func (b *fakeBilling) AttachSource(_ context.Context, customerID, _ string) (*billing.Source, error) {
	return &billing.Source{ID: "src_1", Customer: customerID}, nil
}

func (b *fakeBilling) ListSources(_ context.Context, _ string) ([]billing.Source, error) {
	return nil, nil
}

func (b *fakeBilling) SetDefaultSource(_ context.Context, _, _ string) error {
	return nil
}

func (b *fakeBilling) CreateProduct(_ context.Context, name string, metadata map[string]string) (*billing.Product, error) {
	if b.createProductErr != nil {
		return nil, b.createProductErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &billing.Product{ID: "prod_1", Name: name, Metadata: metadata}
	b.products[p.ID] = p
	return p, nil
}

func (b *fakeBilling) GetProduct(_ context.Context, id string) (*billing.Product, error) {
	if b.getProductErr != nil {
		return nil, b.getProductErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[id]
	if !ok {
		return nil, errors.New("no such product")
	}
	return p, nil
}

func (b *fakeBilling) SetDefaultPrice(_ context.Context, productID, priceID string) error {
	if b.setDefaultPriceErr != nil {
		return b.setDefaultPriceErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.products[productID]; ok {
		p.DefaultPrice = priceID
	}
	return nil
}

func (b *fakeBilling) UpdateProductMetadata(_ context.Context, productID string, metadata map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.products[productID]
	if !ok {
		return errors.New("no such product")
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]string)
	}
	for k, v := range metadata {
		p.Metadata[k] = v
	}
	return nil
}

func (b *fakeBilling) CreatePrice(_ context.Context, params billing.PriceParams) (*billing.Price, error) {
	if b.createPriceErr != nil {
		return nil, b.createPriceErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.priceParams = append(b.priceParams, params)
	return &billing.Price{
		ID:         "price_1",
		Product:    params.Product,
		UnitAmount: params.UnitAmount,
		Currency:   params.Currency,
	}, nil
}

func (b *fakeBilling) CreateSubscription(_ context.Context, params billing.SubscriptionParams) (*billing.Subscription, error) {
	if b.subscriptionErr != nil {
		return nil, b.subscriptionErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptionParams = append(b.subscriptionParams, params)
	return &billing.Subscription{ID: "sub_1", Customer: params.Customer, Status: "active"}, nil
}

func (b *fakeBilling) ListSubscriptions(_ context.Context, _ string) ([]billing.Subscription, error) {
	return b.subscriptions, nil
}

func (b *fakeBilling) CancelSubscription(_ context.Context, _ string) error {
	return nil
}

func (b *fakeBilling) CreateCheckoutSession(_ context.Context, params billing.CheckoutParams) (*billing.CheckoutSession, error) {
	if b.checkoutErr != nil {
		return nil, b.checkoutErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.checkoutParams = append(b.checkoutParams, params)
	return &billing.CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}, nil
}

func (b *fakeBilling) ListBalanceTransactions(_ context.Context) ([]billing.BalanceTransaction, error) {
	return b.transactions, nil
}

func (b *fakeBilling) GetCharge(_ context.Context, id string) (*billing.Charge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.charges[id]
	if !ok {
		return nil, errors.New("no such charge")
	}
	return c, nil
}

// fakeSigning implements signing.Gateway.
type fakeSigning struct {
	consentRequired bool
	grantErr        error
	envelopeErr     error
	viewErr         error

	envelopeParams []signing.EnvelopeParams
	viewParams     []signing.RecipientViewParams
}

func (s *fakeSigning) RequestAccessGrant(_ context.Context) (*signing.AccessGrant, error) {
	if s.consentRequired {
		return nil, signing.ErrConsentRequired
	}
	if s.grantErr != nil {
		return nil, s.grantErr
	}
	return &signing.AccessGrant{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (s *fakeSigning) CreateEnvelope(_ context.Context, _ string, params signing.EnvelopeParams) (*signing.Envelope, error) {
	if s.envelopeErr != nil {
		return nil, s.envelopeErr
	}
	s.envelopeParams = append(s.envelopeParams, params)
	return &signing.Envelope{EnvelopeID: "env_1", Status: "sent"}, nil
}

func (s *fakeSigning) CreateRecipientView(_ context.Context, _ string, _ string, params signing.RecipientViewParams) (*signing.RecipientView, error) {
	if s.viewErr != nil {
		return nil, s.viewErr
	}
	s.viewParams = append(s.viewParams, params)
	return &signing.RecipientView{URL: "https://sign.example.com/view/env_1"}, nil
}

func (s *fakeSigning) ConsentURL() string {
	return "https://auth.example.com/oauth/auth?response_type=code&scope=signature%20impersonation&client_id=int-key&redirect_uri=https%3A%2F%2Fapp.example.com%2Fconsent"
}

// captureDispatcher records dispatched notifications.
type captureDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (d *captureDispatcher) Send(_ context.Context, msg notify.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
	return nil
}
