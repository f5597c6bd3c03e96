package service

import (
	"context"

	"github.com/contractdesk/backend/internal/domain"
)

// UserStore is the user-directory surface the services consume. Implemented
// by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, idPattern string) ([]*domain.User, error)
	Update(ctx context.Context, u *domain.User) error
	UpdateStatus(ctx context.Context, id, status string) error
	SetBillingCustomer(ctx context.Context, id, customerID string) error
	SetPassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// ContractStore is the document-store surface the services consume.
// Implemented by repository.ContractRepository. The stage-scoped setters are
// deliberate: each lifecycle stage may only write the fields it owns.
type ContractStore interface {
	Create(ctx context.Context, c *domain.Contract) error
	FindByID(ctx context.Context, id string) (*domain.Contract, error)
	SetProduct(ctx context.Context, id, productID string) error
	SetPrice(ctx context.Context, id, priceID string) error
	SetSigningURL(ctx context.Context, id, signingURL string) error
	UpdateStatus(ctx context.Context, id string, status domain.ContractStatus) error
	ListAll(ctx context.Context) ([]*domain.Contract, error)
	ListByUserPattern(ctx context.Context, idPattern string) ([]*domain.Contract, error)
}

// FileStore is the document-bytes surface the orchestrator consumes.
// Implemented by storage.MinioStore.
type FileStore interface {
	Upload(ctx context.Context, originalName, contentType string, data []byte) (*domain.ContractFile, error)
	Get(ctx context.Context, objectName string) ([]byte, error)
}
