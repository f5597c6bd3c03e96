package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/contractdesk/backend/internal/domain"
	"github.com/contractdesk/backend/internal/repository"
	"github.com/contractdesk/backend/pkg/billing"
	"github.com/go-playground/validator/v10"
)

const checkoutSuccessURL = "https://example.com/success"

// SubscriptionInfo is a provider subscription enriched with its product
// summary where the lookup succeeded.
type SubscriptionInfo struct {
	Subscription    billing.Subscription   `json:"subscription"`
	Product         *domain.ProductSummary `json:"product,omitempty"`
	EnrichmentError string                 `json:"enrichmentError,omitempty"`
}

// TransactionInfo is a balance transaction with its resolved customer id.
type TransactionInfo struct {
	Transaction     billing.BalanceTransaction `json:"transaction"`
	CustomerID      string                     `json:"customerId,omitempty"`
	EnrichmentError string                     `json:"enrichmentError,omitempty"`
}

// BillingService completes payment on signed contracts and exposes the
// provider's subscription and transaction listings.
type BillingService struct {
	contracts ContractStore
	users     UserStore
	billing   billing.Gateway
	validate  *validator.Validate
}

// NewBillingService creates a new BillingService.
func NewBillingService(contracts ContractStore, users UserStore, billingGW billing.Gateway) *BillingService {
	return &BillingService{
		contracts: contracts,
		users:     users,
		billing:   billingGW,
		validate:  validator.New(),
	}
}

// EnsureCustomer returns the user's billing customer id, creating a provider
// customer and caching its id on the user the first time. Policy: reuse an
// existing customer id whenever one is recorded; create otherwise.
func (s *BillingService) EnsureCustomer(ctx context.Context, userID, sourceToken string) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", domain.ErrInternal("failed to find user", err)
	}
	if user == nil {
		return "", domain.ErrNotFound("user not found")
	}

	if user.BillingCustomerID != nil && *user.BillingCustomerID != "" {
		if sourceToken != "" {
			source, err := s.billing.AttachSource(ctx, *user.BillingCustomerID, sourceToken)
			if err != nil {
				return "", domain.ErrBilling("failed to attach payment source", err)
			}
			if err := s.billing.SetDefaultSource(ctx, *user.BillingCustomerID, source.ID); err != nil {
				return "", domain.ErrBilling("failed to set default payment source", err)
			}
		}
		return *user.BillingCustomerID, nil
	}

	customer, err := s.billing.CreateCustomer(ctx, billing.CustomerParams{
		Email:       user.Email,
		Name:        user.DisplayName(),
		SourceToken: sourceToken,
		Metadata:    map[string]string{"userId": user.ID},
	})
	if err != nil {
		return "", domain.ErrBilling("failed to create billing customer", err)
	}

	if err := s.users.SetBillingCustomer(ctx, user.ID, customer.ID); err != nil {
		return "", domain.ErrStorage("failed to cache billing customer id", err)
	}
	return customer.ID, nil
}

// CompletePayment creates the subscription and checkout session for a signed
// contract, tags the product with the session id, and only then advances the
// contract to PAYMENT_COMPLETE. Any adapter failure aborts before the local
// status write, leaving the contract SIGNED and retryable.
func (s *BillingService) CompletePayment(ctx context.Context, req *domain.CompletePaymentRequest) (*billing.CheckoutSession, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}

	contract, err := s.contracts.FindByID(ctx, req.ContractID)
	if err != nil {
		return nil, domain.ErrInternal("failed to find contract", err)
	}
	if contract == nil {
		return nil, domain.ErrNotFound("contract not found")
	}
	if !domain.CanTransition(contract.Status, domain.StatusPaymentComplete) {
		return nil, domain.ErrBadRequest(fmt.Sprintf("contract %s is %s, payment requires %s",
			contract.ID, contract.Status, domain.StatusSigned))
	}

	customerID := req.CustomerID
	if customerID == "" {
		customerID, err = s.EnsureCustomer(ctx, contract.UserID, "")
		if err != nil {
			return nil, err
		}
	}

	if _, err := s.billing.CreateSubscription(ctx, billing.SubscriptionParams{
		Customer: customerID,
		Price:    req.PriceID,
		Quantity: 1,
	}); err != nil {
		return nil, domain.ErrBilling("failed to create subscription for contract "+contract.ID, err)
	}

	session, err := s.billing.CreateCheckoutSession(ctx, billing.CheckoutParams{
		Price:      req.PriceID,
		Quantity:   1,
		Mode:       "subscription",
		SuccessURL: checkoutSuccessURL,
	})
	if err != nil {
		return nil, domain.ErrBilling("failed to create checkout session for contract "+contract.ID, err)
	}

	if contract.ProductID != nil {
		if err := s.billing.UpdateProductMetadata(ctx, *contract.ProductID, map[string]string{
			"checkoutSession": session.ID,
		}); err != nil {
			return nil, domain.ErrBilling("failed to tag product for contract "+contract.ID, err)
		}
	}

	if err := s.contracts.UpdateStatus(ctx, contract.ID, domain.StatusPaymentComplete); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound("contract not found")
		}
		return nil, domain.ErrStorage("failed to update contract status", err)
	}
	return session, nil
}

// GetCustomer retrieves a provider customer by id.
func (s *BillingService) GetCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	customer, err := s.billing.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, domain.ErrBilling("failed to retrieve customer", err)
	}
	return customer, nil
}

// ListSubscriptions lists provider subscriptions, optionally filtered by
// customer, each enriched with its product summary. Enrichment failures are
// annotated per item; the listing itself never fails because of one.
func (s *BillingService) ListSubscriptions(ctx context.Context, customerID string) ([]SubscriptionInfo, error) {
	subs, err := s.billing.ListSubscriptions(ctx, customerID)
	if err != nil {
		return nil, domain.ErrBilling("failed to list subscriptions", err)
	}

	infos := make([]SubscriptionInfo, 0, len(subs))
	for _, sub := range subs {
		info := SubscriptionInfo{Subscription: sub}
		if sub.Plan.Product != "" {
			product, err := s.billing.GetProduct(ctx, sub.Plan.Product)
			if err != nil {
				info.EnrichmentError = "product lookup failed"
			} else {
				info.Product = &domain.ProductSummary{
					ID:           product.ID,
					Name:         product.Name,
					DefaultPrice: product.DefaultPrice,
					Metadata:     product.Metadata,
				}
			}
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// ListTransactions lists balance transactions, resolving each transaction's
// customer through its source charge. With a customer filter, only matching
// transactions are returned. Per-item resolution failures are annotated, not
// fatal.
func (s *BillingService) ListTransactions(ctx context.Context, customerID string) ([]TransactionInfo, error) {
	transactions, err := s.billing.ListBalanceTransactions(ctx)
	if err != nil {
		return nil, domain.ErrBilling("failed to list transactions", err)
	}

	infos := make([]TransactionInfo, 0, len(transactions))
	for _, tx := range transactions {
		info := TransactionInfo{Transaction: tx}
		if tx.Source != "" {
			charge, err := s.billing.GetCharge(ctx, tx.Source)
			if err != nil {
				info.EnrichmentError = "charge lookup failed"
			} else {
				info.CustomerID = charge.Customer
			}
		}
		if customerID != "" && info.CustomerID != customerID {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}
