// Package billing wraps the payment provider's customer, product, price,
// subscription and checkout primitives behind a narrow interface. The
// orchestrator and billing service depend only on Gateway; the HTTP client in
// client.go is the production implementation.
package billing

import "context"

// Customer is a payment-provider customer.
type Customer struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	Name          string            `json:"name"`
	DefaultSource string            `json:"default_source"`
	Metadata      map[string]string `json:"metadata"`
}

// CustomerParams creates a customer, optionally attaching an initial payment
// source token.
type CustomerParams struct {
	Email       string
	Name        string
	SourceToken string
	Metadata    map[string]string
}

// Source is a payment source (card) attached to a customer.
type Source struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
}

// Product is a payment-provider product.
type Product struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	DefaultPrice string            `json:"default_price"`
	Metadata     map[string]string `json:"metadata"`
}

// Price is a recurring price scoped to a product. UnitAmount is in the
// currency's minor units.
type Price struct {
	ID         string `json:"id"`
	Product    string `json:"product"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
	Recurring  struct {
		Interval      string `json:"interval"`
		IntervalCount int64  `json:"interval_count"`
	} `json:"recurring"`
}

// PriceParams creates a recurring price. UnitAmount must already be in minor
// units; the adapter performs no conversion.
type PriceParams struct {
	Product       string
	UnitAmount    int64
	Currency      string
	Interval      string
	IntervalCount int64
}

// Subscription is a provider subscription.
type Subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
	Plan     struct {
		ID      string `json:"id"`
		Product string `json:"product"`
	} `json:"plan"`
}

// SubscriptionParams creates a subscription for one price.
type SubscriptionParams struct {
	Customer      string
	Price         string
	Quantity      int64
	DefaultSource string
}

// CheckoutSession is a provider-hosted checkout flow.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CheckoutParams creates a checkout session for one line item.
type CheckoutParams struct {
	Price      string
	Quantity   int64
	Mode       string
	SuccessURL string
}

// BalanceTransaction is a provider balance-ledger entry.
type BalanceTransaction struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Source   string `json:"source"`
	Type     string `json:"type"`
}

// Charge is a provider charge; used to resolve a transaction's customer.
type Charge struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Amount   int64  `json:"amount"`
}

// Gateway is the payment-provider interface consumed by the services. All
// operations are safe to retry on network failure: no local side effect
// precedes a successful remote call.
type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error)
	GetCustomer(ctx context.Context, id string) (*Customer, error)
	AttachSource(ctx context.Context, customerID, sourceToken string) (*Source, error)
	ListSources(ctx context.Context, customerID string) ([]Source, error)
	SetDefaultSource(ctx context.Context, customerID, sourceID string) error

	CreateProduct(ctx context.Context, name string, metadata map[string]string) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	SetDefaultPrice(ctx context.Context, productID, priceID string) error
	UpdateProductMetadata(ctx context.Context, productID string, metadata map[string]string) error

	CreatePrice(ctx context.Context, params PriceParams) (*Price, error)

	CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error)
	ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error)
	CancelSubscription(ctx context.Context, id string) error

	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)

	ListBalanceTransactions(ctx context.Context) ([]BalanceTransaction, error)
	GetCharge(ctx context.Context, id string) (*Charge, error)
}
