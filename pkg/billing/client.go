package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const requestTimeout = 30 * time.Second

// Error is a provider-reported billing failure.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("billing provider error (%d %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("billing provider error (%d): %s", e.Status, e.Message)
}

// Client talks to a Stripe-compatible payment API using form-encoded requests
// and a bearer secret key. Construct one at process start and inject it; never
// build clients per request.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a billing client for the given API base URL and secret key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// do sends a request and decodes the JSON response into out. Provider error
// bodies ({"error": {...}}) are turned into *Error.
func (c *Client) do(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("billing request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read billing response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errBody struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(data, &errBody)
		msg := errBody.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &Error{Status: resp.StatusCode, Code: errBody.Error.Code, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode billing response: %w", err)
		}
	}
	return nil
}

func (c *Client) CreateCustomer(ctx context.Context, params CustomerParams) (*Customer, error) {
	form := url.Values{}
	form.Set("email", params.Email)
	form.Set("name", params.Name)
	if params.SourceToken != "" {
		form.Set("source", params.SourceToken)
	}
	for k, v := range params.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", form, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodGet, "/customers/"+id, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (c *Client) AttachSource(ctx context.Context, customerID, sourceToken string) (*Source, error) {
	form := url.Values{}
	form.Set("source", sourceToken)

	var source Source
	if err := c.do(ctx, http.MethodPost, "/customers/"+customerID+"/sources", form, &source); err != nil {
		return nil, err
	}
	return &source, nil
}

func (c *Client) ListSources(ctx context.Context, customerID string) ([]Source, error) {
	var list struct {
		Data []Source `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/customers/"+customerID+"/sources", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) SetDefaultSource(ctx context.Context, customerID, sourceID string) error {
	form := url.Values{}
	form.Set("default_source", sourceID)
	return c.do(ctx, http.MethodPost, "/customers/"+customerID, form, nil)
}

func (c *Client) CreateProduct(ctx context.Context, name string, metadata map[string]string) (*Product, error) {
	form := url.Values{}
	form.Set("name", name)
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var product Product
	if err := c.do(ctx, http.MethodPost, "/products", form, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/products/"+id, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) SetDefaultPrice(ctx context.Context, productID, priceID string) error {
	form := url.Values{}
	form.Set("default_price", priceID)
	return c.do(ctx, http.MethodPost, "/products/"+productID, form, nil)
}

func (c *Client) UpdateProductMetadata(ctx context.Context, productID string, metadata map[string]string) error {
	form := url.Values{}
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
	return c.do(ctx, http.MethodPost, "/products/"+productID, form, nil)
}

func (c *Client) CreatePrice(ctx context.Context, params PriceParams) (*Price, error) {
	form := url.Values{}
	form.Set("product", params.Product)
	form.Set("unit_amount", strconv.FormatInt(params.UnitAmount, 10))
	form.Set("currency", params.Currency)
	form.Set("recurring[interval]", params.Interval)
	form.Set("recurring[interval_count]", strconv.FormatInt(params.IntervalCount, 10))

	var price Price
	if err := c.do(ctx, http.MethodPost, "/prices", form, &price); err != nil {
		return nil, err
	}
	return &price, nil
}

func (c *Client) CreateSubscription(ctx context.Context, params SubscriptionParams) (*Subscription, error) {
	quantity := params.Quantity
	if quantity == 0 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("customer", params.Customer)
	form.Set("items[0][price]", params.Price)
	form.Set("items[0][quantity]", strconv.FormatInt(quantity, 10))
	if params.DefaultSource != "" {
		form.Set("default_source", params.DefaultSource)
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", form, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (c *Client) ListSubscriptions(ctx context.Context, customerID string) ([]Subscription, error) {
	path := "/subscriptions"
	if customerID != "" {
		path += "?customer=" + url.QueryEscape(customerID)
	}

	var list struct {
		Data []Subscription `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/subscriptions/"+id, nil, nil)
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	quantity := params.Quantity
	if quantity == 0 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("success_url", params.SuccessURL)
	form.Set("mode", params.Mode)
	form.Set("line_items[0][price]", params.Price)
	form.Set("line_items[0][quantity]", strconv.FormatInt(quantity, 10))

	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) ListBalanceTransactions(ctx context.Context) ([]BalanceTransaction, error) {
	var list struct {
		Data []BalanceTransaction `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/balance_transactions", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *Client) GetCharge(ctx context.Context, id string) (*Charge, error) {
	var charge Charge
	if err := c.do(ctx, http.MethodGet, "/charges/"+id, nil, &charge); err != nil {
		return nil, err
	}
	return &charge, nil
}
