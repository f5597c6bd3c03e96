package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePriceSendsMinorUnitsVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/prices", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "prod_1", r.Form.Get("product"))
		assert.Equal(t, "12999", r.Form.Get("unit_amount"))
		assert.Equal(t, "usd", r.Form.Get("currency"))
		assert.Equal(t, "month", r.Form.Get("recurring[interval]"))
		assert.Equal(t, "1", r.Form.Get("recurring[interval_count]"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          "price_1",
			"product":     "prod_1",
			"unit_amount": 12999,
			"currency":    "usd",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	price, err := client.CreatePrice(context.Background(), PriceParams{
		Product:       "prod_1",
		UnitAmount:    12999,
		Currency:      "usd",
		Interval:      "month",
		IntervalCount: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12999), price.UnitAmount)
}

func TestCreateCustomerFormEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/customers", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "owner@example.com", r.Form.Get("email"))
		assert.Equal(t, "Olive Owner", r.Form.Get("name"))
		assert.Equal(t, "user-1", r.Form.Get("metadata[userId]"))
		assert.Empty(t, r.Form.Get("source"))

		json.NewEncoder(w).Encode(map[string]string{"id": "cus_1", "email": "owner@example.com"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	customer, err := client.CreateCustomer(context.Background(), CustomerParams{
		Email:    "owner@example.com",
		Name:     "Olive Owner",
		Metadata: map[string]string{"userId": "user-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_1", customer.ID)
}

func TestCreateSubscriptionItemEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cus_1", r.Form.Get("customer"))
		assert.Equal(t, "price_1", r.Form.Get("items[0][price]"))
		assert.Equal(t, "1", r.Form.Get("items[0][quantity]"))

		json.NewEncoder(w).Encode(map[string]string{"id": "sub_1", "customer": "cus_1", "status": "active"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	sub, err := client.CreateSubscription(context.Background(), SubscriptionParams{
		Customer: "cus_1",
		Price:    "price_1",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub_1", sub.ID)
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.Form.Get("mode"))
		assert.Equal(t, "price_1", r.Form.Get("line_items[0][price]"))
		assert.Equal(t, "https://example.com/success", r.Form.Get("success_url"))

		json.NewEncoder(w).Encode(map[string]string{"id": "cs_1", "url": "https://pay.example.com/cs_1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	session, err := client.CreateCheckoutSession(context.Background(), CheckoutParams{
		Price:      "price_1",
		Mode:       "subscription",
		SuccessURL: "https://example.com/success",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com/cs_1", session.URL)
}

func TestErrorBodyDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"code":    "card_declined",
				"message": "Your card was declined.",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	_, err := client.CreateSubscription(context.Background(), SubscriptionParams{
		Customer: "cus_1",
		Price:    "price_1",
	})
	require.Error(t, err)

	var provErr *Error
	require.True(t, errors.As(err, &provErr))
	assert.Equal(t, http.StatusPaymentRequired, provErr.Status)
	assert.Equal(t, "card_declined", provErr.Code)
	assert.Contains(t, provErr.Message, "declined")
}

func TestListSubscriptionsCustomerFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/subscriptions", r.URL.Path)
		assert.Equal(t, "cus_1", r.URL.Query().Get("customer"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]string{{"id": "sub_1", "customer": "cus_1"}},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	subs, err := client.ListSubscriptions(context.Background(), "cus_1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ID)
}

func TestUpdateProductMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/products/prod_1", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "cs_1", r.Form.Get("metadata[checkoutSession]"))
		json.NewEncoder(w).Encode(map[string]string{"id": "prod_1"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk_test")
	err := client.UpdateProductMetadata(context.Background(), "prod_1", map[string]string{
		"checkoutSession": "cs_1",
	})
	require.NoError(t, err)
}
