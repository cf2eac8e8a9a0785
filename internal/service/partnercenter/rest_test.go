package partnercenter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/transport/rest"
)

func newTestClient(t *testing.T, handler http.Handler) *RESTClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := rest.DefaultConfig(server.URL)
	cfg.RetryMax = 0
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond

	client, err := NewRESTClient(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestRESTClient_PlaceOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/customers/c-1/orders", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req orderJSON
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.LineItems, 1)

		line := req.LineItems[0]
		line.SubscriptionID = "sub-1"
		_ = json.NewEncoder(w).Encode(orderJSON{ID: "order-1", LineItems: []orderLineJSON{line}})
	})
	client := newTestClient(t, mux)

	placed, err := client.PlaceOrder(context.Background(), domain.PartnerOrder{
		CustomerID: "c-1",
		Lines:      []domain.PartnerOrderLine{{LineNumber: 0, RemoteOfferID: "MS-1", FriendlyName: "Office", Quantity: 3}},
	})
	require.NoError(t, err)
	require.Equal(t, "order-1", placed.ID)
	require.Equal(t, []domain.PlacedOrderLine{{LineNumber: 0, RemoteOfferID: "MS-1", SubscriptionID: "sub-1", Quantity: 3}}, placed.Lines)
}

func TestRESTClient_AddSeatsPatchesIncreasedQuantity(t *testing.T) {
	var patched int
	mux := http.NewServeMux()
	mux.HandleFunc("/customers/c-1/subscriptions/sub-1", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(subscriptionJSON{ID: "sub-1", OfferID: "MS-1", Quantity: 4, Status: "active"})
		case http.MethodPatch:
			var body map[string]int
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			patched = body["quantity"]
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/customers/c-1/subscriptions/sub-1/renew", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(subscriptionJSON{ID: "sub-1", OfferID: "MS-1", Quantity: 4, Status: "active"})
	})
	client := newTestClient(t, mux)

	ctx := context.Background()
	require.NoError(t, client.AddSeats(ctx, "c-1", "sub-1", 3))
	require.Equal(t, 7, patched)

	renewed, err := client.RenewSubscription(ctx, "c-1", "sub-1")
	require.NoError(t, err)
	require.Equal(t, "MS-1", renewed.RemoteOfferID)
}

func TestRESTClient_WrapsRemoteErrors(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusConflict)
	}))

	_, err := client.GetSubscription(context.Background(), "c-1", "sub-1")
	require.True(t, errors.Is(err, domain.ErrCommerceAPI), "got %v", err)
}
