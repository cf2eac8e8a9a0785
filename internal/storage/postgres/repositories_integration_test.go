package postgres

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func TestOfferRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOfferRepository(store)

	office := domain.PartnerOffer{
		ID:            "office-365",
		Title:         "Office 365 Business",
		RemoteOfferID: "mpn-office-365",
		Price:         decimal.RequireFromString("365.50"),
	}
	require.NoError(t, repo.Create(office))
	require.NoError(t, repo.Create(domain.PartnerOffer{
		ID:            "legacy",
		Title:         "Legacy suite",
		RemoteOfferID: "mpn-legacy",
		Price:         decimal.NewFromInt(10),
		IsInactive:    true,
	}))

	err := repo.Create(office)
	require.True(t, errors.Is(err, domain.ErrAlreadyExists), "got %v", err)

	got, err := repo.Get("office-365")
	require.NoError(t, err)
	require.Equal(t, office.RemoteOfferID, got.RemoteOfferID)
	require.True(t, office.Price.Equal(got.Price), "price mismatch: %s", got.Price)

	_, err = repo.Get("missing")
	require.True(t, errors.Is(err, domain.ErrOfferNotFound))

	offers, err := repo.List()
	require.NoError(t, err)
	require.Len(t, offers, 2)
	require.Equal(t, "legacy", offers[0].ID)
	require.True(t, offers[0].IsInactive)
}

func TestSubscriptionRepository_PostgresFlow(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewSubscriptionRepository(store)

	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	sub := domain.CustomerSubscription{
		CustomerID:     "cust-1",
		SubscriptionID: "sub-1",
		PartnerOfferID: "office-365",
		Quantity:       2,
		ExpiryDate:     expiry,
	}
	require.NoError(t, repo.Create(sub))
	require.True(t, errors.Is(repo.Create(sub), domain.ErrAlreadyExists))

	got, err := repo.Get("cust-1", "sub-1")
	require.NoError(t, err)
	require.Equal(t, 2, got.Quantity)
	require.True(t, got.ExpiryDate.Equal(expiry))

	sub.Quantity = 5
	sub.ExpiryDate = expiry.AddDate(1, 0, 0)
	require.NoError(t, repo.Update(sub))

	subs, err := repo.ListByCustomer("cust-1")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, 5, subs[0].Quantity)

	err = repo.Update(domain.CustomerSubscription{CustomerID: "cust-1", SubscriptionID: "missing", PartnerOfferID: "x", Quantity: 1, ExpiryDate: expiry})
	require.True(t, errors.Is(err, domain.ErrSubscriptionNotFound))

	require.NoError(t, repo.Delete("cust-1", "sub-1"))
	_, err = repo.Get("cust-1", "sub-1")
	require.True(t, errors.Is(err, domain.ErrSubscriptionNotFound))
}

func TestPurchaseRepository_PostgresNewestFirst(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewPurchaseRepository(store)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"p-1", "p-2"} {
		require.NoError(t, repo.Create(domain.CustomerPurchase{
			ID:              id,
			CustomerID:      "cust-1",
			SubscriptionID:  "sub-1",
			Operation:       domain.OperationNewPurchase,
			SeatsBought:     1,
			SeatPrice:       decimal.NewFromInt(365),
			TransactionDate: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	purchases, err := repo.ListByCustomer("cust-1")
	require.NoError(t, err)
	require.Len(t, purchases, 2)
	require.Equal(t, "p-2", purchases[0].ID)
	require.Equal(t, domain.OperationNewPurchase, purchases[0].Operation)

	require.NoError(t, repo.Delete("cust-1", "p-2"))
	purchases, err = repo.ListByCustomer("cust-1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
}

func TestJournalRepository_PostgresAppendAndList(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewJournalRepository(store)

	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(domain.JournalEvent{OrderID: "o-1", Step: "authorize_payment", Type: domain.JournalStepExecuted, Occurred: occurred}))
	require.NoError(t, repo.Append(domain.JournalEvent{OrderID: "o-1", Step: "create_remote_order", Type: domain.JournalStepFailed, Reason: "api down", Occurred: occurred.Add(time.Second)}))
	require.NoError(t, repo.Append(domain.JournalEvent{OrderID: "o-2", Step: "authorize_payment", Type: domain.JournalStepExecuted}))

	events, err := repo.List("o-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "authorize_payment", events[0].Step)
	require.Equal(t, "api down", events[1].Reason)
}
