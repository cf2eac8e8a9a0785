package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type subscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository создаёт PostgreSQL-реализацию хранилища подписок.
func NewSubscriptionRepository(store *Store) domain.SubscriptionRepository {
	return &subscriptionRepository{db: store.DB()}
}

func (r *subscriptionRepository) Create(sub domain.CustomerSubscription) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customer_subscriptions (
			customer_id, subscription_id, partner_offer_id, quantity, expiry_date, updated_at
		) VALUES ($1,$2,$3,$4,$5,NOW())
	`, sub.CustomerID, sub.SubscriptionID, sub.PartnerOfferID, sub.Quantity, sub.ExpiryDate.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert customer subscription: %w", err)
	}
	return nil
}

func (r *subscriptionRepository) Get(customerID, subscriptionID string) (domain.CustomerSubscription, error) {
	ctx, cancel := opContext()
	defer cancel()

	var sub domain.CustomerSubscription
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, subscription_id, partner_offer_id, quantity, expiry_date
		FROM customer_subscriptions
		WHERE customer_id = $1 AND subscription_id = $2
	`, customerID, subscriptionID).Scan(&sub.CustomerID, &sub.SubscriptionID, &sub.PartnerOfferID, &sub.Quantity, &sub.ExpiryDate)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CustomerSubscription{}, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return domain.CustomerSubscription{}, fmt.Errorf("get customer subscription: %w", err)
	}
	sub.ExpiryDate = sub.ExpiryDate.UTC()
	return sub, nil
}

func (r *subscriptionRepository) ListByCustomer(customerID string) ([]domain.CustomerSubscription, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, subscription_id, partner_offer_id, quantity, expiry_date
		FROM customer_subscriptions
		WHERE customer_id = $1
		ORDER BY subscription_id
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer subscriptions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.CustomerSubscription, 0)
	for rows.Next() {
		var sub domain.CustomerSubscription
		if err := rows.Scan(&sub.CustomerID, &sub.SubscriptionID, &sub.PartnerOfferID, &sub.Quantity, &sub.ExpiryDate); err != nil {
			return nil, fmt.Errorf("scan customer subscription: %w", err)
		}
		sub.ExpiryDate = sub.ExpiryDate.UTC()
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer subscriptions: %w", err)
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(sub domain.CustomerSubscription) error {
	ctx, cancel := opContext()
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE customer_subscriptions
		SET partner_offer_id = $3,
		    quantity = $4,
		    expiry_date = $5,
		    updated_at = NOW()
		WHERE customer_id = $1 AND subscription_id = $2
	`, sub.CustomerID, sub.SubscriptionID, sub.PartnerOfferID, sub.Quantity, sub.ExpiryDate.UTC())
	if err != nil {
		return fmt.Errorf("update customer subscription: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for subscription update: %w", err)
	}
	if affected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *subscriptionRepository) Delete(customerID, subscriptionID string) error {
	ctx, cancel := opContext()
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM customer_subscriptions
		WHERE customer_id = $1 AND subscription_id = $2
	`, customerID, subscriptionID); err != nil {
		return fmt.Errorf("delete customer subscription: %w", err)
	}
	return nil
}

var _ domain.SubscriptionRepository = (*subscriptionRepository)(nil)
