package postgres

import (
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type purchaseRepository struct {
	db *sql.DB
}

// NewPurchaseRepository создаёт PostgreSQL-реализацию истории покупок.
func NewPurchaseRepository(store *Store) domain.PurchaseRepository {
	return &purchaseRepository{db: store.DB()}
}

func (r *purchaseRepository) Create(p domain.CustomerPurchase) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customer_purchases (
			customer_id, id, subscription_id, operation, seats_bought, seat_price, transaction_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, p.CustomerID, p.ID, p.SubscriptionID, string(p.Operation), p.SeatsBought, p.SeatPrice, p.TransactionDate.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert customer purchase: %w", err)
	}
	return nil
}

// ListByCustomer возвращает покупки клиента, начиная с самых новых.
func (r *purchaseRepository) ListByCustomer(customerID string) ([]domain.CustomerPurchase, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, id, subscription_id, operation, seats_bought, seat_price, transaction_date
		FROM customer_purchases
		WHERE customer_id = $1
		ORDER BY transaction_date DESC, id DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list customer purchases: %w", err)
	}
	defer rows.Close()

	purchases := make([]domain.CustomerPurchase, 0)
	for rows.Next() {
		var (
			p         domain.CustomerPurchase
			operation string
		)
		if err := rows.Scan(&p.CustomerID, &p.ID, &p.SubscriptionID, &operation, &p.SeatsBought, &p.SeatPrice, &p.TransactionDate); err != nil {
			return nil, fmt.Errorf("scan customer purchase: %w", err)
		}
		p.Operation = domain.OperationType(operation)
		p.TransactionDate = p.TransactionDate.UTC()
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer purchases: %w", err)
	}
	return purchases, nil
}

func (r *purchaseRepository) Delete(customerID, purchaseID string) error {
	ctx, cancel := opContext()
	defer cancel()

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM customer_purchases
		WHERE customer_id = $1 AND id = $2
	`, customerID, purchaseID); err != nil {
		return fmt.Errorf("delete customer purchase: %w", err)
	}
	return nil
}

var _ domain.PurchaseRepository = (*purchaseRepository)(nil)
