package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type offerRepository struct {
	db *sql.DB
}

// NewOfferRepository создаёт PostgreSQL-реализацию каталога предложений.
func NewOfferRepository(store *Store) domain.OfferRepository {
	return &offerRepository{db: store.DB()}
}

func (r *offerRepository) Create(offer domain.PartnerOffer) error {
	ctx, cancel := opContext()
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO partner_offers (id, title, remote_offer_id, price, is_inactive)
		VALUES ($1,$2,$3,$4,$5)
	`, offer.ID, offer.Title, offer.RemoteOfferID, offer.Price, offer.IsInactive)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("insert partner offer: %w", err)
	}
	return nil
}

func (r *offerRepository) Get(id string) (domain.PartnerOffer, error) {
	ctx, cancel := opContext()
	defer cancel()

	var offer domain.PartnerOffer
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, remote_offer_id, price, is_inactive
		FROM partner_offers
		WHERE id = $1
	`, id).Scan(&offer.ID, &offer.Title, &offer.RemoteOfferID, &offer.Price, &offer.IsInactive)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PartnerOffer{}, domain.ErrOfferNotFound
	}
	if err != nil {
		return domain.PartnerOffer{}, fmt.Errorf("get partner offer: %w", err)
	}
	return offer, nil
}

func (r *offerRepository) List() ([]domain.PartnerOffer, error) {
	ctx, cancel := opContext()
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, remote_offer_id, price, is_inactive
		FROM partner_offers
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list partner offers: %w", err)
	}
	defer rows.Close()

	offers := make([]domain.PartnerOffer, 0)
	for rows.Next() {
		var offer domain.PartnerOffer
		if err := rows.Scan(&offer.ID, &offer.Title, &offer.RemoteOfferID, &offer.Price, &offer.IsInactive); err != nil {
			return nil, fmt.Errorf("scan partner offer: %w", err)
		}
		offers = append(offers, offer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate partner offers: %w", err)
	}
	return offers, nil
}

var _ domain.OfferRepository = (*offerRepository)(nil)
