package commerce

import (
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// Normalizer проверяет входящий заказ и заменяет его позиции каноническими:
// цена и название берутся из каталога, сроки и количество мест из хранилища подписок.
type Normalizer interface {
	NormalizePurchase(order domain.CommerceOrder) (domain.CommerceOrder, error)
	NormalizeAdditionalSeats(order domain.CommerceOrder) (domain.CommerceOrder, error)
	NormalizeRenewal(order domain.CommerceOrder) (domain.CommerceOrder, error)
}

// OrderNormalizer реализует Normalizer поверх каталога предложений и подписок клиента.
type OrderNormalizer struct {
	offers        domain.OfferRepository
	subscriptions domain.SubscriptionRepository
	clock         func() time.Time
}

// NewOrderNormalizer создаёт нормализатор. Пустой clock означает time.Now.
func NewOrderNormalizer(offers domain.OfferRepository, subscriptions domain.SubscriptionRepository, clock func() time.Time) *OrderNormalizer {
	if clock == nil {
		clock = time.Now
	}
	return &OrderNormalizer{offers: offers, subscriptions: subscriptions, clock: clock}
}

func (n *OrderNormalizer) NormalizePurchase(order domain.CommerceOrder) (domain.CommerceOrder, error) {
	if err := validateOrder(order, domain.OperationNewPurchase); err != nil {
		return domain.CommerceOrder{}, err
	}

	normalized := order
	normalized.LineItems = make([]domain.OrderLineItem, 0, len(order.LineItems))
	for _, item := range order.LineItems {
		if item.OfferID == "" {
			return domain.CommerceOrder{}, domain.ValidationFailed("offer_id", errors.New("offer_id is required"))
		}
		offer, err := n.activeOffer(item.OfferID)
		if err != nil {
			return domain.CommerceOrder{}, err
		}
		normalized.LineItems = append(normalized.LineItems, domain.OrderLineItem{
			OfferID:       offer.ID,
			RemoteOfferID: offer.RemoteOfferID,
			FriendlyName:  offer.Title,
			Quantity:      item.Quantity,
			SeatPrice:     offer.Price,
		})
	}
	return normalized, nil
}

// NormalizeAdditionalSeats отклоняет докупку в истёкшую подписку и считает
// пропорциональную цену места до даты окончания.
func (n *OrderNormalizer) NormalizeAdditionalSeats(order domain.CommerceOrder) (domain.CommerceOrder, error) {
	if err := validateOrder(order, domain.OperationAdditionalSeats); err != nil {
		return domain.CommerceOrder{}, err
	}

	item := order.LineItems[0]
	sub, err := n.subscription(order.CustomerID, item.SubscriptionID)
	if err != nil {
		return domain.CommerceOrder{}, err
	}
	now := n.clock().UTC()
	if sub.IsExpiredAt(now) {
		return domain.CommerceOrder{}, domain.SubscriptionExpired(sub.SubscriptionID)
	}
	offer, err := n.offer(sub.PartnerOfferID)
	if err != nil {
		return domain.CommerceOrder{}, err
	}

	normalized := order
	normalized.LineItems = []domain.OrderLineItem{{
		OfferID:            offer.ID,
		RemoteOfferID:      offer.RemoteOfferID,
		SubscriptionID:     sub.SubscriptionID,
		FriendlyName:       offer.Title,
		Quantity:           item.Quantity,
		SeatPrice:          ProratedSeatCharge(offer.Price, sub.ExpiryDate, now),
		SubscriptionExpiry: sub.ExpiryDate,
	}}
	return normalized, nil
}

// NormalizeRenewal требует активное предложение; количество мест берётся из подписки,
// цена места полная.
func (n *OrderNormalizer) NormalizeRenewal(order domain.CommerceOrder) (domain.CommerceOrder, error) {
	if err := validateOrder(order, domain.OperationRenewal); err != nil {
		return domain.CommerceOrder{}, err
	}

	item := order.LineItems[0]
	sub, err := n.subscription(order.CustomerID, item.SubscriptionID)
	if err != nil {
		return domain.CommerceOrder{}, err
	}
	offer, err := n.activeOffer(sub.PartnerOfferID)
	if err != nil {
		return domain.CommerceOrder{}, err
	}

	normalized := order
	normalized.LineItems = []domain.OrderLineItem{{
		OfferID:            offer.ID,
		RemoteOfferID:      offer.RemoteOfferID,
		SubscriptionID:     sub.SubscriptionID,
		FriendlyName:       offer.Title,
		Quantity:           sub.Quantity,
		SeatPrice:          offer.Price,
		SubscriptionExpiry: sub.ExpiryDate,
	}}
	return normalized, nil
}

func validateOrder(order domain.CommerceOrder, operation domain.OperationType) error {
	if order.Operation != operation {
		return domain.ValidationFailed("operation", fmt.Errorf("%w: expected %s, got %q", domain.ErrOperationUnsupported, operation, order.Operation))
	}
	if err := order.Validate(); err != nil {
		return domain.ValidationFailed("order", err)
	}
	if operation != domain.OperationNewPurchase && order.LineItems[0].SubscriptionID == "" {
		return domain.ValidationFailed("subscription_id", errors.New("subscription_id is required"))
	}
	return nil
}

func (n *OrderNormalizer) offer(id string) (domain.PartnerOffer, error) {
	offer, err := n.offers.Get(id)
	if errors.Is(err, domain.ErrOfferNotFound) {
		return domain.PartnerOffer{}, domain.OfferNotFound(id)
	}
	if err != nil {
		return domain.PartnerOffer{}, domain.StorageFailure("get_offer", err)
	}
	return offer, nil
}

func (n *OrderNormalizer) activeOffer(id string) (domain.PartnerOffer, error) {
	offer, err := n.offer(id)
	if err != nil {
		return domain.PartnerOffer{}, err
	}
	if offer.IsInactive {
		return domain.PartnerOffer{}, domain.OfferInactive(id)
	}
	return offer, nil
}

func (n *OrderNormalizer) subscription(customerID, subscriptionID string) (domain.CustomerSubscription, error) {
	sub, err := n.subscriptions.Get(customerID, subscriptionID)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return domain.CustomerSubscription{}, domain.SubscriptionNotFound(subscriptionID)
	}
	if err != nil {
		return domain.CustomerSubscription{}, domain.StorageFailure("get_subscription", err)
	}
	return sub, nil
}

var _ Normalizer = (*OrderNormalizer)(nil)
