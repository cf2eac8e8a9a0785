package domain

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// OperationType описывает вид коммерческой операции.
type OperationType string

const (
	// OperationNewPurchase: покупка новых подписок по одному или нескольким предложениям.
	OperationNewPurchase OperationType = "new_purchase"
	// OperationAdditionalSeats: докупка мест в существующую подписку.
	OperationAdditionalSeats OperationType = "additional_seats"
	// OperationRenewal: продление существующей подписки на год.
	OperationRenewal OperationType = "renewal"
)

// OrderLineItem представляет одну позицию заказа.
type OrderLineItem struct {
	// OfferID: идентификатор предложения из каталога витрины.
	OfferID string
	// RemoteOfferID: идентификатор того же предложения в удалённом commerce API.
	RemoteOfferID string
	// SubscriptionID заполняется для операций над существующей подпиской.
	SubscriptionID string
	// FriendlyName: название предложения для отображения.
	FriendlyName string
	// Quantity: количество мест.
	Quantity int
	// SeatPrice: цена одного места (для докупки уже с учётом пропорции).
	SeatPrice decimal.Decimal
	// SubscriptionExpiry: дата окончания подписки, если она известна.
	SubscriptionExpiry time.Time
}

// Validate проверяет позицию заказа.
func (i OrderLineItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.OfferID, validation.Required.When(i.SubscriptionID == "")),
		validation.Field(&i.Quantity, validation.Required, validation.Min(1)),
	)
}

// CommerceOrder: входящий заказ одной из трёх коммерческих операций.
type CommerceOrder struct {
	OrderID    string
	CustomerID string
	Operation  OperationType
	LineItems  []OrderLineItem
}

// Validate проверяет форму заказа: клиент, тип операции и количество позиций.
func (o CommerceOrder) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.CustomerID, validation.Required.Error(ErrCustomerRequired.Error())),
		validation.Field(&o.Operation,
			validation.Required,
			validation.In(OperationNewPurchase, OperationAdditionalSeats, OperationRenewal).Error(ErrOperationUnsupported.Error()),
		),
		validation.Field(&o.LineItems,
			validation.Required.Error(ErrLineItemsRequired.Error()),
			validation.By(o.checkLineItemCount),
		),
	)
}

func (o CommerceOrder) checkLineItemCount(value interface{}) error {
	items, _ := value.([]OrderLineItem)
	if o.Operation != OperationNewPurchase && len(items) != 1 {
		return ErrSingleLineItemRequired
	}
	return nil
}

// LineTotal считает стоимость позиции и округляет её до точности валюты.
// Округление выполняется только после умножения на количество.
func LineTotal(quantity int, unitPrice decimal.Decimal, places int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(places)
}
