package domain

// PartnerOrderLine: позиция заказа в терминах удалённого commerce API.
type PartnerOrderLine struct {
	LineNumber    int
	RemoteOfferID string
	FriendlyName  string
	Quantity      int
}

// PartnerOrder: заказ, отправляемый в удалённый commerce API.
type PartnerOrder struct {
	CustomerID string
	Lines      []PartnerOrderLine
}

// PlacedOrderLine: позиция созданного заказа; каждая позиция порождает подписку.
type PlacedOrderLine struct {
	LineNumber     int
	RemoteOfferID  string
	SubscriptionID string
	Quantity       int
}

// PlacedOrder: запись о заказе, созданном удалённым commerce API.
type PlacedOrder struct {
	ID         string
	CustomerID string
	Lines      []PlacedOrderLine
}

// RemoteSubscription: подписка в удалённом commerce API.
type RemoteSubscription struct {
	ID            string
	RemoteOfferID string
	Quantity      int
	Status        string
}
