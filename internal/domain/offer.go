package domain

import "github.com/shopspring/decimal"

// PartnerOffer: предложение каталога витрины, связанное с предложением удалённого commerce API.
type PartnerOffer struct {
	ID string
	// Title отображается клиенту и попадает в позиции нормализованного заказа.
	Title string
	// RemoteOfferID: идентификатор предложения, под которым оформляется заказ в commerce API.
	RemoteOfferID string
	// Price: годовая цена одного места.
	Price decimal.Decimal
	// IsInactive помечает предложение как снятое с продажи (soft delete).
	IsInactive bool
}
