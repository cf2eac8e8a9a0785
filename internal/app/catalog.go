package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type catalogOffer struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	RemoteOfferID string          `json:"remote_offer_id"`
	Price         decimal.Decimal `json:"price"`
	Inactive      bool            `json:"inactive"`
}

// loadCatalog загружает предложения из JSON-файла. Уже существующие предложения не меняются.
func loadCatalog(path string, offers domain.OfferRepository, logger *log.Entry) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog file: %w", err)
	}

	var items []catalogOffer
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, fmt.Errorf("decode catalog file: %w", err)
	}

	created := 0
	for i, item := range items {
		if item.ID == "" || item.RemoteOfferID == "" {
			return created, fmt.Errorf("catalog offer #%d: id and remote_offer_id are required", i)
		}
		if item.Price.IsNegative() {
			return created, fmt.Errorf("catalog offer %s: price must not be negative", item.ID)
		}

		err := offers.Create(domain.PartnerOffer{
			ID:            item.ID,
			Title:         item.Title,
			RemoteOfferID: item.RemoteOfferID,
			Price:         item.Price,
			IsInactive:    item.Inactive,
		})
		switch {
		case errors.Is(err, domain.ErrAlreadyExists):
			logger.WithField("offer_id", item.ID).Debug("catalog offer already exists")
		case err != nil:
			return created, fmt.Errorf("create catalog offer %s: %w", item.ID, err)
		default:
			created++
		}
	}

	logger.WithFields(log.Fields{"file": path, "created": created, "total": len(items)}).Info("catalog loaded")
	return created, nil
}
