package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	offers := memory.NewOfferRepository()
	logger := log.WithField("test", "catalog")

	created, err := loadCatalog("testdata/catalog.json", offers, logger)
	require.NoError(t, err)
	require.Equal(t, 3, created)

	teams, err := offers.Get("teams")
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(48).Equal(teams.Price))
	require.Equal(t, "MS-TEAMS", teams.RemoteOfferID)

	legacy, err := offers.Get("legacy")
	require.NoError(t, err)
	require.True(t, legacy.IsInactive)

	again, err := loadCatalog("testdata/catalog.json", offers, logger)
	require.NoError(t, err)
	require.Zero(t, again)
}

func TestLoadCatalog_InvalidFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		return path
	}
	logger := log.WithField("test", "catalog-invalid")

	_, err := loadCatalog(write("broken.json", "{"), memory.NewOfferRepository(), logger)
	require.ErrorContains(t, err, "decode catalog file")

	_, err = loadCatalog(write("no-remote.json", `[{"id":"a","price":"1"}]`), memory.NewOfferRepository(), logger)
	require.ErrorContains(t, err, "remote_offer_id")

	_, err = loadCatalog(write("negative.json", `[{"id":"a","remote_offer_id":"R","price":"-1"}]`), memory.NewOfferRepository(), logger)
	require.ErrorContains(t, err, "negative")

	_, err = loadCatalog(filepath.Join(dir, "missing.json"), memory.NewOfferRepository(), logger)
	require.ErrorContains(t, err, "read catalog file")
}
