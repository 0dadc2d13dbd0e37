package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncomtrade/internal/model"
)

func TestUpsertAndListRecords(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "trade.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	records := []model.TradeRecord{
		{Period: "2016", ReporterCode: "842", PartnerCode: "124", FlowCode: "2", CommodityCode: "TOTAL", TradeValue: 100},
		{Period: "2016", ReporterCode: "842", PartnerCode: "156", FlowCode: "2", CommodityCode: "TOTAL", TradeValue: 200},
	}
	require.NoError(t, store.UpsertRecords(ctx, records))

	// Same key updates in place instead of duplicating.
	records[0].TradeValue = 150
	require.NoError(t, store.UpsertRecords(ctx, records[:1]))

	listed, err := store.ListRecords(ctx, "842", "")
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, 150.0, listed[0].TradeValue)

	filtered, err := store.ListRecords(ctx, "842", "156")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "156", filtered[0].PartnerCode)

	none, err := store.ListRecords(ctx, "999", "")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewRequiresPath(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
