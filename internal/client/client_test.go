package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncomtrade/internal/model"
)

func testClient(baseURL string) *Client {
	return NewWithConfig(Config{
		BaseURL:         baseURL,
		RateLimitPerSec: 1000,
	})
}

func TestDownloadMachineReadable(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{
			"validation": {"count": {"value": 2}, "message": "ok"},
			"dataset": [
				{"period": "2016", "rtCode": 842, "ptCode": 124, "rgCode": 2, "cmdCode": "TOTAL", "TradeValue": 266797413045},
				{"period": "2016", "rtCode": 842, "ptCode": 156, "rgCode": 2, "cmdCode": "TOTAL", "TradeValue": 115594644894}
			]
		}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	outfile := filepath.Join(dir, "trade_data")

	result, err := testClient(server.URL).Download(context.Background(), Request{
		Period:    []string{"2016"},
		Frequency: "A",
		Reporters: []model.CountryToken{model.NumericCode(842)},
		Partners:  []model.CountryToken{model.NumericCode(124), model.NumericCode(156)},
		Products:  []string{"total"},
		Tradeflow: model.FlowExport,
	}, outfile)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Records)
	assert.Equal(t, "ok", result.Message)
	assert.Equal(t, outfile+".csv", result.Filename)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, model.TradeRecord{
		Period:        "2016",
		ReporterCode:  "842",
		PartnerCode:   "124",
		FlowCode:      "2",
		CommodityCode: "TOTAL",
		TradeValue:    266797413045,
	}, result.Rows[0])

	assert.Contains(t, gotQuery, "ps=2016")
	assert.Contains(t, gotQuery, "r=842")
	assert.Contains(t, gotQuery, "p=124,156")
	assert.Contains(t, gotQuery, "rg=2")
	assert.Contains(t, gotQuery, "px=HS")
	assert.Contains(t, gotQuery, "type=C")
	assert.Contains(t, gotQuery, "fmt=json")
	assert.Contains(t, gotQuery, "head=M")

	data, err := os.ReadFile(outfile + ".csv")
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "TradeValue")
	assert.Contains(t, content, "266797413045")
}

func TestDownloadEmptyDataset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validation": {"count": {"value": 0}, "message": "no data matches your query"}, "dataset": []}`))
	}))
	defer server.Close()

	outfile := filepath.Join(t.TempDir(), "empty.csv")
	result, err := testClient(server.URL).Download(context.Background(), Request{
		Reporters: []model.CountryToken{model.NumericCode(842)},
		Partners:  []model.CountryToken{model.AllSentinel()},
		Tradeflow: model.FlowImport,
	}, outfile)
	assert.ErrorIs(t, err, ErrEmptyDataset)
	assert.Equal(t, "no data matches your query", result.Message)

	_, statErr := os.Stat(outfile)
	assert.True(t, os.IsNotExist(statErr), "no file is written for an empty dataset")
}

func TestDownloadHumanReadable(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte("Year,Reporter,Partner,Trade Value (US$)\n2016,USA,Canada,266797413045\n"))
	}))
	defer server.Close()

	outfile := filepath.Join(t.TempDir(), "readable.csv")
	result, err := testClient(server.URL).Download(context.Background(), Request{
		Reporters:     []model.CountryToken{model.NumericCode(842)},
		Partners:      []model.CountryToken{model.NumericCode(124)},
		Tradeflow:     model.FlowExport,
		HumanReadable: true,
	}, outfile)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Records)
	assert.Empty(t, result.Rows)
	assert.Contains(t, gotQuery, "fmt=csv")
	assert.Contains(t, gotQuery, "head=H")

	data, err := os.ReadFile(outfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Trade Value (US$)")
}

func TestDownloadUnresolvedTokenFails(t *testing.T) {
	client := testClient("http://127.0.0.1:0")
	_, err := client.Download(context.Background(), Request{
		Reporters: []model.CountryToken{model.FreeText("USA")},
		Partners:  []model.CountryToken{model.AllSentinel()},
		Tradeflow: model.FlowExport,
	}, filepath.Join(t.TempDir(), "out.csv"))
	assert.Error(t, err)
}

func TestDownloadCombinationLimit(t *testing.T) {
	client := testClient("http://127.0.0.1:0")
	_, err := client.Download(context.Background(), Request{
		Reporters: []model.CountryToken{model.AllSentinel()},
		Partners:  []model.CountryToken{model.AllSentinel()},
		Tradeflow: model.FlowExport,
	}, filepath.Join(t.TempDir(), "out.csv"))
	assert.Error(t, err)
}

func TestDownloadServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "usage limit reached", http.StatusConflict)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Download(context.Background(), Request{
		Reporters: []model.CountryToken{model.NumericCode(842)},
		Partners:  []model.CountryToken{model.NumericCode(124)},
		Tradeflow: model.FlowExport,
	}, filepath.Join(t.TempDir(), "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage limit reached")
}

func TestEnsureCSVExt(t *testing.T) {
	assert.Equal(t, "trade.csv", ensureCSVExt("trade"))
	assert.Equal(t, "trade.csv", ensureCSVExt("trade.csv"))
	assert.Equal(t, "trade.txt", ensureCSVExt("trade.txt"))
}
