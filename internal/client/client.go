// Package client downloads trade records from the UN Comtrade API and
// writes them to a local CSV file. One request per download; transport
// failures propagate to the caller unmodified.
package client

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"uncomtrade/internal/model"
	"uncomtrade/internal/params"
)

const (
	defaultBaseURL        = "https://comtrade.un.org/api/get"
	defaultTimeoutSeconds = 30
	defaultUserAgent      = "uncomtrade/0.1"
	defaultMaxRecords     = 50000
	defaultRatePerSec     = 1

	classificationHS = "HS"
	typeCommodities  = "C"

	defaultPeriod    = "recent"
	defaultFrequency = "A"
	defaultProduct   = "total"
)

var ErrEmptyDataset = errors.New("comtrade: empty dataset")

type Config struct {
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	MaxRecords      int
	RateLimitPerSec int
}

func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL:   getenv("COMTRADE_BASE_URL", defaultBaseURL),
		UserAgent: getenv("COMTRADE_USER_AGENT", defaultUserAgent),
	}
	cfg.Timeout = time.Duration(getenvInt("COMTRADE_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second
	cfg.MaxRecords = getenvInt("COMTRADE_MAX_RECORDS", defaultMaxRecords)
	cfg.RateLimitPerSec = getenvInt("COMTRADE_RATE_LIMIT_PER_SEC", defaultRatePerSec)
	return cfg
}

type Client struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
}

func New() *Client {
	return NewWithConfig(ConfigFromEnv())
}

func NewWithConfig(cfg Config) *Client {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxRecords <= 0 {
		cfg.MaxRecords = defaultMaxRecords
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRatePerSec
	}
	return &Client{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), 1),
	}
}

// Request describes one download. Country tokens must already be
// normalized; free text here is a caller bug.
type Request struct {
	Period    []string
	Frequency string
	Reporters []model.CountryToken
	Partners  []model.CountryToken
	Products  []string
	Tradeflow int

	// HumanReadable selects csv output with readable headings; the
	// machine-readable json mode additionally carries API messages.
	HumanReadable bool
}

// Result reports what a download produced. Rows is populated in machine
// mode only, for callers that persist records.
type Result struct {
	Records  int
	Message  string
	Filename string
	Rows     []model.TradeRecord
}

// Download builds the query, issues one GET and writes the response to
// filename (gaining a .csv extension when it has none).
func (c *Client) Download(ctx context.Context, req Request, filename string) (Result, error) {
	applyRequestDefaults(&req)

	for _, token := range append(append([]model.CountryToken{}, req.Reporters...), req.Partners...) {
		if !token.Resolved() {
			return Result{}, fmt.Errorf("comtrade: unresolved country token %q", token.Text())
		}
	}
	if err := params.ValidateLimits(req.Period, req.Reporters, req.Partners, req.Products); err != nil {
		return Result{}, err
	}

	format, head := "json", "M"
	if req.HumanReadable {
		format, head = "csv", "H"
	}

	var query params.QuerySet
	query.Set("ps", req.Period...)
	query.Set("freq", req.Frequency)
	query.Set("r", params.TokenStrings(req.Reporters)...)
	query.Set("p", params.TokenStrings(req.Partners)...)
	query.Set("cc", req.Products...)
	query.Set("rg", strconv.Itoa(req.Tradeflow))
	query.Set("px", classificationHS)
	query.Set("type", typeCommodities)
	query.Set("fmt", format)
	query.Set("max", strconv.Itoa(c.config.MaxRecords))
	query.Set("head", head)

	body, err := c.get(ctx, c.config.BaseURL+"?"+query.Encode())
	if err != nil {
		return Result{}, err
	}

	outfile := ensureCSVExt(filename)
	if req.HumanReadable {
		return c.writeHumanReadable(body, outfile)
	}
	return c.writeMachineReadable(body, outfile)
}

func (c *Client) get(ctx context.Context, uri string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("comtrade: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) writeHumanReadable(body []byte, filename string) (Result, error) {
	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("comtrade: decode csv response: %w", err)
	}

	if err := writeCSVFile(filename, rows); err != nil {
		return Result{}, err
	}

	records := len(rows)
	if records > 0 {
		records-- // header
	}
	return Result{Records: records, Filename: filename}, nil
}

func (c *Client) writeMachineReadable(body []byte, filename string) (Result, error) {
	var payload struct {
		Validation struct {
			Count struct {
				Value int `json:"value"`
			} `json:"count"`
			Message string `json:"message"`
		} `json:"validation"`
		Dataset []map[string]any `json:"dataset"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Result{}, fmt.Errorf("comtrade: decode json response: %w", err)
	}

	message := payload.Validation.Message
	if len(payload.Dataset) == 0 {
		if message != "" {
			return Result{Message: message}, fmt.Errorf("%w: %s", ErrEmptyDataset, message)
		}
		return Result{}, ErrEmptyDataset
	}

	columns := datasetColumns(payload.Dataset)
	rows := make([][]string, 0, len(payload.Dataset)+1)
	rows = append(rows, columns)
	for _, record := range payload.Dataset {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = renderCell(record[column])
		}
		rows = append(rows, row)
	}
	if err := writeCSVFile(filename, rows); err != nil {
		return Result{}, err
	}

	records := payload.Validation.Count.Value
	if records == 0 {
		records = len(payload.Dataset)
	}
	return Result{
		Records:  records,
		Message:  message,
		Filename: filename,
		Rows:     RecordsFromRows(payload.Dataset),
	}, nil
}

// RecordsFromRows reduces machine-readable dataset rows to store records,
// tolerating the API's drifting field names.
func RecordsFromRows(rows []map[string]any) []model.TradeRecord {
	records := make([]model.TradeRecord, 0, len(rows))
	for _, row := range rows {
		value, ok := getFloat(row, "TradeValue", "tradeValue", "TradeValueUSD", "primaryValue")
		if !ok {
			continue
		}
		period, ok := getString(row, "period", "Period", "ps", "yr")
		if !ok {
			continue
		}
		reporter, _ := getString(row, "rtCode", "reporterCode", "rt")
		partner, _ := getString(row, "ptCode", "partnerCode", "pt")
		flow, _ := getString(row, "rgCode", "flowCode", "rg")
		commodity, _ := getString(row, "cmdCode", "commodityCode", "cc")
		records = append(records, model.TradeRecord{
			Period:        period,
			ReporterCode:  reporter,
			PartnerCode:   partner,
			FlowCode:      flow,
			CommodityCode: commodity,
			TradeValue:    value,
		})
	}
	return records
}

func applyRequestDefaults(req *Request) {
	if len(req.Period) == 0 {
		req.Period = []string{defaultPeriod}
	}
	if strings.TrimSpace(req.Frequency) == "" {
		req.Frequency = defaultFrequency
	}
	if len(req.Reporters) == 0 {
		req.Reporters = []model.CountryToken{model.AllSentinel()}
	}
	if len(req.Partners) == 0 {
		req.Partners = []model.CountryToken{model.AllSentinel()}
	}
	if len(req.Products) == 0 {
		req.Products = []string{defaultProduct}
	}
	if req.Tradeflow == 0 {
		req.Tradeflow = model.FlowExport
	}
}

func datasetColumns(rows []map[string]any) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, row := range rows {
		for key := range row {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	sort.Strings(columns)
	return columns
}

func renderCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}

func writeCSVFile(filename string, rows [][]string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func ensureCSVExt(filename string) string {
	if filepath.Ext(filename) == "" {
		return filename + ".csv"
	}
	return filename
}

func getString(row map[string]any, keys ...string) (string, bool) {
	value, ok := getValue(row, keys...)
	if !ok {
		return "", false
	}
	switch typed := value.(type) {
	case string:
		trimmed := strings.TrimSpace(typed)
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	case json.Number:
		return typed.String(), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case int:
		return strconv.Itoa(typed), true
	default:
		return "", false
	}
}

func getFloat(row map[string]any, keys ...string) (float64, bool) {
	value, ok := getValue(row, keys...)
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func getValue(row map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		if value, ok := row[key]; ok {
			return value, true
		}
	}
	for rowKey, value := range row {
		for _, key := range keys {
			if strings.EqualFold(rowKey, key) {
				return value, true
			}
		}
	}
	return nil, false
}

func getenv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
