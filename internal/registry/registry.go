// Package registry resolves free-text country names to the numeric area
// codes the API expects, backed by a per-role lookup table that is fetched
// once from the remote registry and cached through a Store.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"uncomtrade/internal/model"
)

const (
	defaultEndpointTemplate = "https://comtrade.un.org/data/cache/{role}Areas.json"
	defaultTimeoutSeconds   = 30
	defaultUserAgent        = "uncomtrade/0.1"
)

var ErrNotFound = errors.New("registry: country not found")

type Config struct {
	EndpointTemplate string
	Timeout          time.Duration
	UserAgent        string
}

func ConfigFromEnv() Config {
	cfg := Config{
		EndpointTemplate: getenv("COMTRADE_REGISTRY_URL", defaultEndpointTemplate),
		UserAgent:        getenv("COMTRADE_USER_AGENT", defaultUserAgent),
	}
	cfg.Timeout = time.Duration(getenvInt("COMTRADE_TIMEOUT_SECONDS", defaultTimeoutSeconds)) * time.Second
	return cfg
}

// Resolver maps country names to codes for a role. The store and confirmer
// are injected; the resolver itself only decides matching order.
type Resolver struct {
	config  Config
	client  *http.Client
	store   Store
	confirm Confirmer
}

func New(store Store, confirm Confirmer) *Resolver {
	return NewWithConfig(ConfigFromEnv(), store, confirm)
}

func NewWithConfig(cfg Config, store Store, confirm Confirmer) *Resolver {
	if strings.TrimSpace(cfg.EndpointTemplate) == "" {
		cfg.EndpointTemplate = defaultEndpointTemplate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if confirm == nil {
		confirm = RejectAll()
	}
	return &Resolver{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		store:   store,
		confirm: confirm,
	}
}

// Resolve returns the code for a country name. Exact match first; a single
// row wins, duplicate display names are an ambiguity failure. Partial
// matches (table text containing the query) go to the confirmer in table
// order and the first affirmative wins.
func (r *Resolver) Resolve(ctx context.Context, name string, role model.Role) (int, error) {
	entries, err := r.ensure(ctx, role)
	if err != nil {
		return 0, err
	}

	exact := make([]Entry, 0, 1)
	for _, entry := range entries {
		if entry.Name == name {
			exact = append(exact, entry)
		}
	}
	if len(exact) == 1 {
		return exact[0].Code, nil
	}
	if len(exact) > 1 {
		return 0, fmt.Errorf("%w: %q matches %d identically named entries", ErrNotFound, name, len(exact))
	}

	partial := make([]Entry, 0)
	for _, entry := range entries {
		if strings.Contains(entry.Name, name) {
			partial = append(partial, entry)
		}
	}
	if len(partial) > 0 {
		if entry, ok := r.confirm.Confirm(name, partial); ok {
			return entry.Code, nil
		}
	}

	return 0, fmt.Errorf("%w: no code corresponds to %q (%s)", ErrNotFound, name, role)
}

func (r *Resolver) ensure(ctx context.Context, role model.Role) ([]Entry, error) {
	entries, ok, err := r.store.Load(role)
	if err != nil {
		return nil, err
	}
	if ok {
		return entries, nil
	}

	entries, err = r.fetch(ctx, role)
	if err != nil {
		return nil, err
	}
	if err := r.store.Save(role, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *Resolver) fetch(ctx context.Context, role model.Role) ([]Entry, error) {
	endpoint := strings.ReplaceAll(r.config.EndpointTemplate, "{role}", string(role))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.config.UserAgent != "" {
		req.Header.Set("User-Agent", r.config.UserAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: fetch %s failed (%s): %s", endpoint, resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Results []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", endpoint, err)
	}

	entries := make([]Entry, 0, len(payload.Results))
	for _, result := range payload.Results {
		if strings.EqualFold(strings.TrimSpace(result.ID), "all") {
			continue
		}
		code, err := strconv.Atoi(strings.TrimSpace(result.ID))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Code: code, Name: result.Text})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("registry: no %s entries parsed from %s", role, endpoint)
	}
	return entries, nil
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
