package params

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"uncomtrade/internal/model"
)

// Parameter combination limits documented by the API: ps, r and p carry at
// most 5 codes each and only one of them may use "all"; commodity codes are
// limited to 20 items.
const (
	maxCodesPerParam  = 5
	maxCommodityCodes = 20
)

var ErrUnknownFlow = errors.New("params: unknown trade flow")

// Resolver maps a free-text country name to its numeric code for a role.
type Resolver interface {
	Resolve(ctx context.Context, name string, role model.Role) (int, error)
}

// NormalizeReporter rewrites reporter tokens into codes or the "all"
// sentinel. Numeric and "all" tokens pass through untouched; free text is
// resolved. Output order matches input order.
func NormalizeReporter(ctx context.Context, tokens []model.CountryToken, resolver Resolver) ([]model.CountryToken, error) {
	return normalizeCountries(ctx, tokens, model.RoleReporter, resolver)
}

// NormalizePartner is NormalizeReporter for the partner role.
func NormalizePartner(ctx context.Context, tokens []model.CountryToken, resolver Resolver) ([]model.CountryToken, error) {
	return normalizeCountries(ctx, tokens, model.RolePartner, resolver)
}

func normalizeCountries(ctx context.Context, tokens []model.CountryToken, role model.Role, resolver Resolver) ([]model.CountryToken, error) {
	normalized := make([]model.CountryToken, 0, len(tokens))
	for _, token := range tokens {
		if token.Resolved() {
			normalized = append(normalized, token)
			continue
		}
		if resolver == nil {
			return nil, fmt.Errorf("params: no resolver for %s name %q", role, token.Text())
		}
		code, err := resolver.Resolve(ctx, token.Text(), role)
		if err != nil {
			return nil, err
		}
		normalized = append(normalized, model.NumericCode(code))
	}
	return normalized, nil
}

// NormalizeTradeflow maps a flow value to the API's rg code. Digit strings
// pass through unchanged; otherwise a case-insensitive substring match on
// "export" (code 2) then "import" (code 1). Anything else is ErrUnknownFlow.
func NormalizeTradeflow(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed != "" && isDigits(trimmed) {
		code, err := strconv.Atoi(trimmed)
		if err == nil {
			return code, nil
		}
	}
	lower := strings.ToLower(trimmed)
	switch {
	case strings.Contains(lower, "export"):
		return model.FlowExport, nil
	case strings.Contains(lower, "import"):
		return model.FlowImport, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFlow, value)
	}
}

// ValidateLimits enforces the API's combination limits before any request
// is built.
func ValidateLimits(periods []string, reporters, partners []model.CountryToken, products []string) error {
	if len(periods) > maxCodesPerParam {
		return fmt.Errorf("params: at most %d periods per call, got %d", maxCodesPerParam, len(periods))
	}
	if len(reporters) > maxCodesPerParam {
		return fmt.Errorf("params: at most %d reporters per call, got %d", maxCodesPerParam, len(reporters))
	}
	if len(partners) > maxCodesPerParam {
		return fmt.Errorf("params: at most %d partners per call, got %d", maxCodesPerParam, len(partners))
	}
	if len(products) > maxCommodityCodes {
		return fmt.Errorf("params: at most %d commodity codes per call, got %d", maxCommodityCodes, len(products))
	}

	allCount := 0
	for _, period := range periods {
		if strings.EqualFold(strings.TrimSpace(period), "all") {
			allCount++
			break
		}
	}
	allCount += countAll(reporters)
	allCount += countAll(partners)
	if allCount > 1 {
		return errors.New(`params: only one of period, reporter and partner may be "all"`)
	}
	return nil
}

func countAll(tokens []model.CountryToken) int {
	for _, token := range tokens {
		if token.Kind() == model.TokenAll {
			return 1
		}
	}
	return 0
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
