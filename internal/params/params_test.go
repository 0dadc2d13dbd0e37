package params

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uncomtrade/internal/model"
)

type stubResolver struct {
	codes map[string]int
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, name string, role model.Role) (int, error) {
	s.calls++
	code, ok := s.codes[name]
	if !ok {
		return 0, errors.New("stub: not found")
	}
	return code, nil
}

func TestNormalizeReporterPassesCodesThrough(t *testing.T) {
	resolver := &stubResolver{}
	tokens := []model.CountryToken{
		model.NumericCode(842),
		model.AllSentinel(),
		model.NumericCode(124),
	}

	normalized, err := NormalizeReporter(context.Background(), tokens, resolver)
	require.NoError(t, err)
	assert.Equal(t, tokens, normalized)
	assert.Zero(t, resolver.calls, "valid codes must not touch the registry")
}

func TestNormalizeReporterResolvesFreeText(t *testing.T) {
	resolver := &stubResolver{codes: map[string]int{"USA": 842}}
	tokens := []model.CountryToken{
		model.FreeText("USA"),
		model.NumericCode(124),
	}

	normalized, err := NormalizeReporter(context.Background(), tokens, resolver)
	require.NoError(t, err)
	require.Len(t, normalized, 2)
	assert.Equal(t, model.NumericCode(842), normalized[0])
	assert.Equal(t, model.NumericCode(124), normalized[1])
}

func TestNormalizePartnerPropagatesResolverError(t *testing.T) {
	resolver := &stubResolver{}
	_, err := NormalizePartner(context.Background(), []model.CountryToken{model.FreeText("Atlantis")}, resolver)
	assert.Error(t, err)
}

func TestNormalizeTradeflow(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"exports", 2},
		{"Export", 2},
		{"EXPORTS", 2},
		{"imports", 1},
		{"import", 1},
		{"re-Import flows", 1},
		{"1", 1},
		{"2", 2},
		{"4", 4},
	}
	for _, tt := range tests {
		got, err := NormalizeTradeflow(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestNormalizeTradeflowUnknownIsError(t *testing.T) {
	for _, input := range []string{"", "sideways", "trade"} {
		_, err := NormalizeTradeflow(input)
		assert.ErrorIs(t, err, ErrUnknownFlow, "input %q", input)
	}
}

func TestValidateLimits(t *testing.T) {
	codes := func(n int) []model.CountryToken {
		tokens := make([]model.CountryToken, n)
		for i := range tokens {
			tokens[i] = model.NumericCode(100 + i)
		}
		return tokens
	}

	assert.NoError(t, ValidateLimits([]string{"2016"}, codes(5), codes(5), []string{"total"}))
	assert.Error(t, ValidateLimits([]string{"2011", "2012", "2013", "2014", "2015", "2016"}, codes(1), codes(1), nil))
	assert.Error(t, ValidateLimits([]string{"2016"}, codes(6), codes(1), nil))
	assert.Error(t, ValidateLimits([]string{"2016"}, codes(1), codes(6), nil))

	products := make([]string, 21)
	for i := range products {
		products[i] = "01"
	}
	assert.Error(t, ValidateLimits([]string{"2016"}, codes(1), codes(1), products))
}

func TestValidateLimitsSingleAll(t *testing.T) {
	all := []model.CountryToken{model.AllSentinel()}
	one := []model.CountryToken{model.NumericCode(842)}

	assert.NoError(t, ValidateLimits([]string{"2016"}, all, one, nil))
	assert.NoError(t, ValidateLimits([]string{"all"}, one, one, nil))
	assert.Error(t, ValidateLimits([]string{"2016"}, all, all, nil))
	assert.Error(t, ValidateLimits([]string{"all"}, all, one, nil))
	assert.Error(t, ValidateLimits([]string{"ALL"}, one, all, nil))
}

func TestQuerySetEncodeKeepsOrderAndCommas(t *testing.T) {
	var q QuerySet
	q.Set("ps", "2016")
	q.Set("freq", "A")
	q.Set("r", "842", "124")
	q.Set("p", "all")

	assert.Equal(t, "ps=2016&freq=A&r=842,124&p=all", q.Encode())
}

func TestQuerySetSetReplacesInPlace(t *testing.T) {
	var q QuerySet
	q.Set("ps", "2016")
	q.Set("freq", "A")
	q.Set("ps", "2017", "2018")

	assert.Equal(t, "ps=2017,2018&freq=A", q.Encode())
}

func TestTokenStrings(t *testing.T) {
	tokens := []model.CountryToken{
		model.NumericCode(842),
		model.AllSentinel(),
	}
	assert.Equal(t, []string{"842", "all"}, TokenStrings(tokens))
}
