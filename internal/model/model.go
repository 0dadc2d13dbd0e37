package model

import (
	"strconv"
	"strings"
)

type Role string

const (
	RoleReporter Role = "reporter"
	RolePartner  Role = "partner"
)

// Trade flow codes used by the API's rg parameter.
const (
	FlowImport = 1
	FlowExport = 2
)

type TokenKind int

const (
	TokenNumeric TokenKind = iota
	TokenAll
	TokenFreeText
)

// CountryToken is a reporter or partner value on its way into a query:
// a numeric area code, the "all" sentinel, or free text still to be
// resolved against the registry.
type CountryToken struct {
	kind TokenKind
	code int
	text string
}

func NumericCode(code int) CountryToken {
	return CountryToken{kind: TokenNumeric, code: code}
}

func AllSentinel() CountryToken {
	return CountryToken{kind: TokenAll}
}

func FreeText(name string) CountryToken {
	return CountryToken{kind: TokenFreeText, text: name}
}

// ParseCountryToken classifies a raw string: the case-insensitive literal
// "all", an all-digits code, or free text.
func ParseCountryToken(raw string) CountryToken {
	if strings.EqualFold(raw, "all") {
		return AllSentinel()
	}
	if raw != "" && isDigits(raw) {
		if code, err := strconv.Atoi(raw); err == nil {
			return NumericCode(code)
		}
	}
	return FreeText(raw)
}

func (t CountryToken) Kind() TokenKind {
	return t.kind
}

func (t CountryToken) Code() int {
	return t.code
}

func (t CountryToken) Text() string {
	return t.text
}

// Resolved reports whether the token can be serialized into a query:
// free text must be resolved to a numeric code first.
func (t CountryToken) Resolved() bool {
	return t.kind != TokenFreeText
}

func (t CountryToken) String() string {
	switch t.kind {
	case TokenAll:
		return "all"
	case TokenNumeric:
		return strconv.Itoa(t.code)
	default:
		return t.text
	}
}

// TradeRecord is one row of a machine-readable download, reduced to the
// columns the store keys on.
type TradeRecord struct {
	Period        string
	ReporterCode  string
	PartnerCode   string
	FlowCode      string
	CommodityCode string
	TradeValue    float64
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
