package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCountryToken(t *testing.T) {
	tests := []struct {
		raw  string
		kind TokenKind
		out  string
	}{
		{"842", TokenNumeric, "842"},
		{"0", TokenNumeric, "0"},
		{"all", TokenAll, "all"},
		{"All", TokenAll, "all"},
		{"ALL", TokenAll, "all"},
		{"USA", TokenFreeText, "USA"},
		{"Bolivia (Plurinational State of)", TokenFreeText, "Bolivia (Plurinational State of)"},
		{"8a2", TokenFreeText, "8a2"},
		{"", TokenFreeText, ""},
	}
	for _, tt := range tests {
		token := ParseCountryToken(tt.raw)
		assert.Equal(t, tt.kind, token.Kind(), "raw %q", tt.raw)
		assert.Equal(t, tt.out, token.String(), "raw %q", tt.raw)
	}
}

func TestTokenResolved(t *testing.T) {
	assert.True(t, NumericCode(842).Resolved())
	assert.True(t, AllSentinel().Resolved())
	assert.False(t, FreeText("USA").Resolved())
}
