package params

import (
	"strings"

	"uncomtrade/internal/model"
)

// QuerySet is an ordered list of query parameters. The API expects list
// values comma-joined in place, which url.Values.Encode would escape, so
// encoding is done by hand and keys keep their insertion order.
type QuerySet struct {
	pairs []pair
}

type pair struct {
	key    string
	values []string
}

// Set appends the key with its values, replacing an earlier entry for the
// same key in place.
func (q *QuerySet) Set(key string, values ...string) {
	for i := range q.pairs {
		if q.pairs[i].key == key {
			q.pairs[i].values = values
			return
		}
	}
	q.pairs = append(q.pairs, pair{key: key, values: values})
}

// Encode renders "key=v1,v2&key2=v3" in insertion order.
func (q *QuerySet) Encode() string {
	parts := make([]string, 0, len(q.pairs))
	for _, p := range q.pairs {
		parts = append(parts, p.key+"="+strings.Join(p.values, ","))
	}
	return strings.Join(parts, "&")
}

// TokenStrings renders country tokens for serialization. Every token must
// already be resolved; unresolved free text never reaches a query.
func TokenStrings(tokens []model.CountryToken) []string {
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, token.String())
	}
	return out
}
