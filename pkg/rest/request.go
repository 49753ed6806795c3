package rest

import (
	"net/url"
	"strings"

	"github.com/apidoor/restq/pkg/model"
)

// Param is one query-string parameter. Repeated keys collapse into a
// single Param with multiple values, keeping the position of the first
// occurrence.
type Param struct {
	Key    string
	Values []string
}

// Request is the immutable context of one inbound API request: the
// public entity name and raw id from the path, the HTTP verb, the query
// parameters in wire order, and the undecoded body.
type Request struct {
	Entity string
	ID     string
	Verb   model.Verb
	Params []Param
	Body   []byte
}

// ParamsFromQuery parses a raw query string into ordered parameters.
// url.Values would lose wire order, which matters because sort, limit,
// and rand clauses compose with earlier filters left to right.
func ParamsFromQuery(rawQuery string) []Param {
	var params []Param
	index := map[string]int{}

	for pair := range strings.SplitSeq(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if i, ok := index[key]; ok {
			params[i].Values = append(params[i].Values, value)
			continue
		}
		index[key] = len(params)
		params = append(params, Param{Key: key, Values: []string{value}})
	}
	return params
}
