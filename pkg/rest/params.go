package rest

import (
	"strings"

	"github.com/apidoor/restq/pkg/model"
)

// FilterClause is one parsed query parameter: a column, an optional
// modifier, and a lowercased value. Clauses keep the order they arrived
// in; the builder applies them left to right.
type FilterClause struct {
	Column   string
	Modifier model.Modifier
	Value    string
	// Values holds every value the parameter carried when the key was
	// repeated; limit uses a two-element form for count+offset.
	Values []string
	// RawModifier is the suffix as received. ModifierOK is false when
	// it is outside the closed modifier set; the builder rejects the
	// clause with a 400 naming RawModifier.
	RawModifier string
	ModifierOK  bool
}

// parseQueryParams turns ordered raw parameters into filter clauses.
// Keys on the ignore list are skipped case-insensitively. A bare key
// naming a query-wide modifier (sort, limit, rand) becomes a clause
// with no column. No validation happens here beyond modifier lookup;
// value and column checks belong to the builder.
func (h *Handler) parseQueryParams(params []Param) []FilterClause {
	clauses := make([]FilterClause, 0, len(params))

	for _, p := range params {
		if h.ignoredParam(p.Key) {
			continue
		}

		clause := FilterClause{Values: p.Values, ModifierOK: true}
		if len(p.Values) > 0 {
			clause.Value = strings.ToLower(p.Values[0])
		}

		column, suffix, found := strings.Cut(p.Key, h.cfg.Separator)
		if found {
			clause.RawModifier = strings.ToLower(suffix)
			clause.Modifier, clause.ModifierOK = model.ParseModifier(clause.RawModifier)
			clause.Column = strings.ToLower(h.names.Unformat(column))
			clauses = append(clauses, clause)
			continue
		}

		// No separator: either a query-wide modifier used as a bare
		// key, or a plain equality filter on the column.
		switch mod, ok := model.ParseModifier(strings.ToLower(p.Key)); {
		case ok && (mod == model.ModSort || mod == model.ModLimit || mod == model.ModRand):
			clause.Modifier = mod
		default:
			clause.Modifier = model.ModNone
			clause.Column = strings.ToLower(h.names.Unformat(column))
		}
		clauses = append(clauses, clause)
	}
	return clauses
}

func (h *Handler) ignoredParam(key string) bool {
	for _, ignored := range h.cfg.IgnoredParams {
		if strings.EqualFold(key, ignored) {
			return true
		}
	}
	return false
}
