package rest

import (
	"strconv"
	"strings"
	"time"

	"github.com/apidoor/restq/pkg/model"
)

const validModifierList = "StartsWith, EndsWith, PartialMatch, GreaterThan, LessThan, Negation, Sort, Limit, or Rand"

// applyFilters validates each clause in order and applies it to the
// query builder. The first invalid clause aborts with a 400; the
// builder is never executed here. After all clauses, the configured
// default limit is applied once if no clause set one (a negative
// configured default disables capping).
func (h *Handler) applyFilters(q model.Query, clauses []FilterClause, entity model.Entity) (model.Query, *Error) {
	for _, clause := range clauses {
		// Column existence is checked before the modifier, so a bad
		// column with a bad modifier reports the column.
		if clause.Column != "" && !entity.HasColumn(clause.Column) {
			return nil, badRequest("Requested filter column %s does not exist in model %s.", clause.Column, h.names.Format(entity.Name()))
		}

		if !clause.ModifierOK {
			return nil, badRequest("Filter modifier %s not valid. Try %s.", clause.RawModifier, validModifierList)
		}

		if clause.Modifier.RequiresValue() && clause.Value == "" {
			return nil, badRequest("Empty filter value for column %s.", clause.Column)
		}
		if clause.Modifier == model.ModSort {
			switch clause.Value {
			case "asc", "desc":
			case "":
				return nil, badRequest("Empty filter value for column %s.", clause.Column)
			default:
				return nil, badRequest("Filter %s not valid for modifier %s. Try ASC, or DESC.", clause.Value, clause.Modifier)
			}
		}

		if clause.Column != "" {
			switch clause.Modifier {
			case model.ModSort:
				q = q.Sort(clause.Column, clause.Value)
			case model.ModNone, model.ModExact:
				q = q.Filter(clause.Column, model.ModNone, clause.Value)
			default:
				q = q.Filter(clause.Column, clause.Modifier, clause.Value)
			}
			continue
		}

		// Query-wide clauses.
		switch clause.Modifier {
		case model.ModSort:
			q = q.Sort("", clause.Value)
		case model.ModRand:
			seed := clause.Value
			if seed == "" {
				// Time-seeded ordering is non-repeatable across
				// relation traversals; known limitation.
				seed = strconv.FormatInt(time.Now().Unix(), 10)
			}
			q = q.SortRand(seed)
		case model.ModLimit:
			count, offset := parseLimitValue(clause)
			q = q.Limit(count, offset)
		}
	}

	if !q.HasLimit() && h.cfg.DefaultLimit >= 0 {
		q = q.Limit(h.cfg.DefaultLimit, 0)
	}
	return q, nil
}

// parseLimitValue reads the count and optional offset of a limit
// clause. The two-element form comes from a repeated key or a single
// comma-separated value.
func parseLimitValue(clause FilterClause) (count, offset int) {
	parts := clause.Values
	if len(parts) < 2 && strings.Contains(clause.Value, ",") {
		parts = strings.SplitN(clause.Value, ",", 2)
	}
	if len(parts) >= 2 {
		count, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
		offset, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
		return count, offset
	}
	count, _ = strconv.Atoi(clause.Value)
	return count, 0
}
