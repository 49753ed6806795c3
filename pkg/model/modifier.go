package model

// Modifier selects the filter, sort, or limit behavior of a query
// parameter. It is a closed set: anything the parser cannot map to one
// of these values is rejected with a 400, never silently ignored.
type Modifier uint8

const (
	// ModNone means the parameter key carried no modifier suffix; the
	// clause is a plain equality filter with no value-presence rule.
	ModNone Modifier = iota
	// ModExact is an explicit empty suffix after the separator
	// ("col__=v"). It filters by equality like ModNone but requires a
	// non-empty value.
	ModExact
	ModStartsWith
	ModEndsWith
	ModPartialMatch
	ModGreaterThan
	ModLessThan
	ModNegation
	ModSort
	ModLimit
	ModRand
)

var modifierNames = map[string]Modifier{
	"":             ModExact,
	"startswith":   ModStartsWith,
	"endswith":     ModEndsWith,
	"partialmatch": ModPartialMatch,
	"greaterthan":  ModGreaterThan,
	"lessthan":     ModLessThan,
	"negation":     ModNegation,
	"sort":         ModSort,
	"limit":        ModLimit,
	"rand":         ModRand,
}

// ParseModifier maps a lowercased modifier suffix to its Modifier
// value. ok is false for anything outside the closed set.
func ParseModifier(s string) (Modifier, bool) {
	m, ok := modifierNames[s]
	return m, ok
}

func (m Modifier) String() string {
	switch m {
	case ModNone:
		return "none"
	case ModExact:
		return "exact"
	case ModStartsWith:
		return "startswith"
	case ModEndsWith:
		return "endswith"
	case ModPartialMatch:
		return "partialmatch"
	case ModGreaterThan:
		return "greaterthan"
	case ModLessThan:
		return "lessthan"
	case ModNegation:
		return "negation"
	case ModSort:
		return "sort"
	case ModLimit:
		return "limit"
	case ModRand:
		return "rand"
	}
	return "unknown"
}

// RequiresValue reports whether the modifier demands a non-empty value.
// Sort has its own asc/desc rule and is validated separately; limit and
// rand accept empty values.
func (m Modifier) RequiresValue() bool {
	switch m {
	case ModExact, ModStartsWith, ModEndsWith, ModPartialMatch, ModGreaterThan, ModLessThan, ModNegation:
		return true
	}
	return false
}
