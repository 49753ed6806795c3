package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/apidoor/restq/pkg/model"
)

type filterOp struct {
	column string
	mod    model.Modifier
	value  string
}

type sortOp struct {
	column    string
	direction string
}

// query accumulates operations and evaluates them against a snapshot at
// Run time. Filters AND together; sorts compare in the order added;
// rand reorders last, deterministically per seed.
type query struct {
	store    *Store
	entity   string
	filters  []filterOp
	sorts    []sortOp
	randSeed string
	hasRand  bool
	limit    [2]int
	hasLimit bool
}

func (s *Store) Query(entityName string) model.Query {
	return &query{store: s, entity: entityName}
}

func (q *query) Filter(column string, mod model.Modifier, value string) model.Query {
	q.filters = append(q.filters, filterOp{column: column, mod: mod, value: value})
	return q
}

func (q *query) Sort(column, direction string) model.Query {
	if column == "" {
		column = "id"
	}
	q.sorts = append(q.sorts, sortOp{column: column, direction: strings.ToLower(direction)})
	return q
}

func (q *query) SortRand(seed string) model.Query {
	q.randSeed = seed
	q.hasRand = true
	return q
}

func (q *query) Limit(count, offset int) model.Query {
	q.limit = [2]int{count, offset}
	q.hasLimit = true
	return q
}

func (q *query) HasLimit() bool { return q.hasLimit }

func (q *query) Run(_ context.Context) ([]model.Record, error) {
	records := q.store.snapshot(q.entity)

	filtered := records[:0]
	for _, rec := range records {
		if q.matches(rec) {
			filtered = append(filtered, rec)
		}
	}
	records = filtered

	if len(q.sorts) > 0 {
		sort.SliceStable(records, func(i, j int) bool {
			for _, s := range q.sorts {
				cmp := compareValues(records[i].fields[s.column], records[j].fields[s.column])
				if cmp == 0 {
					continue
				}
				if s.direction == "desc" {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if q.hasRand {
		rng := rand.New(rand.NewSource(seedFrom(q.randSeed)))
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})
	}

	if q.hasLimit {
		count, offset := q.limit[0], q.limit[1]
		if offset >= len(records) {
			records = nil
		} else {
			records = records[offset:]
			if count < len(records) {
				records = records[:count]
			}
		}
	}

	out := make([]model.Record, len(records))
	for i, rec := range records {
		out[i] = rec
	}
	return out, nil
}

func (q *query) matches(rec *record) bool {
	for _, f := range q.filters {
		have := strings.ToLower(stringValue(rec.fields[f.column]))
		want := f.value
		var ok bool
		switch f.mod {
		case model.ModStartsWith:
			ok = strings.HasPrefix(have, want)
		case model.ModEndsWith:
			ok = strings.HasSuffix(have, want)
		case model.ModPartialMatch:
			ok = strings.Contains(have, want)
		case model.ModGreaterThan:
			ok = compareValues(rec.fields[f.column], want) > 0
		case model.ModLessThan:
			ok = compareValues(rec.fields[f.column], want) < 0
		case model.ModNegation:
			ok = have != want
		default:
			ok = have == want
		}
		if !ok {
			return false
		}
	}
	return true
}

// compareValues orders two field values numerically when both parse as
// numbers, lexicographically otherwise.
func compareValues(a, b any) int {
	as, bs := stringValue(a), stringValue(b)
	af, aerr := strconv.ParseFloat(as, 64)
	bf, berr := strconv.ParseFloat(bs, 64)
	if aerr == nil && berr == nil {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(as), strings.ToLower(bs))
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func seedFrom(seed string) int64 {
	if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return n
	}
	h := fnv.New64a()
	h.Write([]byte(seed))
	return int64(h.Sum64())
}
