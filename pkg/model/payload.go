package model

// ValueKind tags a payload value as a scalar attribute or a list of
// related record ids. The shape decision is made once, at the
// deserialization boundary; the merge engine never inspects raw JSON.
type ValueKind uint8

const (
	ValueScalar ValueKind = iota
	ValueIDList
)

// PayloadValue is one attribute value from a deserialized request body.
type PayloadValue struct {
	Kind   ValueKind
	Scalar any
	IDs    []int64
}

// ScalarValue wraps v as a scalar payload value.
func ScalarValue(v any) PayloadValue {
	return PayloadValue{Kind: ValueScalar, Scalar: v}
}

// IDListValue wraps ids as a to-many relation payload value.
func IDListValue(ids []int64) PayloadValue {
	return PayloadValue{Kind: ValueIDList, IDs: ids}
}

// Payload is a deserialized request body ready for merging. Extra holds
// per-relation join-table fields keyed by relation name then target id,
// extracted from the reserved top-level payload key.
type Payload struct {
	Fields map[string]PayloadValue
	Extra  map[string]map[int64]map[string]any
}
