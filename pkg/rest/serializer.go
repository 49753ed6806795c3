package rest

import (
	"encoding/json"
	"strconv"

	"github.com/apidoor/restq/pkg/model"
	"github.com/mitchellh/mapstructure"
)

// extraFieldsKey is the reserved top-level payload key carrying
// join-table fields for many-many relations, keyed by relation name
// then target record id.
const extraFieldsKey = "ManyManyExtraFields"

// Deserializer turns a raw request body into the tagged payload
// consumed by the merge engine. Implementations decide scalar vs.
// id-list shape at this boundary; errors are returned as API errors and
// propagate unchanged.
type Deserializer interface {
	Deserialize(body []byte) (*model.Payload, *Error)
}

// JSONDeserializer is the default body decoder. Attribute names pass
// through the configured NameTranslator and are lowercased, matching
// the column form the query parser produces.
type JSONDeserializer struct {
	Names model.NameTranslator
}

func (d *JSONDeserializer) Deserialize(body []byte) (*model.Payload, *Error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, badRequest("Invalid or malformed payload.")
	}

	payload := &model.Payload{
		Fields: make(map[string]model.PayloadValue, len(raw)),
	}
	if section, ok := raw[extraFieldsKey]; ok {
		delete(raw, extraFieldsKey)
		extra, err := d.decodeExtraFields(section)
		if err != nil {
			return nil, badRequest("Invalid or malformed payload.")
		}
		payload.Extra = extra
	}

	for key, value := range raw {
		attr := d.unformat(key)
		if list, ok := value.([]any); ok {
			payload.Fields[attr] = model.IDListValue(toIDs(list))
			continue
		}
		payload.Fields[attr] = model.ScalarValue(value)
	}
	return payload, nil
}

func (d *JSONDeserializer) unformat(key string) string {
	if d.Names != nil {
		key = d.Names.Unformat(key)
	}
	return key
}

// decodeExtraFields converts the reserved section into its typed form:
// relation name -> target id -> join-table fields. Relation names go
// through the same translation as attribute keys, so the merge engine
// finds the section under the internal name it merges by.
func (d *JSONDeserializer) decodeExtraFields(section any) (map[string]map[int64]map[string]any, error) {
	var byName map[string]map[string]map[string]any
	if err := mapstructure.Decode(section, &byName); err != nil {
		return nil, err
	}

	extra := make(map[string]map[int64]map[string]any, len(byName))
	for relation, byID := range byName {
		name := d.unformat(relation)
		extra[name] = make(map[int64]map[string]any, len(byID))
		for rawID, fields := range byID {
			id, err := strconv.ParseInt(rawID, 10, 64)
			if err != nil {
				continue
			}
			extra[name][id] = fields
		}
	}
	return extra, nil
}

func toIDs(list []any) []int64 {
	ids := make([]int64, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case float64:
			ids = append(ids, int64(v))
		case string:
			if id, err := strconv.ParseInt(v, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
