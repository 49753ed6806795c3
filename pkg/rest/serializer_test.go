package rest

import (
	"testing"

	"github.com/apidoor/restq/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONDeserializerScalarAndList(t *testing.T) {
	d := &JSONDeserializer{Names: model.SnakeTranslator{}}
	payload, apiErr := d.Deserialize([]byte(`{"Title": "Chair", "categories": [1, "2", 3]}`))
	require.Nil(t, apiErr)

	title := payload.Fields["title"]
	assert.Equal(t, model.ValueScalar, title.Kind)
	assert.Equal(t, "Chair", title.Scalar)

	categories := payload.Fields["categories"]
	assert.Equal(t, model.ValueIDList, categories.Kind)
	assert.Equal(t, []int64{1, 2, 3}, categories.IDs)
}

func TestJSONDeserializerExtraFields(t *testing.T) {
	d := &JSONDeserializer{}
	payload, apiErr := d.Deserialize([]byte(`{
		"categories": [2],
		"ManyManyExtraFields": {"categories": {"2": {"sortorder": "1"}}}
	}`))
	require.Nil(t, apiErr)

	_, reserved := payload.Fields["ManyManyExtraFields"]
	assert.False(t, reserved, "reserved key must not survive as an attribute")
	require.Contains(t, payload.Extra, "categories")
	assert.Equal(t, map[string]any{"sortorder": "1"}, payload.Extra["categories"][2])
}

func TestJSONDeserializerExtraFieldsPublicNames(t *testing.T) {
	d := &JSONDeserializer{Names: model.SnakeTranslator{}}
	payload, apiErr := d.Deserialize([]byte(`{
		"Categories": [2],
		"ManyManyExtraFields": {"Categories": {"2": {"sortorder": "9"}}}
	}`))
	require.Nil(t, apiErr)

	// The relation name in the reserved section is translated the same
	// way as the attribute key, so both resolve to the internal form.
	require.Contains(t, payload.Fields, "categories")
	require.Contains(t, payload.Extra, "categories")
	assert.Equal(t, map[string]any{"sortorder": "9"}, payload.Extra["categories"][2])
}

func TestJSONDeserializerMalformed(t *testing.T) {
	d := &JSONDeserializer{}
	for _, body := range [][]byte{nil, []byte(""), []byte("{"), []byte(`[1,2]`)} {
		payload, apiErr := d.Deserialize(body)
		require.NotNil(t, apiErr, "body %q", body)
		assert.Nil(t, payload)
		assert.Equal(t, 400, apiErr.Code)
		assert.Equal(t, "Invalid or malformed payload.", apiErr.Message)
	}
}

func TestJSONDeserializerNonNumericExtraIDSkipped(t *testing.T) {
	d := &JSONDeserializer{}
	payload, apiErr := d.Deserialize([]byte(`{"ManyManyExtraFields": {"categories": {"abc": {"x": "1"}}}}`))
	require.Nil(t, apiErr)
	assert.Empty(t, payload.Extra["categories"])
}
