package entities

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlideDraftUnmarshal(t *testing.T) {
	t.Run("flat payload fields", func(t *testing.T) {
		var d SlideDraft
		require.NoError(t, json.Unmarshal([]byte(`{"type":"quote","quote":"Less is more.","author":"Mies"}`), &d))
		assert.Equal(t, "quote", d.Type)
		assert.Equal(t, map[string]interface{}{"quote": "Less is more.", "author": "Mies"}, d.Content)
	})

	t.Run("nested content object", func(t *testing.T) {
		var d SlideDraft
		require.NoError(t, json.Unmarshal([]byte(`{"type":"card-grid","content":{"title":"T","items":["a","b"]}}`), &d))
		assert.Equal(t, "card-grid", d.Type)
		assert.Equal(t, map[string]interface{}{"title": "T", "items": []interface{}{"a", "b"}}, d.Content)
	})

	t.Run("missing type leaves it empty", func(t *testing.T) {
		var d SlideDraft
		require.NoError(t, json.Unmarshal([]byte(`{"items":["a"]}`), &d))
		assert.Empty(t, d.Type)
		assert.Equal(t, map[string]interface{}{"items": []interface{}{"a"}}, d.Content)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var d SlideDraft
		assert.Error(t, json.Unmarshal([]byte(`{"type":`), &d))
	})
}

func TestSlideDraftMarshal(t *testing.T) {
	t.Run("emits the flat encoding", func(t *testing.T) {
		d := SlideDraft{Type: "quote", Content: map[string]interface{}{"quote": "x", "author": "y"}}
		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"quote","quote":"x","author":"y"}`, string(data))
	})

	t.Run("type tag wins over a content type key", func(t *testing.T) {
		d := SlideDraft{Type: "card-grid", Content: map[string]interface{}{"type": "hero", "items": []interface{}{"a"}}}
		data, err := json.Marshal(d)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"card-grid","items":["a"]}`, string(data))
	})

	t.Run("round trip", func(t *testing.T) {
		original := SlideDraft{
			Type:    "comparison",
			Content: map[string]interface{}{"title": "Options", "left": map[string]interface{}{"title": "A"}},
		}
		data, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded SlideDraft
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, original, decoded)
	})
}
