package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary_MissingFieldsEncodeAsNull(t *testing.T) {
	title := "A"
	data, err := json.Marshal(Summary{Title: &title})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"A","metaDescription":null,"h1":null}`, string(data))
}

func TestFetchResult_JSONOmitsUnusedVariant(t *testing.T) {
	res := FetchResult{URL: "https://example.com", Mode: ModeFullContent, HTML: "hello", RequestID: "id"}
	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "summary")
	assert.Contains(t, string(data), `"html":"hello"`)
}
