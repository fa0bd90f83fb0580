package repository

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeBodyAppliesSizeCeiling(t *testing.T) {
	r := NewLogRepository(nil, 0) // default 16 MiB

	small := []byte(`{"fine":true}`)
	got := r.serializeBody(small)
	require.NotNil(t, got)
	assert.Equal(t, `{"fine":true}`, *got)

	oversized := bytes.Repeat([]byte("a"), 17*1024*1024)
	got = r.serializeBody(oversized)
	require.NotNil(t, got)
	assert.Equal(t, TooLargeMarker, *got)

	assert.Nil(t, r.serializeBody(nil))
}

func TestSerializeBodyExactLimitIsKept(t *testing.T) {
	r := NewLogRepository(nil, 8)

	got := r.serializeBody([]byte("12345678"))
	require.NotNil(t, got)
	assert.Equal(t, "12345678", *got)

	got = r.serializeBody([]byte("123456789"))
	require.NotNil(t, got)
	assert.Equal(t, TooLargeMarker, *got)
}

func TestSerializeHeadersFlattensMultiValues(t *testing.T) {
	h := http.Header{
		"Accept":   {"application/json", "text/plain"},
		"X-Single": {"one"},
	}

	got := serializeHeaders(h)
	require.NotNil(t, got)

	var flat map[string]string
	require.NoError(t, json.Unmarshal([]byte(*got), &flat))
	assert.Equal(t, "application/json, text/plain", flat["Accept"])
	assert.Equal(t, "one", flat["X-Single"])

	assert.Nil(t, serializeHeaders(nil))
	assert.Nil(t, serializeHeaders(http.Header{}))
}

func TestSerializeValues(t *testing.T) {
	v := url.Values{"page": {"2"}, "tags": {"a", "b"}}

	got := serializeValues(v)
	require.NotNil(t, got)

	var flat map[string]string
	require.NoError(t, json.Unmarshal([]byte(*got), &flat))
	assert.Equal(t, "2", flat["page"])
	assert.Equal(t, "a, b", flat["tags"])

	assert.Nil(t, serializeValues(nil))
}

func TestGenerateRequestID(t *testing.T) {
	pattern := regexp.MustCompile(`^\d+-[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := GenerateRequestID()
		assert.Regexp(t, pattern, id)
		assert.False(t, seen[id], "generated ids must not collide")
		seen[id] = true
	}
}
