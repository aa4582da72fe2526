package redis

import (
	"testing"
	"time"

	"github.com/collinlucke/baphomet-server/internal/repository/redis/converter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "variant:images/poster/w92/abc.jpg", cacheKey("images/poster/w92/abc.jpg"))
}

func TestConverterRoundTrip(t *testing.T) {
	conv := converter.NewConverter()
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	data, err := conv.Marshal(conv.ToRedisModel("images/poster/w92/abc.jpg", "https://cdn/x", at))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"images/poster/w92/abc.jpg","url":"https://cdn/x","cached_at":"2025-05-01T12:00:00Z"}`, string(data))

	model, err := conv.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/x", model.URL)

	_, err = conv.Unmarshal([]byte("{"))
	require.Error(t, err)
}
