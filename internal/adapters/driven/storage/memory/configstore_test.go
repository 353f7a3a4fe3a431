package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("tool.path", "/opt/hcga"))

	val, ok := store.Get("tool.path")
	assert.True(t, ok)
	assert.Equal(t, "/opt/hcga", val)
	assert.Equal(t, "/opt/hcga", store.GetString("tool.path"))

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("extract.workers", int64(4))
	_ = store.Set("extract.timeout", 2000.0)
	_ = store.Set("stages.get_data", true)

	assert.Equal(t, 4, store.GetInt("extract.workers"))
	assert.Equal(t, 2000, store.GetInt("extract.timeout"))
	assert.True(t, store.GetBool("stages.get_data"))

	// wrong types fall back to zero values
	assert.Equal(t, "", store.GetString("extract.workers"))
	assert.Equal(t, 0, store.GetInt("stages.get_data"))
	assert.False(t, store.GetBool("extract.workers"))
}

func TestConfigStore_Keys(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("stages.feature_analysis", false)
	_ = store.Set("stages.get_data", true)
	_ = store.Set("tool.path", "hcga")

	assert.Equal(t, []string{"stages.feature_analysis", "stages.get_data"}, store.Keys("stages."))
	assert.Empty(t, store.Keys("env."))
}

func TestConfigStore_Path(t *testing.T) {
	assert.Equal(t, ":memory:", NewConfigStore().Path())
	assert.NoError(t, NewConfigStore().Load())
}
