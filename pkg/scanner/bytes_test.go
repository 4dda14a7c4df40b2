package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringField(t *testing.T) {
	payload := []byte(`{"e":"trade","E":1700000000000,"s":"BTCUSDT"}`)

	v, ok := StringField(payload, []byte(`"e"`))
	assert.True(t, ok)
	assert.Equal(t, "trade", string(v))

	v, ok = StringField(payload, []byte(`"s"`))
	assert.True(t, ok)
	assert.Equal(t, "BTCUSDT", string(v))

	_, ok = StringField(payload, []byte(`"E"`))
	assert.False(t, ok)

	_, ok = StringField([]byte(`{"result":null,"id":1}`), []byte(`"e"`))
	assert.False(t, ok)

	_, ok = StringField([]byte(`{"e":"trade`), []byte(`"e"`))
	assert.False(t, ok)
}

func TestStringFieldSpacing(t *testing.T) {
	v, ok := StringField([]byte("{\"event\" :\n \"login\"}"), []byte(`"event"`))
	assert.True(t, ok)
	assert.Equal(t, "login", string(v))
}

func BenchmarkStringField(b *testing.B) {
	payload := []byte(`{"e":"depthUpdate","E":1700000000000,"s":"BTCUSDT","U":157,"u":160,"b":[["0.0024","10"]],"a":[["0.0026","100"]]}`)
	key := []byte(`"e"`)
	for b.Loop() {
		_, _ = StringField(payload, key)
	}
}
