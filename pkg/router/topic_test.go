package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicKind(t *testing.T) {
	for k := _topic_kind_beg + 1; k < _topic_kind_end; k++ {
		assert.True(t, k.IsAvailable())
		assert.NotEqual(t, "unknown", k.String())
	}
	assert.False(t, _topic_kind_beg.IsAvailable())
	assert.False(t, _topic_kind_end.IsAvailable())
	assert.Equal(t, "unknown", TopicKind(0).String())

	assert.True(t, TopicMyTrades.IsPrivate())
	assert.False(t, TopicOrderBook.IsPrivate())
}
