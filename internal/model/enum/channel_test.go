package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelRoundTrip(t *testing.T) {
	for _, c := range Channels() {
		assert.True(t, c.IsAvailable())

		parsed, ok := ParseChannel(c.String())
		assert.True(t, ok)
		assert.Equal(t, c, parsed)
	}

	_, ok := ParseChannel("book")
	assert.False(t, ok)
	assert.False(t, Channel(0).IsAvailable())
}
