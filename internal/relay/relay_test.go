// internal/relay/relay_test.go
package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimClientPrefix(t *testing.T) {
	t.Parallel()

	// Game clients prepend 3 bytes of metadata to channel chat.
	assert.Equal(t, "hello there", TrimClientPrefix("\x03\x31\x20hello there"))
	assert.Equal(t, "x", TrimClientPrefix("abcx"))

	// Lines at or under the prefix length are pure metadata.
	assert.Equal(t, "", TrimClientPrefix("abc"))
	assert.Equal(t, "", TrimClientPrefix("ab"))
	assert.Equal(t, "", TrimClientPrefix(""))
}

func TestFormatForIRC(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "<alice> hi all", FormatForIRC("alice", "hi all"))
}

func TestFormatForDiscord(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "**<bob>** good game", FormatForDiscord("bob", "good game"))
}
