// internal/discord/mention_test.go
package discord

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannelMention(t *testing.T) {
	t.Parallel()

	id, err := ParseChannelMention("<#123456789>")
	require.NoError(t, err)
	assert.Equal(t, "123456789", id)

	for _, bad := range []string{"#123", "<#>", "<#12x3>", "<@!123>", "123456789", ""} {
		_, err := ParseChannelMention(bad)
		var merr *NotMentionError
		require.ErrorAs(t, err, &merr, "input %q", bad)
		assert.Equal(t, bad, merr.Input)
		assert.Equal(t, "channel", merr.Kind)
	}
}

func TestParseRoleAndUserMentions(t *testing.T) {
	t.Parallel()

	id, err := ParseRoleMention("<@&42>")
	require.NoError(t, err)
	assert.Equal(t, "42", id)

	id, err = ParseUserMention("<@!77>")
	require.NoError(t, err)
	assert.Equal(t, "77", id)

	_, err = ParseRoleMention("<@!77>")
	assert.Error(t, err)
}

func TestMentionRoundTrip(t *testing.T) {
	t.Parallel()

	id := "987654321"
	parsed, err := ParseChannelMention(FormatChannelMention(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = ParseRoleMention(FormatRoleMention(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	parsed, err = ParseUserMention(FormatUserMention(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}
