// internal/announce/parse_test.go
package announce

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testGame = &GameDescriptor{
	Name:    "Test Game",
	IconURL: "https://example.com/icon.png",
	SiteURL: "https://example.com",
}

func parseErr(t *testing.T, err error) *ParseError {
	t.Helper()
	var perr *ParseError
	require.True(t, errors.As(err, &perr), "expected *ParseError, got %v", err)
	return perr
}

func TestParseValidPayload(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec, err := Parse("2;1.0;8;abc;MyGame;00000;p1,p2;Map1;Skirmish;1.2.3.4:1234;", testGame, now)
	require.NoError(t, err)

	assert.Equal(t, "2", rec.ProtocolVersion)
	assert.Equal(t, "1.0", rec.GameVersion)
	assert.Equal(t, 8, rec.MaxPlayers)
	assert.Equal(t, "abc", rec.ChannelName)
	assert.Equal(t, "MyGame", rec.DisplayName)
	assert.False(t, rec.Locked)
	assert.False(t, rec.Passworded)
	assert.False(t, rec.Closed)
	assert.False(t, rec.Loaded)
	assert.False(t, rec.Ladder)
	assert.Equal(t, []string{"p1", "p2"}, rec.Players)
	assert.Equal(t, "Map1", rec.MapName)
	assert.Equal(t, "Skirmish", rec.GameMode)
	assert.Equal(t, "1.2.3.4:1234", rec.TunnelAddr)
	assert.Equal(t, "", rec.LoadedGameID)
	assert.Equal(t, now, rec.Timestamp)
	assert.Same(t, testGame, rec.Game)
}

func TestParseFlagPositions(t *testing.T) {
	t.Parallel()

	rec, err := Parse("2;1.0;8;abc;MyGame;10101;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.NoError(t, err)
	assert.True(t, rec.Locked)
	assert.False(t, rec.Passworded)
	assert.True(t, rec.Closed)
	assert.False(t, rec.Loaded)
	assert.True(t, rec.Ladder)
}

func TestParseEmptyPlayerList(t *testing.T) {
	t.Parallel()

	rec, err := Parse("2;1.0;8;abc;MyGame;00000;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.NoError(t, err)
	assert.Empty(t, rec.Players)
	assert.Equal(t, "", rec.PlayerList())
}

func TestParseFieldCountMismatch(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"too few":     "2;1.0;8;abc",
		"too many":    "2;1.0;8;abc;MyGame;00000;;Map1;Skirmish;1.2.3.4:1234;;extra",
		"empty input": "",
		"ten fields":  "2;1.0;8;abc;MyGame;00000;;Map1;Skirmish;1.2.3.4:1234",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(raw, testGame, time.Now())
			require.Error(t, err)
			assert.Equal(t, FieldCountMismatch, parseErr(t, err).Reason)
		})
	}
}

func TestParseInvalidInteger(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"eight", "-1", "3.5", ""} {
		_, err := Parse("2;1.0;"+bad+";abc;MyGame;00000;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
		require.Error(t, err, "max players %q should be rejected", bad)
		assert.Equal(t, InvalidInteger, parseErr(t, err).Reason)
	}
}

func TestParseInvalidFlag(t *testing.T) {
	t.Parallel()

	_, err := Parse("2;1.0;8;abc;MyGame;00x00;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.Error(t, err)
	perr := parseErr(t, err)
	assert.Equal(t, InvalidFlag, perr.Reason)
	assert.Equal(t, 2, perr.Pos)
}

func TestParseShortFlagString(t *testing.T) {
	t.Parallel()

	_, err := Parse("2;1.0;8;abc;MyGame;000;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.Error(t, err)
	assert.Equal(t, InvalidFlag, parseErr(t, err).Reason)
}

func TestParseTruthyFlagTokens(t *testing.T) {
	t.Parallel()

	rec, err := Parse("2;1.0;8;abc;MyGame;tYnF0;;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.NoError(t, err)
	assert.True(t, rec.Locked)
	assert.True(t, rec.Passworded)
	assert.False(t, rec.Closed)
	assert.False(t, rec.Loaded)
	assert.False(t, rec.Ladder)
}

func TestFlagAndPlayerRoundTrip(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		flags   string
		players string
	}{
		{"00000", "p1,p2"},
		{"10101", "solo"},
		{"11111", "a,b,c,d"},
		{"01010", ""},
	} {
		rec, err := Parse("2;1.0;8;abc;MyGame;"+tc.flags+";"+tc.players+";Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
		require.NoError(t, err)
		assert.Equal(t, tc.flags, rec.FlagString())
		assert.Equal(t, tc.players, rec.PlayerList())
	}
}

func TestParseNeverReturnsPartialRecord(t *testing.T) {
	t.Parallel()

	rec, err := Parse("2;1.0;eight;abc;MyGame;00000;p1;Map1;Skirmish;1.2.3.4:1234;", testGame, time.Now())
	require.Error(t, err)
	assert.Nil(t, rec)
}
